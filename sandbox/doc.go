// Package sandbox owns the lifecycle of ephemeral keyrings: one randomly
// named directory per request, under a pre-existing tmp folder, used as
// the OpenPGP engine home for a single import.
//
// The directory is removed on every exit path of ImportAndVerify,
// including engine failures, context cancellation and panics.
package sandbox
