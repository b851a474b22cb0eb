// Package gpg provides the OpenPGP engines used to import untrusted public
// keys into a per-request keyring directory and to read that keyring back.
//
// This package supports:
//   - GnuPG engine, which runs the configured gpg binary with an isolated home directory
//   - Native engine, which parses and stores keys in-process
//   - Parsing of armored public key blocks into entity lists
//   - Re-armoring of key blocks submitted without line breaks
//
// All engines take the keyring directory as an explicit argument on every
// call and hold no per-request state.
package gpg
