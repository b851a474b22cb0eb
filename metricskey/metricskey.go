package metricskey

import "github.com/effective-security/metrics"

// Perf
var (
	// PerfEngineOperation is perf metric
	PerfEngineOperation = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_engine",
		Help:         "perf_engine provides the sample metrics of OpenPGP engine operations",
		RequiredTags: []string{"engine", "action"},
	}

	// PerfFingerprintRequest is perf metric
	PerfFingerprintRequest = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_fingerprint_req",
		Help:         "perf_fingerprint_req provides the sample metrics of get_fingerprint requests",
		RequiredTags: []string{"outcome"},
	}
)

// Stats
var (
	// StatsFingerprintRequests is counter metric
	StatsFingerprintRequests = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "fingerprint_requests",
		Help:         "fingerprint_requests provides the number of get_fingerprint requests by outcome",
		RequiredTags: []string{"outcome"},
	}

	// StatsSandboxTeardownFailures is counter metric
	StatsSandboxTeardownFailures = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "sandbox_teardown_failures",
		Help:         "sandbox_teardown_failures provides the number of sandboxes that could not be removed",
		RequiredTags: []string{},
	}
)

// Metrics returns slice of metrics from this repo
var Metrics = []*metrics.Describe{
	&PerfEngineOperation,
	&PerfFingerprintRequest,
	&StatsFingerprintRequests,
	&StatsSandboxTeardownFailures,
}
