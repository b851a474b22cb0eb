package sandbox

// State of a fingerprint request
type State int

// States in the order a successful request passes them
const (
	Init State = iota
	Validated
	Authenticated
	SandboxCreated
	Imported
	FingerprintExtracted
	CrossChecked
	CleanedUp
	Failed
)

var stateNames = map[State]string{
	Init:                 "init",
	Validated:            "validated",
	Authenticated:        "authenticated",
	SandboxCreated:       "sandbox_created",
	Imported:             "imported",
	FingerprintExtracted: "fingerprint_extracted",
	CrossChecked:         "cross_checked",
	CleanedUp:            "cleaned_up",
	Failed:               "failed",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

// Observer is notified on every state transition, sandboxPath is empty
// until the sandbox is created
type Observer func(state State, sandboxPath string)
