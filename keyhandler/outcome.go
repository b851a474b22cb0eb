package keyhandler

// Outcome is the terminal result of a fingerprint request
type Outcome int

// Outcomes
const (
	Done Outcome = iota
	PasswordNone
	PublicKeyNone
	PasswordInvalid
	PublicKeyInvalid
	WrongPassword
	TmpFolderMissing
	ImportFailed
	FingerprintNone
	FingerprintInvalid
	KeyNotFound
)

// Categories of outcomes
const (
	CategorySuccess        = "success"
	CategoryInput          = "input"
	CategoryAuthentication = "authentication"
	CategoryEnvironment    = "environment"
	CategoryEngine         = "engine"
)

type outcomeInfo struct {
	name     string
	message  string
	category string
}

var outcomes = map[Outcome]outcomeInfo{
	Done:               {"done", "done fingerprint: ", CategorySuccess},
	PasswordNone:       {"password_none", "error: password is none", CategoryInput},
	PublicKeyNone:      {"public_key_none", "error: public_key is none", CategoryInput},
	PasswordInvalid:    {"password_invalid", "error: password validation failed", CategoryInput},
	PublicKeyInvalid:   {"public_key_invalid", "error: public key validation failed", CategoryInput},
	WrongPassword:      {"wrong_password", "error: wrong password", CategoryAuthentication},
	TmpFolderMissing:   {"tmp_folder_missing", "error: failed to get fingerprint from public key because tmp_folder do not exist", CategoryEnvironment},
	ImportFailed:       {"import_failed", "error: failed to get fingerprint from public key", CategoryEngine},
	FingerprintNone:    {"fingerprint_none", "error: import_result.fingerprints is None", CategoryEngine},
	FingerprintInvalid: {"fingerprint_invalid", "error: import_result.fingerprints validation failed", CategoryEngine},
	KeyNotFound:        {"key_not_found", "error: failed to find key", CategoryEngine},
}

// String returns the outcome name used in logs and metric tags
func (o Outcome) String() string {
	if i, ok := outcomes[o]; ok {
		return i.name
	}
	return "unknown"
}

// Message returns the response text of the outcome.
// For Done the fingerprint is appended by Response.String.
func (o Outcome) Message() string {
	return outcomes[o].message
}

// Category returns the error class of the outcome
func (o Outcome) Category() string {
	return outcomes[o].category
}

// Response to a fingerprint request
type Response struct {
	Outcome     Outcome
	Fingerprint string
}

// String returns the plain text response
func (r *Response) String() string {
	if r.Outcome == Done {
		return r.Outcome.Message() + r.Fingerprint
	}
	return r.Outcome.Message()
}
