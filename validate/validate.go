// Package validate provides syntactic checks for the values accepted by
// the keyhandler service: passwords, armored public key blocks and
// OpenPGP v4 fingerprints.
//
// The checks are pure and never inspect key material beyond its
// character set.
package validate

import "strings"

const (
	// PublicKeyHeader is the mandatory first line of an armored public key block
	PublicKeyHeader = "-----BEGIN PGP PUBLIC KEY BLOCK-----"
	// PublicKeyFooter is the mandatory last line of an armored public key block
	PublicKeyFooter = "-----END PGP PUBLIC KEY BLOCK-----"

	// FingerprintLength is the length of a hex encoded v4 fingerprint
	FingerprintLength = 40
)

// Policy controls the behaviour of the validators where the accepted
// input format is a deployment decision.
type Policy struct {
	// AllowEmptyPassword accepts an empty password as syntactically valid
	AllowEmptyPassword bool `json:"allow_empty_password" yaml:"allow_empty_password"`
	// NormalizeLineBreaks removes CR and LF from the key block payload
	// before the character check, so armored blocks with line breaks pass
	NormalizeLineBreaks bool `json:"normalize_line_breaks" yaml:"normalize_line_breaks"`
}

// DefaultPolicy rejects empty passwords and accepts armored blocks with
// embedded line breaks.
var DefaultPolicy = Policy{
	AllowEmptyPassword:  false,
	NormalizeLineBreaks: true,
}

// ValidatePassword reports whether s is a base64-shaped password,
// using DefaultPolicy.
func ValidatePassword(s string) bool {
	return DefaultPolicy.ValidatePassword(s)
}

// ValidateKeyBlock reports whether s is a well-formed armored public key
// block, using DefaultPolicy.
func ValidateKeyBlock(s string) bool {
	return DefaultPolicy.ValidateKeyBlock(s)
}

// ValidatePassword reports whether every character of s is in
// [A-Za-z0-9+/=].
func (p Policy) ValidatePassword(s string) bool {
	if s == "" {
		return p.AllowEmptyPassword
	}
	return isBase64Charset(s)
}

// ValidateKeyBlock reports whether s starts with PublicKeyHeader,
// ends with PublicKeyFooter, and the remaining payload holds only
// [A-Za-z0-9+/=] characters.
func (p Policy) ValidateKeyBlock(s string) bool {
	if !strings.HasPrefix(s, PublicKeyHeader) || !strings.HasSuffix(s, PublicKeyFooter) {
		return false
	}

	payload := strings.Replace(s, PublicKeyHeader, "", 1)
	payload = strings.Replace(payload, PublicKeyFooter, "", 1)

	if p.NormalizeLineBreaks {
		payload = stripLineBreaks(payload)
	}

	return isBase64Charset(payload)
}

// ValidateFingerprint reports whether s is exactly 40 characters of
// uppercase hex.
func ValidateFingerprint(s string) bool {
	if len(s) != FingerprintLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9') && !(c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}

// ValidateFingerprint is the same as the package level ValidateFingerprint,
// fingerprints are not subject to policy.
func (p Policy) ValidateFingerprint(s string) bool {
	return ValidateFingerprint(s)
}

func isBase64Charset(s string) bool {
	for _, c := range s {
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '+', c == '/', c == '=':
		default:
			return false
		}
	}
	return true
}

func stripLineBreaks(s string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}
