// Package credential verifies a caller password against a single
// argon2 reference hash encoded in the PHC string format:
//
//	$argon2id$v=19$m=65536,t=3,p=4$<salt>$<key>
//
// Salt and key are encoded with unpadded standard base64.
package credential

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"golang.org/x/crypto/argon2"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/keyhandler", "credential")

// Result of a password verification
type Result int

const (
	// Mismatch means the password does not match the reference hash
	Mismatch Result = iota
	// Match means the password matches the reference hash
	Match
	// MalformedHash means the reference hash could not be decoded
	MalformedHash
)

func (r Result) String() string {
	switch r {
	case Match:
		return "match"
	case Mismatch:
		return "mismatch"
	case MalformedHash:
		return "malformed_hash"
	}
	return "unknown"
}

const (
	variantID = "argon2id"
	variantI  = "argon2i"
)

// Params are argon2 cost parameters
type Params struct {
	// Variant is argon2id or argon2i
	Variant string
	// Time is the number of iterations
	Time uint32
	// Memory in KiB
	Memory uint32
	// Threads is the degree of parallelism
	Threads uint8
	// KeyLength is the length of the derived key in bytes
	KeyLength uint32
	// SaltLength is the length of the random salt in bytes
	SaltLength uint32
}

// DefaultParams matches the argon2-cffi PasswordHasher defaults
var DefaultParams = Params{
	Variant:    variantID,
	Time:       3,
	Memory:     64 * 1024,
	Threads:    4,
	KeyLength:  32,
	SaltLength: 16,
}

type decodedHash struct {
	params Params
	salt   []byte
	key    []byte
}

// Verifier checks passwords against a reference hash fixed at construction
type Verifier struct {
	referenceHash string
}

// NewVerifier returns a Verifier for the reference hash.
// The hash is not parsed here, a malformed hash fails every Verify call.
func NewVerifier(referenceHash string) *Verifier {
	return &Verifier{referenceHash: referenceHash}
}

// Verify checks the password against the reference hash
func (v *Verifier) Verify(password string) Result {
	return Verify(v.referenceHash, password)
}

// Verify checks password against the encoded argon2 referenceHash
func Verify(referenceHash, password string) Result {
	h, err := decode(referenceHash)
	if err != nil {
		logger.KV(xlog.ERROR, "reason", "malformed_hash", "err", err.Error())
		return MalformedHash
	}

	key := derive(h.params, []byte(password), h.salt, uint32(len(h.key)))
	if subtle.ConstantTimeCompare(key, h.key) == 1 {
		return Match
	}
	return Mismatch
}

// Hash returns the PHC encoded argon2 hash of the password with a fresh salt
func Hash(password string, p Params) (string, error) {
	if p.Variant == "" {
		p.Variant = variantID
	}
	if p.Variant != variantID && p.Variant != variantI {
		return "", errors.Errorf("unsupported argon2 variant: %q", p.Variant)
	}
	if p.Time == 0 || p.Memory == 0 || p.Threads == 0 || p.KeyLength == 0 || p.SaltLength == 0 {
		return "", errors.New("argon2 parameters must be positive")
	}

	salt := make([]byte, p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", errors.WithMessage(err, "failed to generate salt")
	}

	key := derive(p, []byte(password), salt, p.KeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		p.Variant,
		argon2.Version,
		p.Memory, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func derive(p Params, password, salt []byte, keyLen uint32) []byte {
	if p.Variant == variantI {
		return argon2.Key(password, salt, p.Time, p.Memory, p.Threads, keyLen)
	}
	return argon2.IDKey(password, salt, p.Time, p.Memory, p.Threads, keyLen)
}

// decode parses `$<variant>$v=<version>$m=<m>,t=<t>,p=<p>$<salt>$<key>`
func decode(encoded string) (*decodedHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, errors.Errorf("expected 5 fields, got %d", len(parts)-1)
	}

	h := &decodedHash{}
	h.params.Variant = parts[1]
	if h.params.Variant != variantID && h.params.Variant != variantI {
		return nil, errors.Errorf("unsupported variant: %q", h.params.Variant)
	}

	version, err := parseKV(parts[2], "v")
	if err != nil {
		return nil, err
	}
	if version != argon2.Version {
		return nil, errors.Errorf("unsupported version: %d", version)
	}

	costs := strings.Split(parts[3], ",")
	if len(costs) != 3 {
		return nil, errors.Errorf("invalid parameters: %q", parts[3])
	}
	m, err := parseKV(costs[0], "m")
	if err != nil {
		return nil, err
	}
	t, err := parseKV(costs[1], "t")
	if err != nil {
		return nil, err
	}
	p, err := parseKV(costs[2], "p")
	if err != nil {
		return nil, err
	}
	if m == 0 || t == 0 || p == 0 || p > 255 {
		return nil, errors.Errorf("invalid parameters: %q", parts[3])
	}
	h.params.Memory = uint32(m)
	h.params.Time = uint32(t)
	h.params.Threads = uint8(p)

	h.salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, errors.WithMessage(err, "invalid salt")
	}
	h.key, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, errors.WithMessage(err, "invalid key")
	}
	if len(h.salt) < 8 || len(h.key) < 4 {
		return nil, errors.New("salt or key too short")
	}

	return h, nil
}

func parseKV(s, name string) (uint64, error) {
	prefix := name + "="
	if !strings.HasPrefix(s, prefix) {
		return 0, errors.Errorf("expected %q parameter, got %q", name, s)
	}
	v, err := strconv.ParseUint(s[len(prefix):], 10, 32)
	if err != nil {
		return 0, errors.WithMessagef(err, "invalid %q parameter", name)
	}
	return v, nil
}
