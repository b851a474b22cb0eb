// Package keyhandler implements the fingerprint request workflow:
// input validation, password verification, import of the key into an
// ephemeral keyring and formatting of the response.
package keyhandler

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/keyhandler/credential"
	"github.com/effective-security/keyhandler/gpg"
	"github.com/effective-security/keyhandler/metricskey"
	"github.com/effective-security/keyhandler/sandbox"
	"github.com/effective-security/keyhandler/validate"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/keyhandler", "keyhandler")

// PasswordVerifier checks a caller password
type PasswordVerifier interface {
	Verify(password string) credential.Result
}

// KeyImporter imports a key block into an ephemeral keyring and returns
// the verified fingerprint
type KeyImporter interface {
	ImportAndVerify(ctx context.Context, keyBlock string) (string, error)
}

// Request carries the form values, nil means the field was not submitted
type Request struct {
	PublicKey *string
	Password  *string
}

// Config for the Service
type Config struct {
	Policy   validate.Policy
	Verifier PasswordVerifier
	Importer KeyImporter
	// FailedAuthDelay is waited before a wrong password is reported
	FailedAuthDelay time.Duration
	// Observer is notified on the Validated and Authenticated transitions
	Observer sandbox.Observer
}

// Service handles fingerprint requests.
// It holds only read-only state and is safe for concurrent use.
type Service struct {
	cfg Config
}

// New returns a Service
func New(cfg Config) (*Service, error) {
	if cfg.Verifier == nil {
		return nil, errors.New("password verifier is required")
	}
	if cfg.Importer == nil {
		return nil, errors.New("key importer is required")
	}
	return &Service{cfg: cfg}, nil
}

// GetFingerprint runs the request workflow and always returns a Response
func (s *Service) GetFingerprint(ctx context.Context, req Request) *Response {
	started := time.Now()

	res := s.getFingerprint(ctx, req)

	outcome := res.Outcome.String()
	metricskey.PerfFingerprintRequest.MeasureSince(started, outcome)
	metricskey.StatsFingerprintRequests.IncrCounter(1, outcome)

	if res.Outcome == Done {
		logger.KV(xlog.INFO, "status", outcome, "fingerprint", res.Fingerprint)
	} else {
		logger.KV(xlog.NOTICE, "status", outcome, "category", res.Outcome.Category())
	}
	return res
}

func (s *Service) getFingerprint(ctx context.Context, req Request) *Response {
	if req.Password == nil {
		return &Response{Outcome: PasswordNone}
	}
	if req.PublicKey == nil {
		return &Response{Outcome: PublicKeyNone}
	}

	password := strings.TrimSpace(*req.Password)
	keyBlock := strings.TrimSpace(*req.PublicKey)

	if !s.cfg.Policy.ValidatePassword(password) {
		return &Response{Outcome: PasswordInvalid}
	}
	if !s.cfg.Policy.ValidateKeyBlock(keyBlock) {
		return &Response{Outcome: PublicKeyInvalid}
	}
	s.notify(sandbox.Validated)

	if r := s.cfg.Verifier.Verify(password); r != credential.Match {
		logger.KV(xlog.NOTICE, "reason", "authentication", "result", r.String())
		if s.cfg.FailedAuthDelay > 0 {
			select {
			case <-time.After(s.cfg.FailedAuthDelay):
			case <-ctx.Done():
			}
		}
		return &Response{Outcome: WrongPassword}
	}
	s.notify(sandbox.Authenticated)

	fingerprint, err := s.cfg.Importer.ImportAndVerify(ctx, gpg.Reflow(keyBlock))
	if err != nil {
		return &Response{Outcome: outcomeOf(err)}
	}

	return &Response{
		Outcome:     Done,
		Fingerprint: fingerprint,
	}
}

func (s *Service) notify(state sandbox.State) {
	if s.cfg.Observer != nil {
		s.cfg.Observer(state, "")
	}
}

func outcomeOf(err error) Outcome {
	switch {
	case errors.Is(err, sandbox.ErrTmpFolderMissing):
		return TmpFolderMissing
	case errors.Is(err, sandbox.ErrFingerprintNone):
		return FingerprintNone
	case errors.Is(err, sandbox.ErrFingerprintInvalid):
		return FingerprintInvalid
	case errors.Is(err, sandbox.ErrKeyNotFound):
		return KeyNotFound
	default:
		return ImportFailed
	}
}
