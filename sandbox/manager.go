package sandbox

import (
	"context"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/keyhandler/gpg"
	"github.com/effective-security/keyhandler/metricskey"
	"github.com/effective-security/keyhandler/validate"
	"github.com/effective-security/xlog"
	"github.com/spf13/afero"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/keyhandler", "sandbox")

// Errors returned by ImportAndVerify, test with errors.Is
var (
	// ErrTmpFolderMissing means the configured tmp folder does not exist
	ErrTmpFolderMissing = errors.New("tmp_folder does not exist")
	// ErrImportFailed means the engine did not import exactly one key
	ErrImportFailed = errors.New("failed to import public key")
	// ErrFingerprintNone means the engine reported no fingerprint
	ErrFingerprintNone = errors.New("import result has no fingerprint")
	// ErrFingerprintInvalid means the reported fingerprint is malformed
	ErrFingerprintInvalid = errors.New("import result has invalid fingerprint")
	// ErrKeyNotFound means the reported fingerprint is not in the keyring
	ErrKeyNotFound = errors.New("imported key not found in keyring")
)

// Config for the Manager
type Config struct {
	// TmpFolder is the existing directory sandboxes are created in
	TmpFolder string
	// TokenLength is the length of sandbox names, at least MinTokenLength
	TokenLength int
	// Fs is the file system, the OS file system when nil
	Fs afero.Fs
	// Observer is optional
	Observer Observer
}

// Manager creates ephemeral keyrings and runs the import and
// cross-check workflow in them
type Manager struct {
	root        string
	tokenLength int
	fs          afero.Fs
	engine      gpg.Engine
	observer    Observer
}

// NewManager returns a Manager driving the engine
func NewManager(engine gpg.Engine, cfg Config) (*Manager, error) {
	if engine == nil {
		return nil, errors.New("engine is required")
	}
	if cfg.TmpFolder == "" {
		return nil, errors.New("tmp_folder is required")
	}
	if cfg.TokenLength == 0 {
		cfg.TokenLength = MinTokenLength
	}
	if cfg.TokenLength < MinTokenLength {
		return nil, errors.Errorf("token length must be at least %d", MinTokenLength)
	}

	m := &Manager{
		root:        cfg.TmpFolder,
		tokenLength: cfg.TokenLength,
		fs:          cfg.Fs,
		engine:      engine,
		observer:    cfg.Observer,
	}
	if m.fs == nil {
		m.fs = afero.NewOsFs()
	}
	return m, nil
}

// Root returns the tmp folder
func (m *Manager) Root() string {
	return m.root
}

// Engine returns the OpenPGP engine
func (m *Manager) Engine() gpg.Engine {
	return m.engine
}

// Create makes a new empty keyring directory.
// The caller owns the returned Keyring and must Destroy it.
func (m *Manager) Create() (*Keyring, error) {
	exists, err := afero.DirExists(m.fs, m.root)
	if err != nil || !exists {
		logger.KV(xlog.ERROR,
			"reason", "tmp_folder_missing",
			"tmp_folder", m.root,
			"err", err,
		)
		return nil, errors.Wrapf(ErrTmpFolderMissing, "tmp_folder %q", m.root)
	}

	token, err := NewToken(m.tokenLength)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(m.root, token)
	// Mkdir fails when the directory exists, so a sandbox is never shared
	if err = m.fs.Mkdir(path, 0700); err != nil {
		return nil, errors.WithMessagef(err, "unable to create sandbox")
	}

	logger.KV(xlog.DEBUG, "status", "created", "sandbox", path)

	return &Keyring{
		token: token,
		path:  path,
		fs:    m.fs,
	}, nil
}

// ImportAndVerify imports keyBlock into a fresh keyring and returns the
// fingerprint of the imported key, once it was found in the keyring listing.
// The keyring is destroyed before ImportAndVerify returns.
func (m *Manager) ImportAndVerify(ctx context.Context, keyBlock string) (fingerprint string, err error) {
	if err = ctx.Err(); err != nil {
		m.notify(Failed, "")
		return "", errors.Mark(errors.WithStack(err), ErrImportFailed)
	}

	kr, err := m.Create()
	if err != nil {
		m.notify(Failed, "")
		if !errors.Is(err, ErrTmpFolderMissing) {
			err = errors.Mark(err, ErrImportFailed)
		}
		return "", err
	}
	m.notify(SandboxCreated, kr.Path())

	defer func() {
		// an engine panic is reported as Failed, and raised again after teardown
		r := recover()
		if r != nil {
			logger.KV(xlog.ERROR, "reason", "engine_panic", "engine", m.engine.Name(), "sandbox", kr.Path(), "panic", r)
		}
		if err != nil || r != nil {
			m.notify(Failed, kr.Path())
		}
		if derr := kr.Destroy(); derr != nil {
			metricskey.StatsSandboxTeardownFailures.IncrCounter(1)
			logger.KV(xlog.ERROR, "reason", "teardown", "sandbox", kr.Path(), "err", derr.Error())
		}
		m.notify(CleanedUp, kr.Path())
		if r != nil {
			panic(r)
		}
	}()

	return m.importAndVerify(ctx, kr.Path(), keyBlock)
}

func (m *Manager) importAndVerify(ctx context.Context, path, keyBlock string) (string, error) {
	res, err := m.engine.Import(ctx, path, keyBlock)
	if err != nil {
		logger.KV(xlog.ERROR, "reason", "import", "engine", m.engine.Name(), "sandbox", path, "err", err.Error())
		return "", errors.Mark(errors.WithMessage(err, "import"), ErrImportFailed)
	}
	if res == nil || res.Count != 1 {
		count := 0
		if res != nil {
			count = res.Count
		}
		logger.KV(xlog.ERROR, "reason", "import_count", "sandbox", path, "count", count)
		return "", errors.Wrapf(ErrImportFailed, "imported %d keys", count)
	}
	m.notify(Imported, path)

	if len(res.Fingerprints) == 0 || res.Fingerprints[0] == "" {
		logger.KV(xlog.ERROR, "reason", "no_fingerprint", "sandbox", path)
		return "", errors.WithStack(ErrFingerprintNone)
	}
	if len(res.Fingerprints) > 1 {
		logger.KV(xlog.ERROR, "reason", "fingerprints_count", "sandbox", path, "count", len(res.Fingerprints))
		return "", errors.Wrapf(ErrImportFailed, "reported %d fingerprints", len(res.Fingerprints))
	}

	fingerprint := res.Fingerprints[0]
	if !validate.ValidateFingerprint(fingerprint) {
		logger.KV(xlog.ERROR, "reason", "invalid_fingerprint", "sandbox", path)
		return "", errors.WithStack(ErrFingerprintInvalid)
	}
	m.notify(FingerprintExtracted, path)

	entries, err := m.engine.ListEntries(ctx, path)
	if err != nil {
		logger.KV(xlog.ERROR, "reason", "list", "engine", m.engine.Name(), "sandbox", path, "err", err.Error())
		return "", errors.Mark(errors.WithMessage(err, "list keys"), ErrKeyNotFound)
	}

	var found bool
	for _, e := range entries {
		if e.Fingerprint == fingerprint {
			found = true
			break
		}
	}
	if !found {
		logger.KV(xlog.ERROR, "reason", "key_not_found", "fingerprint", fingerprint, "sandbox", path)
		return "", errors.WithStack(ErrKeyNotFound)
	}
	m.notify(CrossChecked, path)

	logger.KV(xlog.INFO, "status", "imported", "fingerprint", fingerprint, "sandbox", path)
	return fingerprint, nil
}

func (m *Manager) notify(state State, path string) {
	logger.KV(xlog.TRACE, "state", state.String(), "sandbox", path)
	if m.observer != nil {
		m.observer(state, path)
	}
}
