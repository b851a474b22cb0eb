package cli

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/keyhandler/config"
	"github.com/effective-security/keyhandler/credential"
	"github.com/effective-security/keyhandler/gpg"
	"github.com/effective-security/keyhandler/keyhandler"
	"github.com/effective-security/keyhandler/sandbox"
	"github.com/effective-security/x/ctl"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/keyhandler", "cli")

// Cli provides CLI context to run commands
type Cli struct {
	Version  ctl.VersionFlag `name:"version" help:"Print version information and quit" hidden:""`
	Debug    bool            `short:"D" help:"Enable debug mode"`
	LogLevel string          `short:"l" help:"Set the logging level (trace|debug|info|notice|warning|error), overrides log_level from the config"`

	// Stdin is the source to read from, typically set to os.Stdin
	stdin io.Reader
	// Output is the destination for all output from the command, typically set to os.Stdout
	output io.Writer
	// ErrOutput is the destinaton for errors.
	// If not set, errors will be written to os.StdError
	errOutput io.Writer

	ctx context.Context
}

// Context for requests
func (c *Cli) Context() context.Context {
	if c.ctx == nil {
		c.ctx = context.Background()
	}
	return c.ctx
}

// WithContext allows to specify a custom context
func (c *Cli) WithContext(ctx context.Context) *Cli {
	c.ctx = ctx
	return c
}

// Reader is the source to read from, typically set to os.Stdin
func (c *Cli) Reader() io.Reader {
	if c.stdin != nil {
		return c.stdin
	}
	return os.Stdin
}

// WithReader allows to specify a custom reader
func (c *Cli) WithReader(reader io.Reader) *Cli {
	c.stdin = reader
	return c
}

// Writer returns a writer for control output
func (c *Cli) Writer() io.Writer {
	if c.output != nil {
		return c.output
	}
	return os.Stdout
}

// WithWriter allows to specify a custom writer
func (c *Cli) WithWriter(out io.Writer) *Cli {
	c.output = out
	return c
}

// ErrWriter returns a writer for control output
func (c *Cli) ErrWriter() io.Writer {
	if c.errOutput != nil {
		return c.errOutput
	}
	return os.Stderr
}

// WithErrWriter allows to specify a custom error writer
func (c *Cli) WithErrWriter(out io.Writer) *Cli {
	c.errOutput = out
	return c
}

// AfterApply hook sets the log level
func (c *Cli) AfterApply(_ *kong.Kong, _ kong.Vars) error {
	if c.Debug {
		xlog.SetGlobalLogLevel(xlog.DEBUG)
		return nil
	}
	level := c.LogLevel
	if level == "" {
		level = "error"
	}
	return setLogLevel(level)
}

// ApplyConfigLogLevel sets the level from the configuration,
// unless it was specified on the command line
func (c *Cli) ApplyConfigLogLevel(level string) error {
	if c.Debug || c.LogLevel != "" || level == "" {
		return nil
	}
	return setLogLevel(level)
}

func setLogLevel(level string) error {
	l, err := xlog.ParseLevel(strings.ToUpper(strings.TrimLeft(level, "=")))
	if err != nil {
		return errors.WithStack(err)
	}
	xlog.SetGlobalLogLevel(l)
	return nil
}

// ReadFile reads from stdin if the file is "-"
func (c *Cli) ReadFile(filename string) ([]byte, error) {
	if filename == "" {
		return nil, errors.New("empty file name")
	}
	if filename == "-" {
		return io.ReadAll(c.Reader())
	}
	b, err := os.ReadFile(filename)
	return b, errors.WithStack(err)
}

// NewService builds the fingerprint Service from the configuration
func NewService(cfg *config.Configuration) (*keyhandler.Service, error) {
	engine, err := gpg.LoadEngine(cfg.Engine, cfg.GPGBinaryPath)
	if err != nil {
		return nil, err
	}

	mgr, err := sandbox.NewManager(engine, sandbox.Config{
		TmpFolder:   cfg.TmpFolder,
		TokenLength: cfg.TokenLength,
	})
	if err != nil {
		return nil, err
	}

	svc, err := keyhandler.New(keyhandler.Config{
		Policy:          cfg.Validation,
		Verifier:        credential.NewVerifier(cfg.PasswordHash),
		Importer:        mgr,
		FailedAuthDelay: cfg.FailedAuthDelay,
	})
	if err != nil {
		return nil, err
	}

	logger.KV(xlog.INFO,
		"engine", engine.Name(),
		"tmp_folder", cfg.TmpFolder,
		"token_length", cfg.TokenLength,
	)
	return svc, nil
}
