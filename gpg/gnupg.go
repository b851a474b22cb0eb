package gpg

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/keyhandler/metricskey"
	"github.com/effective-security/xlog"
)

// GnuPGEngineName is the name of the GnuPG subprocess engine
const GnuPGEngineName = "gnupg"

// maxStderr limits how much of gpg stderr ends up in error messages
const maxStderr = 512

// GnuPG is an Engine which calls out to a GnuPG binary.
// The keyring lives in home/<base name of home>, the same directory is
// used as --homedir, so nothing outside of home is ever read or written.
type GnuPG struct {
	binary string
}

// NewGnuPG returns an engine for the gpg binary
func NewGnuPG(binary string) (*GnuPG, error) {
	if binary == "" {
		return nil, errors.New("gpg binary path is not specified")
	}
	return &GnuPG{binary: binary}, nil
}

// Name returns the engine name
func (g *GnuPG) Name() string {
	return GnuPGEngineName
}

// Binary returns the path to gpg
func (g *GnuPG) Binary() string {
	return g.binary
}

// Import runs `gpg --import` with keyBlock on stdin
func (g *GnuPG) Import(ctx context.Context, home, keyBlock string) (*ImportOutcome, error) {
	defer metricskey.PerfEngineOperation.MeasureSince(time.Now(), GnuPGEngineName, "import")

	stdout, err := g.run(ctx, home, keyBlock, "--import")
	if err != nil {
		// gpg exits with non-zero code when some of the keys were not
		// imported, the status lines still describe what happened
		if stdout == "" || !strings.Contains(stdout, statusImportRes) {
			return nil, err
		}
		logger.KV(xlog.DEBUG, "reason", "import_exit_code", "home", home, "err", err.Error())
	}

	res, err := parseImportStatus(stdout)
	if err != nil {
		return nil, err
	}

	logger.KV(xlog.DEBUG, "engine", GnuPGEngineName, "home", home, "count", res.Count)
	return res, nil
}

// ListEntries runs `gpg --list-keys` in colon format
func (g *GnuPG) ListEntries(ctx context.Context, home string) ([]KeyringEntry, error) {
	defer metricskey.PerfEngineOperation.MeasureSince(time.Now(), GnuPGEngineName, "list")

	stdout, err := g.run(ctx, home, "",
		"--with-colons",
		"--fixed-list-mode",
		"--with-fingerprint",
		"--list-keys",
	)
	if err != nil {
		return nil, err
	}

	return parseListKeys(stdout), nil
}

// run executes gpg and returns stdout, which carries the status lines
func (g *GnuPG) run(ctx context.Context, home, stdin string, arguments ...string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.WithStack(err)
	}

	fullArguments := g.prependGlobalArguments(home, arguments...)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, g.binary, fullArguments...)
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > maxStderr {
			msg = msg[:maxStderr]
		}
		return stdout.String(), errors.Wrapf(err, "gpg %s failed: %s", strings.Join(arguments, " "), msg)
	}

	return stdout.String(), nil
}

func (g *GnuPG) prependGlobalArguments(home string, arguments ...string) []string {
	globalArguments := []string{
		"--homedir", home,
		"--no-default-keyring",
		"--keyring", filepath.Join(home, filepath.Base(home)),
		"--batch",
		"--no-tty",
		"--no-autostart",
		"--no-auto-check-trustdb",
		"--keyid-format", "0xlong",
		"--status-fd", "1",
	}
	return append(globalArguments, arguments...)
}
