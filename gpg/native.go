package gpg

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/keyhandler/metricskey"
	"github.com/effective-security/xlog"
	"github.com/spf13/afero"
)

const (
	// NativeEngineName is the name of the in-process engine
	NativeEngineName = "native"

	// NativeKeyringFile is the file name of the native keyring inside home
	NativeKeyringFile = "pubring.gpg"
)

// Native is an Engine which parses keys in-process and stores them as a
// binary keyring file in the home directory.
type Native struct {
	fs afero.Fs
}

// NewNative returns the in-process engine on the OS file system
func NewNative() *Native {
	return NewNativeWithFs(afero.NewOsFs())
}

// NewNativeWithFs returns the in-process engine storing keyrings in fs,
// which must be the file system the home directories are created in
func NewNativeWithFs(fs afero.Fs) *Native {
	return &Native{fs: fs}
}

// Name returns the engine name
func (n *Native) Name() string {
	return NativeEngineName
}

// Import adds the keys from the armored keyBlock to home/pubring.gpg
func (n *Native) Import(ctx context.Context, home, keyBlock string) (*ImportOutcome, error) {
	defer metricskey.PerfEngineOperation.MeasureSince(time.Now(), NativeEngineName, "import")

	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	el, err := KeyRing([]byte(keyBlock))
	if err != nil {
		return nil, err
	}

	f, err := n.fs.OpenFile(filepath.Join(home, NativeKeyringFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	res := &ImportOutcome{}
	for _, e := range el {
		if err = e.Serialize(f); err != nil {
			return nil, errors.WithMessage(err, "unable to store key")
		}
		res.Count++
		res.Fingerprints = append(res.Fingerprints, Fingerprint(e))
	}

	if err = f.Sync(); err != nil {
		return nil, errors.WithStack(err)
	}

	logger.KV(xlog.DEBUG, "engine", NativeEngineName, "home", home, "count", res.Count)

	return res, nil
}

// ListEntries returns all primary keys stored in home/pubring.gpg
func (n *Native) ListEntries(ctx context.Context, home string) ([]KeyringEntry, error) {
	defer metricskey.PerfEngineOperation.MeasureSince(time.Now(), NativeEngineName, "list")

	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	f, err := n.fs.Open(filepath.Join(home, NativeKeyringFile))
	if os.IsNotExist(err) {
		return []KeyringEntry{}, nil
	} else if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	el, err := openpgp.ReadKeyRing(f)
	if err != nil {
		return nil, errors.WithMessage(err, "unable to read keyring")
	}

	list := make([]KeyringEntry, 0, len(el))
	for _, e := range el {
		list = append(list, Entry(e))
	}
	return list, nil
}
