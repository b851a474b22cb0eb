package sandbox

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
)

// Keyring is an ephemeral keyring directory owned by one request
type Keyring struct {
	token string
	path  string
	fs    afero.Fs

	once sync.Once
	err  error
}

// Token returns the random token the directory is named after
func (k *Keyring) Token() string {
	return k.token
}

// Path returns the keyring directory
func (k *Keyring) Path() string {
	return k.path
}

// Destroy removes the directory and all its content.
// Only the first call removes anything, later calls return the same result.
func (k *Keyring) Destroy() error {
	k.once.Do(func() {
		if err := k.fs.RemoveAll(k.path); err != nil {
			k.err = errors.WithMessagef(err, "unable to remove %s", k.path)
		}
	})
	return k.err
}
