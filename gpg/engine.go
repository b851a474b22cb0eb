package gpg

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// ImportOutcome is the result of one import call
type ImportOutcome struct {
	// Count is the number of keys the engine processed
	Count int
	// Fingerprints reported by the engine, an empty string stands for a
	// key the engine processed without reporting a fingerprint
	Fingerprints []string
}

// KeyringEntry is a primary key read back from a keyring
type KeyringEntry struct {
	// Fingerprint is the uppercase hex fingerprint of the primary key
	Fingerprint string
	// KeyID is the uppercase hex long key ID
	KeyID string
	// UserIDs of the key, as reported by the engine
	UserIDs []string
	// Created is the creation time of the primary key
	Created time.Time
}

// Engine imports armored keys into a keyring located in home,
// and lists the keys stored there.
type Engine interface {
	// Name returns the engine name
	Name() string
	// Import adds the keys from the armored keyBlock to the keyring in home
	Import(ctx context.Context, home, keyBlock string) (*ImportOutcome, error)
	// ListEntries returns all primary keys stored in the keyring in home
	ListEntries(ctx context.Context, home string) ([]KeyringEntry, error)
}

// EngineLoader creates an Engine, binary is the path to an external
// engine executable, if the engine needs one
type EngineLoader func(binary string) (Engine, error)

var (
	lockLoaders sync.RWMutex
	loaders     = make(map[string]EngineLoader)
)

func init() {
	_ = Register(GnuPGEngineName, func(binary string) (Engine, error) {
		return NewGnuPG(binary)
	})
	_ = Register(NativeEngineName, func(_ string) (Engine, error) {
		return NewNative(), nil
	})
}

// Register engine loader by name
func Register(name string, loader EngineLoader) error {
	lockLoaders.Lock()
	defer lockLoaders.Unlock()

	if _, ok := loaders[name]; ok {
		return errors.Errorf("already registered: %s", name)
	}

	loaders[name] = loader

	return nil
}

// Unregister engine loader by name
func Unregister(name string) (EngineLoader, error) {
	lockLoaders.Lock()
	defer lockLoaders.Unlock()

	if loader, ok := loaders[name]; ok {
		delete(loaders, name)
		return loader, nil
	}

	return nil, errors.Errorf("not registered: %s", name)
}

// Registered returns sorted names of registered engines
func Registered() []string {
	lockLoaders.RLock()
	defer lockLoaders.RUnlock()

	list := []string{}
	for m := range loaders {
		list = append(list, m)
	}
	sort.Strings(list)
	return list
}

// LoadEngine returns the engine registered by name
func LoadEngine(name, binary string) (Engine, error) {
	lockLoaders.RLock()
	loader, ok := loaders[name]
	lockLoaders.RUnlock()

	if !ok {
		return nil, errors.Errorf("engine not registered: %s", name)
	}

	return loader(binary)
}
