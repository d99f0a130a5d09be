// Package settingsstore declares the boundary to the settings store
// (get/set/keys) and implements the default JSON-file-backed adapter,
// including the passphrase-gated authenticate flow supplemented from
// original_source/ (§6).
package settingsstore

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/corraldev/corral/corralerr"
	"github.com/corraldev/corral/lock"
	jsonstore "github.com/corraldev/corral/storage/json"
)

// PassphraseKey is the reserved settings key intercepted by Set: its value
// is never stored in plaintext, only its bcrypt hash.
const PassphraseKey = "authentication.passphrase"

// document is the on-disk settings map.
type document map[string]string

// Init implements storage.Initer.
func (d *document) Init() {
	if *d == nil {
		*d = make(document)
	}
}

// Store is the default settings-store adapter.
type Store struct {
	inner *jsonstore.Store[document]
}

// New returns a Store backed by path, guarded by locker.
func New(path string, locker lock.Locker) *Store {
	return &Store{inner: jsonstore.New[document](path, locker)}
}

// Get returns key's value. Reading PassphraseKey back is never possible —
// only its hash is stored — and returns failed-precondition.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if key == PassphraseKey {
		return "", corralerr.New(corralerr.FailedPrecondition, "the passphrase cannot be read back, only verified via authenticate")
	}
	var value string
	var found bool
	err := s.inner.With(ctx, func(doc *document) error {
		value, found = (*doc)[key]
		return nil
	})
	if err != nil {
		return "", err
	}
	if !found {
		return "", corralerr.Newf(corralerr.NotFound, "setting %q does not exist", key)
	}
	return value, nil
}

// Set stores value under key. Setting PassphraseKey hashes value with
// bcrypt and stores only the hash, per the authenticate design.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if key == PassphraseKey {
		hash, err := bcrypt.GenerateFromPassword([]byte(value), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash passphrase: %w", err)
		}
		value = string(hash)
	}
	return s.inner.Update(ctx, func(doc *document) error {
		(*doc)[key] = value
		return nil
	})
}

// Keys returns every stored key, including PassphraseKey if set (its value
// remains unreadable via Get).
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.inner.With(ctx, func(doc *document) error {
		for k := range *doc {
			keys = append(keys, k)
		}
		return nil
	})
	return keys, err
}

// Authenticate verifies passphrase against the stored hash. Requires a
// prior Set of PassphraseKey; absent that, it is rejected as
// failed-precondition, mirroring the original daemon's behavior.
func (s *Store) Authenticate(ctx context.Context, passphrase string) error {
	var hash string
	var found bool
	err := s.inner.With(ctx, func(doc *document) error {
		hash, found = (*doc)[PassphraseKey]
		return nil
	})
	if err != nil {
		return err
	}
	if !found {
		return corralerr.New(corralerr.FailedPrecondition, "no passphrase has been configured")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(passphrase)); err != nil {
		return corralerr.New(corralerr.InvalidArgument, "incorrect passphrase")
	}
	return nil
}
