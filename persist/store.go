package persist

import (
	"context"
	"fmt"
	"os"

	"github.com/projecteru2/core/log"

	"github.com/corraldev/corral/lock"
	"github.com/corraldev/corral/types"
	"github.com/corraldev/corral/utils"
)

// Store is the durable registry file: the authoritative path, guarded by a
// lock, plus a read-only legacy fallback consulted only when the
// authoritative path has never been written, per §6. It does not use the
// generic storage.Store[T]: the ghost-elimination and legacy-fallback rules
// at decode time are specific enough to this one document that rolling them
// by hand against utils.AtomicWriteFile, as the codec design calls for, is
// clearer than forcing them through the generic JSON-blob wrapper.
type Store struct {
	path       string
	legacyPath string
	locker     lock.Locker
}

// New returns a Store for path, guarded by locker, consulting legacyPath on
// a Load when path does not exist.
func New(path, legacyPath string, locker lock.Locker) *Store {
	return &Store{path: path, legacyPath: legacyPath, locker: locker}
}

// Load reads and decodes the registry, under lock. A missing authoritative
// file falls back to the legacy path; a missing legacy path too yields an
// empty registry, not an error.
func (s *Store) Load(ctx context.Context) (map[string]*types.InstanceSpec, error) {
	logger := log.WithFunc("persist.Load")
	var specs map[string]*types.InstanceSpec
	err := lock.WithLock(ctx, s.locker, func() error {
		raw, source, err := s.readWithFallback()
		if err != nil {
			return err
		}
		decoded, err := Decode(raw, func(name string) {
			logger.Warnf(ctx, "dropping ghost record %q from %s", name, source)
		})
		if err != nil {
			return fmt.Errorf("decode registry %s: %w", source, err)
		}
		specs = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return specs, nil
}

// Save encodes and atomically writes specs to the authoritative path, under
// lock. The legacy path is never written to.
func (s *Store) Save(ctx context.Context, specs map[string]*types.InstanceSpec) error {
	return lock.WithLock(ctx, s.locker, func() error {
		raw, err := Encode(specs)
		if err != nil {
			return err
		}
		return utils.AtomicWriteFile(s.path, raw, 0o644)
	})
}

func (s *Store) readWithFallback() (raw []byte, source string, err error) {
	raw, err = os.ReadFile(s.path) //nolint:gosec // daemon-managed path
	if err == nil {
		return raw, s.path, nil
	}
	if !os.IsNotExist(err) {
		return nil, "", fmt.Errorf("read registry %s: %w", s.path, err)
	}
	if s.legacyPath == "" {
		return nil, s.path, nil
	}
	raw, err = os.ReadFile(s.legacyPath) //nolint:gosec // daemon-managed path
	if err != nil {
		if os.IsNotExist(err) {
			return nil, s.legacyPath, nil
		}
		return nil, "", fmt.Errorf("read legacy registry %s: %w", s.legacyPath, err)
	}
	return raw, s.legacyPath, nil
}
