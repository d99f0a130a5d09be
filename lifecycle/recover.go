package lifecycle

import (
	"context"

	"github.com/projecteru2/core/log"

	"github.com/corraldev/corral/corralerr"
	"github.com/corraldev/corral/selection"
)

// Recover moves each target from deleted back to operative, clears its
// deleted flag, and re-installs its mounts [require_existing, GroupDeleted;
// an already-operative target is a logged no-op rather than an error].
func (m *Manager) Recover(ctx context.Context, names []string) error {
	logger := log.WithFunc("lifecycle.Recover")
	operative, deleted, missing := m.partition(names, selection.GroupDeleted)
	status := selection.Evaluate(selection.RecoverPolicy, operative, deleted, missing)
	if !status.OK() {
		return status.Err()
	}
	for _, name := range operative {
		logger.Infof(ctx, "instance %s is already operative", name)
	}

	for _, name := range deleted {
		m.mu.Lock()
		h, ok := m.deleted[name]
		if ok {
			delete(m.deleted, name)
			h.Spec.Deleted = false
			m.operative[name] = h
		}
		m.mu.Unlock()
		if !ok {
			continue
		}
		for target, desc := range h.Spec.Mounts {
			if err := m.Mounts.Install(name, target, desc); err != nil {
				logger.Warnf(ctx, "failed to reinstall mount %s on recovered instance %s: %v", target, name, err)
			}
		}
	}

	m.mu.Lock()
	err := m.persistLocked(ctx)
	m.mu.Unlock()
	if err != nil {
		return corralerr.Wrap(corralerr.Internal, err)
	}
	return nil
}
