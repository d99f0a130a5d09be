package lifecycle

import (
	"context"

	"github.com/projecteru2/core/log"

	"github.com/corraldev/corral/corralerr"
	"github.com/corraldev/corral/selection"
	"github.com/corraldev/corral/types"
)

// Suspend deactivates all unmanaged mounts then suspends each target via
// the hypervisor [require_operative].
func (m *Manager) Suspend(ctx context.Context, names []string) error {
	logger := log.WithFunc("lifecycle.Suspend")
	operative, deleted, missing := m.partition(names, selection.GroupOperative)
	status := selection.Evaluate(selection.RequireOperative, operative, deleted, missing)
	if !status.OK() {
		return status.Err()
	}

	batch := corralerr.NewStatus()
	for _, name := range operative {
		m.Shutdowns.Cancel(name)
		if err := m.Mounts.DeactivateAll(ctx, name); err != nil {
			logger.Warnf(ctx, "failed to deactivate mounts for %s before suspend: %v", name, err)
		}

		m.mu.Lock()
		h, ok := m.operative[name]
		m.mu.Unlock()
		if !ok {
			continue
		}

		err := h.WithStateLock(func() error {
			if err := m.Hypervisor.Suspend(ctx, name); err != nil {
				return corralerr.Wrap(corralerr.FailedPrecondition, err)
			}
			h.Spec.State = types.StateSuspended
			return nil
		})
		if err != nil {
			batch.Add(corralerr.KindOf(err), err.Error())
		}
	}

	m.mu.Lock()
	_ = m.persistLocked(ctx)
	m.mu.Unlock()

	if !batch.OK() {
		return batch.Err()
	}
	return nil
}
