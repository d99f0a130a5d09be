package lifecycle

import (
	"context"

	"github.com/projecteru2/core/log"

	"github.com/corraldev/corral/corralerr"
	"github.com/corraldev/corral/macaddr"
	"github.com/corraldev/corral/selection"
	"github.com/corraldev/corral/types"
)

// Delete shuts down each target [require_existing, GroupAll]. With
// purge=true, it releases resources immediately and removes the spec
// entirely; otherwise it marks the spec deleted and moves it to the
// deleted table.
func (m *Manager) Delete(ctx context.Context, names []string, purge bool) error {
	operative, deleted, missing := m.partition(names, selection.GroupAll)
	status := selection.Evaluate(selection.RequireExisting, operative, deleted, missing)
	if !status.OK() {
		return status.Err()
	}

	for _, name := range operative {
		m.mu.Lock()
		h, ok := m.operative[name]
		m.mu.Unlock()
		if !ok {
			continue
		}
		m.Shutdowns.Cancel(name)
		_ = h.WithStateLock(func() error {
			if h.Spec.State != types.StateOff && h.Spec.State != types.StateStopped && h.Spec.State != types.StateSuspended {
				_ = m.doShutdown(ctx, name, h)
			}
			return nil
		})

		if purge {
			m.releaseLocked(ctx, name, h)
			continue
		}

		m.mu.Lock()
		delete(m.operative, name)
		h.Spec.Deleted = true
		h.Spec.State = types.StateStopped
		m.deleted[name] = h
		m.mu.Unlock()
	}

	if purge {
		for _, name := range deleted {
			m.mu.Lock()
			h, ok := m.deleted[name]
			m.mu.Unlock()
			if ok {
				m.releaseLocked(ctx, name, h)
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

// Purge releases resources for every deleted instance and clears the
// deleted table.
func (m *Manager) Purge(ctx context.Context) error {
	m.mu.Lock()
	names := namesOf(m.deleted)
	m.mu.Unlock()

	for _, name := range names {
		m.mu.Lock()
		h, ok := m.deleted[name]
		m.mu.Unlock()
		if ok {
			m.releaseLocked(ctx, name, h)
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

// releaseLocked tears down a spec's hypervisor resources, releases its
// MACs, forgets its mounts, and removes it from whichever table holds it.
// Logs but does not fail on a hypervisor error: the spec is removed from
// the registry regardless, per the error design's "fatal in-process errors
// from collaborators are logged at warning" policy.
func (m *Manager) releaseLocked(ctx context.Context, name string, h *Handle) {
	logger := log.WithFunc("lifecycle.release")
	if err := m.Hypervisor.Delete(ctx, name); err != nil {
		logger.Warnf(ctx, "failed to release hypervisor resources for %s: %v", name, err)
	}
	m.Mounts.Forget(name)

	m.mu.Lock()
	delete(m.operative, name)
	delete(m.deleted, name)
	released := macaddr.MACsOf(h.Spec)
	for mac := range released {
		delete(m.macs, mac)
	}
	m.mu.Unlock()
}
