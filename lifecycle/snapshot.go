package lifecycle

import (
	"context"
	"fmt"

	"github.com/corraldev/corral/corralerr"
	"github.com/corraldev/corral/selection"
	"github.com/corraldev/corral/types"
	"github.com/corraldev/corral/validate"
)

// Snapshot takes a point-in-time snapshot of name, which must be off or
// stopped [require_operative], returning the assigned snapshot name.
func (m *Manager) Snapshot(ctx context.Context, name, snapshotName, comment string) (string, error) {
	operative, deleted, missing := m.partition([]string{name}, selection.GroupNone)
	status := selection.Evaluate(selection.RequireOperative, operative, deleted, missing)
	if !status.OK() {
		return "", status.Err()
	}
	if snapshotName == "" {
		snapshotName = fmt.Sprintf("snapshot-%d", len(m.snapshotsOf(name))+1)
	}
	if !validate.Hostname(snapshotName) {
		return "", corralerr.Newf(corralerr.InvalidArgument, "invalid snapshot name %q", snapshotName)
	}

	m.mu.Lock()
	h := m.operative[name]
	m.mu.Unlock()

	err := h.WithStateLock(func() error {
		if h.Spec.State != types.StateOff && h.Spec.State != types.StateStopped {
			return corralerr.Newf(corralerr.InvalidArgument, "instance %q is not stopped", name)
		}
		for _, s := range h.snapshots {
			if s.Name == snapshotName {
				return corralerr.Newf(corralerr.InvalidArgument, "snapshot %q already exists on %q", snapshotName, name)
			}
		}
		if err := m.Hypervisor.Snapshot(ctx, name, snapshotName, comment); err != nil {
			return corralerr.Wrap(corralerr.FailedPrecondition, err)
		}
		h.snapshots = append(h.snapshots, types.Snapshot{Name: snapshotName, Comment: comment})
		return nil
	})
	if err != nil {
		return "", err
	}
	return snapshotName, nil
}

// Restore restores name to snapshotName, which must be off or stopped
// [require_operative]. Unless destructive, an automatic pre-restore
// snapshot is taken first, per §6's supplemented snapshot/restore plumbing.
func (m *Manager) Restore(ctx context.Context, name, snapshotName string, destructive bool) error {
	operative, deleted, missing := m.partition([]string{name}, selection.GroupNone)
	status := selection.Evaluate(selection.RequireOperative, operative, deleted, missing)
	if !status.OK() {
		return status.Err()
	}

	m.mu.Lock()
	h := m.operative[name]
	m.mu.Unlock()

	err := h.WithStateLock(func() error {
		if h.Spec.State != types.StateOff && h.Spec.State != types.StateStopped {
			return corralerr.Newf(corralerr.InvalidArgument, "instance %q is not stopped", name)
		}
		if !destructive {
			auto := fmt.Sprintf("before-restoring-%s", snapshotName)
			if err := m.Hypervisor.Snapshot(ctx, name, auto, fmt.Sprintf("Before restoring %s", snapshotName)); err != nil {
				return corralerr.Wrap(corralerr.FailedPrecondition, err)
			}
			h.snapshots = append(h.snapshots, types.Snapshot{Name: auto, Comment: fmt.Sprintf("Before restoring %s", snapshotName)})
		}
		if err := m.Hypervisor.Restore(ctx, name, snapshotName); err != nil {
			return corralerr.Wrap(corralerr.FailedPrecondition, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.mu.Lock()
	persistErr := m.persistLocked(ctx)
	m.mu.Unlock()
	return persistErr
}

func (m *Manager) snapshotsOf(name string) []types.Snapshot {
	m.mu.Lock()
	h, ok := m.operative[name]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return h.snapshots
}
