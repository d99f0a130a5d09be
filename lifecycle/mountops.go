package lifecycle

import (
	"context"

	"github.com/corraldev/corral/corralerr"
	"github.com/corraldev/corral/types"
)

// Mount adds or replaces target's mount description on name's spec,
// activating it immediately if the instance is running or the mount kind
// is backend-managed.
func (m *Manager) Mount(ctx context.Context, name, target string, desc types.MountDescription) error {
	desc.UIDMappings = types.DedupeMappings(desc.UIDMappings)
	desc.GIDMappings = types.DedupeMappings(desc.GIDMappings)

	m.mu.Lock()
	h, ok := m.operative[name]
	if ok {
		if h.Spec.Mounts == nil {
			h.Spec.Mounts = make(map[string]types.MountDescription)
		}
		h.Spec.Mounts[target] = desc
	}
	running := ok && types.IsRunning(h.Spec.State)
	m.mu.Unlock()
	if !ok {
		return corralerr.Newf(corralerr.NotFound, "instance %q does not exist", name)
	}

	if running || desc.MountKind == types.MountNative {
		if err := m.Mounts.Activate(ctx, name, target, desc); err != nil {
			return corralerr.Wrap(corralerr.FailedPrecondition, err)
		}
	} else if err := m.Mounts.Install(name, target, desc); err != nil {
		return corralerr.Wrap(corralerr.FailedPrecondition, err)
	}

	m.mu.Lock()
	err := m.persistLocked(ctx)
	m.mu.Unlock()
	return err
}

// Umount removes target from name's spec and tears down its handler.
func (m *Manager) Umount(ctx context.Context, name, target string) error {
	m.mu.Lock()
	h, ok := m.operative[name]
	if ok {
		delete(h.Spec.Mounts, target)
	}
	m.mu.Unlock()
	if !ok {
		return corralerr.Newf(corralerr.NotFound, "instance %q does not exist", name)
	}

	if err := m.Mounts.Remove(ctx, name, target); err != nil {
		return corralerr.Wrap(corralerr.FailedPrecondition, err)
	}

	m.mu.Lock()
	err := m.persistLocked(ctx)
	m.mu.Unlock()
	return err
}
