package lifecycle

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/corraldev/corral/blueprint"
	"github.com/corraldev/corral/hypervisor"
	"github.com/corraldev/corral/imagevault"
	"github.com/corraldev/corral/mount"
	"github.com/corraldev/corral/persist"
	"github.com/corraldev/corral/progress"
	"github.com/corraldev/corral/settingsstore"
	"github.com/corraldev/corral/sshsession"
	"github.com/corraldev/corral/types"
)

// noopLocker is an in-process no-op lock.Locker, sufficient for tests that
// never run concurrently against the same file.
type noopLocker struct{}

func (noopLocker) Lock(context.Context) error           { return nil }
func (noopLocker) Unlock(context.Context) error          { return nil }
func (noopLocker) TryLock(context.Context) (bool, error) { return true, nil }

type fakeVault struct {
	resolved imagevault.Resolved
	err      error
}

func (f *fakeVault) Resolve(_ context.Context, _ string, tracker progress.Tracker) (imagevault.Resolved, error) {
	if tracker != nil {
		tracker.OnEvent(imagevault.PullEvent{Percent: 100})
	}
	return f.resolved, f.err
}
func (f *fakeVault) Exists(context.Context, string) bool                      { return true }
func (f *fakeVault) Prune(context.Context, map[string]struct{}) error { return nil }

type fakeBlueprints struct{}

func (fakeBlueprints) Resolve(context.Context, string) (*blueprint.Blueprint, error) {
	return nil, nil
}

func noopMountFactory(types.MountKind) (mount.Handler, error) {
	return &fakeMountHandler{}, nil
}

type fakeMountHandler struct{}

func (*fakeMountHandler) Activate(context.Context, string, string, types.MountDescription) error {
	return nil
}
func (*fakeMountHandler) Deactivate(context.Context, string, string) error { return nil }
func (*fakeMountHandler) Managed() bool                                    { return false }

// newTestManager wires a Manager against an InProcess hypervisor and a
// throwaway on-disk registry, suitable for exercising the lifecycle
// operations without any real virtualization.
func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()
	store := persist.New(filepath.Join(dir, "registry.json"), filepath.Join(dir, "legacy.json"), noopLocker{})
	settings := settingsstore.New(filepath.Join(dir, "settings.json"), noopLocker{})
	hv := hypervisor.NewInProcess("in-process", []string{"default"})
	m := New(store, hv, &fakeVault{}, fakeBlueprints{}, sshsession.NoOpener{}, settings, noopMountFactory)
	return m
}

// seedOperative directly installs a spec into the operative table and
// persists it, bypassing the creation pipeline for tests that only care
// about lifecycle operations on an already-existing instance. It also
// registers the instance with the InProcess hypervisor so Start/Stop/etc.
// have something to transition.
func seedOperative(t *testing.T, m *Manager, name string, spec *types.InstanceSpec) {
	t.Helper()
	if err := m.Hypervisor.Create(context.Background(), name, hypervisor.CreateSpec{
		Cores:       spec.Cores,
		MemoryBytes: spec.MemoryBytes,
		DiskBytes:   spec.DiskBytes,
		MACAddress:  spec.MACAddress,
	}); err != nil {
		t.Fatalf("seed hypervisor create: %v", err)
	}
	m.mu.Lock()
	m.operative[name] = newHandle(name, spec)
	err := m.persistLocked(context.Background())
	m.mu.Unlock()
	if err != nil {
		t.Fatalf("seed persist: %v", err)
	}
}

// seedDeleted installs spec directly into the deleted table.
func seedDeleted(t *testing.T, m *Manager, name string, spec *types.InstanceSpec) {
	t.Helper()
	m.mu.Lock()
	m.deleted[name] = newHandle(name, spec)
	m.mu.Unlock()
}
