package create

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/corraldev/corral/blueprint"
	"github.com/corraldev/corral/config"
	"github.com/corraldev/corral/hypervisor"
	"github.com/corraldev/corral/imagevault"
	"github.com/corraldev/corral/lifecycle"
	"github.com/corraldev/corral/mount"
	"github.com/corraldev/corral/persist"
	"github.com/corraldev/corral/progress"
	"github.com/corraldev/corral/settingsstore"
	"github.com/corraldev/corral/sshsession"
	"github.com/corraldev/corral/types"
)

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
func (f *fakeVault) Exists(context.Context, string) bool              { return true }
func (f *fakeVault) Prune(context.Context, map[string]struct{}) error { return nil }

type fakeBlueprints struct {
	blueprints map[string]*blueprint.Blueprint
}

func (f fakeBlueprints) Resolve(_ context.Context, name string) (*blueprint.Blueprint, error) {
	bp, ok := f.blueprints[name]
	if !ok {
		return nil, fmt.Errorf("blueprint %q not found", name)
	}
	return bp, nil
}

func noopMountFactory(types.MountKind) (mount.Handler, error) { return &fakeMountHandler{}, nil }

type fakeMountHandler struct{}

func (*fakeMountHandler) Activate(context.Context, string, string, types.MountDescription) error {
	return nil
}
func (*fakeMountHandler) Deactivate(context.Context, string, string) error { return nil }
func (*fakeMountHandler) Managed() bool                                    { return false }

// newTestPipeline wires a Pipeline against an InProcess hypervisor and a
// throwaway on-disk registry and artifact root, suitable for exercising the
// creation pipeline without any real virtualization or image fetch.
func newTestPipeline(t *testing.T, bps map[string]*blueprint.Blueprint) *Pipeline {
	t.Helper()
	dir := t.TempDir()
	store := persist.New(filepath.Join(dir, "registry.json"), filepath.Join(dir, "legacy.json"), noopLocker{})
	settings := settingsstore.New(filepath.Join(dir, "settings.json"), noopLocker{})
	hv := hypervisor.NewInProcess("in-process", []string{"default", "bridge0"})
	vault := &fakeVault{resolved: imagevault.Resolved{LocalPath: filepath.Join(dir, "base.img"), MinDiskBytes: 1 << 30}}
	m := lifecycle.New(store, hv, vault, fakeBlueprints{blueprints: bps}, sshsession.NoOpener{}, settings, noopMountFactory)

	cfg := &config.Config{DataDir: dir, CacheDir: dir, Backend: "default"}
	if err := cfg.EnsureDataDirs(); err != nil {
		t.Fatalf("ensure data dirs: %v", err)
	}
	return New(m, cfg)
}
