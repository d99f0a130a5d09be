package lifecycle

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corraldev/corral/config"
	"github.com/corraldev/corral/hypervisor"
	"github.com/corraldev/corral/types"
)

func newReconcileConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{DataDir: dir, CacheDir: dir, Backend: "default"}
	require.NoError(t, cfg.EnsureDataDirs())
	return cfg
}

func TestReconcileAdmitsValidSpecWithMounts(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	cfg := newReconcileConfig(t)
	require.NoError(t, os.MkdirAll(cfg.InstanceArtifactDir("web"), 0o750))

	require.NoError(t, m.Hypervisor.Create(ctx, "web", hypervisor.CreateSpec{MACAddress: "52:54:00:00:00:01"}))

	spec := &types.InstanceSpec{
		Cores: 1, MemoryBytes: 1 << 30, DiskBytes: 5 << 30,
		MACAddress: "52:54:00:00:00:01", SSHUsername: "ubuntu",
		State: types.StateOff,
		Mounts: map[string]types.MountDescription{
			"/mnt/data": {SourcePath: "/home/user/data"},
		},
	}
	require.NoError(t, m.Store.Save(ctx, map[string]*types.InstanceSpec{"web": spec}))

	require.NoError(t, m.Reconcile(ctx, cfg))
	assert.True(t, m.IsOperative("web"))
}

func TestReconcileDropsSpecWithMACCollidingAcrossSpecs(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	shared := "52:54:00:aa:bb:cc"
	specA := &types.InstanceSpec{Cores: 1, MemoryBytes: 1 << 30, DiskBytes: 5 << 30, MACAddress: shared, SSHUsername: "ubuntu"}
	specB := &types.InstanceSpec{Cores: 1, MemoryBytes: 1 << 30, DiskBytes: 5 << 30, MACAddress: shared, SSHUsername: "ubuntu"}
	require.NoError(t, m.Store.Save(ctx, map[string]*types.InstanceSpec{"a": specA, "b": specB}))

	require.NoError(t, m.Reconcile(ctx, nil))

	admittedCount := 0
	if m.IsOperative("a") {
		admittedCount++
	}
	if m.IsOperative("b") {
		admittedCount++
	}
	assert.Equal(t, 1, admittedCount, "exactly one of the two MAC-colliding specs should survive reconciliation")
}

func TestReconcileCoercesDeletedNonStoppedToStopped(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	spec := &types.InstanceSpec{
		Cores: 1, MemoryBytes: 1 << 30, DiskBytes: 5 << 30,
		MACAddress: "52:54:00:00:00:02", SSHUsername: "ubuntu",
		Deleted: true, State: types.StateRunning,
	}
	require.NoError(t, m.Store.Save(ctx, map[string]*types.InstanceSpec{"gone": spec}))

	require.NoError(t, m.Reconcile(ctx, nil))

	assert.True(t, m.IsDeleted("gone"))
	info, err := m.Info(ctx, []string{"gone"})
	require.NoError(t, err)
	require.Len(t, info, 1)
	assert.Equal(t, types.StateStopped, info[0].Spec.State)
}

func TestReconcileRestartsInstanceObservedNotRunning(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.Hypervisor.Create(ctx, "stale", hypervisor.CreateSpec{MACAddress: "52:54:00:00:00:03"}))
	// The backend never transitioned to running, simulating a daemon crash
	// between Start and the guest actually coming up.

	spec := &types.InstanceSpec{
		Cores: 1, MemoryBytes: 1 << 30, DiskBytes: 5 << 30,
		MACAddress: "52:54:00:00:00:03", SSHUsername: "ubuntu",
		State: types.StateRunning,
	}
	require.NoError(t, m.Store.Save(ctx, map[string]*types.InstanceSpec{"stale": spec}))

	require.NoError(t, m.Reconcile(ctx, nil))

	backendState, err := m.Hypervisor.State(ctx, "stale")
	require.NoError(t, err)
	assert.Equal(t, types.StateRunning, backendState, "reconcile should have started the instance against the backend")
}
