package lifecycle

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corraldev/corral/hypervisor"
	"github.com/corraldev/corral/persist"
	"github.com/corraldev/corral/settingsstore"
	"github.com/corraldev/corral/sshsession"
	"github.com/corraldev/corral/types"
)

func TestStartTransitionsOffToRunning(t *testing.T) {
	m := newTestManager(t)
	seedOperative(t, m, "box", &types.InstanceSpec{State: types.StateOff})

	err := m.Start(context.Background(), []string{"box"})
	require.NoError(t, err)

	assert.Equal(t, types.StateRunning, m.snapshotState(t, "box"))
}

func TestStartRejectsUnknownState(t *testing.T) {
	m := newTestManager(t)
	seedOperative(t, m, "box", &types.InstanceSpec{State: types.StateUnknown})

	err := m.Start(context.Background(), []string{"box"})
	assert.Error(t, err)
}

func TestStartCancelsDelayedShutdown(t *testing.T) {
	m := newTestManager(t)
	seedOperative(t, m, "box", &types.InstanceSpec{State: types.StateDelayedShutdown})
	m.Shutdowns.Schedule(context.Background(), "box", time.Hour, func(context.Context) {})

	err := m.Start(context.Background(), []string{"box"})
	require.NoError(t, err)
	assert.Equal(t, types.StateRunning, m.snapshotState(t, "box"))
	assert.False(t, m.Shutdowns.Pending("box"))
}

func TestStartMissingNameIsNotFound(t *testing.T) {
	m := newTestManager(t)
	err := m.Start(context.Background(), []string{"ghost"})
	assert.Error(t, err)
}

func TestStopImmediateShutsDownRunningInstance(t *testing.T) {
	m := newTestManager(t)
	seedOperative(t, m, "box", &types.InstanceSpec{State: types.StateOff})
	require.NoError(t, m.Start(context.Background(), []string{"box"}))

	err := m.Stop(context.Background(), []string{"box"}, 0, false)
	require.NoError(t, err)
	assert.Equal(t, types.StateStopped, m.snapshotState(t, "box"))
}

func TestStopDelayedThenCancelled(t *testing.T) {
	m := newTestManager(t)
	seedOperative(t, m, "box", &types.InstanceSpec{State: types.StateOff})
	require.NoError(t, m.Start(context.Background(), []string{"box"}))

	require.NoError(t, m.Stop(context.Background(), []string{"box"}, time.Hour, false))
	assert.Equal(t, types.StateDelayedShutdown, m.snapshotState(t, "box"))
	assert.True(t, m.Shutdowns.Pending("box"))

	require.NoError(t, m.Stop(context.Background(), []string{"box"}, 0, true))
	assert.Equal(t, types.StateRunning, m.snapshotState(t, "box"))
	assert.False(t, m.Shutdowns.Pending("box"))
}

// unreachableHypervisor reports every instance as never acquiring an IPv4
// address, simulating a guest whose shell never comes back up.
type unreachableHypervisor struct {
	*hypervisor.InProcess
}

func (unreachableHypervisor) IPv4(context.Context, string) ([]string, error) {
	return nil, nil
}

func TestStartSurfacesReadinessFailure(t *testing.T) {
	dir := t.TempDir()
	store := persist.New(filepath.Join(dir, "registry.json"), filepath.Join(dir, "legacy.json"), noopLocker{})
	settings := settingsstore.New(filepath.Join(dir, "settings.json"), noopLocker{})
	hv := unreachableHypervisor{hypervisor.NewInProcess("in-process", []string{"default"})}
	m := New(store, hv, &fakeVault{}, fakeBlueprints{}, sshsession.NoOpener{}, settings, noopMountFactory)
	seedOperative(t, m, "box", &types.InstanceSpec{State: types.StateOff})

	// The instance never becomes reachable; an already-cancelled context
	// short-circuits the poll loop's first retry wait instead of burning
	// the full readiness timeout in this test.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Start(ctx, []string{"box"})
	assert.Error(t, err, "a readiness failure must surface through Start's return value, not be silently discarded")
}

func TestLaunchSurfacesMissingFirstBootAgent(t *testing.T) {
	m := newTestManager(t)
	seedOperative(t, m, "box", &types.InstanceSpec{
		State:    types.StateOff,
		Metadata: map[string]any{"ssh_private_key": "dummy"},
	})
	m.SSH = &sshsession.ScriptedOpener{Session: &sshsession.Scripted{
		Results: map[string]sshsession.Result{
			"cloud-init status --wait": {ExitCode: 127},
		},
	}}

	err := m.startAll(context.Background(), []string{"box"}, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first-boot agent")
}

func (m *Manager) snapshotState(t *testing.T, name string) types.State {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.operative[name]
	if !ok {
		t.Fatalf("instance %q is not operative", name)
	}
	return h.Spec.State
}
