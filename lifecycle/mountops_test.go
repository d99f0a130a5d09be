package lifecycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corraldev/corral/types"
)

func TestMountInstallsWhenStoppedAndActivatesWhenRunning(t *testing.T) {
	m := newTestManager(t)
	seedOperative(t, m, "box", &types.InstanceSpec{State: types.StateOff})

	desc := types.MountDescription{SourcePath: "/home/user/code"}
	require.NoError(t, m.Mount(context.Background(), "box", "/workspace", desc))
	assert.False(t, m.Mounts.Active("box", "/workspace"))

	require.NoError(t, m.Start(context.Background(), []string{"box"}))
	require.NoError(t, m.Mount(context.Background(), "box", "/workspace2", desc))
	assert.True(t, m.Mounts.Active("box", "/workspace2"))
}

func TestUmountRemovesFromSpecAndCoordinator(t *testing.T) {
	m := newTestManager(t)
	seedOperative(t, m, "box", &types.InstanceSpec{State: types.StateOff})
	desc := types.MountDescription{SourcePath: "/home/user/code"}
	require.NoError(t, m.Mount(context.Background(), "box", "/workspace", desc))

	require.NoError(t, m.Umount(context.Background(), "box", "/workspace"))

	m.mu.Lock()
	_, exists := m.operative["box"].Spec.Mounts["/workspace"]
	m.mu.Unlock()
	assert.False(t, exists)
}

func TestMountOnMissingInstanceFails(t *testing.T) {
	m := newTestManager(t)
	err := m.Mount(context.Background(), "ghost", "/workspace", types.MountDescription{})
	assert.Error(t, err)
}
