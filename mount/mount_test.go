package mount

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corraldev/corral/types"
)

type fakeHandler struct {
	managed    bool
	activated  bool
	deactivated bool
	failActivate bool
}

func (h *fakeHandler) Activate(context.Context, string, string, types.MountDescription) error {
	if h.failActivate {
		return assert.AnError
	}
	h.activated = true
	return nil
}

func (h *fakeHandler) Deactivate(context.Context, string, string) error {
	h.deactivated = true
	return nil
}

func (h *fakeHandler) Managed() bool { return h.managed }

func TestActivateDeactivateKeepsInstalled(t *testing.T) {
	var fake *fakeHandler
	c := NewCoordinator(func(types.MountKind) (Handler, error) {
		fake = &fakeHandler{}
		return fake, nil
	})

	desc := types.MountDescription{SourcePath: "/src"}
	require.NoError(t, c.Activate(context.Background(), "vm1", "/dst", desc))
	assert.True(t, c.Active("vm1", "/dst"))

	require.NoError(t, c.Deactivate(context.Background(), "vm1", "/dst"))
	assert.False(t, c.Active("vm1", "/dst"))
	assert.True(t, fake.deactivated)
}

func TestDeactivateAllSkipsManaged(t *testing.T) {
	calls := 0
	c := NewCoordinator(func(kind types.MountKind) (Handler, error) {
		calls++
		return &fakeHandler{managed: kind == types.MountNative}, nil
	})

	require.NoError(t, c.Activate(context.Background(), "vm1", "/a", types.MountDescription{MountKind: types.MountClassic}))
	require.NoError(t, c.Activate(context.Background(), "vm1", "/b", types.MountDescription{MountKind: types.MountNative}))

	require.NoError(t, c.DeactivateAll(context.Background(), "vm1"))
	assert.False(t, c.Active("vm1", "/a"))
	assert.True(t, c.Active("vm1", "/b")) // managed mounts are left alone
}

func TestRemoveUninstalls(t *testing.T) {
	c := NewCoordinator(func(types.MountKind) (Handler, error) { return &fakeHandler{}, nil })
	require.NoError(t, c.Activate(context.Background(), "vm1", "/a", types.MountDescription{}))
	require.NoError(t, c.Remove(context.Background(), "vm1", "/a"))
	assert.False(t, c.Active("vm1", "/a"))
}
