package lifecycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corraldev/corral/types"
)

func TestDeleteMarksStoppedAndMovesToDeletedTable(t *testing.T) {
	m := newTestManager(t)
	seedOperative(t, m, "box", &types.InstanceSpec{State: types.StateOff, MACAddress: "02:00:00:00:00:01"})
	require.NoError(t, m.Start(context.Background(), []string{"box"}))

	err := m.Delete(context.Background(), []string{"box"}, false)
	require.NoError(t, err)

	assert.False(t, m.IsOperative("box"))
	assert.True(t, m.IsDeleted("box"))
}

func TestDeletePurgeReleasesResourcesAndMAC(t *testing.T) {
	m := newTestManager(t)
	seedOperative(t, m, "box", &types.InstanceSpec{State: types.StateOff, MACAddress: "02:00:00:00:00:02"})
	m.mu.Lock()
	m.macs["02:00:00:00:00:02"] = struct{}{}
	m.mu.Unlock()

	err := m.Delete(context.Background(), []string{"box"}, true)
	require.NoError(t, err)

	assert.False(t, m.IsOperative("box"))
	assert.False(t, m.IsDeleted("box"))
	m.mu.Lock()
	_, taken := m.macs["02:00:00:00:00:02"]
	m.mu.Unlock()
	assert.False(t, taken)
}

func TestDeleteMissingNameFails(t *testing.T) {
	m := newTestManager(t)
	err := m.Delete(context.Background(), []string{"ghost"}, false)
	assert.Error(t, err)
}

func TestPurgeReleasesAllDeleted(t *testing.T) {
	m := newTestManager(t)
	seedOperative(t, m, "box", &types.InstanceSpec{State: types.StateOff})
	require.NoError(t, m.Delete(context.Background(), []string{"box"}, false))
	require.True(t, m.IsDeleted("box"))

	require.NoError(t, m.Purge(context.Background()))
	assert.False(t, m.IsDeleted("box"))
}

func TestRecoverMovesBackToOperative(t *testing.T) {
	m := newTestManager(t)
	seedOperative(t, m, "box", &types.InstanceSpec{State: types.StateOff})
	require.NoError(t, m.Delete(context.Background(), []string{"box"}, false))

	err := m.Recover(context.Background(), []string{"box"})
	require.NoError(t, err)
	assert.True(t, m.IsOperative("box"))
	assert.False(t, m.IsDeleted("box"))
}
