package lifecycle

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corraldev/corral/corralerr"
	"github.com/corraldev/corral/types"
)

func TestReserveNameRejectsDuplicates(t *testing.T) {
	m := newTestManager(t)

	_, err := m.ReserveName("box")
	require.NoError(t, err)

	_, err = m.ReserveName("box")
	assert.Equal(t, corralerr.AlreadyExists, corralerr.KindOf(err))
}

func TestReserveNameRejectsAgainstOperativeAndDeletedTables(t *testing.T) {
	m := newTestManager(t)
	seedOperative(t, m, "op", &types.InstanceSpec{State: types.StateOff})
	seedDeleted(t, m, "del", &types.InstanceSpec{State: types.StateStopped, Deleted: true})

	_, err := m.ReserveName("op")
	assert.Error(t, err)
	_, err = m.ReserveName("del")
	assert.Error(t, err)
}

func TestGenerateNameRetriesPastCollisions(t *testing.T) {
	m := newTestManager(t)
	_, err := m.ReserveName("candidate-0")
	require.NoError(t, err)

	name, token, err := m.GenerateName(func(attempt int) string {
		return fmt.Sprintf("candidate-%d", attempt)
	})
	require.NoError(t, err)
	assert.Equal(t, "candidate-1", name)
	assert.NotEmpty(t, token)
}

func TestCommitCreateRequiresMatchingToken(t *testing.T) {
	m := newTestManager(t)
	token, err := m.ReserveName("box")
	require.NoError(t, err)

	err = m.CommitCreate(context.Background(), "box", "wrong-token", &types.InstanceSpec{})
	assert.Error(t, err)

	err = m.CommitCreate(context.Background(), "box", token, &types.InstanceSpec{State: types.StateOff})
	require.NoError(t, err)
	assert.True(t, m.IsOperative("box"))
}

func TestRollbackCreateDiscardsReservation(t *testing.T) {
	m := newTestManager(t)
	token, err := m.ReserveName("box")
	require.NoError(t, err)

	m.RollbackCreate("box", token)

	_, err = m.ReserveName("box")
	require.NoError(t, err, "rollback should free the name for re-reservation")
}

func TestAllocateAndPromoteMACs(t *testing.T) {
	m := newTestManager(t)

	defaultMAC, extra, tentative, err := m.AllocateMACs(context.Background(), "", []string{""})
	require.NoError(t, err)
	assert.NotEmpty(t, defaultMAC)
	assert.Len(t, extra, 1)

	require.NoError(t, m.PromoteMACs(tentative))

	m.mu.Lock()
	_, ok := m.macs[defaultMAC]
	m.mu.Unlock()
	assert.True(t, ok)
}

func TestAllocateMACsRejectsDuplicateRequest(t *testing.T) {
	m := newTestManager(t)
	m.mu.Lock()
	m.macs["02:00:00:00:00:09"] = struct{}{}
	m.mu.Unlock()

	_, _, _, err := m.AllocateMACs(context.Background(), "02:00:00:00:00:09", nil)
	assert.Error(t, err)
}
