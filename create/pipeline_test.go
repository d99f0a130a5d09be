package create

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corraldev/corral/blueprint"
	"github.com/corraldev/corral/corralerr"
	"github.com/corraldev/corral/sshsession"
)

func TestCreateGeneratesNextAvailableName(t *testing.T) {
	p := newTestPipeline(t, nil)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		req := Request{Name: fmt.Sprintf("instance-%d", i), ImageRef: "focal", Memory: "512MiB"}
		_, auth, err := p.Create(ctx, req, nil)
		require.NoError(t, err)
		require.Empty(t, auth.Networks)
	}

	result, auth, err := p.Create(ctx, Request{ImageRef: "focal", Memory: "512MiB"}, nil)
	require.NoError(t, err)
	require.Empty(t, auth.Networks)
	assert.Equal(t, "instance-4", result.Name)
	assert.True(t, p.Manager.IsOperative("instance-4"))
}

func TestCreateRejectsDuplicateExtraMACs(t *testing.T) {
	p := newTestPipeline(t, nil)
	ctx := context.Background()

	sentinel := "02:00:00:00:00:05"
	_, _, tentative, err := p.Manager.AllocateMACs(ctx, "", []string{sentinel})
	require.NoError(t, err)
	require.NoError(t, p.Manager.PromoteMACs(tentative))

	req := Request{
		Name:     "collider",
		ImageRef: "focal",
		Memory:   "512MiB",
		Networks: []NetworkOption{
			{Name: "default", MACAddress: "52:54:00:aa:bb:cc"},
			{Name: "bridge0", MACAddress: "52:54:00:aa:bb:cc"},
		},
		PermissionToBridge: true,
	}
	_, _, err = p.Create(ctx, req, nil)
	require.Error(t, err)
	assert.Equal(t, corralerr.FailedPrecondition, corralerr.KindOf(err))
	assert.Contains(t, err.Error(), "Repeated MAC address")
	assert.False(t, p.Manager.IsOperative("collider"))

	// The admitted MAC set is unchanged by the failed attempt: the sentinel
	// is still the only allocated MAC, so re-requesting it still collides.
	_, _, _, err = p.Manager.AllocateMACs(ctx, sentinel, nil)
	assert.Error(t, err)
}

func TestCreateWithoutPermissionToBridgeReturnsAuthorizationAndCreatesNothing(t *testing.T) {
	p := newTestPipeline(t, nil)
	ctx := context.Background()

	req := Request{
		Name:     "fenced",
		ImageRef: "focal",
		Memory:   "512MiB",
		Networks: []NetworkOption{{Name: "bridge0", AutoMode: true}},
	}
	result, auth, err := p.Create(ctx, req, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"bridge0"}, auth.Networks)
	assert.Empty(t, result.Name)
	assert.False(t, p.Manager.IsOperative("fenced"))
}

func TestCreateWithPermissionToBridgeSucceeds(t *testing.T) {
	p := newTestPipeline(t, nil)
	ctx := context.Background()

	req := Request{
		Name:               "bridged",
		ImageRef:           "focal",
		Memory:             "512MiB",
		Networks:           []NetworkOption{{Name: "bridge0", AutoMode: true}},
		PermissionToBridge: true,
	}
	result, auth, err := p.Create(ctx, req, nil)
	require.NoError(t, err)
	assert.Empty(t, auth.Networks)
	assert.Equal(t, "bridged", result.Name)
	assert.Len(t, result.ExtraMACs, 1)
	assert.True(t, p.Manager.IsOperative("bridged"))
}

func TestCreateRejectsInvalidMemory(t *testing.T) {
	p := newTestPipeline(t, nil)
	_, _, err := p.Create(context.Background(), Request{Name: "tiny", ImageRef: "focal", Memory: "64MiB"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_MEM_SIZE")
}

func TestLaunchStartsInstanceAndAppendsBlueprintAliases(t *testing.T) {
	bp := &blueprint.Blueprint{
		Name:        "web",
		Image:       "focal",
		MemoryBytes: 512 << 20,
		Aliases:     []string{"nginx"},
		Workspaces:  []string{"/srv"},
	}
	p := newTestPipeline(t, map[string]*blueprint.Blueprint{"web": bp})
	// A launch waits for first boot over SSH; the scripted session reports
	// exit 0 for "cloud-init status --wait".
	p.Manager.SSH = &sshsession.ScriptedOpener{Session: &sshsession.Scripted{}}
	ctx := context.Background()

	result, auth, err := p.Create(ctx, Request{ImageRef: "web", Launch: true}, nil)
	require.NoError(t, err)
	require.Empty(t, auth.Networks)
	assert.Equal(t, "web", result.Name)
	assert.Equal(t, []string{"nginx"}, result.Aliases)
	assert.Equal(t, []string{"/srv"}, result.Workspaces)

	info, err := p.Manager.Info(ctx, []string{"web"})
	require.NoError(t, err)
	require.Len(t, info, 1)
}
