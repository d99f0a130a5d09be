package lifecycle

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corraldev/corral/types"
)

func TestSSHInfoReturnsConnectionDetails(t *testing.T) {
	m := newTestManager(t)
	seedOperative(t, m, "box", &types.InstanceSpec{
		State:       types.StateOff,
		SSHUsername: "ubuntu",
		Metadata:    map[string]any{"ssh_private_key": "secret-key-bytes"},
	})
	require.NoError(t, m.Start(context.Background(), []string{"box"}))

	info, err := m.SSHInfo(context.Background(), "box")
	require.NoError(t, err)
	assert.Equal(t, "ubuntu", info.Username)
	assert.Equal(t, 22, info.Port)
	decoded, err := base64.StdEncoding.DecodeString(info.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, "secret-key-bytes", string(decoded))
}

func TestSSHInfoRejectsUnknownState(t *testing.T) {
	m := newTestManager(t)
	seedOperative(t, m, "box", &types.InstanceSpec{State: types.StateUnknown})

	_, err := m.SSHInfo(context.Background(), "box")
	assert.Error(t, err)
}

func TestSSHInfoRejectsImminentShutdown(t *testing.T) {
	m := newTestManager(t)
	seedOperative(t, m, "box", &types.InstanceSpec{State: types.StateOff})
	require.NoError(t, m.Start(context.Background(), []string{"box"}))
	require.NoError(t, m.Stop(context.Background(), []string{"box"}, time.Second*30, false))

	_, err := m.SSHInfo(context.Background(), "box")
	assert.Error(t, err)
}

func TestSettingsRoundTripAndAuthenticate(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	err := m.Authenticate(ctx, "anything")
	assert.Error(t, err, "authenticate before any passphrase is set should fail")

	require.NoError(t, m.SetSetting(ctx, "authentication.passphrase", "sesame"))
	require.NoError(t, m.Authenticate(ctx, "sesame"))
	assert.Error(t, m.Authenticate(ctx, "wrong"))

	_, err = m.GetSetting(ctx, "authentication.passphrase")
	assert.Error(t, err, "the passphrase must never be readable back")

	require.NoError(t, m.SetSetting(ctx, "color", "blue"))
	value, err := m.GetSetting(ctx, "color")
	require.NoError(t, err)
	assert.Equal(t, "blue", value)

	keys, err := m.SettingKeys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"authentication.passphrase", "color"}, keys)
}
