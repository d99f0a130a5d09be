package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corraldev/corral/config"
	"github.com/corraldev/corral/types"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{DataDir: dir, CacheDir: dir, Backend: "default"}
}

func TestNewWiresCollaboratorsAndCreatesDataDirs(t *testing.T) {
	cfg := newTestConfig(t)
	d, err := New(cfg)
	require.NoError(t, err)
	assert.NotNil(t, d.Manager)
	assert.NotNil(t, d.Pipeline)
	assert.Same(t, d.Manager, d.Pipeline.Manager)

	list, err := d.Manager.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStartReconcilesAndCloseStopsRefreshLoop(t *testing.T) {
	cfg := newTestConfig(t)
	d, err := New(cfg)
	require.NoError(t, err)
	d.refreshInterval = 10 * time.Millisecond

	ctx := context.Background()
	require.NoError(t, d.Start(ctx))

	// Give the refresh loop at least one tick before closing, so Close
	// exercises stopping a goroutine that is actually mid-loop rather than
	// one that never ran.
	time.Sleep(25 * time.Millisecond)
	d.Close()
}

func TestDefaultMountFactoryNativeIsManagedAndClassicRefuses(t *testing.T) {
	desc := types.MountDescription{SourcePath: "/home/user/data"}

	nativeHandler, err := defaultMountFactory(types.MountNative)
	require.NoError(t, err)
	assert.True(t, nativeHandler.Managed())
	assert.NoError(t, nativeHandler.Activate(context.Background(), "vm", "/mnt", desc))

	classicHandler, err := defaultMountFactory(types.MountClassic)
	require.NoError(t, err)
	assert.False(t, classicHandler.Managed())
	assert.Error(t, classicHandler.Activate(context.Background(), "vm", "/mnt", desc))
}
