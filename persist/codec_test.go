package persist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corraldev/corral/types"
)

func TestDecodeGhostRecordElimination(t *testing.T) {
	raw := []byte(`{
		"ghost": {"cores": 0, "memory": "", "disk": "", "ssh_username": "", "deleted": false, "metadata": null},
		"real": {"cores": 2, "memory": "2GiB", "disk": "10GiB", "ssh_username": "ubuntu", "deleted": false, "mac_addr": "52:54:00:aa:bb:cc"}
	}`)

	var dropped []string
	specs, err := Decode(raw, func(name string) { dropped = append(dropped, name) })
	require.NoError(t, err)

	assert.Equal(t, []string{"ghost"}, dropped)
	assert.Len(t, specs, 1)
	assert.Contains(t, specs, "real")
	assert.Equal(t, 2, specs["real"].Cores)
}

func TestDecodeInvalidMACFailsWholeLoad(t *testing.T) {
	raw := []byte(`{"bad": {"cores": 1, "mac_addr": "not-a-mac"}}`)
	_, err := Decode(raw, nil)
	require.Error(t, err)
}

func TestDecodeMissingDocumentIsEmpty(t *testing.T) {
	specs, err := Decode(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, specs)
}

func TestDecodeUnparseableDocumentIsEmpty(t *testing.T) {
	specs, err := Decode([]byte("not json"), nil)
	require.NoError(t, err)
	assert.Empty(t, specs)
}

func TestDecodeDefaultsMissingMemoryDiskAndUsername(t *testing.T) {
	raw := []byte(`{"x": {"cores": 1, "mac_addr": "52:54:00:aa:bb:cc"}}`)
	specs, err := Decode(raw, nil)
	require.NoError(t, err)
	require.Contains(t, specs, "x")
	assert.Equal(t, "ubuntu", specs["x"].SSHUsername)
	assert.Positive(t, specs["x"].MemoryBytes)
	assert.Positive(t, specs["x"].DiskBytes)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := map[string]*types.InstanceSpec{
		"alpha": {
			Cores:       2,
			MemoryBytes: 2 << 30,
			DiskBytes:   10 << 30,
			MACAddress:  "52:54:00:aa:bb:cc",
			SSHUsername: "ubuntu",
			State:       types.StateStopped,
			Mounts: map[string]types.MountDescription{
				"/home/u/proj": {
					SourcePath:  "/home/u/proj",
					UIDMappings: []types.IDMapping{{HostID: 1000, GuestID: 1000}},
					MountKind:   types.MountClassic,
				},
			},
		},
	}

	raw, err := Encode(original)
	require.NoError(t, err)

	decoded, err := Decode(raw, nil)
	require.NoError(t, err)

	require.Contains(t, decoded, "alpha")
	got := decoded["alpha"]
	assert.Equal(t, original["alpha"].Cores, got.Cores)
	assert.Equal(t, original["alpha"].MemoryBytes, got.MemoryBytes)
	assert.Equal(t, original["alpha"].DiskBytes, got.DiskBytes)
	assert.Equal(t, original["alpha"].MACAddress, got.MACAddress)
	assert.Equal(t, original["alpha"].State, got.State)
	assert.Equal(t, original["alpha"].Mounts["/home/u/proj"].SourcePath, got.Mounts["/home/u/proj"].SourcePath)
}
