package cloudinit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestGenerateVendorDataIncludesKeyAndUserAgentLines(t *testing.T) {
	content, err := GenerateVendorData(VendorDataInput{
		PublicKeyMaterial: "AAAAB3NzaC1yc2E",
		Username:          "ubuntu",
		Timezone:          "UTC",
		Version:           "1.0.0",
		BackendVersion:    "qemu-8.0",
		HostVersion:       "linux-6.1",
		ImageAlias:        "default",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(content, "#cloud-config\n"))

	var doc vendorDoc
	require.NoError(t, yaml.Unmarshal([]byte(strings.TrimPrefix(content, "#cloud-config\n")), &doc))
	assert.Equal(t, []string{"ssh-rsa AAAAB3NzaC1yc2E ubuntu@localhost"}, doc.SSHAuthorizedKeys)
	assert.Equal(t, "ubuntu", doc.SystemInfo.DefaultUser.Name)
	require.Len(t, doc.WriteFiles, 1)
	assert.Contains(t, doc.WriteFiles[0].Content, "multipass/version/1.0.0 # written by Multipass")
	assert.Contains(t, doc.WriteFiles[0].Content, "multipass/alias/default # written by Multipass")
}

func TestGenerateMetaData(t *testing.T) {
	content, err := GenerateMetaData("my-instance")
	require.NoError(t, err)

	var doc metaDoc
	require.NoError(t, yaml.Unmarshal([]byte(content), &doc))
	assert.Equal(t, "my-instance", doc.InstanceID)
	assert.Equal(t, "my-instance", doc.LocalHostname)
	assert.Equal(t, "multipass", doc.CloudName)
}

func TestGenerateUserDataEmptyPassesThrough(t *testing.T) {
	content, err := GenerateUserData("", "default", "ssh-rsa AAA ubuntu@localhost")
	require.NoError(t, err)
	assert.Empty(t, content)
}

func TestGenerateUserDataAppendsDefaultUserAndVendorKey(t *testing.T) {
	raw := "users:\n  - alice\nssh_authorized_keys:\n  - ssh-rsa BBB alice@host\n"
	content, err := GenerateUserData(raw, "default", "ssh-rsa AAA ubuntu@localhost")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(strings.TrimPrefix(content, "#cloud-config\n")), &doc))
	users, ok := doc["users"].([]any)
	require.True(t, ok)
	assert.Contains(t, users, "default")
	keys, ok := doc["ssh_authorized_keys"].([]any)
	require.True(t, ok)
	assert.Contains(t, keys, "ssh-rsa AAA ubuntu@localhost")
}

func TestGenerateNetworkDataEmptyWithoutAutoInterfaces(t *testing.T) {
	content, err := GenerateNetworkData("52:54:00:00:00:01", nil)
	require.NoError(t, err)
	assert.Empty(t, content)
}

func TestGenerateNetworkDataWithOneAutoExtra(t *testing.T) {
	content, err := GenerateNetworkData("52:54:00:00:00:01", []ExtraInterface{
		{MACAddress: "52:54:00:de:ad:be", AutoMode: true},
	})
	require.NoError(t, err)

	var doc networkDoc
	require.NoError(t, yaml.Unmarshal([]byte(content), &doc))
	assert.Equal(t, "2", doc.Version)

	def, ok := doc.Ethernets["default"]
	require.True(t, ok)
	assert.Equal(t, "52:54:00:00:00:01", def.Match.MACAddress)
	assert.True(t, def.DHCP4)

	extra0, ok := doc.Ethernets["extra0"]
	require.True(t, ok)
	assert.Equal(t, "52:54:00:de:ad:be", extra0.Match.MACAddress)
	assert.True(t, extra0.DHCP4)
	require.NotNil(t, extra0.DHCP4Overrides)
	assert.Equal(t, 200, extra0.DHCP4Overrides.RouteMetric)
	assert.True(t, extra0.Optional)
}

func TestGenerateNetworkDataSkipsNonAutoExtras(t *testing.T) {
	content, err := GenerateNetworkData("52:54:00:00:00:01", []ExtraInterface{
		{MACAddress: "52:54:00:00:00:02", AutoMode: false},
	})
	require.NoError(t, err)
	assert.Empty(t, content)
}

func TestGenerateNetworkDataNumbersExtrasByOriginalIndex(t *testing.T) {
	content, err := GenerateNetworkData("52:54:00:00:00:01", []ExtraInterface{
		{MACAddress: "52:54:00:00:00:02", AutoMode: false},
		{MACAddress: "52:54:00:de:ad:be", AutoMode: true},
	})
	require.NoError(t, err)

	var doc networkDoc
	require.NoError(t, yaml.Unmarshal([]byte(content), &doc))

	_, ok := doc.Ethernets["extra0"]
	assert.False(t, ok, "non-auto interface at index 0 must not be emitted")

	extra1, ok := doc.Ethernets["extra1"]
	require.True(t, ok, "auto interface must keep its original index (1), not be renumbered to 0")
	assert.Equal(t, "52:54:00:de:ad:be", extra1.Match.MACAddress)
}
