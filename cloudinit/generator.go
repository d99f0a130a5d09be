// Package cloudinit generates the four cloud-init documents emitted during
// instance creation — vendor, meta, user, and network data — and packages
// them into a NoCloud ISO, per §6.
package cloudinit

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// VendorDataInput describes everything GenerateVendorData needs: the
// single injected SSH key plus the pollinate user-agent identifiers.
type VendorDataInput struct {
	PublicKeyMaterial string // base64 key blob, without the "ssh-rsa " prefix
	Username          string
	Timezone          string
	Version           string
	BackendVersion    string
	HostVersion       string
	// ImageAlias is the resolved image reference rendered as
	// "<remote>:alias", a bare alias, or "default"/"http"/"file".
	ImageAlias string
}

type vendorDoc struct {
	SSHAuthorizedKeys []string        `yaml:"ssh_authorized_keys"`
	Timezone          string          `yaml:"timezone"`
	SystemInfo        *systemInfoDoc  `yaml:"system_info,omitempty"`
	WriteFiles        []writeFileDoc  `yaml:"write_files"`
}

type systemInfoDoc struct {
	DefaultUser defaultUserDoc `yaml:"default_user"`
}

type defaultUserDoc struct {
	Name string `yaml:"name"`
}

type writeFileDoc struct {
	Path    string `yaml:"path"`
	Content string `yaml:"content"`
	Append  bool   `yaml:"append"`
}

// VendorKey renders in's SSH key in the standard "ssh-rsa <key> <user>@localhost" form.
func (in VendorDataInput) VendorKey() string {
	return fmt.Sprintf("ssh-rsa %s %s@localhost", in.PublicKeyMaterial, in.Username)
}

// GenerateVendorData builds the vendor-data document: the single injected
// SSH key, timezone, default user, and an appended pollinate user-agent
// file recording the four identifying lines.
func GenerateVendorData(in VendorDataInput) (string, error) {
	lines := []string{
		fmt.Sprintf("multipass/version/%s # written by Multipass", in.Version),
		fmt.Sprintf("multipass/driver/%s # written by Multipass", in.BackendVersion),
		fmt.Sprintf("multipass/host/%s # written by Multipass", in.HostVersion),
		fmt.Sprintf("multipass/alias/%s # written by Multipass", in.ImageAlias),
	}
	doc := vendorDoc{
		SSHAuthorizedKeys: []string{in.VendorKey()},
		Timezone:          in.Timezone,
		SystemInfo:        &systemInfoDoc{DefaultUser: defaultUserDoc{Name: in.Username}},
		WriteFiles: []writeFileDoc{{
			Path:    "/etc/pollinate/add-user-agent",
			Content: strings.Join(lines, "\n") + "\n",
			Append:  true,
		}},
	}
	b, err := yaml.Marshal(&doc)
	if err != nil {
		return "", fmt.Errorf("marshal vendor-data: %w", err)
	}
	return "#cloud-config\n" + string(b), nil
}

type metaDoc struct {
	InstanceID    string `yaml:"instance-id"`
	LocalHostname string `yaml:"local-hostname"`
	CloudName     string `yaml:"cloud-name"`
}

// GenerateMetaData builds the meta-data document, keying the instance-id
// and local-hostname to instanceName.
func GenerateMetaData(instanceName string) (string, error) {
	b, err := yaml.Marshal(&metaDoc{
		InstanceID:    instanceName,
		LocalHostname: instanceName,
		CloudName:     "multipass",
	})
	if err != nil {
		return "", fmt.Errorf("marshal meta-data: %w", err)
	}
	return string(b), nil
}

// GenerateUserData parses the caller-supplied raw cloud-config YAML,
// appends "default" to a top-level users sequence if present, appends
// vendorKey to a top-level ssh_authorized_keys sequence if present, and
// re-serializes the result with the #cloud-config header. An empty raw
// document is passed through unchanged.
func GenerateUserData(raw, defaultUser, vendorKey string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}

	var doc map[string]any
	if err := yaml.Unmarshal([]byte(raw), &doc); err != nil {
		return "", fmt.Errorf("parse user-data: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	if users, ok := doc["users"].([]any); ok {
		doc["users"] = append(users, defaultUser)
	}
	if keys, ok := doc["ssh_authorized_keys"].([]any); ok {
		doc["ssh_authorized_keys"] = append(keys, vendorKey)
	}

	b, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal user-data: %w", err)
	}
	return "#cloud-config\n" + string(b), nil
}

// ExtraInterface is the subset of types.ExtraInterface the network-data
// generator needs; kept local to avoid importing types here.
type ExtraInterface struct {
	MACAddress string
	AutoMode   bool
}

type networkDoc struct {
	Version   string                 `yaml:"version"`
	Ethernets map[string]ethernetDoc `yaml:"ethernets"`
}

type ethernetDoc struct {
	Match          matchDoc       `yaml:"match"`
	DHCP4          bool           `yaml:"dhcp4"`
	DHCP4Overrides *dhcp4Overrides `yaml:"dhcp4-overrides,omitempty"`
	Optional       bool           `yaml:"optional,omitempty"`
}

type matchDoc struct {
	MACAddress string `yaml:"macaddress"`
}

type dhcp4Overrides struct {
	RouteMetric int `yaml:"route-metric"`
}

// GenerateNetworkData builds the network-data document, emitted only when
// at least one extra interface has auto_mode=true: a "default" entry
// matching defaultMAC plus one "extra<i>" entry per auto extra interface,
// each carrying a DHCP route metric of 200 and marked optional. Returns ""
// when no extra interface is in auto mode.
func GenerateNetworkData(defaultMAC string, extras []ExtraInterface) (string, error) {
	hasAuto := false
	for _, e := range extras {
		if e.AutoMode {
			hasAuto = true
			break
		}
	}
	if !hasAuto {
		return "", nil
	}

	doc := networkDoc{
		Version: "2",
		Ethernets: map[string]ethernetDoc{
			"default": {Match: matchDoc{MACAddress: defaultMAC}, DHCP4: true},
		},
	}
	// extra<i> is numbered by i's position in the full extras list, not in
	// the filtered auto subset, so a non-auto interface listed earlier does
	// not shift a later auto interface's generated name.
	for i, e := range extras {
		if !e.AutoMode {
			continue
		}
		doc.Ethernets[fmt.Sprintf("extra%d", i)] = ethernetDoc{
			Match:          matchDoc{MACAddress: e.MACAddress},
			DHCP4:          true,
			DHCP4Overrides: &dhcp4Overrides{RouteMetric: 200},
			Optional:       true,
		}
	}

	b, err := yaml.Marshal(&doc)
	if err != nil {
		return "", fmt.Errorf("marshal network-data: %w", err)
	}
	return string(b), nil
}
