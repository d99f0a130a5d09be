package cloudinit

import (
	"bytes"
	"fmt"

	"github.com/kdomanski/iso9660"
)

// Documents is the complete set of generated cloud-init documents for one
// instance, ready to be packaged into cloud-init-config.iso.
type Documents struct {
	VendorData  string
	MetaData    string
	UserData    string
	NetworkData string // empty when no extra interface is in auto mode
}

// BuildISO packages docs into a NoCloud-format ISO image labeled CIDATA,
// the volume id the cloud-init NoCloud datasource requires.
func BuildISO(docs Documents) ([]byte, error) {
	writer, err := iso9660.NewWriter()
	if err != nil {
		return nil, fmt.Errorf("create ISO writer: %w", err)
	}
	defer func() { _ = writer.Cleanup() }()

	files := []struct {
		name    string
		content string
	}{
		{"vendor-data", docs.VendorData},
		{"meta-data", docs.MetaData},
		{"user-data", docs.UserData},
	}
	if docs.NetworkData != "" {
		files = append(files, struct{ name, content string }{"network-config", docs.NetworkData})
	}

	for _, f := range files {
		if err := writer.AddFile(bytes.NewReader([]byte(f.content)), f.name); err != nil {
			return nil, fmt.Errorf("add %s: %w", f.name, err)
		}
	}

	var buf bytes.Buffer
	if err := writer.WriteTo(&buf, "CIDATA"); err != nil {
		return nil, fmt.Errorf("write ISO: %w", err)
	}
	return buf.Bytes(), nil
}
