package persist

import "github.com/corraldev/corral/types"

// DefaultMemory and DefaultDisk back-fill a record whose memory or disk
// string is missing, per §4.1.
const (
	DefaultMemory = "1GiB"
	DefaultDisk   = "5GiB"
	// DefaultSSHUsername back-fills an empty persisted username.
	DefaultSSHUsername = "ubuntu"
)

// document is the on-disk shape: a map from instance name to record.
type document map[string]record

// record is the persisted form of one instance, matching §4.1 exactly:
// memory and disk are decimal byte strings, not the in-memory int64.
type record struct {
	Cores           int                    `json:"cores"`
	Memory          string                 `json:"memory"`
	Disk            string                 `json:"disk"`
	SSHUsername     string                 `json:"ssh_username"`
	State           int                    `json:"state"`
	Deleted         bool                   `json:"deleted"`
	Metadata        map[string]any         `json:"metadata"`
	MACAddress      string                 `json:"mac_addr"`
	ExtraInterfaces []extraInterfaceRecord `json:"extra_interfaces"`
	Mounts          []mountRecord          `json:"mounts"`
}

type extraInterfaceRecord struct {
	ID         string `json:"id"`
	MACAddress string `json:"mac_address"`
	AutoMode   bool   `json:"auto_mode"`
}

type mountRecord struct {
	TargetPath  string            `json:"target_path"`
	SourcePath  string            `json:"source_path"`
	UIDMappings []idMappingRecord `json:"uid_mappings"`
	GIDMappings []idMappingRecord `json:"gid_mappings"`
	MountType   int               `json:"mount_type"`
}

type idMappingRecord struct {
	HostID  int `json:"host_id"`
	GuestID int `json:"guest_id"`
}

// isGhost reports whether r carries no real information: zero cores, no
// username, no metadata, no memory, no disk, and not deleted. Such records
// are dropped silently (with a warning) rather than admitted, per §4.1.
func (r record) isGhost() bool {
	return r.Cores == 0 &&
		r.SSHUsername == "" &&
		len(r.Metadata) == 0 &&
		r.Memory == "" &&
		r.Disk == "" &&
		!r.Deleted
}

func toIDMappings(in []idMappingRecord) []types.IDMapping {
	out := make([]types.IDMapping, 0, len(in))
	for _, m := range in {
		out = append(out, types.IDMapping{HostID: m.HostID, GuestID: m.GuestID})
	}
	return out
}

func fromIDMappings(in []types.IDMapping) []idMappingRecord {
	out := make([]idMappingRecord, 0, len(in))
	for _, m := range in {
		out = append(out, idMappingRecord{HostID: m.HostID, GuestID: m.GuestID})
	}
	return out
}
