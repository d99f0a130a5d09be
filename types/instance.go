package types

import "time"

// MetadataImageLocalPath is the InstanceSpec.Metadata key under which the
// creation pipeline records the resolved base image's local path, used by
// startup reconciliation and image garbage collection to determine which
// cached images are still referenced. InstanceSpec's persisted schema
// carries no dedicated field for this — Metadata is the free-form extension
// point the codec already threads through unchanged.
const MetadataImageLocalPath = "image_local_path"

// ExtraInterface is one additional network interface attached to an
// instance beyond its default one.
type ExtraInterface struct {
	ID         string `json:"id"`
	MACAddress string `json:"mac_address"`
	AutoMode   bool   `json:"auto_mode"`
}

// InstanceSpec is the durable description of one instance. It is the unit
// the persistence codec reads and writes; everything the daemon knows about
// an instance beyond its runtime handle lives here.
type InstanceSpec struct {
	Cores           int              `json:"cores"`
	MemoryBytes     int64            `json:"memory_bytes"`
	DiskBytes       int64            `json:"disk_bytes"`
	MACAddress      string           `json:"mac_addr"`
	ExtraInterfaces []ExtraInterface `json:"extra_interfaces"`
	SSHUsername     string           `json:"ssh_username"`
	State           State            `json:"state"`
	Mounts          map[string]MountDescription `json:"mounts"`
	Deleted         bool             `json:"deleted"`
	Metadata        map[string]any   `json:"metadata,omitempty"`
}

// MACs returns the default MAC plus every extra-interface MAC, per
// mac_set_of in the MAC allocator design.
func (s *InstanceSpec) MACs() []string {
	out := make([]string, 0, 1+len(s.ExtraInterfaces))
	if s.MACAddress != "" {
		out = append(out, s.MACAddress)
	}
	for _, e := range s.ExtraInterfaces {
		if e.MACAddress != "" {
			out = append(out, e.MACAddress)
		}
	}
	return out
}

// Clone returns a deep-enough copy of s, safe to mutate without aliasing the
// original's slices and maps. Used whenever a tentative copy of a spec is
// required (creation pipeline, MAC allocation on a tentative set).
func (s *InstanceSpec) Clone() *InstanceSpec {
	out := *s
	out.ExtraInterfaces = append([]ExtraInterface(nil), s.ExtraInterfaces...)
	if s.Mounts != nil {
		out.Mounts = make(map[string]MountDescription, len(s.Mounts))
		for k, v := range s.Mounts {
			out.Mounts[k] = v
		}
	}
	if s.Metadata != nil {
		out.Metadata = make(map[string]any, len(s.Metadata))
		for k, v := range s.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

// Snapshot is a point-in-time copy of an instance's disk, taken while the
// instance was off or stopped.
type Snapshot struct {
	Name       string    `json:"name"`
	Comment    string    `json:"comment"`
	ParentName string    `json:"parent_name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
