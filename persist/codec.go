// Package persist implements the persistence codec: converting the
// in-memory instance registry to and from the durable JSON document, per
// §4.1 of the design. It is deliberately decode/encode only — file I/O,
// locking, and the legacy-path fallback live in store.go.
package persist

import (
	"encoding/json"
	"fmt"
	"strconv"

	units "github.com/docker/go-units"

	"github.com/corraldev/corral/macaddr"
	"github.com/corraldev/corral/types"
)

// Decode parses raw into a name→spec map. An absent or unparseable document
// is treated as empty rather than an error. Ghost records are dropped with
// the caller-supplied warn callback invoked once per dropped name. An
// invalid MAC anywhere fails the whole decode, per §4.1.
func Decode(raw []byte, warn func(name string)) (map[string]*types.InstanceSpec, error) {
	if len(raw) == 0 {
		return map[string]*types.InstanceSpec{}, nil
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return map[string]*types.InstanceSpec{}, nil //nolint:nilerr // unparseable document treated as empty, per §4.1
	}

	out := make(map[string]*types.InstanceSpec, len(doc))
	for name, rec := range doc {
		if rec.isGhost() {
			if warn != nil {
				warn(name)
			}
			continue
		}
		spec, err := recordToSpec(rec)
		if err != nil {
			return nil, fmt.Errorf("decode instance %q: %w", name, err)
		}
		out[name] = spec
	}
	return out, nil
}

// Encode serializes specs into the on-disk document form.
func Encode(specs map[string]*types.InstanceSpec) ([]byte, error) {
	doc := make(document, len(specs))
	for name, spec := range specs {
		doc[name] = specToRecord(spec)
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode instance registry: %w", err)
	}
	return raw, nil
}

func recordToSpec(rec record) (*types.InstanceSpec, error) {
	memory := rec.Memory
	if memory == "" {
		memory = DefaultMemory
	}
	memoryBytes, err := units.FromHumanSize(memory)
	if err != nil {
		return nil, fmt.Errorf("parse memory %q: %w", memory, err)
	}

	disk := rec.Disk
	if disk == "" {
		disk = DefaultDisk
	}
	diskBytes, err := units.FromHumanSize(disk)
	if err != nil {
		return nil, fmt.Errorf("parse disk %q: %w", disk, err)
	}

	username := rec.SSHUsername
	if username == "" {
		username = DefaultSSHUsername
	}

	mac, err := macaddr.Normalize(rec.MACAddress)
	if err != nil {
		return nil, err
	}

	extras := make([]types.ExtraInterface, 0, len(rec.ExtraInterfaces))
	for _, e := range rec.ExtraInterfaces {
		emac, err := macaddr.Normalize(e.MACAddress)
		if err != nil {
			return nil, err
		}
		extras = append(extras, types.ExtraInterface{ID: e.ID, MACAddress: emac, AutoMode: e.AutoMode})
	}

	mounts := make(map[string]types.MountDescription, len(rec.Mounts))
	for _, m := range rec.Mounts {
		mounts[m.TargetPath] = types.MountDescription{
			SourcePath:  m.SourcePath,
			UIDMappings: types.DedupeMappings(toIDMappings(m.UIDMappings)),
			GIDMappings: types.DedupeMappings(toIDMappings(m.GIDMappings)),
			MountKind:   types.MountKind(m.MountType),
		}
	}

	return &types.InstanceSpec{
		Cores:           rec.Cores,
		MemoryBytes:     memoryBytes,
		DiskBytes:       diskBytes,
		MACAddress:      mac,
		ExtraInterfaces: extras,
		SSHUsername:     username,
		State:           types.State(rec.State),
		Mounts:          mounts,
		Deleted:         rec.Deleted,
		Metadata:        rec.Metadata,
	}, nil
}

func specToRecord(spec *types.InstanceSpec) record {
	extras := make([]extraInterfaceRecord, 0, len(spec.ExtraInterfaces))
	for _, e := range spec.ExtraInterfaces {
		extras = append(extras, extraInterfaceRecord{ID: e.ID, MACAddress: e.MACAddress, AutoMode: e.AutoMode})
	}

	mounts := make([]mountRecord, 0, len(spec.Mounts))
	for target, m := range spec.Mounts {
		mounts = append(mounts, mountRecord{
			TargetPath:  target,
			SourcePath:  m.SourcePath,
			UIDMappings: fromIDMappings(m.UIDMappings),
			GIDMappings: fromIDMappings(m.GIDMappings),
			MountType:   int(m.MountKind),
		})
	}

	return record{
		Cores:           spec.Cores,
		Memory:          strconv.FormatInt(spec.MemoryBytes, 10),
		Disk:            strconv.FormatInt(spec.DiskBytes, 10),
		SSHUsername:     spec.SSHUsername,
		State:           int(spec.State),
		Deleted:         spec.Deleted,
		Metadata:        spec.Metadata,
		MACAddress:      spec.MACAddress,
		ExtraInterfaces: extras,
		Mounts:          mounts,
	}
}
