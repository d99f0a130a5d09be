// Package hypervisor declares the boundary to the hypervisor back-end:
// creating, starting, stopping, suspending, snapshotting, and restoring a
// VM. It is an external collaborator per §1/§6 — this package owns only the
// interface and a minimal in-process default used for wiring and tests.
package hypervisor

import (
	"context"
	"errors"

	"github.com/corraldev/corral/types"
)

// ErrNotFound is returned when the referenced VM is unknown to the backend.
var ErrNotFound = errors.New("VM not found")

// CreateSpec is everything the backend needs to construct a VM, trimmed
// from the full InstanceSpec to what is actually backend-facing.
type CreateSpec struct {
	Cores         int
	MemoryBytes   int64
	DiskBytes     int64
	MACAddress    string
	ExtraMACs     []string
	CloudInitISO  string
	BaseImagePath string
}

// Hypervisor manages the runtime lifecycle of VMs for one backend.
type Hypervisor interface {
	Type() string

	NetworkNames(ctx context.Context) ([]string, error)

	Create(ctx context.Context, name string, spec CreateSpec) error
	Start(ctx context.Context, name string) error
	Stop(ctx context.Context, name string) error
	Suspend(ctx context.Context, name string) error
	Delete(ctx context.Context, name string) error

	State(ctx context.Context, name string) (types.State, error)
	IPv4(ctx context.Context, name string) ([]string, error)

	Snapshot(ctx context.Context, name, snapshotName, comment string) error
	Restore(ctx context.Context, name, snapshotName string) error
	Snapshots(ctx context.Context, name string) ([]types.Snapshot, error)
}
