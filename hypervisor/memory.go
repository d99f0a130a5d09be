package hypervisor

import (
	"context"
	"fmt"
	"sync"

	"github.com/corraldev/corral/types"
)

// vmRecord tracks one VM's runtime state, mirroring the shape of the
// teacher's VMRecord index entry but without any on-disk persistence: state
// is owned by the lifecycle manager's own persisted spec, not by the
// backend.
type vmRecord struct {
	state     types.State
	spec      CreateSpec
	snapshots []types.Snapshot
}

// InProcess is a minimal default Hypervisor backend: it tracks VM state
// entirely in memory, with no real virtualization underneath. It exists so
// the daemon, CLI, and tests have a working default backend without
// depending on a specific hypervisor technology, matching the
// one-interface-one-factory-backend shape of the teacher's hypervisor
// package while the actual VM technology remains a pluggable collaborator.
type InProcess struct {
	mu       sync.Mutex
	backend  string
	networks []string
	vms      map[string]*vmRecord
}

// NewInProcess returns an InProcess backend advertising networkNames as its
// available networks.
func NewInProcess(backend string, networkNames []string) *InProcess {
	return &InProcess{backend: backend, networks: networkNames, vms: make(map[string]*vmRecord)}
}

var _ Hypervisor = (*InProcess)(nil)

func (h *InProcess) Type() string { return h.backend }

func (h *InProcess) NetworkNames(context.Context) ([]string, error) {
	return h.networks, nil
}

func (h *InProcess) Create(_ context.Context, name string, spec CreateSpec) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.vms[name]; ok {
		return fmt.Errorf("VM %s already created", name)
	}
	h.vms[name] = &vmRecord{state: types.StateOff, spec: spec}
	return nil
}

func (h *InProcess) Start(_ context.Context, name string) error {
	return h.transition(name, types.StateRunning)
}

func (h *InProcess) Stop(_ context.Context, name string) error {
	return h.transition(name, types.StateStopped)
}

func (h *InProcess) Suspend(_ context.Context, name string) error {
	return h.transition(name, types.StateSuspended)
}

func (h *InProcess) Delete(_ context.Context, name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.vms[name]; !ok {
		return ErrNotFound
	}
	delete(h.vms, name)
	return nil
}

func (h *InProcess) State(_ context.Context, name string) (types.State, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	vm, ok := h.vms[name]
	if !ok {
		return types.StateUnknown, ErrNotFound
	}
	return vm.state, nil
}

func (h *InProcess) IPv4(_ context.Context, name string) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	vm, ok := h.vms[name]
	if !ok {
		return nil, ErrNotFound
	}
	if !types.IsRunning(vm.state) {
		return nil, nil
	}
	return []string{"10.0.0.1"}, nil
}

func (h *InProcess) Snapshot(_ context.Context, name, snapshotName, comment string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	vm, ok := h.vms[name]
	if !ok {
		return ErrNotFound
	}
	vm.snapshots = append(vm.snapshots, types.Snapshot{Name: snapshotName, Comment: comment})
	return nil
}

func (h *InProcess) Restore(_ context.Context, name, snapshotName string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	vm, ok := h.vms[name]
	if !ok {
		return ErrNotFound
	}
	for _, s := range vm.snapshots {
		if s.Name == snapshotName {
			return nil
		}
	}
	return fmt.Errorf("snapshot %s not found on %s", snapshotName, name)
}

func (h *InProcess) Snapshots(_ context.Context, name string) ([]types.Snapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	vm, ok := h.vms[name]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]types.Snapshot(nil), vm.snapshots...), nil
}

func (h *InProcess) transition(name string, state types.State) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	vm, ok := h.vms[name]
	if !ok {
		return ErrNotFound
	}
	vm.state = state
	return nil
}
