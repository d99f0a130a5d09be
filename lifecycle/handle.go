package lifecycle

import (
	"sync"

	"github.com/corraldev/corral/types"
)

// Handle is the volatile, non-persistent representation of one instance,
// per §3: a name, a reference to its durable spec, its observed state, a
// mutex guarding state transitions (the "state-mutex"), and a lazily loaded
// snapshot collection.
type Handle struct {
	Name string
	Spec *types.InstanceSpec

	// stateMu is the per-handle state-mutex (§5): it serializes state
	// transitions orchestrated by the hypervisor back-end, independent of
	// the manager's global mutex which guards table membership.
	stateMu sync.Mutex

	snapshotsLoaded bool
	snapshots       []types.Snapshot
}

func newHandle(name string, spec *types.InstanceSpec) *Handle {
	return &Handle{Name: name, Spec: spec}
}

// WithStateLock runs fn with the handle's state-mutex held.
func (h *Handle) WithStateLock(fn func() error) error {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	return fn()
}
