// Package lifecycle is the instance lifecycle manager: the operative and
// deleted tables, the preparing set, the start/stop/restart/suspend/
// snapshot/restore operations, and the async readiness waits, per §4.4.
package lifecycle

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/corraldev/corral/blueprint"
	"github.com/corraldev/corral/hypervisor"
	"github.com/corraldev/corral/imagevault"
	"github.com/corraldev/corral/macaddr"
	"github.com/corraldev/corral/mount"
	"github.com/corraldev/corral/persist"
	"github.com/corraldev/corral/selection"
	"github.com/corraldev/corral/settingsstore"
	"github.com/corraldev/corral/shutdown"
	"github.com/corraldev/corral/sshsession"
	"github.com/corraldev/corral/types"
)

// preparingEntry records a reserved-but-not-yet-committed name, tagged with
// a PreparingToken so two concurrent reservations racing on a generated
// name can never collide (a diagnostic supplement over the original
// source's bare set, per SPEC_FULL §4).
type preparingEntry struct {
	token string
}

// Manager owns every piece of shared mutable state named in §3/§5: the
// operative and deleted tables, the preparing set, the allocated-MAC set,
// the delayed-shutdown map, and the mounts map. All of it is guarded by mu,
// the single process-wide lock, except for startMu which separately
// serializes entries into the start state machine (§4.4.1) so that slow
// per-target work there does not hold mu.
type Manager struct {
	mu      sync.Mutex
	startMu sync.Mutex

	operative map[string]*Handle
	deleted   map[string]*Handle
	preparing map[string]preparingEntry
	macs      macaddr.Set

	Mounts    *mount.Coordinator
	Shutdowns *shutdown.Registry
	waits     singleflight.Group

	Store      *persist.Store
	Hypervisor hypervisor.Hypervisor
	Vault      imagevault.Vault
	Blueprints blueprint.Provider
	SSH        sshsession.Opener
	Settings   *settingsstore.Store
}

// New constructs an empty Manager wired to its collaborators. Call
// Reconcile to populate it from the persisted registry before serving
// requests.
func New(
	store *persist.Store,
	hv hypervisor.Hypervisor,
	vault imagevault.Vault,
	bp blueprint.Provider,
	ssh sshsession.Opener,
	settings *settingsstore.Store,
	mountFactory mount.Factory,
) *Manager {
	return &Manager{
		operative: make(map[string]*Handle),
		deleted:   make(map[string]*Handle),
		preparing: make(map[string]preparingEntry),
		macs:      macaddr.NewSet(),
		Mounts:    mount.NewCoordinator(mountFactory),
		Shutdowns: shutdown.NewRegistry(),
		Store:     store,
		Hypervisor: hv,
		Vault:      vault,
		Blueprints: bp,
		SSH:        ssh,
		Settings:   settings,
	}
}

// --- selection.Registry ---

func (m *Manager) IsOperative(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.operative[name]
	return ok
}

func (m *Manager) IsDeleted(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.deleted[name]
	return ok
}

func (m *Manager) OperativeNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.operative))
	for n := range m.operative {
		names = append(names, n)
	}
	return names
}

func (m *Manager) DeletedNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.deleted))
	for n := range m.deleted {
		names = append(names, n)
	}
	return names
}

// partition takes the global mutex and partitions requested against the
// current tables.
func (m *Manager) partition(requested []string, group selection.Group) (operative, deleted, missing []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.partitionLocked(requested, group)
}

// partitionLocked is partition's body, for callers that already hold mu.
func (m *Manager) partitionLocked(requested []string, group selection.Group) (operative, deleted, missing []string) {
	if len(requested) == 0 {
		switch group {
		case selection.GroupOperative:
			return namesOf(m.operative), nil, nil
		case selection.GroupDeleted:
			return nil, namesOf(m.deleted), nil
		case selection.GroupAll:
			return namesOf(m.operative), namesOf(m.deleted), nil
		default:
			return nil, nil, nil
		}
	}
	seen := make(map[string]struct{}, len(requested))
	for _, name := range requested {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		switch {
		case m.isOperativeLocked(name):
			operative = append(operative, name)
		case m.isDeletedLocked(name):
			deleted = append(deleted, name)
		default:
			missing = append(missing, name)
		}
	}
	return operative, deleted, missing
}

func (m *Manager) isOperativeLocked(name string) bool { _, ok := m.operative[name]; return ok }
func (m *Manager) isDeletedLocked(name string) bool   { _, ok := m.deleted[name]; return ok }

func namesOf(tbl map[string]*Handle) []string {
	names := make([]string, 0, len(tbl))
	for n := range tbl {
		names = append(names, n)
	}
	return names
}

// handleLocked returns the handle for name from whichever table it is in.
func (m *Manager) handleLocked(name string) (*Handle, bool) {
	if h, ok := m.operative[name]; ok {
		return h, true
	}
	h, ok := m.deleted[name]
	return h, ok
}

// persistLocked writes the current registry to disk. Callers hold mu.
func (m *Manager) persistLocked(ctx context.Context) error {
	specs := make(map[string]*types.InstanceSpec, len(m.operative)+len(m.deleted))
	for name, h := range m.operative {
		specs[name] = h.Spec
	}
	for name, h := range m.deleted {
		specs[name] = h.Spec
	}
	return m.Store.Save(ctx, specs)
}

// newPreparingToken mints a diagnostic token for a newly reserved name.
func newPreparingToken() string {
	return uuid.NewString()
}
