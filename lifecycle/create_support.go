package lifecycle

import (
	"context"

	"github.com/corraldev/corral/corralerr"
	"github.com/corraldev/corral/macaddr"
	"github.com/corraldev/corral/types"
)

const maxNameGenerationAttempts = 100

// ReserveName reserves name for creation: it must not already be operative,
// deleted, or preparing. Returns a token that must accompany the eventual
// CommitCreate or RollbackCreate, so a stale caller can never finalize a
// reservation it no longer owns.
func (m *Manager) ReserveName(name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.isOperativeLocked(name) {
		return "", corralerr.Newf(corralerr.AlreadyExists, "instance %q already exists", name)
	}
	if m.isDeletedLocked(name) {
		return "", corralerr.Newf(corralerr.AlreadyExists, "instance %q exists in a deleted state", name)
	}
	if _, ok := m.preparing[name]; ok {
		return "", corralerr.Newf(corralerr.AlreadyExists, "instance %q is already being prepared", name)
	}
	token := newPreparingToken()
	m.preparing[name] = preparingEntry{token: token}
	return token, nil
}

// GenerateName reserves a freshly generated name, retrying candidate from
// next up to maxNameGenerationAttempts times against the operative, deleted,
// and preparing sets.
func (m *Manager) GenerateName(next func(attempt int) string) (name, token string, err error) {
	for attempt := 0; attempt < maxNameGenerationAttempts; attempt++ {
		candidate := next(attempt)
		token, err := m.ReserveName(candidate)
		if err == nil {
			return candidate, token, nil
		}
		if corralerr.KindOf(err) != corralerr.AlreadyExists {
			return "", "", err
		}
	}
	return "", "", corralerr.New(corralerr.ResourceExhausted, "could not generate a unique instance name")
}

// AllocateMACs allocates a MAC for the default interface plus one for each
// extra requested interface, all drawn from a tentative set disjoint from
// the admitted allocator state. The tentative set is discarded on failure
// and must be merged via PromoteMACs on success (§4.5 step 4's "generate on
// a tentative set, promote on success").
func (m *Manager) AllocateMACs(ctx context.Context, requestedDefault string, requestedExtra []string) (defaultMAC string, extra []string, tentative macaddr.Set, err error) {
	m.mu.Lock()
	base := m.macs.Clone()
	m.mu.Unlock()

	tentative = macaddr.NewSet()
	defaultMAC, err = macaddr.Allocate(ctx, mergedSet(base, tentative), requestedDefault)
	if err != nil {
		return "", nil, nil, err
	}
	tentative[defaultMAC] = struct{}{}

	for _, req := range requestedExtra {
		mac, err := macaddr.Allocate(ctx, mergedSet(base, tentative), req)
		if err != nil {
			return "", nil, nil, err
		}
		tentative[mac] = struct{}{}
		extra = append(extra, mac)
	}
	return defaultMAC, extra, tentative, nil
}

func mergedSet(a, b macaddr.Set) macaddr.Set {
	out := a.Clone()
	for mac := range b {
		out[mac] = struct{}{}
	}
	return out
}

// PromoteMACs merges tentative into the admitted allocator set. It must
// only be called once the rest of step 4 (image fetch, cloud-init, image
// preparation) has succeeded.
func (m *Manager) PromoteMACs(tentative macaddr.Set) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !macaddr.MergeIfDisjoint(m.macs, tentative) {
		return corralerr.New(corralerr.Aborted, "MAC set changed concurrently during preparation")
	}
	return nil
}

// ReleaseMACs removes every MAC in macs from the admitted allocator set,
// used to unwind a partially prepared creation that allocated MACs but
// failed before or after commit.
func (m *Manager) ReleaseMACs(macs macaddr.Set) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for mac := range macs {
		delete(m.macs, mac)
	}
}

// CommitCreate finalizes a reservation: it must match the outstanding
// preparing token for name, and is added to the operative table and
// persisted.
func (m *Manager) CommitCreate(ctx context.Context, name, token string, spec *types.InstanceSpec) error {
	m.mu.Lock()
	entry, ok := m.preparing[name]
	if !ok || entry.token != token {
		m.mu.Unlock()
		return corralerr.Newf(corralerr.Aborted, "reservation for %q is no longer valid", name)
	}
	delete(m.preparing, name)
	m.operative[name] = newHandle(name, spec)
	err := m.persistLocked(ctx)
	m.mu.Unlock()
	if err != nil {
		return corralerr.Wrap(corralerr.Internal, err)
	}
	return nil
}

// Persist writes the current registry to disk immediately. The creation
// pipeline calls this after a post-commit RollbackCreate (a launch failure
// erasing the operative entry per §4.5 step 6) so the on-disk state catches
// up with the in-memory rollback.
func (m *Manager) Persist(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.persistLocked(ctx)
}

// RollbackCreate discards a reservation without committing it. Safe to call
// more than once or after a token mismatch; it is always best-effort per
// §4.5's "any failure during steps 4-5 removes the name from preparing".
func (m *Manager) RollbackCreate(name, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.preparing[name]; ok && entry.token == token {
		delete(m.preparing, name)
	}
	delete(m.operative, name)
}
