package lifecycle

import (
	"context"
	"os"

	"github.com/projecteru2/core/log"

	"github.com/corraldev/corral/config"
	"github.com/corraldev/corral/macaddr"
	"github.com/corraldev/corral/types"
)

// Reconcile loads the persisted registry and rebuilds in-memory state, per
// §4.6. It must run once, before the manager serves any request: it takes mu
// for its entire body rather than the usual lock-per-step pattern elsewhere
// in this package, since nothing else can be racing the manager's tables
// yet.
//
// For each persisted spec: validate its MACs are well-formed and disjoint
// from every spec admitted so far in this same pass; confirm its resolved
// base image is still known to the vault and still present on disk; coerce
// deleted∧state≠stopped to stopped; install (but do not activate) its
// mounts; and, if the persisted state claims running but the hypervisor
// back-end disagrees, queue it for a restart-style readiness wait — the
// "race between a persisted running state and the actual state of a
// freshly-loaded handle" noted in the design. Invalid specs are dropped
// with a warning rather than aborting startup.
func (m *Manager) Reconcile(ctx context.Context, cfg *config.Config) error {
	logger := log.WithFunc("lifecycle.Reconcile")

	specs, err := m.Store.Load(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	admitted := macaddr.NewSet()
	var needsRestart []string
	dropped := false

	for name, spec := range specs {
		if reason, ok := m.validateForReconcileLocked(ctx, name, spec, admitted, cfg); !ok {
			logger.Warnf(ctx, "dropping instance %q at reconciliation: %s", name, reason)
			dropped = true
			continue
		}
		for _, mac := range spec.MACs() {
			admitted[mac] = struct{}{}
		}

		if spec.Deleted && spec.State != types.StateStopped {
			logger.Warnf(ctx, "coercing deleted instance %q from state %s to stopped", name, spec.State)
			spec.State = types.StateStopped
		}

		h := newHandle(name, spec)
		if snaps, err := m.Hypervisor.Snapshots(ctx, name); err == nil {
			h.snapshots = snaps
			h.snapshotsLoaded = true
		}

		if spec.Deleted {
			m.deleted[name] = h
			continue
		}
		m.operative[name] = h

		for target, desc := range spec.Mounts {
			if err := m.Mounts.Install(name, target, desc); err != nil {
				logger.Warnf(ctx, "failed to install mount %s on %s: %v", target, name, err)
			}
		}

		if spec.State == types.StateRunning {
			backendState, err := m.Hypervisor.State(ctx, name)
			if err != nil || (backendState != types.StateRunning && backendState != types.StateStarting) {
				// The persisted state claims running but the backend disagrees
				// — trust the backend and fall through the start state
				// machine's default branch rather than its running no-op case.
				spec.State = types.StateOff
				needsRestart = append(needsRestart, name)
			}
		}
	}
	m.macs = admitted

	if dropped {
		if err := m.persistLocked(ctx); err != nil {
			m.mu.Unlock()
			return err
		}
	}
	m.mu.Unlock()

	if len(needsRestart) > 0 {
		logger.Infof(ctx, "restarting instances reconciled as running but not observed running: %v", needsRestart)
		if err := m.startAll(ctx, needsRestart, false); err != nil {
			logger.Warnf(ctx, "restart during reconciliation reported errors: %v", err)
		}
	}

	return m.PruneImages(ctx)
}

// validateForReconcileLocked applies the per-spec checks of §4.6 that can
// drop a spec entirely: well-formed, internally-distinct, and
// already-admitted-disjoint MACs, and a base image that is still resolvable.
// Callers hold mu.
func (m *Manager) validateForReconcileLocked(ctx context.Context, name string, spec *types.InstanceSpec, admitted macaddr.Set, cfg *config.Config) (reason string, ok bool) {
	seen := make(map[string]bool, len(spec.MACs()))
	for _, mac := range spec.MACs() {
		if _, err := macaddr.Normalize(mac); err != nil {
			return "invalid MAC address " + mac, false
		}
		if seen[mac] {
			return "duplicate MAC address within spec: " + mac, false
		}
		seen[mac] = true
		if _, taken := admitted[mac]; taken {
			return "MAC address collides with an already-admitted spec: " + mac, false
		}
	}

	if localPath, ok := spec.Metadata[types.MetadataImageLocalPath].(string); ok && localPath != "" {
		if !m.Vault.Exists(ctx, localPath) {
			return "base image is no longer known to the vault: " + localPath, false
		}
		if _, err := os.Stat(localPath); err != nil {
			return "base image file is missing: " + localPath, false
		}
	}

	if cfg != nil {
		if _, err := os.Stat(cfg.InstanceArtifactDir(name)); err != nil {
			return "instance artifact directory is missing", false
		}
	}

	return "", true
}

// PruneImages removes cached images with no remaining instance reference.
// Reconcile calls it once at startup; the daemon package calls it again on
// a periodic timer (§4.6's "periodic image-refresh timer"), since owning a
// ticker requires the process-lifetime scope the daemon has and a one-shot
// startup function does not.
func (m *Manager) PruneImages(ctx context.Context) error {
	m.mu.Lock()
	inUse := make(map[string]struct{}, len(m.operative)+len(m.deleted))
	for _, h := range m.operative {
		if p, ok := h.Spec.Metadata[types.MetadataImageLocalPath].(string); ok && p != "" {
			inUse[p] = struct{}{}
		}
	}
	for _, h := range m.deleted {
		if p, ok := h.Spec.Metadata[types.MetadataImageLocalPath].(string); ok && p != "" {
			inUse[p] = struct{}{}
		}
	}
	m.mu.Unlock()

	return m.Vault.Prune(ctx, inUse)
}
