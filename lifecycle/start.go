package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/projecteru2/core/log"

	"github.com/corraldev/corral/corralerr"
	"github.com/corraldev/corral/selection"
	"github.com/corraldev/corral/types"
	"github.com/corraldev/corral/utils"
)

// readinessTimeout bounds how long Start's async wait blocks per instance
// before the watcher gives up, per §4.4.4.
const readinessTimeout = 2 * time.Minute

// Start transitions each target per the start state machine (§4.4.1), then
// waits for reachability on every target it actually started before
// returning, per §4.4.4's async-readiness design collapsed onto this
// method's synchronous return.
func (m *Manager) Start(ctx context.Context, names []string) error {
	operative, deleted, missing := m.partition(names, selection.GroupOperative)
	status := selection.Evaluate(selection.StartPolicy, operative, deleted, missing)
	if !status.OK() {
		return status.Err()
	}
	return m.startAll(ctx, operative, false)
}

// Launch starts a freshly committed instance as the final step of the
// creation pipeline (§4.5 step 6), treating the readiness wait as a
// first-boot wait rather than a plain restart.
func (m *Manager) Launch(ctx context.Context, name string) error {
	return m.startAll(ctx, []string{name}, true)
}

func (m *Manager) startAll(ctx context.Context, operative []string, launch bool) error {
	batch := corralerr.NewStatus()
	var toWait []string
	for _, name := range operative {
		wait, err := m.startTarget(ctx, name)
		if err != nil {
			batch.Add(corralerr.KindOf(err), err.Error())
			continue
		}
		if wait {
			toWait = append(toWait, name)
		}
	}

	m.mu.Lock()
	persistErr := m.persistLocked(ctx)
	m.mu.Unlock()
	if persistErr != nil {
		batch.Add(corralerr.Internal, persistErr.Error())
	}

	if len(toWait) > 0 {
		batch.Merge(m.awaitReady(ctx, toWait, launch))
	}

	if !batch.OK() {
		return batch.Err()
	}
	return nil
}

// startTarget runs one target through the start state machine under
// startMu, returning whether it should be added to the async wait list.
func (m *Manager) startTarget(ctx context.Context, name string) (wait bool, err error) {
	m.startMu.Lock()
	defer m.startMu.Unlock()
	logger := log.WithFunc("lifecycle.startTarget")

	m.mu.Lock()
	h, ok := m.operative[name]
	m.mu.Unlock()
	if !ok {
		return false, corralerr.Newf(corralerr.NotFound, "instance %q does not exist", name)
	}

	return wait, h.WithStateLock(func() error {
		switch h.Spec.State {
		case types.StateUnknown:
			return corralerr.Newf(corralerr.FailedPrecondition, "instance %q is in an unknown state", name)
		case types.StateSuspending:
			return corralerr.Newf(corralerr.FailedPrecondition, "instance %q is suspending", name)
		case types.StateDelayedShutdown:
			m.Shutdowns.Cancel(name)
			h.Spec.State = types.StateRunning
			logger.Infof(ctx, "cancelled delayed shutdown and kept %s running", name)
			return nil
		case types.StateRunning:
			return nil
		case types.StateStarting, types.StateRestarting:
			wait = true
			return nil
		default:
			if err := m.Hypervisor.Start(ctx, name); err != nil {
				return fmt.Errorf("start instance %q: %w", name, err)
			}
			h.Spec.State = types.StateStarting
			wait = true
			return nil
		}
	})
}

// awaitReady waits for every name in names to become reachable, deduping
// concurrent waits for the same name via singleflight so a second batch
// racing on the same instance attaches to the already-running wait, per
// §4.4.4. launch additionally implies first-boot configuration must
// complete; that distinction is made by the create pipeline, which passes
// launch=true. Every watcher's outcome is folded into the returned status,
// fulfilling the original caller's promise with an aggregate result rather
// than a bare best-effort wait.
func (m *Manager) awaitReady(ctx context.Context, names []string, launch bool) *corralerr.Status {
	logger := log.WithFunc("lifecycle.awaitReady")
	batch := corralerr.NewStatus()
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, name := range names {
		name := name
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err, _ := m.waits.Do(name, func() (any, error) {
				return nil, m.waitOneReady(ctx, name, launch)
			})
			if err != nil {
				mu.Lock()
				batch.Add(corralerr.KindOf(err), err.Error())
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	logger.Infof(ctx, "readiness wait complete for %v", names)
	return batch
}

// waitOneReady polls until name's guest shell is reachable or the timeout
// elapses, then — for a launch — waits for first-boot configuration to
// complete, then activates every unmanaged mount of that instance. Mount
// activation failures are logged and the offending entry dropped from the
// spec rather than failing the wait, per §4.4.4; a readiness or first-boot
// failure is returned as an error so the caller's aggregate status reflects
// it.
func (m *Manager) waitOneReady(ctx context.Context, name string, launch bool) error {
	logger := log.WithFunc("lifecycle.waitOneReady")
	deadline := time.Now().Add(readinessTimeout)
	err := utils.WaitFor(ctx, readinessTimeout, time.Second, func() (bool, error) {
		ips, ipErr := m.Hypervisor.IPv4(ctx, name)
		return ipErr == nil && len(ips) > 0, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return corralerr.Newf(corralerr.FailedPrecondition, "instance %q did not become reachable within %s", name, readinessTimeout)
	}

	m.mu.Lock()
	h, ok := m.operative[name]
	var mounts map[string]types.MountDescription
	if ok {
		h.Spec.State = types.StateRunning
		mounts = h.Spec.Mounts
	}
	m.mu.Unlock()
	if !ok {
		return corralerr.Newf(corralerr.NotFound, "instance %q does not exist", name)
	}

	if launch {
		if err := m.waitFirstBoot(ctx, h, deadline); err != nil {
			return err
		}
	}

	for target, desc := range mounts {
		if err := m.Mounts.Activate(ctx, name, target, desc); err != nil {
			logger.Warnf(ctx, "failed to activate mount %s on %s, dropping from spec: %v", target, name, err)
			m.mu.Lock()
			delete(h.Spec.Mounts, target)
			m.mu.Unlock()
		}
	}

	if launch {
		logger.Infof(ctx, "first boot of %s is ready", name)
	}
	m.mu.Lock()
	persistErr := m.persistLocked(ctx)
	m.mu.Unlock()
	if persistErr != nil {
		return corralerr.Wrap(corralerr.Internal, persistErr)
	}
	return nil
}

// waitFirstBoot blocks, over a fresh shell session, until cloud-init reports
// first-boot configuration complete or deadline elapses. Exit code 127 ("command
// not found") means the guest has no cloud-init binary at all — the missing
// first-boot agent case §4.4.4 calls out as its own failed-precondition,
// distinct from a first-boot that is merely still running or that failed.
func (m *Manager) waitFirstBoot(ctx context.Context, h *Handle, deadline time.Time) error {
	const missingAgentExitCode = 127

	sess, err := m.openSSH(ctx, h)
	if err != nil {
		return corralerr.Wrap(corralerr.FailedPrecondition, err)
	}
	defer sess.Close() //nolint:errcheck

	waitCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	result, err := sess.Run(waitCtx, "cloud-init status --wait")
	if err != nil {
		if waitCtx.Err() != nil {
			return corralerr.Newf(corralerr.FailedPrecondition, "first-boot configuration on %q did not complete within %s", h.Name, readinessTimeout)
		}
		return corralerr.Wrap(corralerr.FailedPrecondition, err)
	}
	switch result.ExitCode {
	case 0:
		return nil
	case missingAgentExitCode:
		return corralerr.Newf(corralerr.FailedPrecondition, "instance %q is missing its guest first-boot agent", h.Name)
	default:
		return corralerr.Newf(corralerr.FailedPrecondition, "first-boot configuration on %q failed (cloud-init exit %d)", h.Name, result.ExitCode)
	}
}
