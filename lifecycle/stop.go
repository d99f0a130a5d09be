package lifecycle

import (
	"context"
	"time"

	"github.com/projecteru2/core/log"

	"github.com/corraldev/corral/corralerr"
	"github.com/corraldev/corral/selection"
	"github.com/corraldev/corral/types"
)

// Stop either schedules a delayed shutdown (delay>0), shuts down
// immediately (delay==0), or cancels a pending one (cancel==true), for
// each requested target [require_operative], per §4.4.2.
func (m *Manager) Stop(ctx context.Context, names []string, delay time.Duration, cancel bool) error {
	operative, deleted, missing := m.partition(names, selection.GroupOperative)
	status := selection.Evaluate(selection.RequireOperative, operative, deleted, missing)
	if !status.OK() {
		return status.Err()
	}

	batch := corralerr.NewStatus()
	for _, name := range operative {
		var err error
		if cancel {
			err = m.cancelShutdown(ctx, name)
		} else {
			err = m.scheduleStop(ctx, name, delay)
		}
		if err != nil {
			batch.Add(corralerr.KindOf(err), err.Error())
		}
	}

	m.mu.Lock()
	_ = m.persistLocked(ctx)
	m.mu.Unlock()

	if !batch.OK() {
		return batch.Err()
	}
	return nil
}

func (m *Manager) scheduleStop(ctx context.Context, name string, delay time.Duration) error {
	logger := log.WithFunc("lifecycle.scheduleStop")
	m.mu.Lock()
	h, ok := m.operative[name]
	m.mu.Unlock()
	if !ok {
		return corralerr.Newf(corralerr.NotFound, "instance %q does not exist", name)
	}

	return h.WithStateLock(func() error {
		switch h.Spec.State {
		case types.StateOff, types.StateStopped, types.StateSuspended:
			logger.Infof(ctx, "instance %s already stopped", name)
			return nil
		}

		m.Shutdowns.Cancel(name)
		if delay <= 0 {
			return m.doShutdown(ctx, name, h)
		}

		h.Spec.State = types.StateDelayedShutdown
		m.Shutdowns.Schedule(ctx, name, delay, func(ctx context.Context) {
			_ = h.WithStateLock(func() error {
				return m.doShutdown(ctx, name, h)
			})
			m.mu.Lock()
			_ = m.persistLocked(ctx)
			m.mu.Unlock()
		})
		return nil
	})
}

// doShutdown performs the actual stop: best-effort guest shell session (not
// required to succeed), mount deactivation, and the hypervisor stop call.
// Caller holds h's state-mutex.
func (m *Manager) doShutdown(ctx context.Context, name string, h *Handle) error {
	logger := log.WithFunc("lifecycle.doShutdown")
	if sess, err := m.openSSH(ctx, h); err == nil {
		_ = sess.Close()
	} else {
		logger.Warnf(ctx, "best-effort guest session for %s shutdown failed: %v", name, err)
	}

	if err := m.Mounts.DeactivateAll(ctx, name); err != nil {
		logger.Warnf(ctx, "failed to deactivate mounts for %s: %v", name, err)
	}

	if err := m.Hypervisor.Stop(ctx, name); err != nil {
		return corralerr.Wrap(corralerr.FailedPrecondition, err)
	}
	h.Spec.State = types.StateStopped
	return nil
}

func (m *Manager) cancelShutdown(_ context.Context, name string) error {
	logger := log.WithFunc("lifecycle.cancelShutdown")
	if !m.Shutdowns.Cancel(name) {
		logger.Infof(context.Background(), "no pending shutdown for %s", name)
		return nil
	}

	m.mu.Lock()
	h, ok := m.operative[name]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return h.WithStateLock(func() error {
		if h.Spec.State == types.StateDelayedShutdown {
			h.Spec.State = types.StateRunning
		}
		return nil
	})
}
