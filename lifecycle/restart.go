package lifecycle

import (
	"context"

	"github.com/corraldev/corral/corralerr"
	"github.com/corraldev/corral/selection"
	"github.com/corraldev/corral/types"
)

// Restart reboots each running target [require_operative], then waits for
// readiness; a non-running target is an invalid-argument error, per §4.4.
func (m *Manager) Restart(ctx context.Context, names []string) error {
	operative, deleted, missing := m.partition(names, selection.GroupOperative)
	status := selection.Evaluate(selection.RequireOperative, operative, deleted, missing)
	if !status.OK() {
		return status.Err()
	}

	batch := corralerr.NewStatus()
	var toWait []string
	for _, name := range operative {
		if err := m.reboot(ctx, name); err != nil {
			batch.Add(corralerr.KindOf(err), err.Error())
			continue
		}
		toWait = append(toWait, name)
	}

	if len(toWait) > 0 {
		batch.Merge(m.awaitReady(ctx, toWait, false))
	}

	m.mu.Lock()
	_ = m.persistLocked(ctx)
	m.mu.Unlock()

	if !batch.OK() {
		return batch.Err()
	}
	return nil
}

// reboot implements §4.4.3: reject if not running; otherwise, over a fresh
// shell session, stop the guest SSH listener before issuing the reboot
// command so a subsequent readiness check cannot race the pre-reboot
// listener. A session that terminates without an exit code is the expected
// outcome of the guest rebooting mid-command, not an error.
func (m *Manager) reboot(ctx context.Context, name string) error {
	m.mu.Lock()
	h, ok := m.operative[name]
	m.mu.Unlock()
	if !ok {
		return corralerr.Newf(corralerr.NotFound, "instance %q does not exist", name)
	}

	return h.WithStateLock(func() error {
		if !types.IsRunning(h.Spec.State) {
			return corralerr.Newf(corralerr.InvalidArgument, "instance %q is not running", name)
		}

		sess, err := m.openSSH(ctx, h)
		if err != nil {
			return corralerr.Wrap(corralerr.FailedPrecondition, err)
		}
		defer sess.Close() //nolint:errcheck

		if _, err := sess.Run(ctx, "sudo systemctl stop ssh"); err != nil {
			return corralerr.Wrap(corralerr.FailedPrecondition, err)
		}

		result, err := sess.Run(ctx, "sudo reboot")
		if err != nil {
			// session termination mid-reboot is the expected outcome
			h.Spec.State = types.StateRestarting
			return nil
		}
		if result.ExitCode != 0 {
			return corralerr.Newf(corralerr.FailedPrecondition, "reboot command on %q exited %d", name, result.ExitCode)
		}
		h.Spec.State = types.StateRestarting
		return nil
	})
}
