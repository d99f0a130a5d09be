package lifecycle

import (
	"context"

	"github.com/corraldev/corral/selection"
	"github.com/corraldev/corral/sshsession"
	"github.com/corraldev/corral/types"
)

// InstanceInfo is info's detailed per-instance report.
type InstanceInfo struct {
	Name    string
	Deleted bool
	Spec    *types.InstanceSpec
	IPv4    []string
	Probe   *sshsession.Probe
}

// Info returns a detailed report for each requested name [require_existing,
// GroupAll]. When an instance is_running, it additionally runs the
// read-only in-guest probe over a fresh shell session, per §6.
func (m *Manager) Info(ctx context.Context, names []string) ([]InstanceInfo, error) {
	operative, deleted, missing := m.partition(names, selection.GroupAll)
	status := selection.Evaluate(selection.RequireExisting, operative, deleted, missing)
	if !status.OK() {
		return nil, status.Err()
	}

	out := make([]InstanceInfo, 0, len(operative)+len(deleted))
	for _, name := range append(append([]string{}, operative...), deleted...) {
		m.mu.Lock()
		h, ok := m.handleLocked(name)
		_, isDeleted := m.deleted[name]
		m.mu.Unlock()
		if !ok {
			continue
		}

		info := InstanceInfo{Name: name, Deleted: isDeleted, Spec: h.Spec}
		if types.IsRunning(h.Spec.State) {
			if ips, err := m.Hypervisor.IPv4(ctx, name); err == nil {
				info.IPv4 = ips
			}
			if sess, err := m.openSSH(ctx, h); err == nil {
				probe := sshsession.RunProbe(ctx, sess)
				info.Probe = &probe
				_ = sess.Close()
			}
		}
		out = append(out, info)
	}
	return out, nil
}

func (m *Manager) openSSH(ctx context.Context, h *Handle) (sshsession.Session, error) {
	ips, err := m.Hypervisor.IPv4(ctx, h.Name)
	if err != nil || len(ips) == 0 {
		return nil, err
	}
	key, _ := h.Spec.Metadata["ssh_private_key"].(string)
	return m.SSH.Open(ctx, ips[0], 22, h.Spec.SSHUsername, []byte(key))
}
