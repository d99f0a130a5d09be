package lifecycle

import (
	"context"

	"github.com/corraldev/corral/types"
)

// InstanceSummary is one row of list's output.
type InstanceSummary struct {
	Name    string
	Deleted bool
	State   types.State
	IPv4    []string
}

// List returns a snapshot of every operative and deleted instance's name,
// observable state, and (if running) IP addresses.
func (m *Manager) List(ctx context.Context) ([]InstanceSummary, error) {
	m.mu.Lock()
	handles := make([]*Handle, 0, len(m.operative)+len(m.deleted))
	deletedFlag := make(map[string]bool, len(m.operative)+len(m.deleted))
	for name, h := range m.operative {
		handles = append(handles, h)
		deletedFlag[name] = false
	}
	for name, h := range m.deleted {
		handles = append(handles, h)
		deletedFlag[name] = true
	}
	m.mu.Unlock()

	out := make([]InstanceSummary, 0, len(handles))
	for _, h := range handles {
		summary := InstanceSummary{Name: h.Name, Deleted: deletedFlag[h.Name], State: h.Spec.State}
		if types.IsRunning(h.Spec.State) {
			if ips, err := m.Hypervisor.IPv4(ctx, h.Name); err == nil {
				summary.IPv4 = ips
			}
		}
		out = append(out, summary)
	}
	return out, nil
}
