package lifecycle

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/corraldev/corral/corralerr"
	"github.com/corraldev/corral/selection"
	"github.com/corraldev/corral/types"
)

// SSHInfoResult is ssh_info's reply.
type SSHInfoResult struct {
	Host       string
	Port       int
	Username   string
	PrivateKey string // base64-encoded
}

const minShutdownRemaining = time.Minute

// SSHInfo returns connection details for name [require_operative,
// GroupNone]: rejects an unknown-state instance, and rejects one whose
// delayed shutdown has under a minute remaining.
func (m *Manager) SSHInfo(ctx context.Context, name string) (SSHInfoResult, error) {
	operative, deleted, missing := m.partition([]string{name}, selection.GroupNone)
	status := selection.Evaluate(selection.RequireOperative, operative, deleted, missing)
	if !status.OK() {
		return SSHInfoResult{}, status.Err()
	}

	m.mu.Lock()
	h := m.operative[name]
	m.mu.Unlock()

	if h.Spec.State == types.StateUnknown {
		return SSHInfoResult{}, corralerr.Newf(corralerr.FailedPrecondition, "instance %q is in an unknown state", name)
	}
	if remaining, pending := m.Shutdowns.Remaining(name); pending && remaining < minShutdownRemaining {
		return SSHInfoResult{}, corralerr.Newf(corralerr.FailedPrecondition, "instance %q is shutting down in under a minute", name)
	}

	ips, err := m.Hypervisor.IPv4(ctx, name)
	if err != nil || len(ips) == 0 {
		return SSHInfoResult{}, corralerr.Newf(corralerr.FailedPrecondition, "instance %q has no reachable address", name)
	}

	key, _ := h.Spec.Metadata["ssh_private_key"].(string)
	return SSHInfoResult{
		Host:       ips[0],
		Port:       22,
		Username:   h.Spec.SSHUsername,
		PrivateKey: base64.StdEncoding.EncodeToString([]byte(key)),
	}, nil
}
