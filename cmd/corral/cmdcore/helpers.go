// Package cmdcore provides the shared config/daemon access every command
// group's handler embeds, mirroring the teacher's cmd/core/helpers.go
// BaseHandler exactly, generalized from "config plus hypervisor/image
// backends" to "config plus one corral daemon.Daemon".
package cmdcore

import (
	"context"
	"fmt"

	units "github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/corraldev/corral/daemon"
)

// BaseHandler provides shared daemon access for all command handlers.
type BaseHandler struct {
	DaemonProvider func() *daemon.Daemon
}

// Init returns the command context and the running daemon in one call.
func (h BaseHandler) Init(cmd *cobra.Command) (context.Context, *daemon.Daemon, error) {
	d, err := h.Daemon()
	if err != nil {
		return nil, nil, err
	}
	return CommandContext(cmd), d, nil
}

// Daemon validates and returns the daemon. All handlers call this first.
func (h BaseHandler) Daemon() (*daemon.Daemon, error) {
	if h.DaemonProvider == nil {
		return nil, fmt.Errorf("daemon provider is nil")
	}
	d := h.DaemonProvider()
	if d == nil {
		return nil, fmt.Errorf("daemon not initialized")
	}
	return d, nil
}

// CommandContext returns the command's context, falling back to
// Background.
func CommandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}

// FormatSize renders bytes the way the teacher's cmd/vm/handler.go does for
// table output.
func FormatSize(bytes int64) string {
	return units.HumanSize(float64(bytes))
}

// ParseSize parses a decimal byte string flag value, e.g. "2GiB", "512MB".
func ParseSize(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := units.FromHumanSize(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", raw, err)
	}
	return n, nil
}
