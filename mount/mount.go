// Package mount coordinates per-instance mount activation: the mapping
// between a spec's mounts table (target path → description) and the
// runtime handler actually servicing it, per the mount coordinator design
// in §4.4 and the capability-interface note in §9.
package mount

import (
	"context"
	"fmt"
	"sync"

	"github.com/projecteru2/core/log"

	"github.com/corraldev/corral/types"
)

// Handler activates and deactivates one mount target. Classic mounts are
// serviced entirely by the coordinator (e.g. an SSHFS-style transfer);
// native mounts are serviced by the hypervisor back-end itself and the
// handler only tracks whether they are currently active.
type Handler interface {
	// Activate brings the mount up against a running instance.
	Activate(ctx context.Context, instance string, target string, desc types.MountDescription) error
	// Deactivate tears the mount down. Called on stop, suspend, and delete;
	// the handler itself remains installed, ready for a future Activate.
	Deactivate(ctx context.Context, instance string, target string) error
	// Managed reports whether activation/deactivation is actually
	// performed by the hypervisor back-end rather than by this handler —
	// a managed mount's Activate/Deactivate may be no-ops delegating
	// elsewhere.
	Managed() bool
}

// Factory constructs the Handler for a given mount kind. One factory is
// configured per coordinator at initialization, matching the "capability
// interface with variants, constructed by a factory" design note.
type Factory func(kind types.MountKind) (Handler, error)

type entry struct {
	handler Handler
	active  bool
}

// Coordinator tracks, per instance, one installed handler per mount target.
// It mirrors the mounts map in §3's cross-instance global sets: a target
// exists in this table iff it exists in the owning spec's Mounts map — an
// entry is installed by Install (mirroring Mount) and removed only by
// Remove (mirroring Umount or spec drop); Activate/Deactivate only toggle
// whether the already-installed handler is currently servicing the mount.
type Coordinator struct {
	mu       sync.Mutex
	factory  Factory
	handlers map[string]map[string]*entry // instance -> target -> entry
}

// NewCoordinator returns a Coordinator that builds handlers via factory.
func NewCoordinator(factory Factory) *Coordinator {
	return &Coordinator{factory: factory, handlers: make(map[string]map[string]*entry)}
}

// Install registers a handler for instance/target per desc's mount kind,
// without activating it. Call on Mount.
func (c *Coordinator) Install(instance, target string, desc types.MountDescription) error {
	handler, err := c.factory(desc.MountKind)
	if err != nil {
		return fmt.Errorf("build handler for %s:%s: %w", instance, target, err)
	}
	c.mu.Lock()
	if c.handlers[instance] == nil {
		c.handlers[instance] = make(map[string]*entry)
	}
	c.handlers[instance][target] = &entry{handler: handler}
	c.mu.Unlock()
	return nil
}

// Remove uninstalls the handler for instance/target. Call on Umount or when
// the owning spec's mount entry is dropped; deactivates first if active.
func (c *Coordinator) Remove(ctx context.Context, instance, target string) error {
	if err := c.Deactivate(ctx, instance, target); err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.handlers[instance], target)
	if len(c.handlers[instance]) == 0 {
		delete(c.handlers, instance)
	}
	c.mu.Unlock()
	return nil
}

// Activate brings up the handler for instance/target, installing one first
// if none is registered yet (a mount installed while the instance is
// running activates immediately; one installed while stopped activates the
// first time the instance becomes reachable).
func (c *Coordinator) Activate(ctx context.Context, instance, target string, desc types.MountDescription) error {
	logger := log.WithFunc("mount.Activate")
	c.mu.Lock()
	e, ok := c.handlers[instance][target]
	c.mu.Unlock()
	if !ok {
		if err := c.Install(instance, target, desc); err != nil {
			return err
		}
		c.mu.Lock()
		e = c.handlers[instance][target]
		c.mu.Unlock()
	}

	if err := e.handler.Activate(ctx, instance, target, desc); err != nil {
		return fmt.Errorf("activate %s:%s: %w", instance, target, err)
	}
	c.mu.Lock()
	e.active = true
	c.mu.Unlock()
	logger.Infof(ctx, "activated mount %s -> %s on %s", target, desc.SourcePath, instance)
	return nil
}

// Deactivate tears down the handler for instance/target if it is currently
// active, leaving it installed. A no-op if inactive or not installed.
func (c *Coordinator) Deactivate(ctx context.Context, instance, target string) error {
	c.mu.Lock()
	e, ok := c.handlers[instance][target]
	c.mu.Unlock()
	if !ok || !e.active {
		return nil
	}
	if err := e.handler.Deactivate(ctx, instance, target); err != nil {
		return fmt.Errorf("deactivate %s:%s: %w", instance, target, err)
	}
	c.mu.Lock()
	e.active = false
	c.mu.Unlock()
	return nil
}

// DeactivateAll tears down every active handler for instance — used on
// stop, suspend, and delete. Managed mounts (serviced by the hypervisor
// back-end) are skipped: the hypervisor itself handles their teardown as
// part of stopping the VM.
func (c *Coordinator) DeactivateAll(ctx context.Context, instance string) error {
	c.mu.Lock()
	targets := make([]string, 0, len(c.handlers[instance]))
	for target, e := range c.handlers[instance] {
		if !e.handler.Managed() {
			targets = append(targets, target)
		}
	}
	c.mu.Unlock()

	var firstErr error
	for _, target := range targets {
		if err := c.Deactivate(ctx, instance, target); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Active reports whether instance/target currently has an active handler.
func (c *Coordinator) Active(instance, target string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.handlers[instance][target]
	return ok && e.active
}

// Forget drops every handler entry for instance without deactivating them,
// used when an instance's spec is dropped (purge) after its handlers have
// already been torn down by the caller.
func (c *Coordinator) Forget(instance string) {
	c.mu.Lock()
	delete(c.handlers, instance)
	c.mu.Unlock()
}
