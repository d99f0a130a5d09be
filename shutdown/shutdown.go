// Package shutdown implements the delayed-shutdown registry: one
// cancellable timer per instance currently scheduled to stop, per §4.4.2.
package shutdown

import (
	"context"
	"sync"
	"time"

	"github.com/projecteru2/core/log"
)

// Registry tracks at most one pending delayed shutdown per instance name.
type Registry struct {
	mu       sync.Mutex
	timers   map[string]*time.Timer
	deadline map[string]time.Time
}

// NewRegistry returns an empty delayed-shutdown registry.
func NewRegistry() *Registry {
	return &Registry{
		timers:   make(map[string]*time.Timer),
		deadline: make(map[string]time.Time),
	}
}

// Schedule installs a timer for name that fires fn after delay, first
// cancelling any existing timer for name. delay=0 fires immediately (on the
// next scheduler tick, matching time.AfterFunc's own semantics for a
// zero/negative duration). fn's completion unregisters the timer.
func (r *Registry) Schedule(ctx context.Context, name string, delay time.Duration, fn func(context.Context)) {
	logger := log.WithFunc("shutdown.Schedule")
	r.Cancel(name)

	r.mu.Lock()
	r.deadline[name] = time.Now().Add(delay)
	r.timers[name] = time.AfterFunc(delay, func() {
		fn(ctx)
		r.mu.Lock()
		delete(r.timers, name)
		delete(r.deadline, name)
		r.mu.Unlock()
	})
	r.mu.Unlock()

	logger.Infof(ctx, "scheduled delayed shutdown for %s in %s", name, delay)
}

// Cancel removes the pending timer for name, if any, stopping it before it
// fires. Returns whether a timer was actually cancelled.
func (r *Registry) Cancel(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	timer, ok := r.timers[name]
	if !ok {
		return false
	}
	timer.Stop()
	delete(r.timers, name)
	delete(r.deadline, name)
	return true
}

// Pending reports whether name currently has a scheduled shutdown.
func (r *Registry) Pending(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.timers[name]
	return ok
}

// Remaining returns how long until name's scheduled shutdown fires, and
// whether one is pending at all. Used by ssh_info to reject a request when
// less than a minute remains, per §4.4.
func (r *Registry) Remaining(name string) (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	deadline, ok := r.deadline[name]
	if !ok {
		return 0, false
	}
	return time.Until(deadline), true
}
