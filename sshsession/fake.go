package sshsession

import (
	"context"
	"fmt"
)

// NoOpener is the default Opener: it refuses every session. Real guest
// shell access is provided by a backend-specific collaborator wired in by
// the daemon; NoOpener only exists so the daemon has something to wire by
// default before one is configured.
type NoOpener struct{}

var _ Opener = NoOpener{}

func (NoOpener) Open(context.Context, string, int, string, []byte) (Session, error) {
	return nil, fmt.Errorf("no SSH session backend configured")
}

// Scripted is a test/fake Session that returns canned results keyed by the
// exact command string.
type Scripted struct {
	Results map[string]Result
	Err     map[string]error
}

var _ Session = (*Scripted)(nil)

func (s *Scripted) Run(_ context.Context, command string) (Result, error) {
	if err, ok := s.Err[command]; ok {
		return Result{}, err
	}
	return s.Results[command], nil
}

func (s *Scripted) Close() error { return nil }

// ScriptedOpener always opens successfully, returning Session for every
// call. Used by lifecycle tests that need a working SSH backend without a
// real guest.
type ScriptedOpener struct {
	Session Session
	Err     error
}

var _ Opener = (*ScriptedOpener)(nil)

func (o *ScriptedOpener) Open(context.Context, string, int, string, []byte) (Session, error) {
	if o.Err != nil {
		return nil, o.Err
	}
	return o.Session, nil
}
