package corralerr

import "strings"

// Status aggregates the per-target outcomes of a batched operation into one
// composite result, per the propagation policy: OK iff every contribution
// was OK, otherwise the last non-OK kind with every message concatenated.
type Status struct {
	kind     Kind
	ok       bool
	messages []string
}

// NewStatus returns an OK status with no messages.
func NewStatus() *Status {
	return &Status{ok: true}
}

// Add folds in one target's outcome. An OK outcome contributes nothing; a
// non-OK outcome records its kind (overriding any prior kind) and appends
// its message line.
func (s *Status) Add(kind Kind, message string) {
	if kind == Internal && message == "" {
		return
	}
	s.ok = false
	s.kind = kind
	s.messages = append(s.messages, message)
}

// Merge folds another status's contributions into s, preserving s's own
// contributions recorded so far. A nil or OK other leaves s unchanged.
func (s *Status) Merge(other *Status) {
	if other == nil || other.OK() {
		return
	}
	s.ok = false
	s.kind = other.kind
	s.messages = append(s.messages, other.messages...)
}

// OK reports whether every contribution so far was OK.
func (s *Status) OK() bool { return s.ok }

// Kind is the status's kind: Internal (treated as OK) until the first Add.
func (s *Status) Kind() Kind { return s.kind }

// Err returns nil if the status is OK, else an *Error carrying the composite
// message, prefixed per the propagation policy.
func (s *Status) Err() error {
	if s.ok {
		return nil
	}
	var b strings.Builder
	b.WriteString("The following errors occurred:")
	for _, m := range s.messages {
		b.WriteString("\n")
		b.WriteString(m)
	}
	return &Error{Kind: s.kind, Message: b.String()}
}
