package types

import (
	"fmt"
	"strconv"
)

// State is the lifecycle state of an instance, as observed by the daemon.
type State int

const (
	StateOff State = iota
	StateStopped
	StateStarting
	StateRestarting
	StateRunning
	StateDelayedShutdown
	StateSuspending
	StateSuspended
	StateUnknown
)

var stateNames = map[State]string{
	StateOff:            "off",
	StateStopped:        "stopped",
	StateStarting:       "starting",
	StateRestarting:     "restarting",
	StateRunning:        "running",
	StateDelayedShutdown: "delayed-shutdown",
	StateSuspending:     "suspending",
	StateSuspended:      "suspended",
	StateUnknown:        "unknown",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

// IsRunning reports whether s is one of the states in which the guest is
// expected to be up: starting, restarting, running, delayed-shutdown.
func IsRunning(s State) bool {
	switch s {
	case StateStarting, StateRestarting, StateRunning, StateDelayedShutdown:
		return true
	default:
		return false
	}
}

// MarshalJSON encodes State as its integer code, matching the persisted
// format used by the codec.
func (s State) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(int(s))), nil
}

// UnmarshalJSON decodes an integer code into a State.
func (s *State) UnmarshalJSON(b []byte) error {
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return fmt.Errorf("decode state code %q: %w", b, err)
	}
	*s = State(n)
	return nil
}
