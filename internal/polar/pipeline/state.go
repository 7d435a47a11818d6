package pipeline

import "fmt"

// State is the lifecycle position of one request.
type State int

const (
	StateIdle State = iota
	StateRequested
	StateDecoding
	StateComputing
	StateReady
	StateDelivered
	StateFailed
)

var stateNames = [...]string{
	StateIdle:      "idle",
	StateRequested: "requested",
	StateDecoding:  "decoding",
	StateComputing: "computing",
	StateReady:     "ready",
	StateDelivered: "delivered",
	StateFailed:    "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transition can follow s.
func (s State) Terminal() bool {
	return s == StateDelivered || s == StateFailed
}

// CanTransition reports whether from → to is an edge of the request
// state machine.
func CanTransition(from, to State) bool {
	switch to {
	case StateRequested:
		return from == StateIdle
	case StateDecoding:
		return from == StateRequested
	case StateComputing:
		return from == StateDecoding
	case StateReady:
		return from == StateComputing
	case StateDelivered:
		return from == StateReady
	case StateFailed:
		return from == StateRequested || from == StateDecoding || from == StateComputing
	}
	return false
}
