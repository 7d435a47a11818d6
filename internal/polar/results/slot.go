package results

import (
	"fmt"
	"sync/atomic"
)

// Sequenced values carry the submission sequence number of the request
// that produced them.
type Sequenced interface {
	Sequence() uint64
}

// Policy decides whether an arriving value replaces the displayed one.
type Policy int

const (
	// PolicyLatestSequence keeps the value from the most recently
	// submitted request; an older request finishing late is discarded.
	PolicyLatestSequence Policy = iota
	// PolicyLastArrival replaces the displayed value with whatever
	// arrives, even if it belongs to an older request.
	PolicyLastArrival
)

// String returns the config spelling of p.
func (p Policy) String() string {
	switch p {
	case PolicyLatestSequence:
		return "sequence"
	case PolicyLastArrival:
		return "arrival"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy parses "sequence" or "arrival".
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "sequence", "":
		return PolicyLatestSequence, nil
	case "arrival":
		return PolicyLastArrival, nil
	default:
		return 0, fmt.Errorf("unknown stale policy %q (want sequence or arrival)", s)
	}
}

// Slot holds the currently displayed value. Writers swap whole pointers,
// so a reader sees either the previous value or the new one, never a mix.
type Slot[T Sequenced] struct {
	policy  Policy
	current atomic.Pointer[T]
	stale   atomic.Uint64
}

// NewSlot returns an empty slot.
func NewSlot[T Sequenced](policy Policy) *Slot[T] {
	return &Slot[T]{policy: policy}
}

// Offer installs v unless the policy rejects it as stale. It reports
// whether v is now displayed.
func (s *Slot[T]) Offer(v T) bool {
	next := &v
	for {
		cur := s.current.Load()
		if cur != nil && s.policy == PolicyLatestSequence && v.Sequence() < (*cur).Sequence() {
			s.stale.Add(1)
			return false
		}
		if s.current.CompareAndSwap(cur, next) {
			return true
		}
	}
}

// Load returns the displayed value and whether there is one.
func (s *Slot[T]) Load() (T, bool) {
	cur := s.current.Load()
	if cur == nil {
		var zero T
		return zero, false
	}
	return *cur, true
}

// Stale returns how many offers were discarded as stale.
func (s *Slot[T]) Stale() uint64 {
	return s.stale.Load()
}

// Policy returns the slot's replacement policy.
func (s *Slot[T]) Policy() Policy {
	return s.policy
}
