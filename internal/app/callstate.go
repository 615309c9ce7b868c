package app

import (
	"fmt"
	"sync"

	"github.com/dkeye/VoiceBridge/internal/domain"
)

type CallState int

const (
	CallIdle CallState = iota
	CallOffered
	CallAnswered
	CallActive
	CallEnded
)

func (s CallState) String() string {
	switch s {
	case CallIdle:
		return "idle"
	case CallOffered:
		return "offered"
	case CallAnswered:
		return "answered"
	case CallActive:
		return "active"
	case CallEnded:
		return "ended"
	}
	return "unknown"
}

type callKey struct{ a, b domain.Identity }

func keyOf(x, y domain.Identity) callKey {
	if x > y {
		x, y = y, x
	}
	return callKey{a: x, b: y}
}

// CallTracker enforces the call lifecycle per identity pair. It is only
// consulted when strict signaling is enabled; the relay is permissive otherwise.
type CallTracker struct {
	mu    sync.Mutex
	calls map[callKey]CallState
}

func NewCallTracker() *CallTracker {
	return &CallTracker{calls: make(map[callKey]CallState)}
}

// State returns the current state of the call between x and y.
func (t *CallTracker) State(x, y domain.Identity) CallState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls[keyOf(x, y)]
}

// CallStep is a validated transition that has not been applied yet.
type CallStep struct {
	key      callKey
	from, to CallState
	skip     bool
}

// Check validates msg against the pair's current state without changing
// it. The returned step is applied with Commit once delivery succeeded.
func (t *CallTracker) Check(msg domain.SignalingMessage) (CallStep, error) {
	if msg.Kind == domain.SignalVoice {
		return CallStep{skip: true}, nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	k := keyOf(msg.From, msg.To)
	cur := t.calls[k]

	next, ok := transition(cur, msg.Kind)
	if !ok {
		return CallStep{}, fmt.Errorf("%w: %s while %s", domain.ErrInvalidTransition, msg.Kind, cur)
	}
	return CallStep{key: k, from: cur, to: next}, nil
}

// Commit applies a step returned by Check. It reports false when the pair
// moved on in between, in which case nothing changes.
func (t *CallTracker) Commit(step CallStep) bool {
	if step.skip {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.calls[step.key] != step.from {
		return false
	}
	if step.to == CallEnded {
		// Nothing more to track; the pair may start over with a new offer.
		delete(t.calls, step.key)
		return true
	}
	t.calls[step.key] = step.to
	return true
}

// Advance checks and commits msg in one go, returning an error wrapping
// domain.ErrInvalidTransition when the variant is not legal now.
func (t *CallTracker) Advance(msg domain.SignalingMessage) error {
	step, err := t.Check(msg)
	if err != nil {
		return err
	}
	if !t.Commit(step) {
		return fmt.Errorf("%w: %s raced with another message", domain.ErrInvalidTransition, msg.Kind)
	}
	return nil
}

func transition(cur CallState, kind domain.SignalKind) (CallState, bool) {
	switch kind {
	case domain.SignalOffer:
		if cur == CallIdle || cur == CallEnded {
			return CallOffered, true
		}
	case domain.SignalAnswer:
		if cur == CallOffered {
			return CallAnswered, true
		}
	case domain.SignalIceCandidate:
		// Trickle ICE may start as soon as an offer is out.
		if cur == CallOffered || cur == CallAnswered || cur == CallActive {
			if cur == CallAnswered {
				return CallActive, true
			}
			return cur, true
		}
	case domain.SignalEndCall:
		if cur != CallIdle {
			return CallEnded, true
		}
	}
	return cur, false
}

// Forget drops every call involving identity.
func (t *CallTracker) Forget(identity domain.Identity) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k := range t.calls {
		if k.a == identity || k.b == identity {
			delete(t.calls, k)
		}
	}
}
