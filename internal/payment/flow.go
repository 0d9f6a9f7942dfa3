// Package payment implements the online (UPI) payment branch: a
// two-phase flow that reserves an order intent before the gateway
// charge and confirms it only after the order record is written.
package payment

import (
	"errors"
	"fmt"

	"github.com/neurocanteen/canteen-go/internal/domain"
)

// State of the gateway payment flow. Every state except Submitted has a
// failure edge back to Idle; Submitted is terminal.
type State string

const (
	StateIdle            State = "IDLE"
	StateIdentityCheck   State = "IDENTITY_CHECK"
	StateOrderCreated    State = "ORDER_CREATED"
	StateAwaitingGateway State = "AWAITING_GATEWAY"
	StateVerifying       State = "VERIFYING"
	StateSubmitted       State = "SUBMITTED"
)

var ErrInvalidTransition = errors.New("invalid flow transition")

// The identity check is skipped when the session is already tied to a
// UHID, so Idle may step directly to OrderCreated.
var transitions = map[State][]State{
	StateIdle:            {StateIdentityCheck, StateOrderCreated},
	StateIdentityCheck:   {StateOrderCreated},
	StateOrderCreated:    {StateAwaitingGateway},
	StateAwaitingGateway: {StateVerifying},
	StateVerifying:       {StateSubmitted},
	StateSubmitted:       {},
}

// CanTransition reports whether the forward edge from s to next exists.
func (s State) CanTransition(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the state has no outgoing edges at all.
func (s State) Terminal() bool {
	return s == StateSubmitted
}

// StateFor maps a stored intent status onto the flow state the session
// holding that intent is in. Cancelled and failed intents are back at
// Idle: the buyer starts over.
func StateFor(status domain.IntentStatus) State {
	switch status {
	case domain.IntentStatusCreated:
		return StateAwaitingGateway
	case domain.IntentStatusCaptured:
		return StateVerifying
	case domain.IntentStatusConfirmed:
		return StateSubmitted
	default:
		return StateIdle
	}
}

// Flow tracks one checkout's progress through the gateway branch.
type Flow struct {
	state State
}

func NewFlow() *Flow {
	return &Flow{state: StateIdle}
}

// Resume rebuilds the flow position from a stored intent status.
func Resume(status domain.IntentStatus) *Flow {
	return &Flow{state: StateFor(status)}
}

func (f *Flow) State() State {
	return f.state
}

// Advance moves the flow along a forward edge.
func (f *Flow) Advance(next State) error {
	if !f.state.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, f.state, next)
	}
	f.state = next
	return nil
}

// Fail takes the failure edge back to Idle. Failing a terminal flow is
// an error: a submitted order cannot be unwound from here.
func (f *Flow) Fail() error {
	if f.state.Terminal() {
		return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, f.state)
	}
	f.state = StateIdle
	return nil
}
