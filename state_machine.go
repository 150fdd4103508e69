package magiclink

import (
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const textCodeInvalidAttemptTransition = "INVALID_LOGIN_ATTEMPT_TRANSITION"

// ErrInvalidTransition is returned when a login attempt is moved to a state
// the lifecycle does not allow from its current position.
var ErrInvalidTransition = goerrors.New("invalid login attempt transition", goerrors.CategoryOperation).
	WithTextCode(textCodeInvalidAttemptTransition).
	WithCode(goerrors.CodeInternal)

// AttemptState is the lifecycle position of a single login attempt.
type AttemptState string

const (
	// StateAwaitingEmail is the initial state: no email accepted yet.
	StateAwaitingEmail AttemptState = "awaiting_email"
	// StateTokenIssued means a signed link was handed to the mail channel.
	StateTokenIssued AttemptState = "token_issued"
	// StateVerified means a presented token passed all checks.
	StateVerified AttemptState = "verified"
	// StateSessionEstablished is the terminal success state.
	StateSessionEstablished AttemptState = "session_established"
	// StateRejected is the terminal failure state, reachable from any
	// non-terminal state.
	StateRejected AttemptState = "rejected"
)

// attemptTransitions is the allowed lifecycle graph. Bypass mode jumps from
// AwaitingEmail straight to SessionEstablished, skipping token issuance.
var attemptTransitions = map[AttemptState]map[AttemptState]struct{}{
	StateAwaitingEmail: {
		StateTokenIssued:        {},
		StateSessionEstablished: {},
		StateRejected:           {},
	},
	StateTokenIssued: {
		StateVerified: {},
		StateRejected: {},
	},
	StateVerified: {
		StateSessionEstablished: {},
		StateRejected:           {},
	},
}

// LoginAttempt tracks one pass through the login lifecycle. Attempts are
// cheap values created per call; nothing about them is persisted (the token
// itself carries all state between issuance and verification).
type LoginAttempt struct {
	state     AttemptState
	reason    string
	startedAt time.Time
}

// NewLoginAttempt starts an attempt in AwaitingEmail.
func NewLoginAttempt(now time.Time) *LoginAttempt {
	return &LoginAttempt{
		state:     StateAwaitingEmail,
		startedAt: now,
	}
}

// State returns the current lifecycle position.
func (a *LoginAttempt) State() AttemptState {
	return a.state
}

// Reason returns the rejection reason, empty unless the attempt is rejected.
func (a *LoginAttempt) Reason() string {
	return a.reason
}

// StartedAt returns when the attempt began.
func (a *LoginAttempt) StartedAt() time.Time {
	return a.startedAt
}

// Terminal reports whether the attempt can move no further.
func (a *LoginAttempt) Terminal() bool {
	return a.state == StateSessionEstablished || a.state == StateRejected
}

// Transition moves the attempt to the target state, enforcing the lifecycle
// graph. Misuse is a programming error surfaced as ErrInvalidTransition.
func (a *LoginAttempt) Transition(target AttemptState) error {
	if a.state == target {
		return nil
	}

	allowed, ok := attemptTransitions[a.state]
	if !ok {
		return ErrInvalidTransition.WithMetadata(map[string]any{
			"from": a.state,
			"to":   target,
		})
	}
	if _, exists := allowed[target]; !exists {
		return ErrInvalidTransition.WithMetadata(map[string]any{
			"from": a.state,
			"to":   target,
		})
	}

	a.state = target
	return nil
}

// Reject moves the attempt to the terminal Rejected state with a reason tag.
// Rejection is valid from any non-terminal state.
func (a *LoginAttempt) Reject(reason string) {
	if a.Terminal() {
		return
	}
	a.state = StateRejected
	a.reason = reason
}
