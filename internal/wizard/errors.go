package wizard

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("intent not allowed in current state")
	ErrNoCurrentQuestion = errors.New("no question to answer")
	ErrUnanswered        = errors.New("current question has no answer yet")
	ErrTransitionPending = errors.New("previous answer is still being applied")
	ErrExportInProgress  = errors.New("an export is already running")
	ErrNoDiscardPending  = errors.New("no discard confirmation pending")
)

// ErrorKind classifies recoverable failures surfaced to the user
type ErrorKind string

const (
	KindNetworkFailure ErrorKind = "network_failure"
	KindEmptyResult    ErrorKind = "empty_result"
	KindRenderFailure  ErrorKind = "render_failure"
)

// Error is a failure the wizard recovered from. Message is the text shown
// to the user; Err carries the cause.
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// InvalidTransition wraps ErrInvalidTransition with the intent and state
func invalidTransition(intent string, s State) error {
	return fmt.Errorf("%w: %s in %s", ErrInvalidTransition, intent, s)
}
