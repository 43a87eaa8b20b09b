package tickets

import (
	"errors"
	"fmt"
)

// Kind classifies engine errors for the command layer.
type Kind int

const (
	KindUnknown Kind = iota

	// KindPermissionDenied means the actor lacks the capability for the action.
	KindPermissionDenied

	// KindEligibility means the requester may not open a ticket right now.
	KindEligibility

	// KindNotFound means a panel, ticket or container is missing.
	KindNotFound

	// KindAdapter means the chat platform refused the operation.
	KindAdapter

	// KindInvalid means the input or configuration is malformed.
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindPermissionDenied:
		return "permission_denied"
	case KindEligibility:
		return "eligibility"
	case KindNotFound:
		return "not_found"
	case KindAdapter:
		return "adapter"
	case KindInvalid:
		return "invalid"
	}
	return "unknown"
}

var (
	// ErrContainerGone is returned by an Adapter when the channel, thread or message no longer
	// exists.
	ErrContainerGone = errors.New("container no longer exists")

	// ErrNameRejected is returned by an Adapter when the platform refuses a container name.
	ErrNameRejected = errors.New("container name rejected")

	// errNoChange aborts an atomic mutation without saving.
	errNoChange = errors.New("no change")
)

// Error is an engine error with a message that is safe to show to the actor.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func denied(format string, args ...any) *Error {
	return newError(KindPermissionDenied, format, args...)
}

func notFound(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

func invalid(format string, args ...any) *Error {
	return newError(KindInvalid, format, args...)
}

// KindOf returns the Kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var d *Denial
	if errors.As(err, &d) {
		return KindEligibility
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, ErrContainerGone) {
		return KindNotFound
	}
	return KindUnknown
}

// UserMessage returns the message to show the actor for err and whether it is safe to show.
func UserMessage(err error) (string, bool) {
	var d *Denial
	if errors.As(err, &d) {
		return d.Message, true
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message, true
	}
	return "", false
}
