package auth

import (
	"errors"

	"profile-portal/internal/backend"
)

// Kind separates failures that revoke the session from failures that leave
// it intact.
type Kind int

const (
	KindAuth Kind = iota + 1
	KindOperation
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindOperation:
		return "operation"
	default:
		return "unknown"
	}
}

var ErrClosed = errors.New("session state machine closed")

// Error is returned by every failed machine operation after the failure was
// written to State. Local is true when validation rejected the input before
// any backend call.
type Error struct {
	Kind    Kind
	Message string
	Local   bool
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func authError(message string, local bool, err error) *Error {
	return &Error{Kind: KindAuth, Message: message, Local: local, Err: err}
}

func operationError(message string, local bool, err error) *Error {
	return &Error{Kind: KindOperation, Message: message, Local: local, Err: err}
}

// userMessage picks the text shown to the user: the backend's message when
// the failure came from the backend, fallback otherwise.
func userMessage(err error, fallback string) string {
	var apiErr *backend.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
