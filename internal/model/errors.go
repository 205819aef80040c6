package model

import "errors"

var (
	// Session related errors
	ErrSessionNotFound = errors.New("session not found")
	ErrNoSession       = errors.New("no session cookie")

	// Auth state errors
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrBusy             = errors.New("operation already in progress")
	ErrStaleResponse    = errors.New("response discarded after session change")

	// Backend contract errors
	ErrUnknownContract = errors.New("unknown backend contract")
	ErrMalformedBody   = errors.New("malformed backend response")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
