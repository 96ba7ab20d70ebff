package core

import "errors"

// Error kinds carried across all components. Components wrap these with
// context via fmt.Errorf("%w: ...", kind, ...); only the HTTP layer
// translates a kind into a status code.
var (
	// ErrInvalidInput indicates a malformed request. Never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates an unknown book or chapter. Never retried.
	ErrNotFound = errors.New("book or chapter not found")

	// ErrBackendUnavailable indicates a transport failure talking to the
	// synthesis backend or the KV. Workers retry within budget.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrBackendRestarting indicates the synthesis backend answered 503.
	// Retried with a longer backoff.
	ErrBackendRestarting = errors.New("backend restarting")

	// ErrInvalidAudio indicates the synthesis backend returned a malformed
	// WAV stream. Dropped without retry.
	ErrInvalidAudio = errors.New("invalid audio")

	// ErrTimeout indicates a deadline was exceeded. Workers treat it like
	// ErrBackendUnavailable for retry accounting.
	ErrTimeout = errors.New("timeout")

	// ErrInternal indicates a precondition violation in the gateway
	// itself.
	ErrInternal = errors.New("internal error")
)
