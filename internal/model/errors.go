package model

import "errors"

var (
	// ErrSourceUnavailable wraps every failure to fetch raw events or the
	// verified feed from the gate backend.
	ErrSourceUnavailable = errors.New("event source unavailable")
	// ErrFinalizeRejected is returned when the backend refuses to finalize
	// an exit. The wrapping error carries the backend's message.
	ErrFinalizeRejected = errors.New("finalize rejected")
)
