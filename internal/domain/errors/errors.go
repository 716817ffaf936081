package errors

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidEvent   = errors.New("invalid change event")
	ErrMissingTenant  = errors.New("missing tenant identifier")
	ErrAlreadyApplied = errors.New("event already applied")
	ErrQueueFull      = errors.New("event queue is full")
	ErrUnknownBackend = errors.New("unknown storage backend")
)
