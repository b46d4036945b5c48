package smoke

import "errors"

// Sentinel errors returned by the smoke runner and its checks.
var (
	ErrInvalidConfig    = errors.New("invalid smoke config")
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrMismatch         = errors.New("response mismatch")
	ErrChecksFailed     = errors.New("smoke checks failed")
)
