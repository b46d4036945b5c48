package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrReadBody    = errors.New("read request body")
	ErrInvalidJSON = errors.New("invalid json")
)
