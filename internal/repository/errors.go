package repository

import "errors"

// Sentinel errors returned by repositories. Services map these onto API
// error codes at the handler boundary.
var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already registered")
)
