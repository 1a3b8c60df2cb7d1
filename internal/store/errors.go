package store

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateName indicates a provider with the same name already exists.
	ErrDuplicateName = errors.New("provider name already exists")
)
