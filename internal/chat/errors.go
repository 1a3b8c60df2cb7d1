package chat

import "errors"

// Error taxonomy shared by every entry point. Handlers map these onto HTTP
// status codes with errors.Is; everything wrapped keeps the underlying
// message intact.
var (
	// ErrNotFound indicates the referenced provider or turn does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates the request itself is unacceptable.
	ErrValidation = errors.New("validation failed")

	// ErrUpstream indicates the model provider call failed; the upstream
	// message is passed through unaltered.
	ErrUpstream = errors.New("upstream provider error")

	// ErrPersistence indicates a database read or write failed.
	ErrPersistence = errors.New("persistence error")
)
