package chat

import "errors"

// Failure taxonomy for adapter operations. Handlers map these onto HTTP
// status codes; everything else is treated as an internal store failure.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("already exists")
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrUploadFailed    = errors.New("upload failed")

	// ErrPartialDelete reports that a delete reached exactly one of the two
	// message copies. Nothing is rolled back; the copies are independent
	// writes with no transaction across them.
	ErrPartialDelete = errors.New("message deleted on one side only")
)
