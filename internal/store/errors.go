package store

import "errors"

// Error kinds returned by store operations. Callers match with errors.Is;
// the API layer maps each kind to an HTTP status. Operations that fail with
// one of these leave the database unchanged.
var (
	// ErrNotFound: the referenced entity does not exist or is soft-deleted.
	ErrNotFound = errors.New("not found")

	// ErrValidation: the input itself is malformed (bad dates, bad rating,
	// borrowing your own item).
	ErrValidation = errors.New("invalid input")

	// ErrForbidden: the acting user may not perform this operation.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidState: the requested transition is not legal from the
	// entity's current state.
	ErrInvalidState = errors.New("invalid state")

	// ErrConflict: the operation lost a race for the item's availability,
	// or would duplicate an existing record.
	ErrConflict = errors.New("conflict")
)
