package shared

import "errors"

var (
	// ErrNotFound indicates a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrItemNotFound indicates an invoice item is absent from the invoice's collection.
	ErrItemNotFound = errors.New("invoice item not found")
	// ErrDuplicateKey indicates a unique key collision (invoice number, email, username, account number).
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrInvalidAmount indicates a non-positive payment or a negative required amount.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrExceedsBalance indicates a payment would exceed the outstanding balance.
	ErrExceedsBalance = errors.New("payment exceeds outstanding balance")
	// ErrStatePrecondition indicates an operation is not allowed in the record's current state.
	ErrStatePrecondition = errors.New("state precondition failed")
	// ErrValidation indicates a malformed or incomplete request payload.
	ErrValidation = errors.New("validation failed")
)
