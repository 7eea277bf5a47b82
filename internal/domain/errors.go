package domain

import (
	"errors"
	"fmt"
)

// ValidationError reports a client mistake: the payload can never be
// persisted as-is. It is acked to the sender and never broadcast.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// StorageError wraps a durable-write or query failure. The sender is
// told, the connection and room stay usable.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage: %s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
