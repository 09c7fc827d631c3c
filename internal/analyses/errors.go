package analyses

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrDuplicateID is returned when a record id is reused; records are write-once.
	ErrDuplicateID = errors.New("analysis id already exists")
)

// ValidationError is returned for requests that can never succeed as sent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}
