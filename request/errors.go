package request

import (
	"errors"
	"fmt"
)

// ErrDuplicateIdentifier indicates another live request already owns the identifier.
var ErrDuplicateIdentifier = errors.New("duplicate request identifier")

// DuplicateIdentifierError reports the pool and identifier of a rejected insert.
type DuplicateIdentifierError struct {
	ID   string
	Pool Pool
}

func (e *DuplicateIdentifierError) Error() string {
	return fmt.Sprintf("%s pool: request %q: %v", e.Pool, e.ID, ErrDuplicateIdentifier)
}

func (e *DuplicateIdentifierError) Unwrap() error {
	return ErrDuplicateIdentifier
}
