package applicants

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an applicant or child row does not exist for the owner.
	ErrNotFound = errors.New("applicant not found")
	// ErrInvalidInput is returned for malformed ids or field values.
	ErrInvalidInput = errors.New("invalid applicant input")
)

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}
