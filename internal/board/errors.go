package board

import (
	"errors"
	"fmt"

	"applicant-tracker/internal/applicants"
)

var (
	// ErrNotFound is returned when the applicant is not in the owner's board.
	ErrNotFound = applicants.ErrNotFound
	// ErrInvalidStage is returned for stages outside the pipeline.
	ErrInvalidStage = errors.New("invalid stage")
	// ErrNotLoaded is returned by reads before the first successful fetch.
	ErrNotLoaded = errors.New("board not loaded")
	// ErrNoOwner is returned by uploads without an authenticated owner.
	ErrNoOwner = errors.New("authenticated owner required")
)

// OpError wraps a remote failure with the operation that hit it.
type OpError struct {
	Op          string
	ApplicantID string
	Err         error
}

func (e *OpError) Error() string {
	if e.ApplicantID == "" {
		return fmt.Sprintf("board %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("board %s applicant=%s: %v", e.Op, e.ApplicantID, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}
