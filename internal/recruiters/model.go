package recruiters

import (
	"errors"
	"time"
)

// ErrNotFound is returned when no profile exists for the id.
var ErrNotFound = errors.New("recruiter not found")

// Profile is the signed-in recruiter who owns a board. ID is the session subject
// and matches created_by on applicant rows.
type Profile struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	PictureURL  string    `json:"pictureUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	LastLoginAt time.Time `json:"lastLoginAt"`
}
