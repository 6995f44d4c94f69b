package applicants

import "strings"

// Fields is the allow-listed set of scalar columns a caller may write.
// Identity and ownership columns are deliberately absent.
type Fields struct {
	Name          string
	Role          string
	AvatarURL     string
	Stage         Stage
	AssignedToID  *string
	InterviewDate *string
	Email         *string
	Phone         *string
}

// FieldsOf extracts the writable fields of a. Blank assignee and interview date become NULL.
func FieldsOf(a Applicant) Fields {
	return Fields{
		Name:          a.Name,
		Role:          a.Role,
		AvatarURL:     a.AvatarURL,
		Stage:         a.Stage,
		AssignedToID:  blankToNil(a.AssignedToID),
		InterviewDate: blankToNil(a.InterviewDate),
		Email:         cloneString(a.Email),
		Phone:         cloneString(a.Phone),
	}
}

// Validate checks the fields required by every write.
func (f Fields) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return invalid("name is required")
	}
	if strings.TrimSpace(f.Role) == "" {
		return invalid("role is required")
	}
	if !f.Stage.Valid() {
		return invalid("stage is invalid")
	}
	return nil
}

// Apply copies the fields onto a, leaving identity, ownership and children untouched.
func (f Fields) Apply(a *Applicant) {
	a.Name = f.Name
	a.Role = f.Role
	a.AvatarURL = f.AvatarURL
	a.Stage = f.Stage
	a.AssignedToID = cloneString(f.AssignedToID)
	a.InterviewDate = cloneString(f.InterviewDate)
	a.Email = cloneString(f.Email)
	a.Phone = cloneString(f.Phone)
}

func blankToNil(v *string) *string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	return cloneString(v)
}
