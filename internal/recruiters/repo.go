package recruiters

import "context"

// Repo persists recruiter profiles.
type Repo interface {
	// RecordLogin creates the profile or refreshes its identity fields and login time.
	RecordLogin(ctx context.Context, p Profile) (Profile, error)
	Get(ctx context.Context, id string) (Profile, error)
}
