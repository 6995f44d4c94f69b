package recruiters

import (
	"context"
	"errors"
	"strings"

	"applicant-tracker/internal/shared/auth"
)

// Service records sign-ins and resolves the current recruiter.
type Service struct {
	Repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// RecordLogin stores the identity carried by freshly issued session claims.
func (s *Service) RecordLogin(ctx context.Context, claims auth.Claims) error {
	if strings.TrimSpace(claims.Sub) == "" {
		return errors.New("subject is required")
	}
	_, err := s.Repo.RecordLogin(ctx, Profile{
		ID:         claims.Sub,
		Email:      strings.TrimSpace(claims.Email),
		Name:       strings.TrimSpace(claims.Name),
		PictureURL: claims.Picture,
	})
	return err
}

// Current returns the stored profile, or one built from the token identity when the
// recruiter has never completed the sign-in callback (e.g. dev tokens).
func (s *Service) Current(ctx context.Context, fallback Profile) (Profile, error) {
	p, err := s.Repo.Get(ctx, fallback.ID)
	if errors.Is(err, ErrNotFound) {
		return fallback, nil
	}
	return p, err
}
