package recruiters

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const profileColumns = `id, email, name, picture_url, created_at, last_login_at`

func (r *PGRepo) RecordLogin(ctx context.Context, p Profile) (Profile, error) {
	query := `
INSERT INTO recruiters (id, email, name, picture_url, created_at, last_login_at)
VALUES ($1, $2, $3, $4, now(), now())
ON CONFLICT (id) DO UPDATE SET
  email = EXCLUDED.email,
  name = EXCLUDED.name,
  picture_url = EXCLUDED.picture_url,
  last_login_at = now()
RETURNING ` + profileColumns
	return scanProfile(r.DB.QueryRowContext(ctx, query, p.ID, p.Email, nullable(p.Name), nullable(p.PictureURL)))
}

func (r *PGRepo) Get(ctx context.Context, id string) (Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM recruiters WHERE id = $1`
	p, err := scanProfile(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	return p, err
}

func scanProfile(row *sql.Row) (Profile, error) {
	var (
		p       Profile
		name    sql.NullString
		picture sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Email, &name, &picture, &p.CreatedAt, &p.LastLoginAt); err != nil {
		return Profile{}, err
	}
	p.Name = name.String
	p.PictureURL = picture.String
	return p, nil
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}
