package users

import (
	"context"
	"database/sql"
	"errors"
)

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Upsert(ctx context.Context, user User) error {
	const query = `
INSERT INTO users (id, email, full_name, given_name, family_name, picture_url, last_login_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, now(), now(), now())
ON CONFLICT (id) DO UPDATE SET
  email = EXCLUDED.email,
  full_name = EXCLUDED.full_name,
  given_name = EXCLUDED.given_name,
  family_name = EXCLUDED.family_name,
  picture_url = EXCLUDED.picture_url,
  last_login_at = now(),
  updated_at = now()`
	_, err := r.DB.ExecContext(ctx, query,
		user.ID,
		user.Email,
		nullableString(user.FullName),
		nullableString(user.GivenName),
		nullableString(user.FamilyName),
		nullableString(user.PictureURL),
	)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, userID string) (User, error) {
	const query = `
SELECT id, email, full_name, given_name, family_name, picture_url, last_login_at, created_at, updated_at
FROM users
WHERE id = $1
LIMIT 1`
	var user User
	var fullName, givenName, familyName, pictureURL sql.NullString
	var lastLogin sql.NullTime
	err := r.DB.QueryRowContext(ctx, query, userID).Scan(
		&user.ID,
		&user.Email,
		&fullName,
		&givenName,
		&familyName,
		&pictureURL,
		&lastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	user.FullName = fullName.String
	user.GivenName = givenName.String
	user.FamilyName = familyName.String
	user.PictureURL = pictureURL.String
	if lastLogin.Valid {
		user.LastLoginAt = lastLogin.Time
	}
	return user, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

var _ Repo = (*PGRepo)(nil)
