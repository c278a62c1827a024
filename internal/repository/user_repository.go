package repository

import (
	"context"
	"errors"
	"strings"

	"jobflow/internal/database"
	"jobflow/internal/domain/user"
)

type PostgresUserRepository struct {
	db database.DB
}

var _ user.Repository = (*PostgresUserRepository)(nil)

func NewPostgresUserRepository(db database.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) GetByClerkID(ctx context.Context, clerkID string) (user.User, error) {
	var u user.User
	err := r.db.QueryRow(ctx,
		`SELECT id, clerk_id, email, full_name, linkedin_url, resume_url, bio, skills, created_at, updated_at
		 FROM users
		 WHERE clerk_id = $1`,
		clerkID,
	).Scan(
		&u.ID,
		&u.ClerkID,
		&u.Email,
		&u.FullName,
		&u.LinkedInURL,
		&u.ResumeURL,
		&u.Bio,
		&u.Skills,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *PostgresUserRepository) CreateIfMissing(ctx context.Context, u user.User) (bool, error) {
	n, err := r.db.Exec(ctx,
		`INSERT INTO users (clerk_id, email, full_name)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (clerk_id) DO NOTHING`,
		strings.TrimSpace(u.ClerkID),
		strings.TrimSpace(u.Email),
		strings.TrimSpace(u.FullName),
	)
	if err != nil {
		if errors.Is(err, database.ErrUniqueViolation) {
			return false, user.ErrConflict
		}
		return false, err
	}
	return n == 1, nil
}

func (r *PostgresUserRepository) UpdateProfile(ctx context.Context, clerkID string, p user.Profile) error {
	n, err := r.db.Exec(ctx,
		`UPDATE users SET
			full_name = $2,
			email = $3,
			linkedin_url = $4,
			resume_url = $5,
			bio = $6,
			skills = $7,
			updated_at = now()
		 WHERE clerk_id = $1`,
		clerkID,
		p.FullName,
		p.Email,
		p.LinkedInURL,
		p.ResumeURL,
		p.Bio,
		p.Skills,
	)
	if err != nil {
		if errors.Is(err, database.ErrUniqueViolation) {
			return user.ErrConflict
		}
		return err
	}
	if n == 0 {
		return user.ErrNotFound
	}
	return nil
}
