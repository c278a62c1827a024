package user

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("user not found")
	ErrConflict = errors.New("user already exists")
)

type Repository interface {
	GetByClerkID(ctx context.Context, clerkID string) (User, error)
	// CreateIfMissing inserts u unless a user with the same clerk id exists.
	CreateIfMissing(ctx context.Context, u User) (bool, error)
	UpdateProfile(ctx context.Context, clerkID string, p Profile) error
}
