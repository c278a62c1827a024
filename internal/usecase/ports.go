package usecase

import (
	"context"

	"jobflow/internal/domain/job"
	"jobflow/internal/domain/user"
)

// JobsBackend is the slice of the backend client the job views need.
type JobsBackend interface {
	ListJobs(ctx context.Context, token string, page, perPage int) (job.Page, error)
	GetJob(ctx context.Context, token string, id int64) (job.Job, error)
}

type ProfileBackend interface {
	GetProfile(ctx context.Context, token, clerkID string) (user.Profile, error)
	UpdateProfile(ctx context.Context, token, clerkID string, form user.ProfileForm) error
}

type UserBackend interface {
	SyncUser(ctx context.Context, token string, in user.SyncInput) (string, error)
}

// Completer turns a prompt into generated text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Sanitizer cleans HTML before it is rendered unescaped.
type Sanitizer func(string) string

func passthrough(s string) string { return s }
