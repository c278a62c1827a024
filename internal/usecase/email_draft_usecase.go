package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"jobflow/internal/domain/job"
	"jobflow/internal/infrastructure/completion"
)

type EmailDraftUsecase interface {
	Draft(ctx context.Context, j job.Job) (string, error)
}

type EmailDraft struct {
	completer Completer
	sanitize  Sanitizer
	logger    *log.Logger
}

func NewEmailDraftUsecase(completer Completer, sanitize Sanitizer, logger *log.Logger) *EmailDraft {
	if logger == nil {
		logger = log.Default()
	}
	if sanitize == nil {
		sanitize = passthrough
	}
	return &EmailDraft{completer: completer, sanitize: sanitize, logger: logger}
}

// Draft asks the completion service for an application email for j.
func (u *EmailDraft) Draft(ctx context.Context, j job.Job) (string, error) {
	if strings.TrimSpace(j.Title) == "" {
		return "", ErrInvalidInput
	}
	if u.completer == nil {
		u.logger.Printf("[Email] completion service not configured")
		return "", fmt.Errorf("%w: %v", ErrUpstream, completion.ErrNotConfigured)
	}

	out, err := u.completer.Complete(ctx, EmailPrompt(j.Title, j.Company, j.Description))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		u.logger.Printf("[Email] draft failed job=%d err=%v", j.ID, err)
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	html := strings.TrimSpace(completion.StripCodeFence(out))
	if html == "" {
		return "", fmt.Errorf("%w: %v", ErrUpstream, completion.ErrEmptyResponse)
	}
	return u.sanitize(html), nil
}
