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

// MinDescriptionWords is the length below which a description is expanded.
const MinDescriptionWords = 50

type DescriptionSource string

const (
	DescriptionOriginal DescriptionSource = "original"
	DescriptionEnhanced DescriptionSource = "enhanced"
)

// DescriptionResult is the description chosen for one fetch of a job. It is
// either the backend text or the generated text in full.
type DescriptionResult struct {
	HTML       string
	Source     DescriptionSource
	EnhanceErr error
}

func (d DescriptionResult) Enhanced() bool {
	return d.Source == DescriptionEnhanced
}

type JobDetailView struct {
	Job         job.Job
	Description DescriptionResult
}

type JobDetailUsecase interface {
	GetJob(ctx context.Context, token string, id int64) (job.Job, error)
	View(ctx context.Context, token string, id int64) (JobDetailView, error)
	Original(j job.Job) DescriptionResult
}

type JobDetail struct {
	backend   JobsBackend
	completer Completer
	sanitize  Sanitizer
	logger    *log.Logger
}

func NewJobDetailUsecase(backend JobsBackend, completer Completer, sanitize Sanitizer, logger *log.Logger) *JobDetail {
	if logger == nil {
		logger = log.Default()
	}
	if sanitize == nil {
		sanitize = passthrough
	}
	return &JobDetail{backend: backend, completer: completer, sanitize: sanitize, logger: logger}
}

// WordCount counts whitespace-separated tokens.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

func (u *JobDetail) GetJob(ctx context.Context, token string, id int64) (job.Job, error) {
	if id <= 0 {
		return job.Job{}, ErrInvalidInput
	}
	j, err := u.backend.GetJob(ctx, token, id)
	if err != nil {
		if errors.Is(err, job.ErrNotFound) {
			return job.Job{}, ErrNotFound
		}
		if errors.Is(err, context.Canceled) {
			return job.Job{}, err
		}
		u.logger.Printf("[JobDetail] fetch failed id=%d err=%v", id, err)
		return job.Job{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return j, nil
}

// Original is the backend description, sanitised. It never calls the
// completion service.
func (u *JobDetail) Original(j job.Job) DescriptionResult {
	return DescriptionResult{HTML: u.sanitize(j.Description), Source: DescriptionOriginal}
}

// Describe picks the description to show. Short descriptions are expanded
// once; when that fails the original is kept unmodified.
func (u *JobDetail) Describe(ctx context.Context, j job.Job) DescriptionResult {
	original := u.Original(j)
	if WordCount(j.Description) >= MinDescriptionWords {
		return original
	}
	if u.completer == nil {
		original.EnhanceErr = completion.ErrNotConfigured
		return original
	}

	out, err := u.completer.Complete(ctx, EnhancePrompt(j.Description))
	if err == nil && strings.TrimSpace(completion.StripCodeFence(out)) == "" {
		err = completion.ErrEmptyResponse
	}
	if err != nil {
		u.logger.Printf("[JobDetail] enhance failed id=%d words=%d err=%v", j.ID, WordCount(j.Description), err)
		original.EnhanceErr = err
		return original
	}

	return DescriptionResult{
		HTML:   u.sanitize(completion.StripCodeFence(out)),
		Source: DescriptionEnhanced,
	}
}

func (u *JobDetail) View(ctx context.Context, token string, id int64) (JobDetailView, error) {
	j, err := u.GetJob(ctx, token, id)
	if err != nil {
		return JobDetailView{}, err
	}
	return JobDetailView{Job: j, Description: u.Describe(ctx, j)}, nil
}
