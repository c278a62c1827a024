package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"jobflow/internal/domain/job"
)

// JobsPerPage is the page size of the listing view.
const JobsPerPage = 9

type JobListUsecase interface {
	ListJobs(ctx context.Context, token string, page int) (job.Page, error)
}

type JobList struct {
	backend JobsBackend
	logger  *log.Logger
}

func NewJobListUsecase(backend JobsBackend, logger *log.Logger) *JobList {
	if logger == nil {
		logger = log.Default()
	}
	return &JobList{backend: backend, logger: logger}
}

// ListJobs fetches one page of the catalogue. A failed fetch is reported as
// ErrUpstream and the view renders its empty state.
func (u *JobList) ListJobs(ctx context.Context, token string, page int) (job.Page, error) {
	if page < 1 {
		page = 1
	}
	if u == nil || u.backend == nil {
		return job.Page{}, ErrInternal
	}

	res, err := u.backend.ListJobs(ctx, token, page, JobsPerPage)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return job.Page{}, err
		}
		u.logger.Printf("[Jobs] list failed page=%d err=%v", page, err)
		return job.Page{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if res.Jobs == nil {
		res.Jobs = []job.Job{}
	}
	return res, nil
}

// FilterJobs keeps the jobs whose title, company or location contains term,
// ignoring case. An empty term keeps everything.
func FilterJobs(jobs []job.Job, term string) []job.Job {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return jobs
	}

	out := make([]job.Job, 0, len(jobs))
	for _, j := range jobs {
		if strings.Contains(strings.ToLower(j.Title), term) ||
			strings.Contains(strings.ToLower(j.Company), term) ||
			strings.Contains(strings.ToLower(j.Location), term) {
			out = append(out, j)
		}
	}
	return out
}
