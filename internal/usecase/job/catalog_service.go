package job

import (
	"context"
	"errors"
	"fmt"
	"log"

	entity "jobflow/internal/domain/job"
	"jobflow/internal/repository"
)

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
)

// CatalogService serves the job catalogue the scraper fills.
type CatalogService struct {
	repo   repository.JobRepository
	logger *log.Logger
}

func NewCatalogService(repo repository.JobRepository, logger *log.Logger) *CatalogService {
	if logger == nil {
		logger = log.Default()
	}
	return &CatalogService{repo: repo, logger: logger}
}

// ListPage returns one page of jobs ordered by id. A page past the end is
// empty but still carries the totals.
func (s *CatalogService) ListPage(ctx context.Context, page, perPage int) (entity.Page, error) {
	if page < 1 {
		return entity.Page{}, fmt.Errorf("%w: page must be at least 1", ErrInvalidInput)
	}
	if perPage < 1 || perPage > MaxPerPage {
		return entity.Page{}, fmt.Errorf("%w: per_page must be between 1 and %d", ErrInvalidInput, MaxPerPage)
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		s.logger.Printf("[Catalog] count failed err=%v", err)
		return entity.Page{}, ErrInternal
	}

	jobs := []entity.Job{}
	offset := entity.Offset(page, perPage)
	if offset < total {
		jobs, err = s.repo.List(ctx, perPage, offset)
		if err != nil {
			s.logger.Printf("[Catalog] list failed page=%d per_page=%d err=%v", page, perPage, err)
			return entity.Page{}, ErrInternal
		}
	}

	return entity.Page{
		Jobs:       jobs,
		Pagination: entity.ComputePagination(page, perPage, total),
	}, nil
}

func (s *CatalogService) Get(ctx context.Context, id int64) (entity.Job, error) {
	if id <= 0 {
		return entity.Job{}, ErrInvalidInput
	}
	j, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return entity.Job{}, entity.ErrNotFound
		}
		s.logger.Printf("[Catalog] get failed id=%d err=%v", id, err)
		return entity.Job{}, ErrInternal
	}
	return j, nil
}
