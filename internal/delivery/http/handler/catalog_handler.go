package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"jobflow/internal/delivery/http/dto"
	"jobflow/internal/delivery/http/middleware"
	"jobflow/internal/domain/job"
	jobuc "jobflow/internal/usecase/job"

	"github.com/gofiber/fiber/v3"
)

const msgInvalidPagination = "page must be at least 1 and per_page between 1 and 100"

type JobCatalog interface {
	ListPage(ctx context.Context, page, perPage int) (job.Page, error)
	Get(ctx context.Context, id int64) (job.Job, error)
}

// CatalogHandler serves the public job endpoints of the backend API.
type CatalogHandler struct {
	catalog JobCatalog
}

func NewCatalogHandler(catalog JobCatalog) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

func (h *CatalogHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	r.Get("/jobs/", h.List)
	r.Get("/jobs/:id/", h.Get)
}

func (h *CatalogHandler) List(c fiber.Ctx) error {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return middleware.NewAppError(fiber.StatusBadRequest, "Invalid page", nil, nil)
	}
	perPage, ok := queryInt(c, "per_page", jobuc.DefaultPerPage)
	if !ok {
		return middleware.NewAppError(fiber.StatusBadRequest, "Invalid per_page", nil, nil)
	}

	res, err := h.catalog.ListPage(c.Context(), page, perPage)
	if err != nil {
		return mapCatalogError(err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.JobListResponse{
		Jobs:       dto.NewJobResponses(res.Jobs),
		Pagination: dto.NewPaginationResponse(res.Pagination),
	})
}

func (h *CatalogHandler) Get(c fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return middleware.NewAppError(fiber.StatusNotFound, msgJobNotFound, nil, nil)
	}

	j, err := h.catalog.Get(c.Context(), id)
	if err != nil {
		return mapCatalogError(err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.NewJobResponse(j))
}

func queryInt(c fiber.Ctx, key string, def int) (int, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func mapCatalogError(err error) error {
	switch {
	case errors.Is(err, jobuc.ErrInvalidInput):
		return middleware.NewAppError(fiber.StatusBadRequest, msgInvalidPagination, nil, err)
	case errors.Is(err, job.ErrNotFound):
		return middleware.NewAppError(fiber.StatusNotFound, msgJobNotFound, nil, err)
	default:
		return middleware.NewAppError(fiber.StatusInternalServerError, "", nil, err)
	}
}
