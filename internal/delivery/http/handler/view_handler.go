package handler

import (
	"errors"
	"log"
	"strconv"
	"strings"

	"jobflow/internal/delivery/http/dto"
	"jobflow/internal/delivery/http/middleware"
	"jobflow/internal/pkg/response"
	"jobflow/internal/usecase"
	"jobflow/internal/viewscope"

	"github.com/gofiber/fiber/v3"
)

const (
	HeaderViewScope      = "X-View-Scope"
	HeaderViewGeneration = "X-View-Generation"

	msgSuperseded = "superseded"
)

// ViewHandler serves the JSON calls the page script makes. Every call runs
// as a task of the page's view scope; results for a superseded generation
// are answered with 409.
type ViewHandler struct {
	list     usecase.JobListUsecase
	detail   usecase.JobDetailUsecase
	email    usecase.EmailDraftUsecase
	registry *viewscope.Registry
	logger   *log.Logger
}

func NewViewHandler(list usecase.JobListUsecase, detail usecase.JobDetailUsecase, email usecase.EmailDraftUsecase, registry *viewscope.Registry, logger *log.Logger) *ViewHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &ViewHandler{list: list, detail: detail, email: email, registry: registry, logger: logger}
}

func (h *ViewHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	r.Get("/jobs", h.ListJobs)
	r.Get("/jobs/:id", h.GetJob)
	r.Post("/jobs/:id/email", h.DraftEmail)
	r.Delete("/:scope", h.CloseScope)
}

func (h *ViewHandler) begin(c fiber.Ctx) (*viewscope.Task, error) {
	scope := strings.TrimSpace(c.Get(HeaderViewScope))
	gen := int64(0)
	if raw := strings.TrimSpace(c.Get(HeaderViewGeneration)); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			return nil, middleware.NewAppError(fiber.StatusBadRequest, msgInvalidGeneration, nil, err)
		}
		gen = n
	}

	task, err := h.registry.Begin(c.Context(), scope, gen)
	if err != nil {
		return nil, middleware.NewAppError(fiber.StatusConflict, msgSuperseded, nil, err)
	}
	return task, nil
}

// finish turns a result that arrived after its generation was replaced into
// a 409.
func finish(task *viewscope.Task, err error) error {
	if !task.Current() {
		return middleware.NewAppError(fiber.StatusConflict, msgSuperseded, nil, task.Err())
	}
	return err
}

func (h *ViewHandler) ListJobs(c fiber.Ctx) error {
	task, err := h.begin(c)
	if err != nil {
		return err
	}
	defer task.Done()

	id, _ := middleware.IdentityFrom(c)
	res, err := h.list.ListJobs(task.Context(), id.Token, parsePage(c.Query("page")))
	if err := finish(task, err); err != nil {
		return mapViewUsecaseError(err, msgJobsLoadFailed)
	}

	jobs := usecase.FilterJobs(res.Jobs, c.Query("q"))
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.JobListView{
		Generation: task.Generation(),
		Jobs:       dto.NewJobResponses(jobs),
		Pagination: dto.NewPaginationResponse(res.Pagination),
	})
}

func (h *ViewHandler) GetJob(c fiber.Ctx) error {
	jobID, ok := parseJobID(c.Params("id"))
	if !ok {
		return middleware.NewAppError(fiber.StatusNotFound, msgJobNotFound, nil, nil)
	}
	task, err := h.begin(c)
	if err != nil {
		return err
	}
	defer task.Done()

	id, _ := middleware.IdentityFrom(c)
	v, err := h.detail.View(task.Context(), id.Token, jobID)
	if err := finish(task, err); err != nil {
		return mapViewUsecaseError(err, msgJobLoadFailed)
	}

	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.JobDetailView{
		Generation:      task.Generation(),
		Job:             dto.NewJobResponse(v.Job),
		DescriptionHTML: v.Description.HTML,
		Enhanced:        v.Description.Enhanced(),
	})
}

func (h *ViewHandler) DraftEmail(c fiber.Ctx) error {
	jobID, ok := parseJobID(c.Params("id"))
	if !ok {
		return middleware.NewAppError(fiber.StatusNotFound, msgJobNotFound, nil, nil)
	}
	task, err := h.begin(c)
	if err != nil {
		return err
	}
	defer task.Done()

	id, _ := middleware.IdentityFrom(c)
	j, err := h.detail.GetJob(task.Context(), id.Token, jobID)
	if err := finish(task, err); err != nil {
		return mapViewUsecaseError(err, msgJobLoadFailed)
	}

	html, err := h.email.Draft(task.Context(), j)
	if err := finish(task, err); err != nil {
		return mapViewUsecaseError(err, msgEmailDraftFailed)
	}

	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.EmailDraftView{
		Generation: task.Generation(),
		HTML:       html,
	})
}

func (h *ViewHandler) CloseScope(c fiber.Ctx) error {
	scope := strings.TrimSpace(c.Params("scope"))
	if scope == "" {
		return middleware.NewAppError(fiber.StatusBadRequest, "", nil, nil)
	}
	h.registry.Close(scope)
	return c.SendStatus(fiber.StatusNoContent)
}

func mapViewUsecaseError(err error, upstreamMsg string) error {
	if err == nil {
		return nil
	}

	var appErr *middleware.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, usecase.ErrNotFound):
		return middleware.NewAppError(fiber.StatusNotFound, msgJobNotFound, nil, err)
	case errors.Is(err, usecase.ErrInvalidInput):
		return middleware.NewAppError(fiber.StatusBadRequest, response.MessageBadRequest, nil, err)
	case errors.Is(err, usecase.ErrUpstream):
		return middleware.NewAppError(fiber.StatusBadGateway, upstreamMsg, nil, err)
	default:
		return middleware.NewAppError(fiber.StatusInternalServerError, response.MessageInternalServerError, nil, err)
	}
}
