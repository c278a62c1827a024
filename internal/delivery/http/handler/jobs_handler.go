package handler

import (
	"errors"
	"log"
	"strconv"
	"strings"

	"jobflow/internal/delivery/http/middleware"
	"jobflow/internal/domain/job"
	"jobflow/internal/usecase"
	"jobflow/internal/view"

	"github.com/gofiber/fiber/v3"
)

const (
	msgJobNotFound       = "Job not found"
	msgJobLoadFailed     = "Failed to load job details"
	msgEmailDraftFailed  = "Failed to generate email"
	msgJobsLoadFailed    = "Failed to load jobs"
	msgInvalidGeneration = "Invalid view generation"
)

// JobsHandler serves the listing and detail pages.
type JobsHandler struct {
	list     usecase.JobListUsecase
	detail   usecase.JobDetailUsecase
	email    usecase.EmailDraftUsecase
	renderer *view.Renderer
	logger   *log.Logger
}

func NewJobsHandler(list usecase.JobListUsecase, detail usecase.JobDetailUsecase, email usecase.EmailDraftUsecase, renderer *view.Renderer, logger *log.Logger) *JobsHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &JobsHandler{list: list, detail: detail, email: email, renderer: renderer, logger: logger}
}

// RegisterRoutes mounts the pages behind guard.
func (h *JobsHandler) RegisterRoutes(r fiber.Router, guard fiber.Handler) {
	if r == nil {
		return
	}

	r.Get("/jobs", guard, h.ListPage)
	r.Get("/jobs/:id", guard, h.DetailPage)
	r.Post("/jobs/:id/email", guard, h.EmailPage)
}

func (h *JobsHandler) ListPage(c fiber.Ctx) error {
	page := parsePage(c.Query("page"))
	query := strings.TrimSpace(c.Query("q"))
	id, _ := middleware.IdentityFrom(c)

	data := view.JobsData{Query: query, Jobs: []job.Job{}}
	res, err := h.list.ListJobs(c.Context(), id.Token, page)
	if err != nil {
		data.LoadFailed = true
	} else {
		data.Jobs = usecase.FilterJobs(res.Jobs, query)
		data.Pagination = res.Pagination
	}

	p := basePage(c, "Job Listings", "jobs")
	p.Data = data
	return h.renderer.Render(c, fiber.StatusOK, view.PageJobs, p)
}

func (h *JobsHandler) DetailPage(c fiber.Ctx) error {
	jobID, ok := parseJobID(c.Params("id"))
	if !ok {
		return h.renderJobError(c, fiber.StatusNotFound, msgJobNotFound)
	}
	id, _ := middleware.IdentityFrom(c)

	v, err := h.detail.View(c.Context(), id.Token, jobID)
	if err != nil {
		return h.mapJobPageError(c, err)
	}
	return h.renderDetail(c, fiber.StatusOK, v, "", "")
}

// EmailPage drafts an email for browsers without the page script. The
// description is shown as stored so drafting costs one completion call.
func (h *JobsHandler) EmailPage(c fiber.Ctx) error {
	jobID, ok := parseJobID(c.Params("id"))
	if !ok {
		return h.renderJobError(c, fiber.StatusNotFound, msgJobNotFound)
	}
	id, _ := middleware.IdentityFrom(c)

	j, err := h.detail.GetJob(c.Context(), id.Token, jobID)
	if err != nil {
		return h.mapJobPageError(c, err)
	}
	v := usecase.JobDetailView{Job: j, Description: h.detail.Original(j)}

	draft, err := h.email.Draft(c.Context(), v.Job)
	if err != nil {
		return h.renderDetail(c, fiber.StatusBadGateway, v, "", msgEmailDraftFailed)
	}
	return h.renderDetail(c, fiber.StatusOK, v, draft, "")
}

func (h *JobsHandler) renderDetail(c fiber.Ctx, status int, v usecase.JobDetailView, emailHTML, emailErr string) error {
	p := basePage(c, v.Job.Title, "jobs")
	p.Data = view.JobDetailData{
		Job:               v.Job,
		DescriptionHTML:   v.Description.HTML,
		DescriptionSource: string(v.Description.Source),
		EmailHTML:         emailHTML,
		EmailError:        emailErr,
	}
	return h.renderer.Render(c, status, view.PageJobDetail, p)
}

func (h *JobsHandler) renderJobError(c fiber.Ctx, status int, msg string) error {
	p := basePage(c, msg, "jobs")
	p.Data = view.ErrorData{Status: status, Message: msg, BackPath: "/jobs", BackLabel: "Back to Jobs"}
	return h.renderer.Render(c, status, view.PageError, p)
}

func (h *JobsHandler) mapJobPageError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, usecase.ErrNotFound), errors.Is(err, usecase.ErrInvalidInput):
		return h.renderJobError(c, fiber.StatusNotFound, msgJobNotFound)
	default:
		return h.renderJobError(c, fiber.StatusBadGateway, msgJobLoadFailed)
	}
}

func parsePage(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func parseJobID(s string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
