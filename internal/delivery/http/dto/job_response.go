package dto

import (
	"time"

	"jobflow/internal/domain/job"
)

type JobResponse struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	Location    string   `json:"location"`
	Description string   `json:"description"`
	ApplyLink   string   `json:"apply_link"`
	Tags        []string `json:"tags"`
	Pay         *string  `json:"pay"`
	Experience  *string  `json:"experience"`
	CreatedAt   string   `json:"created_at"`
}

type PaginationResponse struct {
	CurrentPage int  `json:"current_page"`
	TotalPages  int  `json:"total_pages"`
	TotalJobs   int  `json:"total_jobs"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

type JobListResponse struct {
	Jobs       []JobResponse      `json:"jobs"`
	Pagination PaginationResponse `json:"pagination"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func NewJobResponse(j job.Job) JobResponse {
	tags := j.Tags
	if tags == nil {
		tags = []string{}
	}
	created := ""
	if !j.CreatedAt.IsZero() {
		created = j.CreatedAt.UTC().Format(time.RFC3339)
	}
	return JobResponse{
		ID:          j.ID,
		Title:       j.Title,
		Company:     j.Company,
		Location:    j.Location,
		Description: j.Description,
		ApplyLink:   j.ApplyLink,
		Tags:        tags,
		Pay:         optional(j.Pay),
		Experience:  optional(j.Experience),
		CreatedAt:   created,
	}
}

func NewJobResponses(jobs []job.Job) []JobResponse {
	out := make([]JobResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, NewJobResponse(j))
	}
	return out
}

func NewPaginationResponse(p job.Pagination) PaginationResponse {
	return PaginationResponse{
		CurrentPage: p.CurrentPage,
		TotalPages:  p.TotalPages,
		TotalJobs:   p.TotalJobs,
		HasNext:     p.HasNext,
		HasPrevious: p.HasPrevious,
	}
}
