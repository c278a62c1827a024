package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"jobflow/internal/domain/job"
	"jobflow/internal/domain/user"
)

// Service maps the backend REST contract onto domain types.
type Service struct {
	client *Client
}

func NewService(client *Client) *Service {
	return &Service{client: client}
}

type jobPayload struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	ApplyLink   string    `json:"apply_link"`
	Tags        tagList   `json:"tags"`
	Pay         *string   `json:"pay"`
	Experience  *string   `json:"experience"`
	CreatedAt   time.Time `json:"created_at"`
}

type paginationPayload struct {
	CurrentPage int  `json:"current_page"`
	TotalPages  int  `json:"total_pages"`
	TotalJobs   int  `json:"total_jobs"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

type jobListPayload struct {
	Jobs       []jobPayload      `json:"jobs"`
	Pagination paginationPayload `json:"pagination"`
}

type profilePayload struct {
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	LinkedInURL string `json:"linkedin_url"`
	ResumeURL   string `json:"resume_url"`
	Bio         string `json:"bio"`
	Skills      string `json:"skills"`
}

type profileUpdatePayload struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	LinkedInURL string `json:"linkedinUrl"`
	ResumeURL   string `json:"resumeUrl"`
	Bio         string `json:"bio"`
	Skills      string `json:"skills"`
	ClerkID     string `json:"clerk_id"`
}

type syncUserPayload struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	ClerkID  string `json:"clerk_id"`
}

type syncUserResponse struct {
	Status string `json:"status"`
	User   string `json:"user"`
}

// tagList accepts tags as a JSON array or as a string holding a JSON array,
// which is how rows written by older ingestion jobs come back.
type tagList []string

func (t *tagList) UnmarshalJSON(b []byte) error {
	var arr []string
	if err := json.Unmarshal(b, &arr); err == nil {
		*t = arr
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*t = nil
		return nil
	}
	if err := json.Unmarshal([]byte(s), &arr); err != nil {
		*t = tagList{s}
		return nil
	}
	*t = arr
	return nil
}

func (p jobPayload) toDomain() job.Job {
	return job.Job{
		ID:          p.ID,
		Title:       p.Title,
		Company:     p.Company,
		Location:    p.Location,
		Description: p.Description,
		ApplyLink:   p.ApplyLink,
		Tags:        []string(p.Tags),
		Pay:         deref(p.Pay),
		Experience:  deref(p.Experience),
		CreatedAt:   p.CreatedAt,
	}
}

func (s *Service) ListJobs(ctx context.Context, token string, page, perPage int) (job.Page, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	var out jobListPayload
	if err := s.client.WithBearer(token).Do(ctx, http.MethodGet, "/api/jobs/?"+q.Encode(), nil, &out); err != nil {
		return job.Page{}, err
	}

	jobs := make([]job.Job, 0, len(out.Jobs))
	for _, j := range out.Jobs {
		jobs = append(jobs, j.toDomain())
	}
	return job.Page{
		Jobs: jobs,
		Pagination: job.Pagination{
			CurrentPage: out.Pagination.CurrentPage,
			TotalPages:  out.Pagination.TotalPages,
			TotalJobs:   out.Pagination.TotalJobs,
			HasNext:     out.Pagination.HasNext,
			HasPrevious: out.Pagination.HasPrevious,
		},
	}, nil
}

func (s *Service) GetJob(ctx context.Context, token string, id int64) (job.Job, error) {
	var out jobPayload
	path := fmt.Sprintf("/api/jobs/%d/", id)
	if err := s.client.WithBearer(token).Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		if errors.Is(err, ErrNotFound) {
			return job.Job{}, fmt.Errorf("%w: %w", job.ErrNotFound, err)
		}
		return job.Job{}, err
	}
	return out.toDomain(), nil
}

func (s *Service) GetProfile(ctx context.Context, token, clerkID string) (user.Profile, error) {
	var out profilePayload
	path := "/api/profile/" + url.PathEscape(clerkID) + "/"
	if err := s.client.WithBearer(token).Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		if errors.Is(err, ErrNotFound) {
			return user.Profile{}, fmt.Errorf("%w: %w", user.ErrNotFound, err)
		}
		return user.Profile{}, err
	}
	return user.Profile{
		FullName:    out.FullName,
		Email:       out.Email,
		LinkedInURL: out.LinkedInURL,
		ResumeURL:   out.ResumeURL,
		Bio:         out.Bio,
		Skills:      out.Skills,
	}, nil
}

func (s *Service) UpdateProfile(ctx context.Context, token, clerkID string, form user.ProfileForm) error {
	body := profileUpdatePayload{
		Name:        form.Name,
		Email:       form.Email,
		LinkedInURL: form.LinkedInURL,
		ResumeURL:   form.ResumeURL,
		Bio:         form.Bio,
		Skills:      form.Skills,
		ClerkID:     clerkID,
	}
	err := s.client.WithBearer(token).Do(ctx, http.MethodPost, "/api/profile/update/", body, nil)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: %w", user.ErrNotFound, err)
	}
	return err
}

// SyncUser asks the backend to ensure a user record exists and returns its
// verdict, "created" or "exists".
func (s *Service) SyncUser(ctx context.Context, token string, in user.SyncInput) (string, error) {
	body := syncUserPayload{Email: in.Email, FullName: in.FullName, ClerkID: in.ClerkID}
	var out syncUserResponse
	if err := s.client.WithBearer(token).Do(ctx, http.MethodPost, "/api/sync-user/", body, &out); err != nil {
		return "", err
	}
	return out.User, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
