package job

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("job not found")

type Job struct {
	ID          int64
	Title       string
	Company     string
	Location    string
	Description string
	ApplyLink   string
	Tags        []string
	Pay         string
	Experience  string
	CreatedAt   time.Time
}

type Pagination struct {
	CurrentPage int
	TotalPages  int
	TotalJobs   int
	HasNext     bool
	HasPrevious bool
}

// Page is one window of the listing, recreated on every page request.
type Page struct {
	Jobs       []Job
	Pagination Pagination
}
