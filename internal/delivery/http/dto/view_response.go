package dto

// Responses of the in-page view API. Generation echoes the request's
// X-View-Generation so the page can drop out-of-order results.

type JobListView struct {
	Generation int64              `json:"generation"`
	Jobs       []JobResponse      `json:"jobs"`
	Pagination PaginationResponse `json:"pagination"`
}

type JobDetailView struct {
	Generation      int64       `json:"generation"`
	Job             JobResponse `json:"job"`
	DescriptionHTML string      `json:"description_html"`
	Enhanced        bool        `json:"enhanced"`
}

type EmailDraftView struct {
	Generation int64  `json:"generation"`
	HTML       string `json:"html"`
}
