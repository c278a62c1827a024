package dto

import "jobflow/internal/domain/user"

type ProfileResponse struct {
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	LinkedInURL string `json:"linkedin_url"`
	ResumeURL   string `json:"resume_url"`
	Bio         string `json:"bio"`
	Skills      string `json:"skills"`
}

func NewProfileResponse(p user.Profile) ProfileResponse {
	return ProfileResponse{
		FullName:    p.FullName,
		Email:       p.Email,
		LinkedInURL: p.LinkedInURL,
		ResumeURL:   p.ResumeURL,
		Bio:         p.Bio,
		Skills:      p.Skills,
	}
}

// ProfileUpdateRequest leaves name and email unchanged when they are absent.
type ProfileUpdateRequest struct {
	ClerkID     string  `json:"clerk_id"`
	Name        *string `json:"name"`
	Email       *string `json:"email"`
	LinkedInURL string  `json:"linkedinUrl"`
	ResumeURL   string  `json:"resumeUrl"`
	Bio         string  `json:"bio"`
	Skills      string  `json:"skills"`
}

type SyncUserRequest struct {
	ClerkID  string `json:"clerk_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	User    string `json:"user,omitempty"`
}
