package user

import "time"

// User is the backend record of a person known to the identity provider.
type User struct {
	ID          int64
	ClerkID     string
	Email       string
	FullName    string
	LinkedInURL string
	ResumeURL   string
	Bio         string
	Skills      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Profile is the candidate profile as the backend returns it.
type Profile struct {
	FullName    string
	Email       string
	LinkedInURL string
	ResumeURL   string
	Bio         string
	Skills      string
}

// ProfileForm is what the candidate submits from the profile view.
type ProfileForm struct {
	Name        string `validate:"required,min=2"`
	Email       string `validate:"required,email"`
	LinkedInURL string `validate:"omitempty,url"`
	ResumeURL   string `validate:"omitempty,url"`
	Bio         string `validate:"max=500"`
	Skills      string
}

// Identity is the signed-in user as asserted by the identity provider's
// session token.
type Identity struct {
	UserID    string
	SessionID string
	Email     string
	FullName  string
	Token     string
}

func (i Identity) Authenticated() bool {
	return i.UserID != ""
}

// SessionKey identifies one session of the identity, falling back to the
// user id when the token carries no session id.
func (i Identity) SessionKey() string {
	if i.SessionID != "" {
		return i.UserID + ":" + i.SessionID
	}
	return i.UserID
}

type SyncInput struct {
	ClerkID  string
	Email    string
	FullName string
}

func (p Profile) Form() ProfileForm {
	return ProfileForm{
		Name:        p.FullName,
		Email:       p.Email,
		LinkedInURL: p.LinkedInURL,
		ResumeURL:   p.ResumeURL,
		Bio:         p.Bio,
		Skills:      p.Skills,
	}
}

func (u User) Profile() Profile {
	return Profile{
		FullName:    u.FullName,
		Email:       u.Email,
		LinkedInURL: u.LinkedInURL,
		ResumeURL:   u.ResumeURL,
		Bio:         u.Bio,
		Skills:      u.Skills,
	}
}
