package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"jobflow/internal/domain/user"

	"github.com/go-playground/validator/v10"
)

type ProfileStatus string

const (
	ProfileOK       ProfileStatus = "ok"
	ProfileNotFound ProfileStatus = "not_found"
	ProfileFailed   ProfileStatus = "failed"
)

// ProfileLoad is the form to pre-fill the profile view with and how it was
// obtained. Err is set when Status is ProfileFailed.
type ProfileLoad struct {
	Form   user.ProfileForm
	Status ProfileStatus
	Err    error
}

// ValidationError carries one message per invalid form field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid profile: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

type ProfileUsecase interface {
	Load(ctx context.Context, id user.Identity) ProfileLoad
	Save(ctx context.Context, id user.Identity, form user.ProfileForm) error
}

type Profile struct {
	backend  ProfileBackend
	validate *validator.Validate
	logger   *log.Logger
}

func NewProfileUsecase(backend ProfileBackend, logger *log.Logger) *Profile {
	if logger == nil {
		logger = log.Default()
	}
	return &Profile{backend: backend, validate: validator.New(), logger: logger}
}

// Load fetches the stored profile. When there is none, or the fetch fails,
// the form is pre-filled from the identity instead.
func (u *Profile) Load(ctx context.Context, id user.Identity) ProfileLoad {
	fallback := user.ProfileForm{Name: id.FullName, Email: id.Email}
	if !id.Authenticated() {
		return ProfileLoad{Form: fallback, Status: ProfileNotFound}
	}

	p, err := u.backend.GetProfile(ctx, id.Token, id.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			u.logger.Printf("[Profile] no stored profile yet uid=%s", id.UserID)
			return ProfileLoad{Form: fallback, Status: ProfileNotFound}
		}
		u.logger.Printf("[Profile] load failed uid=%s err=%v", id.UserID, err)
		return ProfileLoad{Form: fallback, Status: ProfileFailed, Err: err}
	}

	form := p.Form()
	if strings.TrimSpace(form.Name) == "" {
		form.Name = id.FullName
	}
	if strings.TrimSpace(form.Email) == "" {
		form.Email = id.Email
	}
	return ProfileLoad{Form: form, Status: ProfileOK}
}

// Validate checks form without touching the network.
func (u *Profile) Validate(form user.ProfileForm) error {
	err := u.validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		out.Fields[formFieldName(fe.Field())] = fieldMessage(fe)
	}
	return out
}

// Save validates form and stores it for the identity.
func (u *Profile) Save(ctx context.Context, id user.Identity, form user.ProfileForm) error {
	form = normalizeForm(form)
	if err := u.Validate(form); err != nil {
		return err
	}
	if !id.Authenticated() {
		return ErrInvalidInput
	}

	if err := u.backend.UpdateProfile(ctx, id.Token, id.UserID, form); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			u.logger.Printf("[Profile] update for unknown user uid=%s", id.UserID)
			return ErrNotFound
		}
		u.logger.Printf("[Profile] update failed uid=%s err=%v", id.UserID, err)
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	u.logger.Printf("[Profile] updated uid=%s", id.UserID)
	return nil
}

func normalizeForm(f user.ProfileForm) user.ProfileForm {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.LinkedInURL = strings.TrimSpace(f.LinkedInURL)
	f.ResumeURL = strings.TrimSpace(f.ResumeURL)
	f.Bio = strings.TrimSpace(f.Bio)
	f.Skills = strings.TrimSpace(f.Skills)
	return f
}

func formFieldName(field string) string {
	switch field {
	case "Name":
		return "name"
	case "Email":
		return "email"
	case "LinkedInURL":
		return "linkedinUrl"
	case "ResumeURL":
		return "resumeUrl"
	case "Bio":
		return "bio"
	default:
		return strings.ToLower(field)
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return fmt.Sprintf("Must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	case "email":
		return "Invalid email address"
	case "url":
		return "Must be a valid URL"
	default:
		return "Invalid value"
	}
}
