package user

import (
	"context"
	"errors"
	"log"
	"strings"

	"jobflow/internal/domain/user"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
)

// ProfileUpdate replaces the optional profile fields. Name and Email are
// kept unchanged when nil.
type ProfileUpdate struct {
	Name        *string
	Email       *string
	LinkedInURL string
	ResumeURL   string
	Bio         string
	Skills      string
}

type Service struct {
	users  user.Repository
	logger *log.Logger
}

func NewService(users user.Repository, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{users: users, logger: logger}
}

// Sync records a user first seen through the identity provider. Existing
// users are left untouched. It reports whether a row was created.
func (s *Service) Sync(ctx context.Context, in user.SyncInput) (bool, error) {
	clerkID := strings.TrimSpace(in.ClerkID)
	email := normalizeEmail(in.Email)
	if clerkID == "" || email == "" {
		return false, ErrInvalidInput
	}

	created, err := s.users.CreateIfMissing(ctx, user.User{
		ClerkID:  clerkID,
		Email:    email,
		FullName: strings.TrimSpace(in.FullName),
	})
	if err != nil {
		if errors.Is(err, user.ErrConflict) {
			return false, user.ErrConflict
		}
		s.logger.Printf("[UserService] sync failed clerk_id=%s err=%v", clerkID, err)
		return false, ErrInternal
	}
	if created {
		s.logger.Printf("[UserService] user created clerk_id=%s", clerkID)
	}
	return created, nil
}

func (s *Service) GetProfile(ctx context.Context, clerkID string) (user.Profile, error) {
	clerkID = strings.TrimSpace(clerkID)
	if clerkID == "" {
		return user.Profile{}, ErrInvalidInput
	}
	u, err := s.users.GetByClerkID(ctx, clerkID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.Profile{}, user.ErrNotFound
		}
		s.logger.Printf("[UserService] get profile failed clerk_id=%s err=%v", clerkID, err)
		return user.Profile{}, ErrInternal
	}
	return u.Profile(), nil
}

// UpdateProfile applies in to the stored profile. A user that was never
// synced is created from the update when it carries an email.
func (s *Service) UpdateProfile(ctx context.Context, clerkID string, in ProfileUpdate) error {
	clerkID = strings.TrimSpace(clerkID)
	if clerkID == "" {
		return ErrInvalidInput
	}

	current, err := s.users.GetByClerkID(ctx, clerkID)
	if errors.Is(err, user.ErrNotFound) {
		created, cerr := s.createOnSave(ctx, clerkID, in)
		if cerr != nil || created {
			return cerr
		}
		// Created concurrently by a sync; update the stored row instead.
		current, err = s.users.GetByClerkID(ctx, clerkID)
	}
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.ErrNotFound
		}
		s.logger.Printf("[UserService] load before update failed clerk_id=%s err=%v", clerkID, err)
		return ErrInternal
	}
	return s.applyUpdate(ctx, clerkID, current, in)
}

func (s *Service) createOnSave(ctx context.Context, clerkID string, in ProfileUpdate) (bool, error) {
	if in.Email == nil || normalizeEmail(*in.Email) == "" {
		return false, user.ErrNotFound
	}
	u := user.User{
		ClerkID:     clerkID,
		Email:       normalizeEmail(*in.Email),
		LinkedInURL: strings.TrimSpace(in.LinkedInURL),
		ResumeURL:   strings.TrimSpace(in.ResumeURL),
		Bio:         strings.TrimSpace(in.Bio),
		Skills:      strings.TrimSpace(in.Skills),
	}
	if in.Name != nil {
		u.FullName = strings.TrimSpace(*in.Name)
	}

	created, err := s.users.CreateIfMissing(ctx, u)
	if err != nil {
		if errors.Is(err, user.ErrConflict) {
			return false, user.ErrConflict
		}
		s.logger.Printf("[UserService] create on save failed clerk_id=%s err=%v", clerkID, err)
		return false, ErrInternal
	}
	if created {
		s.logger.Printf("[UserService] user created on profile save clerk_id=%s", clerkID)
	}
	return created, nil
}

func (s *Service) applyUpdate(ctx context.Context, clerkID string, current user.User, in ProfileUpdate) error {
	p := current.Profile()
	if in.Name != nil {
		p.FullName = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if email == "" {
			return ErrInvalidInput
		}
		p.Email = email
	}
	p.LinkedInURL = strings.TrimSpace(in.LinkedInURL)
	p.ResumeURL = strings.TrimSpace(in.ResumeURL)
	p.Bio = strings.TrimSpace(in.Bio)
	p.Skills = strings.TrimSpace(in.Skills)

	if err := s.users.UpdateProfile(ctx, clerkID, p); err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			return user.ErrNotFound
		case errors.Is(err, user.ErrConflict):
			return user.ErrConflict
		}
		s.logger.Printf("[UserService] update profile failed clerk_id=%s err=%v", clerkID, err)
		return ErrInternal
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
