package handler

import (
	"context"
	"errors"
	"strings"

	"jobflow/internal/delivery/http/dto"
	"jobflow/internal/delivery/http/middleware"
	"jobflow/internal/domain/user"
	useruc "jobflow/internal/usecase/user"

	"github.com/gofiber/fiber/v3"
)

const (
	msgUserNotFound          = "User not found"
	msgMissingRequiredFields = "Missing required fields"
	msgProfileUpdated        = "Profile updated"
	msgIdentityMismatch      = "Forbidden"
	msgEmailInUse            = "Email already in use"
)

type AccountService interface {
	Sync(ctx context.Context, in user.SyncInput) (bool, error)
	GetProfile(ctx context.Context, clerkID string) (user.Profile, error)
	UpdateProfile(ctx context.Context, clerkID string, in useruc.ProfileUpdate) error
}

// AccountHandler serves the user endpoints of the backend API. Every route
// acts on the caller's own record only.
type AccountHandler struct {
	svc AccountService
}

func NewAccountHandler(svc AccountService) *AccountHandler {
	return &AccountHandler{svc: svc}
}

func (h *AccountHandler) RegisterRoutes(r fiber.Router, guard fiber.Handler) {
	if r == nil {
		return
	}

	r.Get("/profile/:clerk_id/", guard, h.GetProfile)
	r.Post("/profile/update/", guard, h.UpdateProfile)
	r.Post("/sync-user/", guard, h.SyncUser)
}

func (h *AccountHandler) GetProfile(c fiber.Ctx) error {
	clerkID := strings.TrimSpace(c.Params("clerk_id"))
	if err := requireSelf(c, clerkID); err != nil {
		return err
	}

	p, err := h.svc.GetProfile(c.Context(), clerkID)
	if err != nil {
		return mapAccountError(err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.NewProfileResponse(p))
}

func (h *AccountHandler) UpdateProfile(c fiber.Ctx) error {
	var req dto.ProfileUpdateRequest
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Invalid request payload", nil, err)
	}
	clerkID := strings.TrimSpace(req.ClerkID)
	if clerkID == "" {
		return middleware.NewAppError(fiber.StatusBadRequest, msgMissingRequiredFields, nil, nil)
	}
	if err := requireSelf(c, clerkID); err != nil {
		return err
	}

	err := h.svc.UpdateProfile(c.Context(), clerkID, useruc.ProfileUpdate{
		Name:        req.Name,
		Email:       req.Email,
		LinkedInURL: req.LinkedInURL,
		ResumeURL:   req.ResumeURL,
		Bio:         req.Bio,
		Skills:      req.Skills,
	})
	if err != nil {
		return mapAccountError(err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.StatusResponse{Status: "success", Message: msgProfileUpdated})
}

func (h *AccountHandler) SyncUser(c fiber.Ctx) error {
	var req dto.SyncUserRequest
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Invalid request payload", nil, err)
	}
	clerkID := strings.TrimSpace(req.ClerkID)
	if clerkID == "" || strings.TrimSpace(req.Email) == "" {
		return middleware.NewAppError(fiber.StatusBadRequest, msgMissingRequiredFields, nil, nil)
	}
	if err := requireSelf(c, clerkID); err != nil {
		return err
	}

	created, err := h.svc.Sync(c.Context(), user.SyncInput{
		ClerkID:  clerkID,
		Email:    req.Email,
		FullName: req.FullName,
	})
	if err != nil {
		return mapAccountError(err)
	}

	verdict := "exists"
	if created {
		verdict = "created"
	}
	return c.Status(fiber.StatusOK).JSON(dto.StatusResponse{Status: "success", User: verdict})
}

// requireSelf rejects requests about a user other than the token's subject.
func requireSelf(c fiber.Ctx, clerkID string) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return middleware.NewAppError(fiber.StatusUnauthorized, "Unauthorized", nil, nil)
	}
	if id.UserID != clerkID {
		return middleware.NewAppError(fiber.StatusForbidden, msgIdentityMismatch, nil, nil)
	}
	return nil
}

func mapAccountError(err error) error {
	switch {
	case errors.Is(err, useruc.ErrInvalidInput):
		return middleware.NewAppError(fiber.StatusBadRequest, msgMissingRequiredFields, nil, err)
	case errors.Is(err, user.ErrNotFound):
		return middleware.NewAppError(fiber.StatusNotFound, msgUserNotFound, nil, err)
	case errors.Is(err, user.ErrConflict):
		return middleware.NewAppError(fiber.StatusConflict, msgEmailInUse, nil, err)
	default:
		return middleware.NewAppError(fiber.StatusInternalServerError, "", nil, err)
	}
}
