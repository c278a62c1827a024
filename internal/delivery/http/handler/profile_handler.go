package handler

import (
	"errors"
	"log"

	"jobflow/internal/domain/user"
	"jobflow/internal/usecase"
	"jobflow/internal/view"
	"jobflow/internal/ws"

	"github.com/gofiber/fiber/v3"
)

var (
	toastProfileUpdated = ws.Toast{
		Title:       "Profile updated",
		Description: "Your candidate profile has been successfully updated.",
		Variant:     ws.ToastDefault,
	}
	toastProfileFailed = ws.Toast{
		Title:       "Update failed",
		Description: "There was a problem updating your profile.",
		Variant:     ws.ToastDestructive,
	}
)

// Notifier pushes a toast to a user's open pages.
type Notifier interface {
	NotifyUser(userID string, toast ws.Toast)
}

type ProfileHandler struct {
	uc       usecase.ProfileUsecase
	renderer *view.Renderer
	notifier Notifier
	logger   *log.Logger
}

func NewProfileHandler(uc usecase.ProfileUsecase, renderer *view.Renderer, notifier Notifier, logger *log.Logger) *ProfileHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &ProfileHandler{uc: uc, renderer: renderer, notifier: notifier, logger: logger}
}

func (h *ProfileHandler) RegisterRoutes(r fiber.Router, guard fiber.Handler) {
	if r == nil {
		return
	}

	r.Get("/profile", guard, h.Page)
	r.Post("/profile", guard, h.Save)
}

func (h *ProfileHandler) Page(c fiber.Ctx) error {
	p := basePage(c, "Candidate Profile", "profile")
	res := h.uc.Load(c.Context(), p.Identity)
	p.Data = view.ProfileData{Form: res.Form, LoadStatus: string(res.Status)}
	return h.renderer.Render(c, fiber.StatusOK, view.PageProfile, p)
}

// Save stores the submitted form and re-renders it with the outcome. There
// is no re-fetch; the page shows what was submitted.
func (h *ProfileHandler) Save(c fiber.Ctx) error {
	p := basePage(c, "Candidate Profile", "profile")
	form := user.ProfileForm{
		Name:        c.FormValue("name"),
		Email:       c.FormValue("email"),
		LinkedInURL: c.FormValue("linkedinUrl"),
		ResumeURL:   c.FormValue("resumeUrl"),
		Bio:         c.FormValue("bio"),
		Skills:      c.FormValue("skills"),
	}
	data := view.ProfileData{Form: form, LoadStatus: string(usecase.ProfileOK)}

	err := h.uc.Save(c.Context(), p.Identity, form)
	var verr *usecase.ValidationError
	switch {
	case err == nil:
		t := toastProfileUpdated
		h.notify(p.Identity.UserID, t)
		p.Toast = &t
		p.Data = data
		return h.renderer.Render(c, fiber.StatusOK, view.PageProfile, p)
	case errors.As(err, &verr):
		data.Errors = verr.Fields
		p.Data = data
		return h.renderer.Render(c, fiber.StatusUnprocessableEntity, view.PageProfile, p)
	default:
		t := toastProfileFailed
		h.notify(p.Identity.UserID, t)
		p.Toast = &t
		p.Data = data
		return h.renderer.Render(c, fiber.StatusBadGateway, view.PageProfile, p)
	}
}

func (h *ProfileHandler) notify(userID string, t ws.Toast) {
	if h.notifier == nil || userID == "" {
		return
	}
	h.notifier.NotifyUser(userID, t)
}
