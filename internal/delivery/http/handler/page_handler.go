package handler

import (
	"net/url"
	"strings"

	"jobflow/internal/delivery/http/middleware"
	"jobflow/internal/view"

	"github.com/gofiber/fiber/v3"
)

// AuthPages configures the links to the identity provider's hosted pages.
type AuthPages struct {
	SignInURL       string
	SignUpURL       string
	AfterSignOutURL string
	SessionCookie   string
}

type PageHandler struct {
	renderer *view.Renderer
	auth     AuthPages
}

func NewPageHandler(renderer *view.Renderer, auth AuthPages) *PageHandler {
	if auth.AfterSignOutURL == "" {
		auth.AfterSignOutURL = "/"
	}
	return &PageHandler{renderer: renderer, auth: auth}
}

func (h *PageHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	r.Get("/", h.Home)
	r.Get("/login", h.Login)
	r.Get("/signup", h.Signup)
	r.Get("/logout", h.Logout)
	r.Get("/static/app.js", view.ServeScript)
}

func (h *PageHandler) Home(c fiber.Ctx) error {
	return h.renderer.Render(c, fiber.StatusOK, view.PageHome, basePage(c, "", ""))
}

func (h *PageHandler) Login(c fiber.Ctx) error {
	target := localRedirect(c.Query("redirect_url"), "/jobs")
	if _, ok := middleware.IdentityFrom(c); ok {
		return c.Redirect().Status(fiber.StatusFound).To(target)
	}

	p := basePage(c, "Sign in", "")
	p.Data = view.AuthData{
		Heading:     "Welcome back",
		Subheading:  "Sign in to browse jobs and manage your candidate profile",
		Action:      "Continue to sign in",
		ProviderURL: providerURL(h.auth.SignInURL, c.BaseURL()+target),
		AltPrompt:   "Don't have an account?",
		AltAction:   "Sign up",
		AltPath:     "/signup",
	}
	return h.renderer.Render(c, fiber.StatusOK, view.PageAuth, p)
}

func (h *PageHandler) Signup(c fiber.Ctx) error {
	target := localRedirect(c.Query("redirect_url"), "/jobs")
	if _, ok := middleware.IdentityFrom(c); ok {
		return c.Redirect().Status(fiber.StatusFound).To(target)
	}

	p := basePage(c, "Create Account", "")
	p.Data = view.AuthData{
		Heading:     "Create Account",
		Subheading:  "Join JobFlow to find your dream job",
		Action:      "Continue to sign up",
		ProviderURL: providerURL(h.auth.SignUpURL, c.BaseURL()+target),
		AltPrompt:   "Already have an account?",
		AltAction:   "Sign in",
		AltPath:     "/login",
	}
	return h.renderer.Render(c, fiber.StatusOK, view.PageAuth, p)
}

// Logout drops the local session cookie and hands over to the identity
// provider's post-sign-out location.
func (h *PageHandler) Logout(c fiber.Ctx) error {
	if h.auth.SessionCookie != "" {
		c.ClearCookie(h.auth.SessionCookie)
	}
	return c.Redirect().Status(fiber.StatusFound).To(h.auth.AfterSignOutURL)
}

// NotFound is the last handler in the chain.
func (h *PageHandler) NotFound(c fiber.Ctx) error {
	return middleware.NewAppError(fiber.StatusNotFound, "", nil, nil)
}

func basePage(c fiber.Ctx, title, active string) view.Page {
	p := view.Page{Title: title, Active: active}
	if id, ok := middleware.IdentityFrom(c); ok {
		p.Identity = id
		p.SignedIn = true
	}
	return p
}

// localRedirect only accepts same-site paths.
func localRedirect(raw, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return fallback
	}
	return raw
}

func providerURL(base, redirect string) string {
	if base == "" {
		return ""
	}
	u, err := url.Parse(base)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set("redirect_url", redirect)
	u.RawQuery = q.Encode()
	return u.String()
}
