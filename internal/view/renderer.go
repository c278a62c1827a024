// Package view renders the server-side pages of the web frontend.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"jobflow/internal/delivery/http/middleware"
	"jobflow/internal/domain/job"
	"jobflow/internal/domain/user"
	"jobflow/internal/pkg/response"
	"jobflow/internal/ws"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/app.js
var appScript []byte

const (
	PageHome      = "home"
	PageAuth      = "auth"
	PageJobs      = "jobs"
	PageJobDetail = "job_detail"
	PageProfile   = "profile"
	PageError     = "error"
)

var pageNames = []string{PageHome, PageAuth, PageJobs, PageJobDetail, PageProfile, PageError}

// Page is what every template receives. Data holds the page-specific model.
type Page struct {
	Title    string
	Active   string
	Identity user.Identity
	SignedIn bool
	ScopeID  string
	Toast    *ws.Toast
	Data     any
}

type AuthData struct {
	Heading     string
	Subheading  string
	Action      string
	ProviderURL string
	AltPrompt   string
	AltAction   string
	AltPath     string
}

type JobsData struct {
	Jobs       []job.Job
	Pagination job.Pagination
	Query      string
	// LoadFailed tells a failed fetch apart from an empty page.
	LoadFailed bool
}

type JobDetailData struct {
	Job               job.Job
	DescriptionHTML   string
	DescriptionSource string
	EmailHTML         string
	EmailError        string
}

type ProfileData struct {
	Form       user.ProfileForm
	Errors     map[string]string
	LoadStatus string
}

type ErrorData struct {
	Status    int
	Message   string
	BackPath  string
	BackLabel string
}

type Renderer struct {
	pages  map[string]*template.Template
	logger *log.Logger
}

var funcs = template.FuncMap{
	// safeHTML marks already-sanitised markup as trusted.
	"safeHTML": func(s string) template.HTML { return template.HTML(s) },
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("Jan 2, 2006")
	},
	"add": func(a, b int) int { return a + b },
	"sub": func(a, b int) int { return a - b },
}

func NewRenderer(logger *log.Logger) (*Renderer, error) {
	if logger == nil {
		logger = log.Default()
	}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &Renderer{pages: pages, logger: logger}, nil
}

// Render writes page name with status.
func (r *Renderer) Render(c fiber.Ctx, status int, name string, p Page) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	if p.ScopeID == "" {
		p.ScopeID = NewScopeID()
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", p); err != nil {
		r.logger.Printf("[View] render failed page=%s err=%v", name, err)
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(status).Send(buf.Bytes())
}

// RenderError is an error renderer for the HTML routes.
func (r *Renderer) RenderError(c fiber.Ctx, status int, message string, _ interface{}) error {
	if status == fiber.StatusNotFound && message == response.MessageNotFound {
		message = ""
	}
	p := Page{Title: http.StatusText(status), Data: ErrorData{Status: status, Message: message}}
	if id, ok := middleware.IdentityFrom(c); ok {
		p.Identity = id
		p.SignedIn = true
	}
	if err := r.Render(c, status, PageError, p); err != nil {
		return c.Status(status).SendString(message)
	}
	return nil
}

// ServeScript serves the page script.
func ServeScript(c fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "public, max-age=300")
	c.Type("js")
	return c.Send(appScript)
}

// NewScopeID names the view scope of one rendered page.
func NewScopeID() string {
	return uuid.NewString()
}
