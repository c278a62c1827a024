package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"jobflow/internal/delivery/http/middleware"
	"jobflow/internal/domain/job"
	"jobflow/internal/domain/user"
	"jobflow/internal/pkg/response"
	"jobflow/internal/usecase"
	"jobflow/internal/view"
	"jobflow/internal/viewscope"
	"jobflow/internal/ws"

	"github.com/gofiber/fiber/v3"
)

var discard = log.New(io.Discard, "", 0)

type fakeJobList struct {
	page job.Page
	err  error
	hook func(ctx context.Context)
}

func (f *fakeJobList) ListJobs(ctx context.Context, _ string, page int) (job.Page, error) {
	if f.hook != nil {
		f.hook(ctx)
	}
	if f.err != nil {
		return job.Page{}, f.err
	}
	p := f.page
	p.Pagination.CurrentPage = page
	return p, nil
}

type fakeJobDetail struct {
	view usecase.JobDetailView
	err  error
}

func (f *fakeJobDetail) GetJob(context.Context, string, int64) (job.Job, error) {
	return f.view.Job, f.err
}

func (f *fakeJobDetail) View(context.Context, string, int64) (usecase.JobDetailView, error) {
	return f.view, f.err
}

func (f *fakeJobDetail) Original(j job.Job) usecase.DescriptionResult {
	return usecase.DescriptionResult{HTML: j.Description, Source: usecase.DescriptionOriginal}
}

type fakeEmailDraft struct {
	html string
	err  error
}

func (f *fakeEmailDraft) Draft(context.Context, job.Job) (string, error) {
	return f.html, f.err
}

type fakeProfile struct {
	load  usecase.ProfileLoad
	err   error
	saved []user.ProfileForm
}

func (f *fakeProfile) Load(context.Context, user.Identity) usecase.ProfileLoad {
	return f.load
}

func (f *fakeProfile) Save(_ context.Context, _ user.Identity, form user.ProfileForm) error {
	f.saved = append(f.saved, form)
	return f.err
}

type fakeNotifier struct {
	mu     sync.Mutex
	toasts map[string][]ws.Toast
}

func (f *fakeNotifier) NotifyUser(userID string, t ws.Toast) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.toasts == nil {
		f.toasts = map[string][]ws.Toast{}
	}
	f.toasts[userID] = append(f.toasts[userID], t)
}

type webDeps struct {
	list     *fakeJobList
	detail   *fakeJobDetail
	email    *fakeEmailDraft
	profile  *fakeProfile
	notifier *fakeNotifier
	registry *viewscope.Registry
}

func newWebDeps() *webDeps {
	return &webDeps{
		list: &fakeJobList{page: job.Page{Jobs: []job.Job{
			{ID: 1, Title: "Backend Engineer", Company: "Acme", Location: "Remote"},
			{ID: 2, Title: "Designer", Company: "Acme", Location: "NYC"},
		}, Pagination: job.Pagination{TotalPages: 3, TotalJobs: 20, HasNext: true}}},
		detail: &fakeJobDetail{view: usecase.JobDetailView{
			Job:         job.Job{ID: 1, Title: "Backend Engineer", Company: "Acme"},
			Description: usecase.DescriptionResult{HTML: "<b>Build APIs</b>", Source: usecase.DescriptionEnhanced},
		}},
		email:    &fakeEmailDraft{html: "<p>Dear Acme</p>"},
		profile:  &fakeProfile{load: usecase.ProfileLoad{Form: user.ProfileForm{Name: "Ada"}, Status: usecase.ProfileOK}},
		notifier: &fakeNotifier{},
		registry: viewscope.NewRegistry(discard),
	}
}

// withIdentity stands in for the auth middleware.
func withIdentity(id user.Identity) fiber.Handler {
	return func(c fiber.Ctx) error {
		if id.Authenticated() {
			c.Locals(middleware.CtxIdentityKey, id)
		}
		return c.Next()
	}
}

func newWebApp(t *testing.T, d *webDeps, id user.Identity) *fiber.App {
	t.Helper()
	renderer, err := view.NewRenderer(discard)
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	app := fiber.New()
	app.Use(middleware.NewErrorMiddleware(nil, discard).Middleware())
	app.Use(withIdentity(id))

	NewPageHandler(renderer, AuthPages{SignInURL: "https://accounts.example/sign-in", SessionCookie: "__session"}).RegisterRoutes(app)
	open := func(c fiber.Ctx) error { return c.Next() }
	NewJobsHandler(d.list, d.detail, d.email, renderer, discard).RegisterRoutes(app, open)
	NewProfileHandler(d.profile, renderer, d.notifier, discard).RegisterRoutes(app, open)
	NewViewHandler(d.list, d.detail, d.email, d.registry, discard).RegisterRoutes(app.Group("/api/v1/views"))
	return app
}

var ada = user.Identity{UserID: "user_1", SessionID: "sess_1", Email: "ada@example.com", FullName: "Ada", Token: "tok"}

func doRequest(t *testing.T, app *fiber.App, method, target string, body io.Reader, headers map[string]string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func TestJobsHandler_ListPageFilters(t *testing.T) {
	d := newWebDeps()
	app := newWebApp(t, d, ada)

	status, body := doRequest(t, app, "GET", "/jobs?page=2&q=designer", nil, nil)
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(body, `href="/jobs/2"`) || strings.Contains(body, `href="/jobs/1"`) {
		t.Fatalf("expected only the designer card")
	}
	if !strings.Contains(body, "Page 2 of 3") {
		t.Fatalf("expected pagination label")
	}
}

func TestJobsHandler_ListPageFailureRendersEmptyState(t *testing.T) {
	d := newWebDeps()
	d.list.err = usecase.ErrUpstream
	app := newWebApp(t, d, ada)

	status, body := doRequest(t, app, "GET", "/jobs", nil, nil)
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(body, "No jobs found matching your search criteria") || strings.Contains(body, "job-card\"") {
		t.Fatalf("expected empty listing")
	}
	if !strings.Contains(body, `id="job-failed"`) {
		t.Fatalf("expected the failed load to be marked")
	}

	d.list.err = nil
	_, body = doRequest(t, app, "GET", "/jobs", nil, nil)
	if strings.Contains(body, `id="job-failed"`) {
		t.Fatalf("expected no failure notice on a successful load")
	}
}

func TestJobsHandler_DetailPage(t *testing.T) {
	d := newWebDeps()
	app := newWebApp(t, d, ada)

	status, body := doRequest(t, app, "GET", "/jobs/1", nil, nil)
	if status != fiber.StatusOK || !strings.Contains(body, "<b>Build APIs</b>") {
		t.Fatalf("expected rendered description, got %d", status)
	}

	d.detail.err = usecase.ErrNotFound
	status, body = doRequest(t, app, "GET", "/jobs/1", nil, nil)
	if status != fiber.StatusNotFound || !strings.Contains(body, "Job not found") {
		t.Fatalf("expected not found page, got %d", status)
	}

	d.detail.err = usecase.ErrUpstream
	status, body = doRequest(t, app, "GET", "/jobs/1", nil, nil)
	if status != fiber.StatusBadGateway || !strings.Contains(body, "Failed to load job details") {
		t.Fatalf("expected load failure page, got %d", status)
	}

	status, _ = doRequest(t, app, "GET", "/jobs/abc", nil, nil)
	if status != fiber.StatusNotFound {
		t.Fatalf("expected 404 for bad id, got %d", status)
	}
}

func TestJobsHandler_EmailPage(t *testing.T) {
	d := newWebDeps()
	app := newWebApp(t, d, ada)

	status, body := doRequest(t, app, "POST", "/jobs/1/email", nil, nil)
	if status != fiber.StatusOK || !strings.Contains(body, "<p>Dear Acme</p>") {
		t.Fatalf("expected drafted email, got %d", status)
	}

	d.email.err = usecase.ErrUpstream
	status, body = doRequest(t, app, "POST", "/jobs/1/email", nil, nil)
	if status != fiber.StatusBadGateway || !strings.Contains(body, "Failed to generate email") {
		t.Fatalf("expected surfaced failure, got %d", status)
	}
}

type stubJobsBackend struct {
	job job.Job
}

func (s stubJobsBackend) ListJobs(context.Context, string, int, int) (job.Page, error) {
	return job.Page{}, nil
}

func (s stubJobsBackend) GetJob(context.Context, string, int64) (job.Job, error) {
	return s.job, nil
}

type recordingCompleter struct {
	mu      sync.Mutex
	prompts []string
}

func (r *recordingCompleter) Complete(_ context.Context, prompt string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts = append(r.prompts, prompt)
	return "<p>Dear Acme hiring team</p>", nil
}

func TestJobsHandler_EmailPageMakesOneCompletionCall(t *testing.T) {
	renderer, err := view.NewRenderer(discard)
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	backend := stubJobsBackend{job: job.Job{ID: 7, Title: "Backend Engineer", Company: "Acme", Description: "Short one."}}
	completer := &recordingCompleter{}

	app := fiber.New()
	app.Use(middleware.NewErrorMiddleware(nil, discard).Middleware())
	app.Use(withIdentity(ada))
	open := func(c fiber.Ctx) error { return c.Next() }
	NewJobsHandler(
		usecase.NewJobListUsecase(backend, discard),
		usecase.NewJobDetailUsecase(backend, completer, nil, discard),
		usecase.NewEmailDraftUsecase(completer, nil, discard),
		renderer, discard,
	).RegisterRoutes(app, open)

	status, body := doRequest(t, app, "POST", "/jobs/7/email", nil, nil)
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if len(completer.prompts) != 1 {
		t.Fatalf("expected a single completion call, got %d", len(completer.prompts))
	}
	if completer.prompts[0] != usecase.EmailPrompt("Backend Engineer", "Acme", "Short one.") {
		t.Fatalf("expected the email prompt, got %q", completer.prompts[0])
	}
	if !strings.Contains(body, "Dear Acme hiring team") || !strings.Contains(body, "Short one.") {
		t.Fatalf("expected draft beside the stored description")
	}
}

func TestProfileHandler_SaveOutcomes(t *testing.T) {
	d := newWebDeps()
	app := newWebApp(t, d, ada)
	form := url.Values{"name": {"Ada Lovelace"}, "email": {"ada@example.com"}, "skills": {"go"}}
	headers := map[string]string{"Content-Type": "application/x-www-form-urlencoded"}

	status, body := doRequest(t, app, "POST", "/profile", strings.NewReader(form.Encode()), headers)
	if status != fiber.StatusOK || !strings.Contains(body, "Profile updated") {
		t.Fatalf("expected success toast, got %d", status)
	}
	if len(d.profile.saved) != 1 || d.profile.saved[0].Skills != "go" {
		t.Fatalf("unexpected saved forms %+v", d.profile.saved)
	}
	if got := d.notifier.toasts["user_1"]; len(got) != 1 || got[0].Title != "Profile updated" {
		t.Fatalf("expected pushed toast, got %+v", got)
	}

	d.profile.err = &usecase.ValidationError{Fields: map[string]string{"name": "This field is required"}}
	status, body = doRequest(t, app, "POST", "/profile", strings.NewReader(form.Encode()), headers)
	if status != fiber.StatusUnprocessableEntity || !strings.Contains(body, "This field is required") {
		t.Fatalf("expected field error, got %d", status)
	}

	d.profile.err = errors.New("upstream")
	status, body = doRequest(t, app, "POST", "/profile", strings.NewReader(form.Encode()), headers)
	if status != fiber.StatusBadGateway || !strings.Contains(body, "Update failed") || !strings.Contains(body, `value="Ada Lovelace"`) {
		t.Fatalf("expected failure toast with submitted values, got %d", status)
	}
}

func TestProfileHandler_PageLoadFailureWarns(t *testing.T) {
	d := newWebDeps()
	d.profile.load = usecase.ProfileLoad{Form: user.ProfileForm{Name: "Ada", Email: "ada@example.com"}, Status: usecase.ProfileFailed}
	app := newWebApp(t, d, ada)

	status, body := doRequest(t, app, "GET", "/profile", nil, nil)
	if status != fiber.StatusOK || !strings.Contains(body, "could not load your saved profile") {
		t.Fatalf("expected warning, got %d", status)
	}
}

func TestPageHandler_LoginLinksProvider(t *testing.T) {
	app := newWebApp(t, newWebDeps(), user.Identity{})

	status, body := doRequest(t, app, "GET", "/login?redirect_url=%2Fjobs%2F3", nil, nil)
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(body, "https://accounts.example/sign-in?redirect_url=") || !strings.Contains(body, "%2Fjobs%2F3") {
		t.Fatalf("expected provider link carrying the redirect")
	}
}

func TestPageHandler_LoginRedirectsSignedIn(t *testing.T) {
	app := newWebApp(t, newWebDeps(), ada)

	req := httptest.NewRequest("GET", "/login?redirect_url=//evil.example", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusFound || resp.Header.Get("Location") != "/jobs" {
		t.Fatalf("expected redirect to /jobs, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestPageHandler_Logout(t *testing.T) {
	app := newWebApp(t, newWebDeps(), ada)

	resp, err := app.Test(httptest.NewRequest("GET", "/logout", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusFound || resp.Header.Get("Location") != "/" {
		t.Fatalf("expected redirect to /, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
	if !strings.Contains(resp.Header.Get("Set-Cookie"), "__session=") {
		t.Fatalf("expected session cookie cleared, got %q", resp.Header.Get("Set-Cookie"))
	}
}

func decodeEnvelope(t *testing.T, body string, data any) response.SemanticResponse {
	t.Helper()
	var env struct {
		Status  int             `json:"status"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		t.Fatalf("decode %q: %v", body, err)
	}
	if data != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return response.SemanticResponse{Status: env.Status, Message: env.Message}
}

func TestViewHandler_ListJobsEchoesGeneration(t *testing.T) {
	d := newWebDeps()
	app := newWebApp(t, d, ada)

	status, body := doRequest(t, app, "GET", "/api/v1/views/jobs?page=2&q=acme", nil, map[string]string{
		HeaderViewScope:      "page-1",
		HeaderViewGeneration: "4",
	})
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var out struct {
		Generation int64 `json:"generation"`
		Jobs       []struct {
			ID int64 `json:"id"`
		} `json:"jobs"`
		Pagination struct {
			CurrentPage int `json:"current_page"`
		} `json:"pagination"`
	}
	decodeEnvelope(t, body, &out)
	if out.Generation != 4 || len(out.Jobs) != 2 || out.Pagination.CurrentPage != 2 {
		t.Fatalf("unexpected payload %+v", out)
	}
}

func TestViewHandler_StaleGenerationIsSuperseded(t *testing.T) {
	d := newWebDeps()
	app := newWebApp(t, d, ada)
	headers := func(gen string) map[string]string {
		return map[string]string{HeaderViewScope: "page-1", HeaderViewGeneration: gen}
	}

	if status, _ := doRequest(t, app, "GET", "/api/v1/views/jobs?page=3", nil, headers("5")); status != fiber.StatusOK {
		t.Fatalf("expected 200 for current generation, got %d", status)
	}
	status, body := doRequest(t, app, "GET", "/api/v1/views/jobs?page=2", nil, headers("4"))
	if status != fiber.StatusConflict {
		t.Fatalf("expected 409 for stale generation, got %d", status)
	}
	if env := decodeEnvelope(t, body, nil); env.Message != "superseded" {
		t.Fatalf("expected superseded message, got %q", env.Message)
	}
}

func TestViewHandler_ResultOfSupersededTaskIsDiscarded(t *testing.T) {
	d := newWebDeps()
	app := newWebApp(t, d, ada)
	// A newer generation starts while this request is in flight.
	d.list.hook = func(ctx context.Context) {
		d.list.hook = nil
		task, err := d.registry.Begin(context.Background(), "page-1", 9)
		if err != nil {
			t.Errorf("begin newer: %v", err)
			return
		}
		task.Done()
	}

	status, _ := doRequest(t, app, "GET", "/api/v1/views/jobs", nil, map[string]string{
		HeaderViewScope:      "page-1",
		HeaderViewGeneration: "1",
	})
	if status != fiber.StatusConflict {
		t.Fatalf("expected 409 for superseded result, got %d", status)
	}
}

func TestViewHandler_EmailAndClose(t *testing.T) {
	d := newWebDeps()
	app := newWebApp(t, d, ada)
	headers := map[string]string{HeaderViewScope: "page-7", HeaderViewGeneration: "1"}

	status, body := doRequest(t, app, "POST", "/api/v1/views/jobs/1/email", nil, headers)
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	var out struct {
		Generation int64  `json:"generation"`
		HTML       string `json:"html"`
	}
	decodeEnvelope(t, body, &out)
	if out.HTML != "<p>Dear Acme</p>" || out.Generation != 1 {
		t.Fatalf("unexpected draft %+v", out)
	}

	if status, _ := doRequest(t, app, "DELETE", "/api/v1/views/page-7", nil, nil); status != fiber.StatusNoContent {
		t.Fatalf("expected 204, got %d", status)
	}
	if status, _ := doRequest(t, app, "POST", "/api/v1/views/jobs/1/email", nil, headers); status != fiber.StatusConflict {
		t.Fatalf("expected closed scope to refuse work, got %d", status)
	}
	headers[HeaderViewGeneration] = "2"
	if status, _ := doRequest(t, app, "POST", "/api/v1/views/jobs/1/email", nil, headers); status != fiber.StatusOK {
		t.Fatalf("expected a newer generation to reopen the scope, got %d", status)
	}
}

func TestViewHandler_EmailFailure(t *testing.T) {
	d := newWebDeps()
	d.email.err = usecase.ErrUpstream
	app := newWebApp(t, d, ada)

	status, _ := doRequest(t, app, "POST", "/api/v1/views/jobs/1/email", nil, nil)
	if status != fiber.StatusInternalServerError {
		t.Fatalf("expected 5xx envelope, got %d", status)
	}
}

func TestViewHandler_InvalidGeneration(t *testing.T) {
	app := newWebApp(t, newWebDeps(), ada)
	status, _ := doRequest(t, app, "GET", "/api/v1/views/jobs", nil, map[string]string{HeaderViewGeneration: "abc"})
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
}
