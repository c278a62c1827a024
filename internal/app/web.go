package app

import (
	"log"
	"strings"

	"jobflow/internal/config"
	"jobflow/internal/delivery/http/handler"
	"jobflow/internal/delivery/http/middleware"
	"jobflow/internal/delivery/http/routes"
	"jobflow/internal/infrastructure/backend"
	"jobflow/internal/infrastructure/cache"
	"jobflow/internal/infrastructure/completion"
	"jobflow/internal/pkg/jwt"
	"jobflow/internal/pkg/response"
	"jobflow/internal/sanitize"
	"jobflow/internal/usecase"
	"jobflow/internal/view"
	"jobflow/internal/viewscope"
	"jobflow/internal/ws"

	"github.com/gofiber/fiber/v3"
)

// BuildWeb wires the server-rendered frontend.
func BuildWeb(cfg config.Config, logger *log.Logger) (*fiber.App, func() error, error) {
	var verifier jwt.Service
	if strings.TrimSpace(cfg.Identity.PublicKeyPEM) != "" {
		svc, err := jwt.NewRSAService(cfg.Identity.PublicKeyPEM,
			jwt.WithIssuer(cfg.Identity.Issuer),
			jwt.WithAuthorizedParties(cfg.Identity.AuthorizedParties),
		)
		if err != nil {
			return nil, nil, err
		}
		verifier = svc
	}

	renderer, err := view.NewRenderer(logger)
	if err != nil {
		return nil, nil, err
	}

	redis := cache.NewRedis(cfg.Redis, logger)
	api := backend.NewService(backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, logger))

	var completer usecase.Completer
	if c := completion.NewClient(cfg.Completion, logger); c != nil {
		completer = c
	} else {
		logger.Printf("[Completion] no API key configured, descriptions and email drafts are disabled")
	}
	clean := sanitize.NewPolicy(cfg.Completion.SanitizeAI).HTML

	list := usecase.NewJobListUsecase(api, logger)
	detail := usecase.NewJobDetailUsecase(api, completer, clean, logger)
	email := usecase.NewEmailDraftUsecase(completer, clean, logger)
	profile := usecase.NewProfileUsecase(api, logger)
	userSync := usecase.NewUserSyncUsecase(api, redis, cfg.Identity.UserSyncMarkerTTL, logger)

	hub := ws.NewHub(logger)
	go hub.Run()

	auth := middleware.NewAuthMiddleware(verifier, middleware.AuthConfig{
		SessionCookie:   cfg.Identity.SessionCookie,
		GuardEnabled:    cfg.Identity.GuardEnabled,
		OnAuthenticated: userSync.EnsureInBackground,
	}, logger)

	registry := viewscope.NewRegistry(logger, viewscope.WithStore(redis))

	f := newFiber(cfg.App.AppName, webErrorRenderer(renderer), logger)
	f.Use(auth.Identify())

	reg := &routes.WebRegistry{
		Auth:   auth,
		Health: handler.NewHealthHandler(map[string]handler.Pinger{"redis": redis}),
		Pages: handler.NewPageHandler(renderer, handler.AuthPages{
			SignInURL:       cfg.Identity.SignInURL,
			SignUpURL:       cfg.Identity.SignUpURL,
			AfterSignOutURL: cfg.Identity.AfterSignOutURL,
			SessionCookie:   cfg.Identity.SessionCookie,
		}),
		Jobs:    handler.NewJobsHandler(list, detail, email, renderer, logger),
		Profile: handler.NewProfileHandler(profile, renderer, hub, logger),
		Views:   handler.NewViewHandler(list, detail, email, registry, logger),
		WS:      ws.NewHandler(hub, "", logger),
	}
	reg.Register(f)

	cleanup := func() error {
		hub.Close()
		return redis.Close()
	}
	return f, cleanup, nil
}

// webErrorRenderer answers JSON on the view API and the socket endpoint and
// renders the error page everywhere else.
func webErrorRenderer(r *view.Renderer) middleware.ErrorRenderer {
	return func(c fiber.Ctx, status int, message string, data interface{}) error {
		if strings.HasPrefix(c.Path(), "/api/") || c.Path() == "/ws" {
			return response.Error(c, status, message, data)
		}
		return r.RenderError(c, status, message, data)
	}
}
