package routes

import (
	"jobflow/internal/delivery/http/handler"
	"jobflow/internal/delivery/http/middleware"
	"jobflow/internal/ws"

	"github.com/gofiber/fiber/v3"
)

// WebRegistry wires the frontend's pages, view API and notification socket.
type WebRegistry struct {
	Auth    *middleware.AuthMiddleware
	Health  *handler.HealthHandler
	Pages   *handler.PageHandler
	Jobs    *handler.JobsHandler
	Profile *handler.ProfileHandler
	Views   *handler.ViewHandler
	WS      *ws.Handler
}

func (r *WebRegistry) Register(app *fiber.App) {
	if app == nil {
		return
	}

	r.Health.RegisterRoutes(app)
	r.Pages.RegisterRoutes(app)

	r.Jobs.RegisterRoutes(app, r.Auth.RequirePage())
	r.Profile.RegisterRoutes(app, r.Auth.RequirePage())

	views := app.Group("/api/v1/views", r.Auth.RequireAPI())
	r.Views.RegisterRoutes(views)

	app.Get("/ws", r.Auth.RequireAPI(), r.WS.HandleNotifications)

	app.Use(r.Pages.NotFound)
}

// APIRegistry wires the backend REST API.
type APIRegistry struct {
	Auth   *middleware.AuthMiddleware
	Health *handler.HealthHandler
	Jobs   *handler.CatalogHandler
	Users  *handler.AccountHandler
}

func (r *APIRegistry) Register(app *fiber.App) {
	if app == nil {
		return
	}

	r.Health.RegisterRoutes(app)

	api := app.Group("/api")
	r.Jobs.RegisterRoutes(api)
	r.Users.RegisterRoutes(api, r.Auth.RequireAPI())

	app.Use(func(c fiber.Ctx) error {
		return middleware.NewAppError(fiber.StatusNotFound, "Not found", nil, nil)
	})
}
