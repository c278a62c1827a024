package app

import (
	"context"
	"log"

	"jobflow/internal/config"
	"jobflow/internal/delivery/http/handler"
	"jobflow/internal/delivery/http/middleware"
	"jobflow/internal/delivery/http/routes"
	"jobflow/internal/pkg/jwt"
	"jobflow/internal/pkg/response"
	"jobflow/internal/repository"
	jobuc "jobflow/internal/usecase/job"
	useruc "jobflow/internal/usecase/user"

	"github.com/gofiber/fiber/v3"
)

// BuildAPI wires the backend REST service.
func BuildAPI(ctx context.Context, cfg config.Config, logger *log.Logger) (*fiber.App, func() error, error) {
	verifier, err := jwt.NewRSAService(cfg.Identity.PublicKeyPEM,
		jwt.WithIssuer(cfg.Identity.Issuer),
		jwt.WithAuthorizedParties(cfg.Identity.AuthorizedParties),
	)
	if err != nil {
		return nil, nil, err
	}

	c, err := NewContainer(ctx, cfg, cfg.App.AppName, logger)
	if err != nil {
		return nil, nil, err
	}

	jobs := repository.NewPostgresJobRepository(c.DB)
	users := repository.NewPostgresUserRepository(c.DB)

	auth := middleware.NewAuthMiddleware(verifier, middleware.AuthConfig{GuardEnabled: true}, logger)

	f := newFiber(cfg.App.AppName, response.Plain, logger)
	f.Use(auth.Identify())

	reg := &routes.APIRegistry{
		Auth:   auth,
		Health: handler.NewHealthHandler(map[string]handler.Pinger{"postgres": c.DB}),
		Jobs:   handler.NewCatalogHandler(jobuc.NewCatalogService(jobs, logger)),
		Users:  handler.NewAccountHandler(useruc.NewService(users, logger)),
	}
	reg.Register(f)

	return f, c.Close, nil
}
