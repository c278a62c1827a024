package middleware

import (
	"errors"
	"log"
	"net/url"
	"strings"

	"jobflow/internal/domain/user"
	"jobflow/internal/pkg/jwt"

	"github.com/gofiber/fiber/v3"
)

const (
	CtxUserIDKey   = "user_id"
	CtxEmailKey    = "email"
	CtxIdentityKey = "identity"
)

type AuthConfig struct {
	// SessionCookie is the cookie the identity provider stores the session
	// token in. The Authorization header wins when both are present.
	SessionCookie string
	// GuardEnabled turns the Require* handlers on. When false they let
	// anonymous requests through.
	GuardEnabled bool
	SignInPath   string
	// OnAuthenticated runs for every request carrying a valid session. It
	// must not block.
	OnAuthenticated func(user.Identity)
}

type AuthMiddleware struct {
	jwt    jwt.Service
	cfg    AuthConfig
	logger *log.Logger
}

func NewAuthMiddleware(jwtSvc jwt.Service, cfg AuthConfig, logger *log.Logger) *AuthMiddleware {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.SignInPath == "" {
		cfg.SignInPath = "/login"
	}
	if !cfg.GuardEnabled {
		logger.Printf("[Auth] route guard disabled, protected views are reachable without a session")
	}
	return &AuthMiddleware{jwt: jwtSvc, cfg: cfg, logger: logger}
}

// Identify resolves the session token, if any, into an identity stored in
// the request locals. It never rejects a request.
func (m *AuthMiddleware) Identify() fiber.Handler {
	return func(c fiber.Ctx) error {
		token, ok := m.sessionToken(c)
		if !ok || m.jwt == nil {
			return c.Next()
		}

		claims, err := m.jwt.ValidateToken(token)
		if err != nil {
			if !errors.Is(err, jwt.ErrTokenExpired) {
				m.logger.Printf("[Auth] rejected session token | path=%s err=%v", c.Path(), err)
			}
			return c.Next()
		}

		id := user.Identity{
			UserID:    claims.Subject,
			SessionID: claims.SessionID,
			Email:     claims.Email,
			FullName:  claims.FullName,
			Token:     token,
		}
		c.Locals(CtxIdentityKey, id)
		c.Locals(CtxUserIDKey, id.UserID)
		c.Locals(CtxEmailKey, id.Email)

		if m.cfg.OnAuthenticated != nil {
			m.cfg.OnAuthenticated(id)
		}
		return c.Next()
	}
}

// RequirePage sends anonymous visitors to the sign-in view, remembering
// where they were headed.
func (m *AuthMiddleware) RequirePage() fiber.Handler {
	return func(c fiber.Ctx) error {
		if !m.cfg.GuardEnabled {
			return c.Next()
		}
		if _, ok := IdentityFrom(c); ok {
			return c.Next()
		}
		target := m.cfg.SignInPath + "?redirect_url=" + url.QueryEscape(c.OriginalURL())
		return c.Redirect().Status(fiber.StatusFound).To(target)
	}
}

// RequireAPI rejects anonymous requests with 401.
func (m *AuthMiddleware) RequireAPI() fiber.Handler {
	return func(c fiber.Ctx) error {
		if !m.cfg.GuardEnabled {
			return c.Next()
		}
		if _, ok := IdentityFrom(c); ok {
			return c.Next()
		}
		return NewAppError(fiber.StatusUnauthorized, "Unauthorized", nil, nil)
	}
}

func (m *AuthMiddleware) sessionToken(c fiber.Ctx) (string, bool) {
	if token, ok := bearerTokenFromHeader(c.Get("Authorization")); ok {
		return token, true
	}
	if m.cfg.SessionCookie == "" {
		return "", false
	}
	token := strings.TrimSpace(c.Cookies(m.cfg.SessionCookie))
	return token, token != ""
}

// IdentityFrom returns the identity Identify stored for this request.
func IdentityFrom(c fiber.Ctx) (user.Identity, bool) {
	id, ok := c.Locals(CtxIdentityKey).(user.Identity)
	if !ok || !id.Authenticated() {
		return user.Identity{}, false
	}
	return id, true
}

func bearerTokenFromHeader(authHeader string) (string, bool) {
	authHeader = strings.TrimSpace(authHeader)
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}

	return token, true
}
