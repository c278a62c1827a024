package middleware

import (
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

const (
	CtxRequestIDKey = "request_id"
	HeaderRequestID = "X-Request-ID"
)

type AccessLogMiddleware struct {
	logger *log.Logger
	// quiet lists path prefixes whose successful requests are not logged.
	quiet []string
}

func NewAccessLogMiddleware(logger *log.Logger, quiet ...string) *AccessLogMiddleware {
	if logger == nil {
		logger = log.Default()
	}
	return &AccessLogMiddleware{logger: logger, quiet: quiet}
}

func (m *AccessLogMiddleware) Middleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()

		rid := c.Get(HeaderRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(HeaderRequestID, rid)
		c.Locals(CtxRequestIDKey, rid)

		err := c.Next()

		status := c.Response().StatusCode()
		if status < fiber.StatusBadRequest && m.isQuiet(c.Path()) {
			return err
		}

		uid := ""
		if id, ok := IdentityFrom(c); ok {
			uid = id.UserID
		}
		scope := c.Get("X-View-Scope")

		m.logger.Printf(
			"HTTP access | rid=%s uid=%s ip=%s method=%s path=%s status=%d latency=%s resp_bytes=%d scope=%s ua=%q",
			rid, uid, c.IP(), c.Method(), c.OriginalURL(), status, time.Since(start).Round(time.Microsecond),
			len(c.Response().Body()), scope, c.Get(fiber.HeaderUserAgent),
		)
		return err
	}
}

// RequestID returns the id assigned by the access log middleware.
func RequestID(c fiber.Ctx) string {
	if rid, ok := c.Locals(CtxRequestIDKey).(string); ok {
		return rid
	}
	return c.Get(HeaderRequestID)
}

func (m *AccessLogMiddleware) isQuiet(path string) bool {
	for _, p := range m.quiet {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
