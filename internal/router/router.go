package router // package router mounts the HTTP API on an Echo instance

import (
	"github.com/labstack/echo/v4"

	"github.com/designengineer/course-api/internal/config"
	"github.com/designengineer/course-api/internal/handler"
)

// Handlers groups every handler the router mounts.
type Handlers struct {
	Enrollment  *handler.EnrollmentHandler
	Temporary   *handler.TemporaryAccessHandler
	Certificate *handler.CertificateHandler
	Progress    *handler.ProgressHandler
	Webhook     *handler.WebhookHandler
	Admin       *handler.AdminHandler
	Dev         *handler.DevHandler
}

// Middleware holds the Redis-backed middlewares built in main.  Either may
// be a pass-through.
type Middleware struct {
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

// RegisterRoutes registers the unauthenticated infrastructure routes.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// Register mounts the whole API.
func Register(e *echo.Echo, cfg config.Config, h Handlers, mw Middleware) {
	RegisterRoutes(e)
	RegisterCourse(e, h, cfg.JWTSecret, mw)
	RegisterWebhooks(e, h.Webhook)
	RegisterAdmin(e, h.Admin, cfg)
	RegisterDev(e, h.Dev, cfg)
}

// RegisterWebhooks mounts the payment webhook.  It is authenticated by its
// HMAC signature, not a session.
func RegisterWebhooks(e *echo.Echo, w *handler.WebhookHandler) {
	e.POST("/api/webhooks/lemonsqueezy", w.LemonSqueezy)
}
