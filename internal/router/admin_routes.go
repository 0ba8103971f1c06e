package router

import (
	"github.com/labstack/echo/v4"

	"github.com/designengineer/course-api/internal/config"
	"github.com/designengineer/course-api/internal/handler"
	"github.com/designengineer/course-api/internal/middleware"
)

// RegisterAdmin registers code administration under /api/admin.  Callers
// need a session and must be listed in ADMIN_USER_IDS.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, cfg config.Config) {
	g := e.Group(
		"/api/admin",
		middleware.SessionAuth(cfg.JWTSecret),
		middleware.RequireAdmin(cfg.IsAdmin),
	)
	g.GET("/temporary-access", a.ListCodes)
	g.POST("/temporary-access", a.CreateCodes)
}

// RegisterDev registers the development endpoints.  In production they
// answer 403 before any other work is done.
func RegisterDev(e *echo.Echo, d *handler.DevHandler, cfg config.Config) {
	prod := cfg.IsProduction()
	e.GET("/api/course/test-access", d.TestAccess,
		middleware.DevOnly(prod, "Test access endpoint not available"))
	e.POST("/api/course/test-enrollment", d.TestEnrollment,
		middleware.DevOnly(prod, "Test enrollment not available"),
		middleware.SessionAuth(cfg.JWTSecret))
}
