package router

import (
	"github.com/labstack/echo/v4"

	"github.com/designengineer/course-api/internal/middleware"
)

// RegisterCourse registers the learner-facing endpoints under /api/course.
// Code check and redemption sit behind the rate limiter; public
// certificate lookups go through the response cache.
func RegisterCourse(e *echo.Echo, h Handlers, jwtSecret string, mw Middleware) {
	session := middleware.SessionAuth(jwtSecret)
	g := e.Group("/api/course")

	g.GET("/enrollment", h.Enrollment.Get, session)
	g.POST("/enrollment", h.Enrollment.CheckLesson, middleware.OptionalSession(jwtSecret))
	g.GET("/preview", h.Enrollment.PreviewStatus)
	g.POST("/preview", h.Enrollment.ValidatePreview, orPass(mw.RateLimit))

	g.GET("/temporary-access/check/:code", h.Temporary.Check, orPass(mw.RateLimit))
	g.POST("/temporary-access/redeem", h.Temporary.Redeem, session, orPass(mw.RateLimit))

	g.GET("/certificate", h.Certificate.Overview, session)
	g.POST("/certificate", h.Certificate.Issue, session)
	g.GET("/certificate/:slug", h.Certificate.GetBySlug, orPass(mw.Cache))

	g.GET("/progress", h.Progress.Get, session)
	g.POST("/progress", h.Progress.Update, session)
}

func orPass(m echo.MiddlewareFunc) echo.MiddlewareFunc {
	if m == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return m
}
