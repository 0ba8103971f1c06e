package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireAdmin lets through only users isAdmin accepts.  It must run after
// SessionAuth.
func RequireAdmin(isAdmin func(userID string) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := UserID(c)
			if id == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
			}
			if !isAdmin(id) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden - Admin access required"})
			}
			return next(c)
		}
	}
}

// DevOnly closes development endpoints in production with a 403 carrying
// msg.
func DevOnly(production bool, msg string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if production {
				return c.JSON(http.StatusForbidden, echo.Map{"error": msg})
			}
			return next(c)
		}
	}
}
