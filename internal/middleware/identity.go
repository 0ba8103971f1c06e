package middleware

import "github.com/labstack/echo/v4"

// Context keys set by SessionAuth.
const (
	ctxUserID = "user_id"
	ctxEmail  = "email"
	ctxName   = "name"
)

func ctxString(c echo.Context, key string) string {
	if s, ok := c.Get(key).(string); ok {
		return s
	}
	return ""
}

// UserID returns the authenticated user id, or "" for anonymous requests.
func UserID(c echo.Context) string { return ctxString(c, ctxUserID) }

// Email returns the session email, if the token carried one.
func Email(c echo.Context) string { return ctxString(c, ctxEmail) }

// Name returns the session display name, if the token carried one.
func Name(c echo.Context) string { return ctxString(c, ctxName) }

// currentUserID is UserID with "anon" for rate-limit keys.
func currentUserID(c echo.Context) string {
	if id := UserID(c); id != "" {
		return id
	}
	return "anon"
}
