package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/designengineer/course-api/internal/service"
)

// requestTimeout bounds the storage work done for one request.
const requestTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

var statusByKind = []struct {
	kind   error
	status int
	text   string
}{
	{service.ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
	{service.ErrInvalidInput, http.StatusBadRequest, "Invalid request"},
	{service.ErrNotEligible, http.StatusBadRequest, "Not eligible"},
	{service.ErrForbidden, http.StatusForbidden, "Forbidden"},
	{service.ErrNotFound, http.StatusNotFound, "Not found"},
	{service.ErrConflict, http.StatusConflict, "Conflict"},
}

// respondError maps a service error onto a status and a short
// {"error": ...} body.  Anything unrecognized is logged and becomes a 500
// with a generic message.
func respondError(c echo.Context, log *zap.Logger, err error) error {
	for _, m := range statusByKind {
		if !errors.Is(err, m.kind) {
			continue
		}
		msg := m.text
		var se *service.Error
		if errors.As(err, &se) && se.Msg != "" {
			msg = se.Msg
		}
		return c.JSON(m.status, echo.Map{"error": msg})
	}
	log.Error("request failed",
		zap.String("method", c.Request().Method),
		zap.String("path", c.Path()),
		zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error"})
}

func orNop(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}
