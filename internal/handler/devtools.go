package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/designengineer/course-api/internal/config"
	"github.com/designengineer/course-api/internal/middleware"
	"github.com/designengineer/course-api/internal/model"
	"github.com/designengineer/course-api/internal/service"
)

// DevHandler serves the development-only endpoints.  Routes are guarded by
// middleware.DevOnly.
type DevHandler struct {
	Override *config.TestAccess
	Ents     *service.Entitlements
	Log      *zap.Logger
}

func NewDevHandler(override *config.TestAccess, ents *service.Entitlements, log *zap.Logger) *DevHandler {
	return &DevHandler{Override: override, Ents: ents, Log: orNop(log)}
}

type testEnrollmentReq struct {
	AccessLevel string `json:"accessLevel"`
}

// parseLevel normalizes an optional level from a request body.  Empty
// stays empty so the service default applies.
func parseLevel(raw string) (model.AccessLevel, bool) {
	if raw == "" {
		return "", true
	}
	return model.NormalizeAccessLevel(raw)
}

// TestAccess reports the configured override.
func (h *DevHandler) TestAccess(c echo.Context) error {
	resp := echo.Map{"override": nil, "effectiveLevel": nil, "bypassUserIds": []string{}}
	if h.Override != nil {
		resp["override"] = h.Override.Level
		resp["effectiveLevel"] = h.Override.Level
		if h.Override.BypassUserIDs != nil {
			resp["bypassUserIds"] = h.Override.BypassUserIDs
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// TestEnrollment writes a real enrollment for the caller.
func (h *DevHandler) TestEnrollment(c echo.Context) error {
	var req testEnrollmentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
	}
	level, ok := parseLevel(req.AccessLevel)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid access level"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	e, created, err := h.Ents.CreateTestEnrollment(ctx, middleware.UserID(c), middleware.Email(c), level)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if !created {
		return c.JSON(http.StatusOK, echo.Map{"message": "Enrollment already exists", "enrollment": e})
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "Test enrollment created", "enrollment": e})
}
