package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/designengineer/course-api/internal/service"
)

// AdminHandler administers temporary access codes.
type AdminHandler struct {
	Temp *service.TemporaryAccess
	Log  *zap.Logger
}

func NewAdminHandler(temp *service.TemporaryAccess, log *zap.Logger) *AdminHandler {
	return &AdminHandler{Temp: temp, Log: orNop(log)}
}

type createCodesReq struct {
	Count          *int   `json:"count" validate:"omitempty,min=1,max=50"`
	ExpiresInDays  *int   `json:"expiresInDays" validate:"omitempty,min=1,max=365"`
	AccessLevel    string `json:"accessLevel"`
	MaxRedemptions *int   `json:"maxRedemptions" validate:"omitempty,min=1"`
}

// ListCodes lists every code, or runs the expiry sweep with ?action=cleanup.
func (h *AdminHandler) ListCodes(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if c.QueryParam("action") == "cleanup" {
		res, err := h.Temp.Cleanup(ctx)
		if err != nil {
			return respondError(c, h.Log, err)
		}
		return c.JSON(http.StatusOK, echo.Map{
			"success":            true,
			"message":            "Cleanup completed",
			"codesCleaned":       res.CodesCleaned,
			"enrollmentsCleaned": res.EnrollmentsCleaned,
		})
	}
	codes, err := h.Temp.List(ctx)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "codes": codes, "total": len(codes)})
}

// CreateCodes generates codes.  count defaults to 1 and expiresInDays to 7.
func (h *AdminHandler) CreateCodes(c echo.Context) error {
	var req createCodesReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	level, ok := parseLevel(req.AccessLevel)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid access level"})
	}
	in := service.CreateCodesInput{
		Count:          1,
		ExpiresInDays:  7,
		AccessLevel:    level,
		MaxRedemptions: req.MaxRedemptions,
	}
	if req.Count != nil {
		in.Count = *req.Count
	}
	if req.ExpiresInDays != nil {
		in.ExpiresInDays = *req.ExpiresInDays
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	codes, err := h.Temp.CreateCodes(ctx, in)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": fmt.Sprintf("Created %d temporary access code(s)", len(codes)),
		"codes":   codes,
	})
}
