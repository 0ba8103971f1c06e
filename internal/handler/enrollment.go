package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/designengineer/course-api/internal/middleware"
	"github.com/designengineer/course-api/internal/service"
)

// EnrollmentHandler answers "what can this user open".
type EnrollmentHandler struct {
	Ents *service.Entitlements
	Log  *zap.Logger
}

func NewEnrollmentHandler(ents *service.Entitlements, log *zap.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{Ents: ents, Log: orNop(log)}
}

// PreviewHeader carries the preview token on lesson checks.
const PreviewHeader = "X-Preview-Token"

type lessonReq struct {
	LessonPath string `json:"lessonPath" validate:"required"`
}

// Get returns the governing enrollment and effective access level.
func (h *EnrollmentHandler) Get(c echo.Context) error {
	userID := middleware.UserID(c)
	if userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	acc, err := h.Ents.Resolve(ctx, userID)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	resp := echo.Map{"enrollment": acc.Enrollment, "accessLevel": acc.Level}
	if acc.Override {
		resp["testMode"] = true
	}
	return c.JSON(http.StatusOK, resp)
}

// CheckLesson is the lesson gate.  Anonymous callers are checked against
// the free tier unless they send a valid preview token.
func (h *EnrollmentHandler) CheckLesson(c echo.Context) error {
	var req lessonReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	d, err := h.Ents.CheckLesson(ctx, middleware.UserID(c), req.LessonPath, c.Request().Header.Get(PreviewHeader))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, d)
}

type previewReq struct {
	Token string `json:"token" validate:"required"`
}

// ValidatePreview lets a reviewer confirm a preview token before the
// client stores it.
func (h *EnrollmentHandler) ValidatePreview(c echo.Context) error {
	var req previewReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	if !h.Ents.ValidPreview(req.Token) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid preview token"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Preview access granted"})
}

// PreviewStatus reports whether the request's preview header is valid.
func (h *EnrollmentHandler) PreviewStatus(c echo.Context) error {
	ok := h.Ents.ValidPreview(c.Request().Header.Get(PreviewHeader))
	return c.JSON(http.StatusOK, echo.Map{"hasPreviewAccess": ok})
}
