package handler

import (
	"encoding/json"
	"math"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/designengineer/course-api/internal/middleware"
	"github.com/designengineer/course-api/internal/model"
	"github.com/designengineer/course-api/internal/service"
)

const maxBeaconBytes = 16 << 10

type ProgressHandler struct {
	Svc *service.Progress
	Log *zap.Logger
}

func NewProgressHandler(svc *service.Progress, log *zap.Logger) *ProgressHandler {
	return &ProgressHandler{Svc: svc, Log: orNop(log)}
}

type progressReq struct {
	LessonPath string             `json:"lessonPath"`
	Status     model.LessonStatus `json:"status"`
	TimeSpent  float64            `json:"timeSpent"`
}

func (h *ProgressHandler) Get(c echo.Context) error {
	userID := middleware.UserID(c)
	if userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	rows, stats, err := h.Svc.Get(ctx, userID)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"progress": rows, "stats": stats})
}

// Update records a progress beacon.  navigator.sendBeacon posts without a
// JSON content type, so the body is decoded as JSON regardless of headers.
func (h *ProgressHandler) Update(c echo.Context) error {
	userID := middleware.UserID(c)
	if userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
	}
	body, err := readBody(c, maxBeaconBytes)
	if err != nil {
		return bodyError(c, err)
	}
	var req progressReq
	if err := json.Unmarshal(body, &req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Svc.Update(ctx, service.UpdateInput{
		UserID:     userID,
		LessonPath: req.LessonPath,
		Status:     req.Status,
		TimeSpent:  int64(math.Round(req.TimeSpent)),
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"progress": p})
}
