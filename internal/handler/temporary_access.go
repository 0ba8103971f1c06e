package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/designengineer/course-api/internal/middleware"
	"github.com/designengineer/course-api/internal/service"
)

// TemporaryAccessHandler serves code checks and redemptions.
type TemporaryAccessHandler struct {
	Svc *service.TemporaryAccess
	Log *zap.Logger
}

func NewTemporaryAccessHandler(svc *service.TemporaryAccess, log *zap.Logger) *TemporaryAccessHandler {
	return &TemporaryAccessHandler{Svc: svc, Log: orNop(log)}
}

var reasonText = map[string]string{
	service.ReasonNotFound:  "Code not found",
	service.ReasonExpired:   "Code expired",
	service.ReasonExhausted: "Code already used",
}

type redeemReq struct {
	Code string `json:"code" validate:"required"`
}

// Check reports whether a code can be redeemed.  Invalid codes are a
// normal 200 answer carrying the reason.
func (h *TemporaryAccessHandler) Check(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	v, err := h.Svc.Validate(ctx, c.Param("code"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, v)
}

// Redeem grants the caller a temporary enrollment.  A fresh grant is 201,
// repeating an earlier redemption is 200 and an unusable code is 400.
func (h *TemporaryAccessHandler) Redeem(c echo.Context) error {
	var req redeemReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	r, err := h.Svc.Redeem(ctx, req.Code, middleware.UserID(c), middleware.Email(c))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if !r.Success {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false,
			"error":   reasonText[r.Reason],
			"reason":  r.Reason,
		})
	}
	status := http.StatusOK
	if r.Created {
		status = http.StatusCreated
	}
	return c.JSON(status, r)
}
