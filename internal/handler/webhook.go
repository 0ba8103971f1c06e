package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/designengineer/course-api/internal/lemonsqueezy"
	"github.com/designengineer/course-api/internal/service"
)

const maxWebhookBytes = 1 << 20

// WebhookHandler receives Lemon Squeezy order events.
type WebhookHandler struct {
	Secret string
	Svc    *service.Fulfillment
	Log    *zap.Logger
}

func NewWebhookHandler(secret string, svc *service.Fulfillment, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{Secret: secret, Svc: svc, Log: orNop(log)}
}

// LemonSqueezy verifies the signature over the raw body before decoding it.
func (h *WebhookHandler) LemonSqueezy(c echo.Context) error {
	payload, err := readBody(c, maxWebhookBytes)
	if err != nil {
		return bodyError(c, err)
	}
	sig := c.Request().Header.Get(lemonsqueezy.SignatureHeader)
	if sig == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Missing signature"})
	}
	if h.Secret == "" || !lemonsqueezy.VerifySignature(h.Secret, payload, sig) {
		h.Log.Warn("webhook signature rejected", zap.String("ip", c.RealIP()))
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid signature"})
	}
	ev, err := lemonsqueezy.Parse(payload)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid payload"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Svc.Handle(ctx, ev)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, res)
}
