package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/designengineer/course-api/internal/middleware"
	"github.com/designengineer/course-api/internal/model"
	"github.com/designengineer/course-api/internal/service"
)

type CertificateHandler struct {
	Svc *service.Certificates
	Log *zap.Logger
}

func NewCertificateHandler(svc *service.Certificates, log *zap.Logger) *CertificateHandler {
	return &CertificateHandler{Svc: svc, Log: orNop(log)}
}

type issueReq struct {
	Platform model.Platform `json:"platform" validate:"required,oneof=web ios android"`
	Track    model.Track    `json:"track" validate:"omitempty,oneof=design engineering convergence"`
}

// Overview returns eligibility for ?platform= (and ?track=), or the whole
// certificate dashboard when no platform is given.
func (h *CertificateHandler) Overview(c echo.Context) error {
	userID := middleware.UserID(c)
	if userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	platform := model.Platform(c.QueryParam("platform"))
	track := model.Track(c.QueryParam("track"))
	switch {
	case platform != "" && track != "":
		el, err := h.Svc.TrackEligibility(ctx, userID, platform, track)
		if err != nil {
			return respondError(c, h.Log, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"eligibility": el})
	case platform != "":
		el, err := h.Svc.Eligibility(ctx, userID, platform)
		if err != nil {
			return respondError(c, h.Log, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"eligibility": el})
	}
	ov, err := h.Svc.Overview(ctx, userID)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, ov)
}

// Issue creates a platform certificate, or a track certificate when the
// body names a track.  Name and email come from the session.
func (h *CertificateHandler) Issue(c echo.Context) error {
	userID := middleware.UserID(c)
	if userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
	}
	var req issueReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	in := service.IssueInput{
		UserID:   userID,
		Name:     middleware.Name(c),
		Email:    middleware.Email(c),
		Platform: req.Platform,
	}
	var (
		cert model.Certificate
		err  error
	)
	if req.Track != "" {
		cert, err = h.Svc.IssueTrack(ctx, in, req.Track)
	} else {
		cert, err = h.Svc.Issue(ctx, in)
	}
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"certificate": cert})
}

// GetBySlug is the public verification page lookup.
func (h *CertificateHandler) GetBySlug(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	cert, err := h.Svc.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"certificate": cert})
}
