package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/designengineer/course-api/internal/config"
	"github.com/designengineer/course-api/internal/handler"
	"github.com/designengineer/course-api/internal/lemonsqueezy"
	"github.com/designengineer/course-api/internal/model"
	"github.com/designengineer/course-api/internal/repository/memory"
	"github.com/designengineer/course-api/internal/service"
	"github.com/designengineer/course-api/internal/utils"
)

const (
	jwtSecret     = "router-test-secret"
	webhookSecret = "whsec_test"
)

type app struct {
	e     *echo.Echo
	store *memory.Store
}

func newApp(t *testing.T, cfg config.Config) *app {
	t.Helper()
	cfg.JWTSecret = jwtSecret
	cfg.WebhookSecret = webhookSecret
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	st := memory.New()
	ents := service.NewEntitlements(st.Enrollments, nil, nil, cfg.TestAccess, nil)
	ents.PreviewToken = cfg.PreviewToken
	temp := service.NewTemporaryAccess(st.Codes, ents, 7, nil)
	certs := service.NewCertificates(st.Certificates, st.Progress, st.Lessons, nil)
	prog := service.NewProgress(st.Progress, st.Lessons, ents, nil)
	ful := service.NewFulfillment(ents, lemonsqueezy.NewCatalog(map[model.AccessLevel]string{
		model.AccessDesignWeb: "101",
	}), nil)

	e := echo.New()
	e.Validator = handler.NewValidator()
	Register(e, cfg, Handlers{
		Enrollment:  handler.NewEnrollmentHandler(ents, nil),
		Temporary:   handler.NewTemporaryAccessHandler(temp, nil),
		Certificate: handler.NewCertificateHandler(certs, nil),
		Progress:    handler.NewProgressHandler(prog, nil),
		Webhook:     handler.NewWebhookHandler(cfg.WebhookSecret, ful, nil),
		Admin:       handler.NewAdminHandler(temp, nil),
		Dev:         handler.NewDevHandler(cfg.TestAccess, ents, nil),
	}, Middleware{})
	return &app{e: e, store: st}
}

func (a *app) do(t *testing.T, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if userID != "" {
		tok, err := utils.NewSessionToken(jwtSecret, userID, userID+"@studio.dev", "Ada Lovelace", time.Hour)
		require.NoError(t, err)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (a *app) enroll(t *testing.T, userID string, level model.AccessLevel) {
	t.Helper()
	e := model.Enrollment{
		Slug:        "enrollment-" + userID,
		UserID:      userID,
		ProductID:   string(level),
		AccessLevel: level,
		PurchasedAt: time.Now().UTC(),
		Status:      model.EnrollmentActive,
	}
	require.NoError(t, a.store.Enrollments.Create(context.Background(), &e))
}

func (a *app) code(t *testing.T, code string, level model.AccessLevel, expires time.Duration) {
	t.Helper()
	c := model.TemporaryAccessCode{Code: code, AccessLevel: level, ExpiresAt: time.Now().UTC().Add(expires)}
	require.NoError(t, a.store.Codes.Create(context.Background(), &c))
}

func TestHealth(t *testing.T) {
	a := newApp(t, config.Config{})
	rec := a.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestEnrollment(t *testing.T) {
	a := newApp(t, config.Config{})

	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, "/api/course/enrollment", "", "").Code)

	rec := a.do(t, http.MethodGet, "/api/course/enrollment", "user_1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"enrollment":null,"accessLevel":"free"}`, rec.Body.String())

	a.enroll(t, "user_1", model.AccessDesignWeb)
	rec = a.do(t, http.MethodGet, "/api/course/enrollment", "user_1", "")
	body := decode(t, rec)
	assert.Equal(t, "design_web", body["accessLevel"])
	assert.Equal(t, "user_1", body["enrollment"].(map[string]any)["user_id"])
}

func TestLessonGate(t *testing.T) {
	a := newApp(t, config.Config{})
	a.enroll(t, "user_1", model.AccessDesignWeb)

	rec := a.do(t, http.MethodPost, "/api/course/enrollment", "user_1", `{"lessonPath":"design-track/web/intro"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"hasAccess":true,"accessLevel":"design_web","requiresUpgrade":false}`, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/api/course/enrollment", "user_1", `{"lessonPath":"engineering-track/ios/intro"}`)
	assert.JSONEq(t, `{"hasAccess":false,"accessLevel":"design_web","requiresUpgrade":true,"requiredAccess":"engineering_ios"}`, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/api/course/enrollment", "", `{"lessonPath":"00-introduction/01-welcome"}`)
	assert.JSONEq(t, `{"hasAccess":true,"accessLevel":"free","requiresUpgrade":false}`, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/api/course/enrollment", "user_1", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Missing required fields"}`, rec.Body.String())
}

func TestPreviewAccess(t *testing.T) {
	a := newApp(t, config.Config{PreviewToken: "friends-of-dxe"})
	check := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/course/enrollment", strings.NewReader(`{"lessonPath":"convergence/ios/02-x/01-y"}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		if token != "" {
			req.Header.Set(handler.PreviewHeader, token)
		}
		rec := httptest.NewRecorder()
		a.e.ServeHTTP(rec, req)
		return rec
	}

	rec := check("friends-of-dxe")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"hasAccess":true,"accessLevel":"full","requiresUpgrade":false,"preview":true}`, rec.Body.String())

	rec = check("wrong")
	assert.JSONEq(t, `{"hasAccess":false,"accessLevel":"free","requiresUpgrade":true,"requiredAccess":"full"}`, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/api/course/preview", "", `{"token":"friends-of-dxe"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = a.do(t, http.MethodPost, "/api/course/preview", "", `{"token":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid preview token"}`, rec.Body.String())

	rec = a.do(t, http.MethodGet, "/api/course/preview", "", "")
	assert.JSONEq(t, `{"hasPreviewAccess":false}`, rec.Body.String())
}

func TestTemporaryAccess(t *testing.T) {
	a := newApp(t, config.Config{})
	a.code(t, "ABC123", model.AccessDesignFull, 72*time.Hour)
	a.code(t, "SECOND", model.AccessFull, 72*time.Hour)
	a.code(t, "OLD123", model.AccessFull, -time.Hour)

	rec := a.do(t, http.MethodGet, "/api/course/temporary-access/check/abc123", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["isValid"])
	assert.Equal(t, "design_full", body["accessLevel"])

	rec = a.do(t, http.MethodGet, "/api/course/temporary-access/check/NOPE99", "", "")
	assert.JSONEq(t, `{"isValid":false,"reason":"not_found"}`, rec.Body.String())
	rec = a.do(t, http.MethodGet, "/api/course/temporary-access/check/OLD123", "", "")
	assert.JSONEq(t, `{"isValid":false,"reason":"expired"}`, rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized,
		a.do(t, http.MethodPost, "/api/course/temporary-access/redeem", "", `{"code":"ABC123"}`).Code)

	rec = a.do(t, http.MethodPost, "/api/course/temporary-access/redeem", "user_1", `{"code":"ABC123"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body = decode(t, rec)
	assert.Equal(t, true, body["success"])
	enrollment := body["enrollment"].(map[string]any)
	assert.Equal(t, "design_full", enrollment["access_level"])
	assert.Equal(t, true, enrollment["is_temporary"])

	rec = a.do(t, http.MethodPost, "/api/course/temporary-access/redeem", "user_1", `{"code":"ABC123"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/course/temporary-access/redeem", "user_1", `{"code":"SECOND"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"You already have active course access"}`, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/api/course/temporary-access/redeem", "user_2", `{"code":"OLD123"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"Code expired","reason":"expired"}`, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/api/course/temporary-access/redeem", "user_2", `{"code":"NOPE99"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "not_found", decode(t, rec)["reason"])

	rec = a.do(t, http.MethodGet, "/api/course/enrollment", "user_1", "")
	assert.Equal(t, "design_full", decode(t, rec)["accessLevel"])
}

func completePlatform(t *testing.T, a *app, userID string, platform model.Platform) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	dirs := map[model.Track]string{
		model.TrackDesign:      "design-track",
		model.TrackEngineering: "engineering-track",
		model.TrackConvergence: "convergence",
	}
	for track, dir := range dirs {
		path := fmt.Sprintf("%s/%s/01-module/01-lesson", dir, platform)
		require.NoError(t, a.store.Lessons.Upsert(ctx, model.Lesson{Path: path, Track: track, Platform: platform, Position: 1}))
		_, err := a.store.Progress.Record(ctx, model.LessonProgress{
			UserID: userID, LessonPath: path, Status: model.LessonCompleted,
			TimeSpentSeconds: 300, StartedAt: &now, CompletedAt: &now, UpdatedAt: now,
		})
		require.NoError(t, err)
	}
}

func TestCertificates(t *testing.T) {
	a := newApp(t, config.Config{})

	rec := a.do(t, http.MethodGet, "/api/course/certificate/does-not-exist", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Certificate not found"}`, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/api/course/certificate", "user_1", `{"platform":"windows"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid platform"}`, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/api/course/certificate", "user_1", `{"platform":"web"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "Complete all three tracks")

	completePlatform(t, a, "user_1", model.PlatformWeb)
	rec = a.do(t, http.MethodPost, "/api/course/certificate", "user_1", `{"platform":"web"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cert := decode(t, rec)["certificate"].(map[string]any)
	assert.Equal(t, "Web Design Engineer Certificate - Ada Lovelace", cert["title"])
	assert.Equal(t, "user_1@studio.dev", cert["user_email"])

	rec = a.do(t, http.MethodPost, "/api/course/certificate", "user_1", `{"platform":"web"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/course/certificate/"+cert["slug"].(string), "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, cert["certificate_number"], decode(t, rec)["certificate"].(map[string]any)["certificate_number"])

	rec = a.do(t, http.MethodPost, "/api/course/certificate", "user_1", `{"platform":"web","track":"design"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/course/certificate", "user_1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Len(t, body["certificates"], 1)
	assert.Len(t, body["trackCertificates"], 1)
	assert.Len(t, body["eligibility"], 3)

	rec = a.do(t, http.MethodGet, "/api/course/certificate?platform=web&track=engineering", "user_1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["eligibility"].(map[string]any)["eligible"])
}

func TestProgress(t *testing.T) {
	a := newApp(t, config.Config{})

	// sendBeacon posts text/plain
	req := httptest.NewRequest(http.MethodPost, "/api/course/progress",
		strings.NewReader(`{"lessonPath":"design-track/web/01-foundations/02-color","status":"in_progress","timeSpent":125.4}`))
	req.Header.Set(echo.HeaderContentType, "text/plain;charset=UTF-8")
	tok, err := utils.NewSessionToken(jwtSecret, "user_1", "", "", time.Hour)
	require.NoError(t, err)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(125), decode(t, rec)["progress"].(map[string]any)["time_spent_seconds"])

	rec = a.do(t, http.MethodPost, "/api/course/progress", "user_1", `{"lessonPath":"x","status":"done"}`)
	assert.JSONEq(t, `{"error":"Invalid status"}`, rec.Body.String())
	rec = a.do(t, http.MethodPost, "/api/course/progress", "user_1", `{"status":"completed"}`)
	assert.JSONEq(t, `{"error":"Missing required fields"}`, rec.Body.String())

	rec = a.do(t, http.MethodGet, "/api/course/progress", "user_1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Len(t, body["progress"], 1)
	stats := body["stats"].(map[string]any)
	assert.Equal(t, "free", stats["accessLevel"])
	assert.Equal(t, "2m", stats["totalTimeFormatted"])
}

func signed(t *testing.T, a *app, payload, sig string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/lemonsqueezy", strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if sig != "" {
		req.Header.Set(lemonsqueezy.SignatureHeader, sig)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func TestWebhook(t *testing.T) {
	a := newApp(t, config.Config{})
	payload := `{"meta":{"event_name":"order_created","custom_data":{"user_id":"user_9"}},
		"data":{"id":"8001","attributes":{"variant_id":101,"user_email":"grace@navy.mil"}}}`

	rec := signed(t, a, payload, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Missing signature"}`, rec.Body.String())

	rec = signed(t, a, payload, lemonsqueezy.Sign("wrong", []byte(payload)))
	assert.JSONEq(t, `{"error":"Invalid signature"}`, rec.Body.String())

	rec = signed(t, a, payload, lemonsqueezy.Sign(webhookSecret, []byte(payload)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())

	rec = signed(t, a, payload, lemonsqueezy.Sign(webhookSecret, []byte(payload)))
	assert.JSONEq(t, `{"received":true,"duplicate":true}`, rec.Body.String())

	rec = a.do(t, http.MethodGet, "/api/course/enrollment", "user_9", "")
	assert.Equal(t, "design_web", decode(t, rec)["accessLevel"])

	unknown := `{"meta":{"event_name":"order_created","custom_data":{"user_id":"user_9"}},"data":{"id":"8002","attributes":{"variant_id":555}}}`
	rec = signed(t, a, unknown, lemonsqueezy.Sign(webhookSecret, []byte(unknown)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Unknown product"}`, rec.Body.String())
}

func TestAdmin(t *testing.T) {
	a := newApp(t, config.Config{AdminUserIDs: []string{"admin_1"}})

	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, "/api/admin/temporary-access", "", "").Code)
	rec := a.do(t, http.MethodGet, "/api/admin/temporary-access", "user_1", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"Forbidden - Admin access required"}`, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/api/admin/temporary-access", "admin_1", `{"count":3,"accessLevel":"design-web"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "Created 3 temporary access code(s)", body["message"])
	codes := body["codes"].([]any)
	require.Len(t, codes, 3)
	assert.Equal(t, "design_web", codes[0].(map[string]any)["access_level"])

	rec = a.do(t, http.MethodPost, "/api/admin/temporary-access", "admin_1", `{"count":51}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = a.do(t, http.MethodPost, "/api/admin/temporary-access", "admin_1", `{"accessLevel":"platinum"}`)
	assert.JSONEq(t, `{"error":"Invalid access level"}`, rec.Body.String())

	rec = a.do(t, http.MethodGet, "/api/admin/temporary-access", "admin_1", "")
	assert.Equal(t, float64(3), decode(t, rec)["total"])

	rec = a.do(t, http.MethodGet, "/api/admin/temporary-access?action=cleanup", "admin_1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"message":"Cleanup completed","codesCleaned":0,"enrollmentsCleaned":0}`, rec.Body.String())
}

func TestDevEndpoints(t *testing.T) {
	prod := newApp(t, config.Config{Env: "production"})
	rec := prod.do(t, http.MethodGet, "/api/course/test-access", "", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"Test access endpoint not available"}`, rec.Body.String())
	rec = prod.do(t, http.MethodPost, "/api/course/test-enrollment", "user_1", `{}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	dev := newApp(t, config.Config{TestAccess: &config.TestAccess{Level: model.AccessEngineeringWeb}})
	rec = dev.do(t, http.MethodGet, "/api/course/test-access", "", "")
	assert.JSONEq(t, `{"override":"engineering_web","effectiveLevel":"engineering_web","bypassUserIds":[]}`, rec.Body.String())

	rec = dev.do(t, http.MethodGet, "/api/course/enrollment", "user_1", "")
	assert.Equal(t, "engineering_web", decode(t, rec)["accessLevel"])

	rec = dev.do(t, http.MethodPost, "/api/course/test-enrollment", "user_1", `{"accessLevel":"design_ios"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = dev.do(t, http.MethodPost, "/api/course/test-enrollment", "user_1", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Enrollment already exists", decode(t, rec)["message"])
}
