package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	httptransport "github.com/forgecomply/forgecomply360/internal/api/http"
	"github.com/forgecomply/forgecomply360/internal/api/http/handlers"
	"github.com/forgecomply/forgecomply360/internal/auth"
	"github.com/forgecomply/forgecomply360/internal/config"
	"github.com/forgecomply/forgecomply360/internal/domain"
	"github.com/forgecomply/forgecomply360/internal/events"
	"github.com/forgecomply/forgecomply360/internal/observability"
	"github.com/forgecomply/forgecomply360/internal/persistence"
	"github.com/forgecomply/forgecomply360/internal/repository"
	"github.com/forgecomply/forgecomply360/internal/service"
	"github.com/forgecomply/forgecomply360/internal/storage"
	"github.com/forgecomply/forgecomply360/internal/testutil"
	apperrors "github.com/forgecomply/forgecomply360/pkg/util/errorutil"
)

type testServer struct {
	app *fiber.App
	fx  *testutil.Fixture
}

func newTestServer(t *testing.T, loginsPerMinute int) *testServer {
	t.Helper()
	db := testutil.NewDatabase(t)
	fx := testutil.Seed(t, db)
	logger := zap.NewNop()

	cfg := &config.Config{
		App:  config.AppConfig{Name: "forgecomply360", Version: "test"},
		Auth: config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 5, BcryptCost: 4, MaxFailedLogins: 5, LockoutMinutes: 15},
		HTTP: config.HTTPConfig{AllowedOrigins: []string{"http://localhost:5173"}, BodyLimitBytes: 1 << 20},
	}

	redis := persistence.NewRedis(config.RedisConfig{}, logger)
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	h := db.Handle()
	userRepo := repository.NewUserRepository(h)
	systemRepo := repository.NewSystemRepository(h)
	implRepo := repository.NewImplementationRepository(h)
	controlRepo := repository.NewControlRepository(h)
	audit := service.NewAuditService(repository.NewAuditRepository(h), logger, nil)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		OrgRepo:    repository.NewOrganizationRepository(h),
		UserRepo:   userRepo,
		Tokens:     tokens,
		Revoker:    redis,
		Audit:      audit,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	systems := service.NewSystemService(service.SystemDependencies{
		SystemRepo: systemRepo, ImplementationRepo: implRepo, ControlRepo: controlRepo, Audit: audit,
	})
	implementations := service.NewImplementationService(service.ImplementationDependencies{
		ImplementationRepo: implRepo, SystemRepo: systemRepo, ControlRepo: controlRepo, Audit: audit,
	})

	evidenceRepo := repository.NewEvidenceRepository(h)
	poamRepo := repository.NewPOAMRepository(h)
	policyRepo := repository.NewPolicyRepository(h)
	checkRepo := repository.NewMonitoringRepository(h)

	blobs, err := storage.NewBlobStore(t.TempDir(), 1<<16)
	require.NoError(t, err)
	evidence := service.NewEvidenceService(service.EvidenceDependencies{
		EvidenceRepo:       evidenceRepo,
		ImplementationRepo: implRepo,
		Blobs:              blobs,
		Audit:              audit,
		Logger:             logger,
	})
	poams := service.NewPOAMService(service.POAMDependencies{
		POAMRepo:    poamRepo,
		SystemRepo:  systemRepo,
		ControlRepo: controlRepo,
		Audit:       audit,
		Dispatcher:  dispatcher,
	})
	dashboard := service.NewDashboardService(service.DashboardDependencies{
		SystemRepo:         systemRepo,
		ControlRepo:        controlRepo,
		ImplementationRepo: implRepo,
		POAMRepo:           poamRepo,
		EvidenceRepo:       evidenceRepo,
		PolicyRepo:         policyRepo,
		ApprovalRepo:       repository.NewApprovalRepository(h),
		MonitoringRepo:     checkRepo,
		Audit:              audit,
		Logger:             logger,
	})
	calendar := service.NewCalendarService(service.CalendarDependencies{
		POAMRepo:       poamRepo,
		PolicyRepo:     policyRepo,
		EvidenceRepo:   evidenceRepo,
		MonitoringRepo: checkRepo,
		SystemRepo:     systemRepo,
	})

	app := httptransport.NewApp(cfg)
	httptransport.RegisterMiddlewares(app, cfg, logger, metrics)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, db, nil),
		Auth:           handlers.NewAuthHandler(authService),
		Systems:        handlers.NewSystemsHandler(systems, implementations),
		Evidence:       handlers.NewEvidenceHandler(evidence),
		POAMs:          handlers.NewPOAMsHandler(poams),
		Audit:          handlers.NewAuditHandler(audit),
		Dashboard:      handlers.NewDashboardHandler(dashboard, calendar),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, userRepo, redis),
		LoginThrottle:  auth.NewLoginThrottle(loginsPerMinute),
		Metrics:        metrics,
	})
	return &testServer{app: app, fx: fx}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

func (s *testServer) login(t *testing.T, role domain.Role) string {
	t.Helper()
	resp, body := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    s.fx.Users[role].Email,
		"password": testutil.Password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	return body["data"].(map[string]any)["token"].(string)
}

func errorCode(body map[string]any) string {
	envelope, ok := body["error"].(map[string]any)
	if !ok {
		return ""
	}
	code, _ := envelope["code"].(string)
	return code
}

func TestHealthAndSecurityHeaders(t *testing.T) {
	s := newTestServer(t, 0)

	resp, body := s.do(t, http.MethodGet, "/health/live", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alive", body["status"])
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.Contains(t, resp.Header.Get("Content-Security-Policy"), "frame-ancestors 'none'")
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, body = s.do(t, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	deps := body["dependencies"].(map[string]any)
	assert.Equal(t, "ok", deps["database"])
	assert.Equal(t, "disabled", deps["redis"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, 0)

	resp, body := s.do(t, http.MethodGet, "/api/v1/systems", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	resp, body = s.do(t, http.MethodGet, "/api/v1/systems", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))
}

func TestRegisterThenMe(t *testing.T) {
	s := newTestServer(t, 0)

	resp, body := s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"organization_name": "Globex",
		"name":              "Hank",
		"email":             "Hank@Globex.example.com",
		"password":          "a-long-enough-passphrase-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	data := body["data"].(map[string]any)
	token := data["token"].(string)
	assert.Equal(t, "owner", data["user"].(map[string]any)["role"])
	assert.NotContains(t, data["user"], "password_hash")

	resp, body = s.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hank@globex.example.com", body["data"].(map[string]any)["email"])

	resp, body = s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"organization_name": "Globex",
		"name":              "Hank",
		"email":             "hank@globex.example.com",
		"password":          "a-long-enough-passphrase-1",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "CONFLICT", errorCode(body))
}

func TestSystemRoleGatesAndValidation(t *testing.T) {
	s := newTestServer(t, 0)
	payload := map[string]any{"name": "Payments", "impact_level": "high"}

	resp, body := s.do(t, http.MethodPost, "/api/v1/systems", s.login(t, domain.RoleViewer), payload)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", errorCode(body))

	manager := s.login(t, domain.RoleManager)
	resp, body = s.do(t, http.MethodPost, "/api/v1/systems", manager, payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	id := body["data"].(map[string]any)["id"].(string)

	resp, body = s.do(t, http.MethodGet, "/api/v1/systems/"+id, s.login(t, domain.RoleViewer), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Payments", body["data"].(map[string]any)["name"])

	resp, body = s.do(t, http.MethodPost, "/api/v1/systems", manager, map[string]any{"name": "Bad", "impact_level": "extreme"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	resp, body = s.do(t, http.MethodDelete, "/api/v1/systems/"+id, manager, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", errorCode(body))

	resp, body = s.do(t, http.MethodGet, "/api/v1/systems/does-not-exist", manager, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", errorCode(body))

	resp, _ = s.do(t, http.MethodGet, "/api/v1/audit-log", manager, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestLoginThrottle(t *testing.T) {
	s := newTestServer(t, 2)
	creds := map[string]string{"email": "nobody@example.com", "password": "whatever-123"}

	for range 2 {
		resp, body := s.do(t, http.MethodPost, "/api/v1/auth/login", "", creds)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "UNAUTHORIZED", errorCode(body))
	}
	resp, body := s.do(t, http.MethodPost, "/api/v1/auth/login", "", creds)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "RATE_LIMITED", errorCode(body))
	assert.Equal(t, "60", resp.Header.Get(fiber.HeaderRetryAfter))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, 0)
	s.do(t, http.MethodGet, "/api/v1/systems", "", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "forgecomply_http_requests_total")
	assert.Contains(t, string(raw), `code="UNAUTHORIZED"`)
}

func TestEvidenceUploadAndDownload(t *testing.T) {
	s := newTestServer(t, 0)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	require.NoError(t, form.WriteField("title", "Quarterly access review"))
	require.NoError(t, form.WriteField("expires_at", "2099-01-31"))
	part, err := form.CreateFormFile("file", "../../review.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("reviewed 42 accounts"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	upload := func(token string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/evidence", bytes.NewReader(buf.Bytes()))
		req.Header.Set(fiber.HeaderContentType, form.FormDataContentType())
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
		resp, err := s.app.Test(req, -1)
		require.NoError(t, err)
		return resp
	}

	assert.Equal(t, http.StatusForbidden, upload(s.login(t, domain.RoleViewer)).StatusCode)

	resp := upload(s.login(t, domain.RoleAnalyst))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		Data domain.Evidence `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "review.txt", created.Data.FileName)
	assert.Equal(t, "Quarterly access review", created.Data.Title)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/evidence/"+created.Data.ID+"/download", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+s.login(t, domain.RoleViewer))
	resp, err = s.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="review.txt"`, resp.Header.Get(fiber.HeaderContentDisposition))
	assert.Equal(t, created.Data.SHA256, resp.Header.Get("X-Content-SHA256"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "reviewed 42 accounts", string(body))
}

func TestPOAMExportCSV(t *testing.T) {
	s := newTestServer(t, 0)
	sys := s.fx.System(t, "Ledger", false)
	analyst := s.login(t, domain.RoleAnalyst)

	resp, body := s.do(t, http.MethodPost, "/api/v1/poams", analyst, map[string]any{
		"system_id":            sys.ID,
		"title":                "=HYPERLINK(\"http://evil\")",
		"risk_level":           "high",
		"scheduled_completion": "2026-06-30",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/poams/export.csv", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+analyst)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), "text/csv"))
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), `filename="poams-`)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "id,system_id,control_id,title"))
	assert.Contains(t, lines[1], `"'=HYPERLINK(""http://evil"")"`)
	assert.Contains(t, lines[1], "2026-06-30")
}

func TestLogoutRevokesToken(t *testing.T) {
	s := newTestServer(t, 0)
	token := s.login(t, domain.RoleAnalyst)

	resp, _ := s.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body := s.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	resp, _ = s.do(t, http.MethodGet, "/api/v1/auth/me", s.login(t, domain.RoleAnalyst), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "a fresh login is unaffected")
}

func TestListEnvelopePagination(t *testing.T) {
	s := newTestServer(t, 0)
	s.fx.System(t, "Alpha", false)
	s.fx.System(t, "Bravo", false)
	viewer := s.login(t, domain.RoleViewer)

	resp, body := s.do(t, http.MethodGet, "/api/v1/systems?page=1&limit=1", viewer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Len(t, body["data"], 1)
	assert.Equal(t, map[string]any{
		"page":         float64(1),
		"limit":        float64(1),
		"total":        float64(2),
		"total_pages":  float64(2),
		"start":        float64(1),
		"end":          float64(1),
		"page_numbers": []any{float64(1), float64(2)},
	}, body["pagination"])

	resp, body = s.do(t, http.MethodGet, "/api/v1/systems?page=5&limit=1", viewer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["data"])
	page := body["pagination"].(map[string]any)
	assert.Equal(t, float64(0), page["start"])
	assert.Equal(t, float64(0), page["end"])
}

func TestInheritanceEndpoints(t *testing.T) {
	s := newTestServer(t, 0)
	s.fx.System(t, "Shared Platform", true)
	s.fx.System(t, "Payroll", false)
	viewer := s.login(t, domain.RoleViewer)

	resp, body := s.do(t, http.MethodGet, "/api/v1/systems/inheritance", viewer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	layout := body["data"].(map[string]any)
	assert.Len(t, layout["nodes"], 2)
	assert.Greater(t, layout["width"].(float64), 0.0)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/systems/inheritance.svg", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+viewer)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get(fiber.HeaderContentType))
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "<svg"))
	assert.Contains(t, string(raw), "Shared Platform")
}

func TestCalendarEndpoint(t *testing.T) {
	s := newTestServer(t, 0)
	viewer := s.login(t, domain.RoleViewer)

	resp, body := s.do(t, http.MethodGet, "/api/v1/calendar?year=2026&month=3", viewer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	month := body["data"].(map[string]any)
	assert.Equal(t, float64(2026), month["year"])
	assert.Equal(t, float64(3), month["month"])
	assert.Len(t, month["days"], 42)

	resp, body = s.do(t, http.MethodGet, "/api/v1/calendar?year=2026&month=13", viewer, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
}

func TestCORSHeaders(t *testing.T) {
	s := newTestServer(t, 0)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set(fiber.HeaderOrigin, "http://localhost:5173")
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
	assert.Contains(t, resp.Header.Get(fiber.HeaderAccessControlExposeHeaders), "X-Request-ID")

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/systems", nil)
	req.Header.Set(fiber.HeaderOrigin, "http://localhost:5173")
	req.Header.Set(fiber.HeaderAccessControlRequestMethod, http.MethodPost)
	resp, err = s.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
	assert.Contains(t, resp.Header.Get(fiber.HeaderAccessControlAllowMethods), http.MethodPost)
	assert.Equal(t, "600", resp.Header.Get(fiber.HeaderAccessControlMaxAge))

	req = httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set(fiber.HeaderOrigin, "http://evil.example.com")
	resp, err = s.app.Test(req, -1)
	require.NoError(t, err)
	assert.Empty(t, resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
}

func TestErrorHandlerKeepsDetails(t *testing.T) {
	app := httptransport.NewApp(&config.Config{App: config.AppConfig{Name: "forgecomply360"}})
	app.Get("/fail", func(c *fiber.Ctx) error {
		return apperrors.NewValidationError("bad input", map[string]any{"field": "name"})
	})
	app.Get("/plain", func(c *fiber.Ctx) error {
		return apperrors.NewForbidden("nope")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/fail", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body struct {
		Error struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "VALIDATION_FAILED", body.Error.Code)
	assert.Equal(t, "bad input", body.Error.Message)
	assert.Equal(t, map[string]any{"field": "name"}, body.Error.Details)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/plain", nil), -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "details")
}
