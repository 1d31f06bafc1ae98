package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/fleet-helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/fleet-helpdesk/internal/auth"
	"github.com/spec-kit/fleet-helpdesk/internal/config"
	"github.com/spec-kit/fleet-helpdesk/internal/notify"
	"github.com/spec-kit/fleet-helpdesk/internal/observability"
	"github.com/spec-kit/fleet-helpdesk/internal/repository"
	"github.com/spec-kit/fleet-helpdesk/internal/service"
	"github.com/spec-kit/fleet-helpdesk/internal/storage"
)

const (
	adminEmail = "admin@fleet.io"
	adminPass  = "admin-password"
)

type testServer struct {
	app *fiber.App
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	users := repository.NewMemoryUserRepository()
	helpdesks := repository.NewMemoryHelpdeskRepository()
	bucket := storage.NewFSBucket(t.TempDir())
	metrics := observability.NewMetrics()

	authService := service.NewAuthService(config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 5,
		BcryptCost:            4,
	}, users, logger)
	if err := authService.EnsureBootstrapAdmin(context.Background(), "Admin", adminEmail, adminPass); err != nil {
		t.Fatalf("EnsureBootstrapAdmin returned error: %v", err)
	}

	deps := service.HelpdeskDependencies{
		HelpdeskRepo: helpdesks,
		UserRepo:     users,
		Bucket:       bucket,
		BucketName:   "helpdesk",
		Sink:         notify.Nop{},
		SupportTopic: "helpdesk:support",
		Drops:        metrics,
		Logger:       logger,
	}

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health: handlers.NewHealthHandler("fleet-helpdesk", "test", handlers.HealthDependencies{
			Bucket:     bucket,
			BucketName: "helpdesk",
		}),
		Users:          handlers.NewUsersHandler(authService),
		Helpdesk:       handlers.NewHelpdeskHandler(service.NewHelpdeskService(deps), service.NewMessageService(deps)),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), users),
		Metrics:        metrics,
	})
	return &testServer{app: app}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
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
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	out := map[string]any{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode %s %s body %q: %v", method, path, raw, err)
		}
	}
	return resp.StatusCode, out
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": password})
	if status != http.StatusOK {
		t.Fatalf("login %s: status %d body %v", email, status, body)
	}
	return dig(t, body, "data", "auth", "token").(string)
}

func dig(t *testing.T, body map[string]any, path ...string) any {
	t.Helper()
	var cur any = body
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			t.Fatalf("path %v: %v is not an object", path, cur)
		}
		cur = m[key]
	}
	return cur
}

func errorCode(t *testing.T, body map[string]any) string {
	t.Helper()
	code, _ := dig(t, body, "error", "code").(string)
	return code
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)
	if status, _ := s.do(t, http.MethodGet, "/health/live", "", nil); status != http.StatusOK {
		t.Fatalf("live status %d", status)
	}
	status, body := s.do(t, http.MethodGet, "/health/ready", "", nil)
	if status != http.StatusOK {
		t.Fatalf("ready status %d body %v", status, body)
	}
	if dig(t, body, "dependencies", "bucket") != "ok" {
		t.Fatalf("unexpected dependencies %v", body["dependencies"])
	}
}

func TestHelpdeskRequiresAuthentication(t *testing.T) {
	s := newTestServer(t)
	status, _ := s.do(t, http.MethodGet, "/helpdesk", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", status)
	}
}

func TestHelpdeskFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.login(t, adminEmail, adminPass)

	status, body := s.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Client", "email": "client@fleet.io", "password": "client-password",
	})
	if status != http.StatusCreated {
		t.Fatalf("register status %d body %v", status, body)
	}
	clientID := dig(t, body, "data", "user", "id").(string)
	clientToken := dig(t, body, "data", "auth", "token").(string)

	status, body = s.do(t, http.MethodPost, "/users", adminToken, map[string]string{
		"name": "Dev", "email": "dev@fleet.io", "password": "dev-password", "role": "DEVELOPER",
	})
	if status != http.StatusCreated {
		t.Fatalf("create developer status %d body %v", status, body)
	}
	devID := dig(t, body, "data", "id").(string)

	if status, _ := s.do(t, http.MethodPost, "/users", clientToken, map[string]string{
		"name": "X", "email": "x@fleet.io", "password": "x-password", "role": "ADMIN",
	}); status != http.StatusForbidden {
		t.Fatalf("client creating users: expected 403, got %d", status)
	}

	status, body = s.do(t, http.MethodPost, "/helpdesk", clientToken, map[string]any{
		"clientId":    clientID,
		"title":       "Map not loading",
		"description": "The vehicle map stays blank",
		"category":    "BUG",
	})
	if status != http.StatusCreated {
		t.Fatalf("create ticket status %d body %v", status, body)
	}
	ticketID := dig(t, body, "data", "id").(string)
	want := fmt.Sprintf("TKT-%d-001", time.Now().UTC().Year())
	if got := dig(t, body, "data", "ticketNumber"); got != want {
		t.Fatalf("ticket number %v, want %s", got, want)
	}
	if dig(t, body, "data", "status") != "ABERTO" || dig(t, body, "data", "priority") != "BAIXA" {
		t.Fatalf("unexpected defaults %v", body["data"])
	}

	status, body = s.do(t, http.MethodPost, "/helpdesk", clientToken, map[string]any{
		"clientId": clientID, "title": "Second", "description": "d", "category": "BUG",
	})
	if status != http.StatusConflict || errorCode(t, body) != "TICKET_ALREADY_OPEN" {
		t.Fatalf("expected TICKET_ALREADY_OPEN, got %d %v", status, body)
	}

	status, body = s.do(t, http.MethodPost, "/helpdesk", clientToken, map[string]any{
		"clientId": clientID, "title": "Bad", "description": "d", "category": "NOPE",
	})
	if status != http.StatusBadRequest || errorCode(t, body) != "VALIDATION_FAILED" {
		t.Fatalf("expected VALIDATION_FAILED, got %d %v", status, body)
	}

	status, body = s.do(t, http.MethodGet, "/helpdesk?limit=5", clientToken, nil)
	if status != http.StatusOK {
		t.Fatalf("list status %d body %v", status, body)
	}
	if dig(t, body, "pagination", "total") != float64(1) || dig(t, body, "pagination", "limit") != float64(5) {
		t.Fatalf("unexpected pagination %v", body["pagination"])
	}

	if status, _ := s.do(t, http.MethodPut, "/helpdesk/"+ticketID, clientToken, map[string]any{"status": "EM_ANALISE"}); status != http.StatusForbidden {
		t.Fatalf("client update: expected 403, got %d", status)
	}

	status, body = s.do(t, http.MethodPost, "/helpdesk/"+ticketID+"/messages", clientToken, map[string]any{
		"authorId": clientID, "authorType": "user", "message": "Still blank after reload",
	})
	if status != http.StatusCreated {
		t.Fatalf("post message status %d body %v", status, body)
	}
	if name, _ := dig(t, body, "data", "fileName").(string); !strings.HasSuffix(name, "_user_"+clientID+".json") {
		t.Fatalf("unexpected file name %q", name)
	}

	status, body = s.do(t, http.MethodPost, "/helpdesk/"+ticketID+"/messages", clientToken, map[string]any{
		"authorId": clientID, "authorType": "support", "message": "pretending",
	})
	if status != http.StatusBadRequest || errorCode(t, body) != "AUTHOR_ROLE_MISMATCH" {
		t.Fatalf("expected AUTHOR_ROLE_MISMATCH, got %d %v", status, body)
	}

	status, body = s.do(t, http.MethodDelete, "/helpdesk/"+ticketID, adminToken, nil)
	if status != http.StatusBadRequest || errorCode(t, body) != "CANNOT_DELETE_OPEN_TICKET" {
		t.Fatalf("expected CANNOT_DELETE_OPEN_TICKET, got %d %v", status, body)
	}

	devToken := s.login(t, "dev@fleet.io", "dev-password")
	status, body = s.do(t, http.MethodPut, "/helpdesk/"+ticketID, devToken, map[string]any{
		"assignedUserId": devID, "status": "ENCERRADO",
	})
	if status != http.StatusOK {
		t.Fatalf("update status %d body %v", status, body)
	}
	if dig(t, body, "data", "closedAt") == nil || dig(t, body, "data", "assignedUserId") != devID {
		t.Fatalf("unexpected update result %v", body["data"])
	}

	status, body = s.do(t, http.MethodGet, "/helpdesk/"+ticketID+"/messages", clientToken, nil)
	if status != http.StatusOK {
		t.Fatalf("list messages status %d body %v", status, body)
	}
	thread, _ := body["data"].([]any)
	if len(thread) != 1 {
		t.Fatalf("expected one message, got %v", body["data"])
	}

	status, body = s.do(t, http.MethodDelete, "/helpdesk/"+ticketID, adminToken, nil)
	if status != http.StatusOK || dig(t, body, "data", "deleted") != true {
		t.Fatalf("delete status %d body %v", status, body)
	}
	status, body = s.do(t, http.MethodGet, "/helpdesk/"+ticketID, adminToken, nil)
	if status != http.StatusNotFound || errorCode(t, body) != "HELPDESK_NOT_FOUND" {
		t.Fatalf("expected HELPDESK_NOT_FOUND, got %d %v", status, body)
	}
}

func TestMetricsEndpointExposesRequests(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/health/live", "", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("metrics request: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status %d", resp.StatusCode)
	}
	if !strings.Contains(string(raw), `http_requests_total{method="GET",path="/health/live",status="200"}`) {
		t.Fatalf("request counter missing from metrics output")
	}
}
