package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/fleet-helpdesk/internal/observability"
)

func TestErrorMiddlewareEnvelope(t *testing.T) {
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), 0)
	app.Get("/panic", func(c *fiber.Ctx) error { panic("boom") })
	app.Get("/deadline", func(c *fiber.Ctx) error {
		return fmt.Errorf("query: %w", context.DeadlineExceeded)
	})

	cases := []struct {
		path   string
		status int
		code   string
	}{
		{"/panic", http.StatusInternalServerError, "INTERNAL_ERROR"},
		{"/deadline", http.StatusServiceUnavailable, codeRequestTimeout},
		{"/missing", http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tc := range cases {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, tc.path, nil), -1)
		if err != nil {
			t.Fatalf("%s: %v", tc.path, err)
		}
		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("%s: decode: %v", tc.path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != tc.status || body.Error.Code != tc.code {
			t.Fatalf("%s: got %d %q, want %d %q", tc.path, resp.StatusCode, body.Error.Code, tc.status, tc.code)
		}
		if resp.Header.Get(observability.RequestIDHeader) == "" {
			t.Fatalf("%s: missing request id header", tc.path)
		}
	}
}
