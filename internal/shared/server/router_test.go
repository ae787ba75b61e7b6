package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"resume-tailor/internal/bundles"
	"resume-tailor/internal/services/health"
	"resume-tailor/internal/shared/config"
	"resume-tailor/internal/shared/storage/object/local"
)

func TestRouterHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		checks map[string]health.Check
		status int
	}{
		{name: "no checks", status: http.StatusOK},
		{name: "healthy", checks: map[string]health.Check{"database": func(context.Context) error { return nil }}, status: http.StatusOK},
		{name: "failing", checks: map[string]health.Check{"compiler": func(context.Context) error { return errors.New("latexmk not found") }}, status: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := NewRouter(config.Config{}, Deps{Health: health.NewService(tt.checks)})
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			var report health.Report
			if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if report.OK != (tt.status == http.StatusOK) {
				t.Fatalf("unexpected report %+v", report)
			}
		})
	}
}

func TestRouterMountsBundlesAndMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &bundles.Store{Repo: bundles.NewMemoryRepo(), Objects: local.New(t.TempDir())}
	r := NewRouter(config.Config{}, Deps{Bundles: bundles.NewHandler(store)})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/bundles/0f6d3c0a-1111-4a4a-8b8b-000000000001", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown bundle, got %d", w.Code)
	}
	if w.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "# TYPE") {
		t.Fatalf("unexpected metrics response %d: %s", w.Code, w.Body.String())
	}
}

func TestAddr(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]string{"": ":8080", "9000": ":9000", ":7000": ":7000"} {
		if got := Addr(in); got != want {
			t.Fatalf("Addr(%q) = %q, want %q", in, got, want)
		}
	}
}
