package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/abarnes/kudos/internal/auth"
	"github.com/abarnes/kudos/internal/logger"
)

func createTestApp(t *testing.T) *App {
	t.Helper()
	log := logger.New()
	tokens := auth.NewManager("test-secret", time.Hour)

	app, err := New(log, ":memory:", tokens)
	if err != nil {
		t.Fatalf("failed to create test app: %v", err)
	}
	t.Cleanup(func() { app.Close() })
	return app
}

func TestNew_InitializesApp(t *testing.T) {
	app := createTestApp(t)

	if app.handlers == nil {
		t.Error("expected handlers to be initialized")
	}
	if app.repo == nil {
		t.Error("expected repo to be initialized")
	}
}

func TestNew_FailsWithBadDBPath(t *testing.T) {
	log := logger.New()
	tokens := auth.NewManager("test-secret", time.Hour)

	_, err := New(log, "/nonexistent/path/db.sqlite", tokens)
	if err == nil {
		t.Error("expected error for invalid db path")
	}
}

func TestApp_Router_ServesRequests(t *testing.T) {
	app := createTestApp(t)
	server := httptest.NewServer(app.Router())
	defer server.Close()

	// Public route exists and validates input
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for empty login body, got %d", resp.StatusCode)
	}

	// Protected routes reject unauthenticated requests
	resp, err = http.Get(server.URL + "/api/cycles")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for unauthenticated request, got %d", resp.StatusCode)
	}
}

func TestApp_Close_IsIdempotent(t *testing.T) {
	log := logger.New()
	tokens := auth.NewManager("test-secret", time.Hour)

	app, err := New(log, ":memory:", tokens)
	if err != nil {
		t.Fatalf("failed to create test app: %v", err)
	}

	if err := app.Close(); err != nil {
		t.Errorf("first Close failed: %v", err)
	}
	if err := app.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}
