package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/abarnes/kudos/internal/auth"
	"github.com/abarnes/kudos/internal/models"
)

func testUser() models.User {
	return models.User{
		ID:    uuid.New(),
		Name:  "Ada",
		Email: "ada@example.com",
		Role:  models.RoleManager,
	}
}

func TestSignAndParse(t *testing.T) {
	m := auth.NewManager("test-secret", time.Hour)
	user := testUser()

	tok, err := m.SignToken(user)
	if err != nil {
		t.Fatalf("SignToken failed: %v", err)
	}

	claims, err := m.ParseToken(tok)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	if claims.UserID != user.ID.String() {
		t.Errorf("expected uid %s, got %s", user.ID, claims.UserID)
	}
	if claims.Role != string(models.RoleManager) {
		t.Errorf("expected role MANAGER, got %s", claims.Role)
	}
	if claims.Email != user.Email {
		t.Errorf("expected email %s, got %s", user.Email, claims.Email)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	tok, err := auth.NewManager("secret-a", time.Hour).SignToken(testUser())
	if err != nil {
		t.Fatalf("SignToken failed: %v", err)
	}
	if _, err := auth.NewManager("secret-b", time.Hour).ParseToken(tok); err == nil {
		t.Error("expected error for token signed with a different secret")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	m := auth.NewManager("test-secret", -time.Minute)
	tok, err := m.SignToken(testUser())
	if err != nil {
		t.Fatalf("SignToken failed: %v", err)
	}
	if _, err := m.ParseToken(tok); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	m := auth.NewManager("test-secret", time.Hour)
	for _, tok := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := m.ParseToken(tok); err == nil {
			t.Errorf("expected error for token %q", tok)
		}
	}
}

func TestMiddlewareAttachesClaims(t *testing.T) {
	m := auth.NewManager("test-secret", time.Hour)
	user := testUser()
	tok, err := m.SignToken(user)
	if err != nil {
		t.Fatalf("SignToken failed: %v", err)
	}

	var got *auth.Claims
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.ClaimsFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil {
		t.Fatal("expected claims in context")
	}
	if got.UserID != user.ID.String() {
		t.Errorf("expected uid %s, got %s", user.ID, got.UserID)
	}
}

func TestMiddlewarePassesThroughWithoutToken(t *testing.T) {
	m := auth.NewManager("test-secret", time.Hour)

	called := false
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if _, ok := auth.ClaimsFromContext(r.Context()); ok {
			t.Error("expected no claims without a token")
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if !called {
		t.Error("middleware must not reject on its own")
	}
}

func TestRequireAuth(t *testing.T) {
	handler := auth.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without claims, got %d", rec.Code)
	}

	user := testUser()
	claims := &auth.Claims{UserID: user.ID.String(), Role: string(user.Role)}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(auth.ContextWithClaims(req.Context(), claims))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 with claims, got %d", rec.Code)
	}
}

func TestActorFromContext(t *testing.T) {
	user := testUser()
	claims := &auth.Claims{UserID: user.ID.String(), Role: string(user.Role)}
	ctx := auth.ContextWithClaims(httptest.NewRequest(http.MethodGet, "/", nil).Context(), claims)

	id, role, ok := auth.ActorFromContext(ctx)
	if !ok {
		t.Fatal("expected actor to resolve")
	}
	if id != user.ID || role != models.RoleManager {
		t.Errorf("got actor %s/%s", id, role)
	}

	ctx = auth.ContextWithClaims(ctx, &auth.Claims{UserID: "not-a-uuid"})
	if _, _, ok := auth.ActorFromContext(ctx); ok {
		t.Error("expected failure for malformed user ID")
	}
}
