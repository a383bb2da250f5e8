package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tutorhub/backend/internal/middleware"
)

func TestGeneratedTokenPassesMiddleware(t *testing.T) {
	secret := []byte("test-secret")
	token, err := GenerateToken(secret, 42, "tutor", time.Now())
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	var gotID int64
	var gotRole string
	h := middleware.AuthMiddleware(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = middleware.UserID(r.Context())
		gotRole = middleware.Role(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotID != 42 || gotRole != "tutor" {
		t.Errorf("identity = (%d, %q), want (42, tutor)", gotID, gotRole)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	secret := []byte("test-secret")
	token, _ := GenerateToken(secret, 42, "student", time.Now().Add(-100*time.Hour))

	h := middleware.AuthMiddleware(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run for an expired token")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestWrongSecretRejected(t *testing.T) {
	token, _ := GenerateToken([]byte("one"), 7, "student", time.Now())

	h := middleware.AuthMiddleware([]byte("two"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run for a token signed with another key")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
