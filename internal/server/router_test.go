package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sfall/freelance-office/internal/auth"
	"github.com/sfall/freelance-office/internal/config"
	"github.com/sfall/freelance-office/internal/db"
	"github.com/sfall/freelance-office/internal/mail"
)

func newTestServer(t *testing.T) (http.Handler, *auth.Sessions) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := config.Config{
		BaseURL:                "http://test.local",
		AdminEmail:             "admin@test",
		SessionSecret:          "test-secret",
		QuotePrefix:            "DEV",
		InvoicePrefix:          "FAC",
		QuoteValidityDays:      30,
		TokenValidityDays:      30,
		ReviewMinLength:        20,
		RateLimitMax:           5,
		RateLimitWindowSeconds: 3600,
	}
	handler, cleanup := New(conn, &mail.Mock{}, zap.NewNop(), cfg)
	t.Cleanup(cleanup)
	return handler, &auth.Sessions{Secret: cfg.SessionSecret, AdminEmail: cfg.AdminEmail}
}

func TestHealthEndpoint(t *testing.T) {
	handler, _ := newTestServer(t)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
}

func TestAdminRoutesRequireSession(t *testing.T) {
	handler, sessions := newTestServer(t)

	for _, path := range []string{"/quotes", "/clients", "/company", "/testimonial-tokens"} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 got %d", path, w.Code)
		}
	}

	rec := httptest.NewRecorder()
	sessions.Create(rec, "admin@test")
	req := httptest.NewRequest(http.MethodGet, "/quotes", nil)
	req.AddCookie(rec.Result().Cookies()[0])
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("authorized list: expected 200 got %d", w.Code)
	}
}

func TestPublicRoutesNeedNoSession(t *testing.T) {
	handler, _ := newTestServer(t)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/testimonials", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("testimonials: expected 200 got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(`{"name":"A","email":"a@b.c","body":"hello from the tests"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("contact: expected 201 got %d", w.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	handler, _ := newTestServer(t)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/t/some-token", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 got %d", w.Code)
	}
	if allow := w.Header().Get("Allow"); allow != "POST" {
		t.Fatalf("expected Allow: POST got %q", allow)
	}
}
