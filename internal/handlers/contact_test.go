package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/sfall/freelance-office/internal/mail"
	"github.com/sfall/freelance-office/internal/models"
	"github.com/sfall/freelance-office/internal/ratelimit"
)

func TestContactSubmitStoresAndNotifies(t *testing.T) {
	conn := setupTestDB(t)
	mock := &mail.Mock{}
	limiter := ratelimit.New(5, time.Hour)
	defer limiter.Stop()
	h := NewContactHandler(conn, mock, limiter, zap.NewNop(), "owner@test")

	body := `{"name":"Moussa","email":"moussa@example.com","subject":"Projet","body":"Bonjour, j'aimerais discuter d'un projet."}`
	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Submit(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	var count int64
	conn.Model(&models.ContactMessage{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 stored message got %d", count)
	}
	msg, ok := mock.LastSent()
	if !ok || msg.To != "owner@test" {
		t.Fatalf("owner not notified: %#v", msg)
	}
}

func TestContactSubmitIsThrottledPerIP(t *testing.T) {
	conn := setupTestDB(t)
	limiter := ratelimit.New(2, time.Hour)
	defer limiter.Stop()
	h := NewContactHandler(conn, &mail.Mock{}, limiter, zap.NewNop(), "")

	submit := func(addr string) int {
		body := `{"name":"Moussa","email":"moussa@example.com","body":"Bonjour, j'aimerais un devis."}`
		req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(body))
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		h.Submit(w, req)
		return w.Code
	}

	for i := 0; i < 2; i++ {
		if code := submit("10.0.0.1:1234"); code != http.StatusCreated {
			t.Fatalf("request %d: expected 201 got %d", i, code)
		}
	}
	if code := submit("10.0.0.1:1234"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", code)
	}
	// a different client is unaffected
	if code := submit("10.0.0.2:1234"); code != http.StatusCreated {
		t.Fatalf("other ip: expected 201 got %d", code)
	}
}

func TestContactThrottleKeyUsesFirstForwardedAddress(t *testing.T) {
	conn := setupTestDB(t)
	limiter := ratelimit.New(2, time.Hour)
	defer limiter.Stop()
	h := NewContactHandler(conn, &mail.Mock{}, limiter, zap.NewNop(), "")

	submit := func(forwarded string) int {
		body := `{"name":"Moussa","email":"moussa@example.com","body":"Bonjour, j'aimerais un devis."}`
		req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(body))
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set("X-Forwarded-For", forwarded)
		w := httptest.NewRecorder()
		h.Submit(w, req)
		return w.Code
	}

	// rotating the proxy chain after the client address must not reset the counter
	chains := []string{"203.0.113.7", "203.0.113.7, 172.16.0.1", "203.0.113.7, 172.16.0.2, 172.16.0.3"}
	for i, fwd := range chains[:2] {
		if code := submit(fwd); code != http.StatusCreated {
			t.Fatalf("request %d: expected 201 got %d", i, code)
		}
	}
	if code := submit(chains[2]); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", code)
	}
}

func TestContactSubmitMailFailureStillStores(t *testing.T) {
	conn := setupTestDB(t)
	limiter := ratelimit.New(5, time.Hour)
	defer limiter.Stop()
	h := NewContactHandler(conn, &mail.Mock{Err: fmt.Errorf("smtp down")}, limiter, zap.NewNop(), "owner@test")

	body := `{"name":"Moussa","email":"moussa@example.com","body":"Bonjour, j'aimerais un devis."}`
	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Submit(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	var count int64
	conn.Model(&models.ContactMessage{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 stored message got %d", count)
	}
}
