// Package auth validates the back-office session cookie. The session itself
// is established by an external OAuth callback restricted to the single
// authorized account; this package only signs, parses, and enforces it.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
	"time"
)

type ctxKey string

const (
	sessionCookieName = "session"
	accountCtxKey     = ctxKey("account")
)

// Sessions holds the signing secret and the only email allowed in.
type Sessions struct {
	Secret     string
	AdminEmail string
}

func (s *Sessions) sign(email string) string {
	mac := hmac.New(sha256.New, []byte(s.Secret))
	mac.Write([]byte(email))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Create sets a signed cookie for the given account email. Called by the
// OAuth callback after the provider confirmed the identity.
func (s *Sessions) Create(w http.ResponseWriter, email string) {
	value := base64.RawURLEncoding.EncodeToString([]byte(email)) + "." + s.sign(email)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(14 * 24 * time.Hour),
	})
}

// Clear deletes the session cookie.
func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: sessionCookieName, Value: "", Path: "/", Expires: time.Unix(0, 0), HttpOnly: true, SameSite: http.SameSiteLaxMode})
}

// Parse validates the cookie signature and returns the account email.
func (s *Sessions) Parse(r *http.Request) (string, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	parts := strings.Split(c.Value, ".")
	if len(parts) != 2 {
		return "", false
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", false
	}
	email := string(raw)
	if !hmac.Equal([]byte(parts[1]), []byte(s.sign(email))) {
		return "", false
	}
	return email, true
}

// WithAccount stores the account email in context.
func WithAccount(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, accountCtxKey, email)
}

// AccountFromContext extracts the account email.
func AccountFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(accountCtxKey).(string)
	return v, ok && v != ""
}

// Middleware attaches the account email to the request context if a valid
// session cookie is present.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if email, ok := s.Parse(r); ok {
			r = r.WithContext(WithAccount(r.Context(), email))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests whose session does not belong to the
// authorized account.
func (s *Sessions) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, ok := AccountFromContext(r.Context())
		if !ok || (s.AdminEmail != "" && email != s.AdminEmail) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
