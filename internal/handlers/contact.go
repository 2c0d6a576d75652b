package handlers

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sfall/freelance-office/internal/httpx"
	"github.com/sfall/freelance-office/internal/i18n"
	"github.com/sfall/freelance-office/internal/mail"
	"github.com/sfall/freelance-office/internal/models"
	"github.com/sfall/freelance-office/internal/ratelimit"
)

// ContactHandler accepts public contact-form submissions, throttled per
// client IP by the injected limiter. The notification email to the owner is
// best-effort.
type ContactHandler struct {
	DB         *gorm.DB
	Mailer     mail.Mailer
	Limiter    *ratelimit.Limiter
	Log        *zap.Logger
	OwnerEmail string
	validate   *validator.Validate
}

func NewContactHandler(db *gorm.DB, mailer mail.Mailer, limiter *ratelimit.Limiter, log *zap.Logger, ownerEmail string) *ContactHandler {
	return &ContactHandler{DB: db, Mailer: mailer, Limiter: limiter, Log: log, OwnerEmail: ownerEmail, validate: validator.New()}
}

type contactReq struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject"`
	Body    string `json:"body" validate:"required,min=10"`
}

// Submit: POST /contact (public)
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if !h.Limiter.Check(clientIP(r)) {
		httpx.JSONError(w, http.StatusTooManyRequests, "rate_limited", nil)
		return
	}
	var req contactReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", validatorDetails(err))
		return
	}
	msg := models.ContactMessage{Name: req.Name, Email: req.Email, Subject: req.Subject, Body: req.Body}
	if err := h.DB.Create(&msg).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_save_message", nil)
		return
	}
	if h.OwnerEmail != "" {
		err := h.Mailer.Send(r.Context(), mail.Message{
			To:      h.OwnerEmail,
			Subject: i18n.T("fr", "contact_subject") + ": " + req.Subject,
			Body:    req.Name + " <" + req.Email + ">\n\n" + req.Body,
		})
		if err != nil {
			h.Log.Warn("contact notification email failed", zap.Error(err))
		}
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"id": msg.ID, "status": "received"})
}

// clientIP derives the throttling key. A reverse proxy sets X-Forwarded-For;
// only the first address is used so extra hops (or attacker-appended
// entries) cannot multiply keys. Falls back to the socket address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
