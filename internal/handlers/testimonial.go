package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sfall/freelance-office/internal/httpx"
	"github.com/sfall/freelance-office/internal/services"
)

// TestimonialHandler covers both sides of the token flow: the admin issues
// tokens, an unauthenticated client redeems one from its emailed link.
type TestimonialHandler struct {
	Svc      *services.TestimonialService
	validate *validator.Validate
}

func NewTestimonialHandler(svc *services.TestimonialService) *TestimonialHandler {
	return &TestimonialHandler{Svc: svc, validate: validator.New()}
}

type issueTokenReq struct {
	ClientEmail string `json:"client_email" validate:"required,email"`
	ClientName  string `json:"client_name" validate:"required"`
	ProjectName string `json:"project_name"`
	SendEmail   bool   `json:"send_email"`
}

// IssueToken: POST /testimonial-tokens (admin)
func (h *TestimonialHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req issueTokenReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", validatorDetails(err))
		return
	}
	tok, err := h.Svc.Issue(r.Context(), services.IssueInput{
		ClientEmail: req.ClientEmail,
		ClientName:  req.ClientName,
		ProjectName: req.ProjectName,
		SendEmail:   req.SendEmail,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"token":      tok,
		"redeem_url": h.Svc.RedemptionURL(tok),
	})
}

// ListTokens: GET /testimonial-tokens (admin)
func (h *TestimonialHandler) ListTokens(w http.ResponseWriter, _ *http.Request) {
	tokens, err := h.Svc.ListTokens()
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_tokens", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": tokens, "total": len(tokens)})
}

// Redeem: POST /t/{token} (public). The capability string is the URL path
// segment; no session is involved.
func (h *TestimonialHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.URL.Path, "/t/")
	if token == "" || strings.Contains(token, "/") {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	var req services.RedeemInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	created, err := h.Svc.Redeem(token, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

// ListPublic: GET /testimonials - the marketing site's feed.
func (h *TestimonialHandler) ListPublic(w http.ResponseWriter, _ *http.Request) {
	items, err := h.Svc.List()
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_testimonials", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": len(items)})
}
