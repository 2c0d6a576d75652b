package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/sfall/freelance-office/internal/httpx"
	"github.com/sfall/freelance-office/internal/i18n"
	"github.com/sfall/freelance-office/internal/models"
	"github.com/sfall/freelance-office/internal/services"
)

// QuoteHandler exposes the quote lifecycle over JSON endpoints.
type QuoteHandler struct {
	Svc      *services.QuoteService
	validate *validator.Validate
}

func NewQuoteHandler(svc *services.QuoteService) *QuoteHandler {
	return &QuoteHandler{Svc: svc, validate: validator.New()}
}

// idParam reads ?id= and rejects missing/garbage values before any lookup.
func idParam(w http.ResponseWriter, r *http.Request) (uint, bool) {
	raw := r.URL.Query().Get("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"id": "required"})
		return 0, false
	}
	return uint(id), true
}

type quoteItemReq struct {
	Description string          `json:"description" validate:"required"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type quoteCreateReq struct {
	Client struct {
		Name    string `json:"name" validate:"required"`
		Email   string `json:"email" validate:"omitempty,email"`
		Phone   string `json:"phone"`
		Company string `json:"company"`
		Address string `json:"address"`
	} `json:"client"`
	Items         []quoteItemReq  `json:"items" validate:"required,min=1,dive"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	TaxApplicable bool            `json:"tax_applicable"`
	ValidityDays  int             `json:"validity_days" validate:"omitempty,min=1,max=365"`
	Notes         string          `json:"notes"`
}

// Create: POST /quotes
func (h *QuoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req quoteCreateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", validatorDetails(err))
		return
	}
	in := services.CreateQuoteInput{
		Client: models.ClientSnapshot{
			Name:    req.Client.Name,
			Email:   req.Client.Email,
			Phone:   req.Client.Phone,
			Company: req.Client.Company,
			Address: req.Client.Address,
		},
		TaxRate:       req.TaxRate,
		TaxApplicable: req.TaxApplicable,
		ValidityDays:  req.ValidityDays,
		Notes:         req.Notes,
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, services.QuoteItemInput{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	q, err := h.Svc.Create(in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, q)
}

// List: GET /quotes?status=
func (h *QuoteHandler) List(w http.ResponseWriter, r *http.Request) {
	quotes, err := h.Svc.List(r.URL.Query().Get("status"))
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_quotes", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": quotes, "total": len(quotes)})
}

// Get: GET /quotes/get?id=
func (h *QuoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	q, err := h.Svc.Get(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

// Transition: POST /quotes/transition?id= with body {"status": "..."}
func (h *QuoteHandler) Transition(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status" validate:"required,oneof=sent accepted rejected expired"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", validatorDetails(err))
		return
	}
	q, err := h.Svc.Transition(id, req.Status)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

// Send: POST /quotes/send?id= - emails the PDF to the client snapshot address.
func (h *QuoteHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	q, err := h.Svc.SendByEmail(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

// Convert: POST /quotes/convert?id= - creates the invoice from an accepted quote.
func (h *QuoteHandler) Convert(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	inv, err := h.Svc.ConvertToInvoice(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

// Delete: POST /quotes/delete?id=
func (h *QuoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Delete(id); err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ExpireOverdue: POST /quotes/expire-overdue - time-based expiry check.
func (h *QuoteHandler) ExpireOverdue(w http.ResponseWriter, _ *http.Request) {
	count, err := h.Svc.ExpireOverdue()
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_expire", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"expired": count})
}

// PDF: GET /quotes/pdf?id= - streams the rendered document. Labels follow
// the requester's Accept-Language.
func (h *QuoteHandler) PDF(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	q, err := h.Svc.Get(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	data, err := h.Svc.RenderPDF(q, i18n.DetectLanguage(r.Header.Get("Accept-Language")))
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "pdf_generation_failed", nil)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", q.Number+".pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// validatorDetails flattens validator errors into a field -> tag map.
func validatorDetails(err error) map[string]string {
	out := map[string]string{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			out[fe.Field()] = fe.Tag()
		}
	}
	return out
}
