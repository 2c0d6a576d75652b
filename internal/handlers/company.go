package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/sfall/freelance-office/internal/httpx"
	"github.com/sfall/freelance-office/internal/models"
)

// CompanyHandler manages the single-row issuer identity printed on documents.
type CompanyHandler struct {
	DB       *gorm.DB
	validate *validator.Validate
}

func NewCompanyHandler(db *gorm.DB) *CompanyHandler {
	return &CompanyHandler{DB: db, validate: validator.New()}
}

type companyReq struct {
	Name         string  `json:"name" validate:"required"`
	SIREN        string  `json:"siren" validate:"omitempty,len=9,numeric"`
	SIRET        string  `json:"siret" validate:"omitempty,len=14,numeric"`
	Address      string  `json:"address"`
	Email        string  `json:"email" validate:"omitempty,email"`
	Phone        string  `json:"phone"`
	IBAN         string  `json:"iban"`
	VATRate      float64 `json:"vat_rate" validate:"gte=0,lte=1"`
	RedevableTVA bool    `json:"redevable_tva"`
}

// Get: GET /company
func (h *CompanyHandler) Get(w http.ResponseWriter, _ *http.Request) {
	var cs models.CompanySettings
	err := h.DB.First(&cs).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		httpx.JSONError(w, http.StatusNotFound, "company_not_configured", nil)
		return
	}
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_company", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, cs)
}

// Save: POST /company - creates or updates the single settings row. New
// values only affect documents created afterwards; issued documents keep
// their snapshot.
func (h *CompanyHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req companyReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", validatorDetails(err))
		return
	}
	var cs models.CompanySettings
	err := h.DB.First(&cs).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_company", nil)
		return
	}
	created := errors.Is(err, gorm.ErrRecordNotFound)
	cs.Name, cs.SIREN, cs.SIRET = req.Name, req.SIREN, req.SIRET
	cs.Address, cs.Email, cs.Phone, cs.IBAN = req.Address, req.Email, req.Phone, req.IBAN
	cs.VATRate, cs.RedevableTVA = req.VATRate, req.RedevableTVA
	if err := h.DB.Save(&cs).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_save_company", nil)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httpx.JSON(w, status, cs)
}
