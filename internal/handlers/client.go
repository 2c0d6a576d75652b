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

// ClientHandler manages the CRM records quotes snapshot from.
type ClientHandler struct {
	DB       *gorm.DB
	validate *validator.Validate
}

func NewClientHandler(db *gorm.DB) *ClientHandler {
	return &ClientHandler{DB: db, validate: validator.New()}
}

type clientReq struct {
	Name    string `json:"name" validate:"required"`
	Company string `json:"company"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	SIREN   string `json:"siren" validate:"omitempty,len=9,numeric"`
	SIRET   string `json:"siret" validate:"omitempty,len=14,numeric"`
	Notes   string `json:"notes"`
}

func (h *ClientHandler) decode(w http.ResponseWriter, r *http.Request) (*clientReq, bool) {
	var req clientReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return nil, false
	}
	if err := h.validate.Struct(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", validatorDetails(err))
		return nil, false
	}
	return &req, true
}

// List: GET /clients
func (h *ClientHandler) List(w http.ResponseWriter, _ *http.Request) {
	var clients []models.Client
	if err := h.DB.Order("name").Find(&clients).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_clients", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": clients, "total": len(clients)})
}

// Create: POST /clients
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	c := models.Client{
		Name: req.Name, Company: req.Company, Email: req.Email, Phone: req.Phone,
		Address: req.Address, SIREN: req.SIREN, SIRET: req.SIRET, Notes: req.Notes,
	}
	if err := h.DB.Create(&c).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_client", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

// Update: POST /clients/update?id=
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	var c models.Client
	if err := h.DB.First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_client", nil)
		return
	}
	c.Name, c.Company, c.Email, c.Phone = req.Name, req.Company, req.Email, req.Phone
	c.Address, c.SIREN, c.SIRET, c.Notes = req.Address, req.SIREN, req.SIRET, req.Notes
	if err := h.DB.Save(&c).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_client", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

// Delete: POST /clients/delete?id= - documents keep their snapshot, so this
// has no effect on issued quotes or invoices.
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	res := h.DB.Delete(&models.Client{}, id)
	if res.Error != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_client", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
