package handler

import (
	"encoding/json"
	"net/http"

	"github.com/vantage-media/quote-api/internal/domain"
	"github.com/vantage-media/quote-api/internal/service"
	"go.uber.org/zap"
)

type VendorHandler struct {
	vendorService *service.VendorService
	logger        *zap.Logger
}

func NewVendorHandler(vendorService *service.VendorService, logger *zap.Logger) *VendorHandler {
	return &VendorHandler{
		vendorService: vendorService,
		logger:        logger,
	}
}

// @Summary List vendors
// @Tags Vendors
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Param search query string false "Search by name"
// @Success 200 {object} domain.PaginatedResponse
// @Security BearerAuth
// @Router /vendors [get]
func (h *VendorHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePaging(r)

	result, err := h.vendorService.List(r.Context(), page, pageSize, r.URL.Query().Get("search"))
	if err != nil {
		h.logger.Error("failed to list vendors", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to list vendors")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// @Summary Create vendor
// @Tags Vendors
// @Accept json
// @Produce json
// @Param request body domain.CreateVendorRequest true "Vendor data"
// @Success 201 {object} domain.VendorDTO
// @Failure 400 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /vendors [post]
func (h *VendorHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateVendorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	vendor, err := h.vendorService.Create(r.Context(), &req)
	if err != nil {
		h.logger.Error("failed to create vendor", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Location", "/api/v1/vendors/"+vendor.ID.String())
	respondJSON(w, http.StatusCreated, vendor)
}

// @Summary Get vendor
// @Tags Vendors
// @Produce json
// @Param id path string true "Vendor ID"
// @Success 200 {object} domain.VendorDTO
// @Failure 404 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /vendors/{id} [get]
func (h *VendorHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	vendor, err := h.vendorService.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, vendor)
}

// @Summary Update vendor
// @Tags Vendors
// @Accept json
// @Produce json
// @Param id path string true "Vendor ID"
// @Param request body domain.UpdateVendorRequest true "Fields to update"
// @Success 200 {object} domain.VendorDTO
// @Failure 404 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /vendors/{id} [put]
func (h *VendorHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var req domain.UpdateVendorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	vendor, err := h.vendorService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, vendor)
}

// @Summary Delete vendor
// @Description Deletes a vendor that has no supports left
// @Tags Vendors
// @Param id path string true "Vendor ID"
// @Success 204
// @Failure 409 {object} domain.ErrorResponse "Vendor still has supports"
// @Security BearerAuth
// @Router /vendors/{id} [delete]
func (h *VendorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	if err := h.vendorService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
