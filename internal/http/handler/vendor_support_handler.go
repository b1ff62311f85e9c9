package handler

import (
	"encoding/json"
	"net/http"

	"github.com/vantage-media/quote-api/internal/auth"
	"github.com/vantage-media/quote-api/internal/domain"
	"github.com/vantage-media/quote-api/internal/service"
	"go.uber.org/zap"
)

type VendorSupportHandler struct {
	supportService *service.VendorSupportService
	logger         *zap.Logger
}

func NewVendorSupportHandler(supportService *service.VendorSupportService, logger *zap.Logger) *VendorSupportHandler {
	return &VendorSupportHandler{
		supportService: supportService,
		logger:         logger,
	}
}

// @Summary List vendor supports
// @Tags Vendor Supports
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Param companyId query string false "Filter by company"
// @Param blacklisted query bool false "Filter by blacklist flag"
// @Param search query string false "Search by name"
// @Success 200 {object} domain.PaginatedResponse
// @Security BearerAuth
// @Router /vendor-supports [get]
func (h *VendorSupportHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePaging(r)

	var companyID *domain.CompanyID
	if c := r.URL.Query().Get("companyId"); c != "" {
		cid := domain.CompanyID(c)
		companyID = &cid
	}

	var blacklisted *bool
	if b := r.URL.Query().Get("blacklisted"); b != "" {
		v := b == "true"
		blacklisted = &v
	}

	result, err := h.supportService.List(r.Context(), page, pageSize, companyID, blacklisted, r.URL.Query().Get("search"))
	if err != nil {
		h.logger.Error("failed to list vendor supports", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to list vendor supports")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// @Summary Create vendor support
// @Tags Vendor Supports
// @Accept json
// @Produce json
// @Param request body domain.CreateVendorSupportRequest true "Support data"
// @Success 201 {object} domain.VendorSupportDTO
// @Failure 400 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /vendor-supports [post]
func (h *VendorSupportHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateVendorSupportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	actor := auth.MustFromContext(r.Context())
	support, err := h.supportService.Create(r.Context(), &req, actor)
	if err != nil {
		h.logger.Error("failed to create vendor support", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Location", "/api/v1/vendor-supports/"+support.ID.String())
	respondJSON(w, http.StatusCreated, support)
}

// @Summary Get vendor support
// @Tags Vendor Supports
// @Produce json
// @Param id path string true "Support ID"
// @Success 200 {object} domain.VendorSupportDTO
// @Failure 404 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /vendor-supports/{id} [get]
func (h *VendorSupportHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	support, err := h.supportService.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, support)
}

// @Summary Update vendor support
// @Description Edits a support; a freeTiers value replaces the whole tier list
// @Tags Vendor Supports
// @Accept json
// @Produce json
// @Param id path string true "Support ID"
// @Param request body domain.UpdateVendorSupportRequest true "Fields to update"
// @Success 200 {object} domain.VendorSupportDTO
// @Failure 400 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /vendor-supports/{id} [put]
func (h *VendorSupportHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var req domain.UpdateVendorSupportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	actor := auth.MustFromContext(r.Context())
	support, err := h.supportService.Update(r.Context(), id, &req, actor)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, support)
}

// @Summary Delete vendor support
// @Tags Vendor Supports
// @Param id path string true "Support ID"
// @Success 204
// @Failure 404 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /vendor-supports/{id} [delete]
func (h *VendorSupportHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	if err := h.supportService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
