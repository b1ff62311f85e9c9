package handler

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/vantage-media/quote-api/internal/domain"
	"github.com/vantage-media/quote-api/internal/mapper"
	"github.com/vantage-media/quote-api/internal/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type PurchaseHandler struct {
	purchaseService *service.PurchaseService
	logger          *zap.Logger
}

func NewPurchaseHandler(purchaseService *service.PurchaseService, logger *zap.Logger) *PurchaseHandler {
	return &PurchaseHandler{
		purchaseService: purchaseService,
		logger:          logger,
	}
}

// @Summary List purchase commitments
// @Tags Purchase Commitments
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Param vendorId query string false "Filter by vendor ID"
// @Success 200 {object} domain.PaginatedResponse
// @Security BearerAuth
// @Router /commitments [get]
func (h *PurchaseHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePaging(r)

	var vendorID *uuid.UUID
	if v := r.URL.Query().Get("vendorId"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			vendorID = &id
		}
	}

	commitments, total, err := h.purchaseService.List(r.Context(), page, pageSize, vendorID)
	if err != nil {
		h.logger.Error("failed to list commitments", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to list commitments")
		return
	}

	dtos := mapper.ToPurchaseCommitmentDTOs(commitments)
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	respondJSON(w, http.StatusOK, domain.PaginatedResponse{
		Items:      dtos,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	})
}

// @Summary Get purchase commitment
// @Tags Purchase Commitments
// @Produce json
// @Param id path string true "Commitment ID"
// @Success 200 {object} domain.PurchaseCommitmentDTO
// @Failure 404 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /commitments/{id} [get]
func (h *PurchaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	commitment, err := h.purchaseService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondWithError(w, http.StatusNotFound, "Commitment not found")
			return
		}
		h.logger.Error("failed to get commitment", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to get commitment")
		return
	}

	respondJSON(w, http.StatusOK, mapper.ToPurchaseCommitmentDTO(commitment))
}
