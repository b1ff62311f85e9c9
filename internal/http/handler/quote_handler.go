package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vantage-media/quote-api/internal/auth"
	"github.com/vantage-media/quote-api/internal/domain"
	"github.com/vantage-media/quote-api/internal/mapper"
	"github.com/vantage-media/quote-api/internal/service"
	"go.uber.org/zap"
)

type QuoteHandler struct {
	quoteService     *service.QuoteService
	lifecycleService *service.QuoteLifecycleService
	purchaseService  *service.PurchaseService
	logger           *zap.Logger
	maxUploadSize    int64
}

func NewQuoteHandler(
	quoteService *service.QuoteService,
	lifecycleService *service.QuoteLifecycleService,
	purchaseService *service.PurchaseService,
	logger *zap.Logger,
	maxUploadSizeMB int,
) *QuoteHandler {
	return &QuoteHandler{
		quoteService:     quoteService,
		lifecycleService: lifecycleService,
		purchaseService:  purchaseService,
		logger:           logger,
		maxUploadSize:    int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// @Summary List quotes
// @Tags Quotes
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Param companyId query string false "Filter by company"
// @Param state query string false "Filter by state" Enums(draft, sent, min_buy, to_validate, to_confirm, confirmed, cancelled)
// @Param opportunityId query string false "Filter by opportunity ID"
// @Success 200 {object} domain.PaginatedResponse
// @Security BearerAuth
// @Router /quotes [get]
func (h *QuoteHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePaging(r)

	var companyID *domain.CompanyID
	if c := r.URL.Query().Get("companyId"); c != "" {
		cid := domain.CompanyID(c)
		companyID = &cid
	}

	var state *domain.QuoteState
	if s := r.URL.Query().Get("state"); s != "" {
		st := domain.QuoteState(s)
		if !st.IsValid() {
			respondWithError(w, http.StatusBadRequest, "Invalid state filter")
			return
		}
		state = &st
	}

	var opportunityID *uuid.UUID
	if o := r.URL.Query().Get("opportunityId"); o != "" {
		if id, err := uuid.Parse(o); err == nil {
			opportunityID = &id
		}
	}

	result, err := h.quoteService.List(r.Context(), page, pageSize, companyID, state, opportunityID)
	if err != nil {
		h.logger.Error("failed to list quotes", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to list quotes")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// @Summary Create quote
// @Description Creates a new draft quote and assigns its number
// @Tags Quotes
// @Accept json
// @Produce json
// @Param request body domain.CreateQuoteRequest true "Quote data"
// @Success 201 {object} domain.QuoteDTO
// @Failure 400 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /quotes [post]
func (h *QuoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	actor := auth.MustFromContext(r.Context())
	quote, err := h.quoteService.Create(r.Context(), &req, actor)
	if err != nil {
		h.logger.Error("failed to create quote", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Location", "/api/v1/quotes/"+quote.ID.String())
	respondJSON(w, http.StatusCreated, quote)
}

// @Summary Get quote
// @Tags Quotes
// @Produce json
// @Param id path string true "Quote ID"
// @Success 200 {object} domain.QuoteDTO
// @Failure 404 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /quotes/{id} [get]
func (h *QuoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	quote, err := h.quoteService.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, quote)
}

// @Summary Update quote
// @Description Edits mutable header fields on a draft or sent quote
// @Tags Quotes
// @Accept json
// @Produce json
// @Param id path string true "Quote ID"
// @Param request body domain.UpdateQuoteRequest true "Fields to update"
// @Success 200 {object} domain.QuoteDTO
// @Failure 422 {object} domain.ErrorResponse "Quote not editable"
// @Security BearerAuth
// @Router /quotes/{id} [put]
func (h *QuoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var req domain.UpdateQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	actor := auth.MustFromContext(r.Context())
	quote, err := h.quoteService.Update(r.Context(), id, &req, actor)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, quote)
}

// @Summary Delete quote
// @Description Deletes a draft quote and its lines
// @Tags Quotes
// @Param id path string true "Quote ID"
// @Success 204
// @Failure 422 {object} domain.ErrorResponse "Only draft quotes can be deleted"
// @Security BearerAuth
// @Router /quotes/{id} [delete]
func (h *QuoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	if err := h.quoteService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary Add quote line
// @Tags Quote Lines
// @Accept json
// @Produce json
// @Param id path string true "Quote ID"
// @Param request body domain.AddQuoteLineRequest true "Line data"
// @Success 200 {object} domain.QuoteDTO
// @Failure 422 {object} domain.ErrorResponse "Support blacklisted or not available"
// @Security BearerAuth
// @Router /quotes/{id}/lines [post]
func (h *QuoteHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var req domain.AddQuoteLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	actor := auth.MustFromContext(r.Context())
	quote, err := h.quoteService.AddLine(r.Context(), id, &req, actor)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, quote)
}

// @Summary Update quote line
// @Description Edits a regular line. Reconciler-generated lines are rejected.
// @Tags Quote Lines
// @Accept json
// @Produce json
// @Param id path string true "Quote ID"
// @Param lineId path string true "Line ID"
// @Param request body domain.UpdateQuoteLineRequest true "Fields to update"
// @Success 200 {object} domain.QuoteDTO
// @Failure 422 {object} domain.ErrorResponse "Generated line or quote not editable"
// @Security BearerAuth
// @Router /quotes/{id}/lines/{lineId} [put]
func (h *QuoteHandler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	lineID, err := uuid.Parse(chi.URLParam(r, "lineId"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid line ID format")
		return
	}

	var req domain.UpdateQuoteLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	actor := auth.MustFromContext(r.Context())
	quote, err := h.quoteService.UpdateLine(r.Context(), id, lineID, &req, actor)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, quote)
}

// @Summary Delete quote line
// @Tags Quote Lines
// @Produce json
// @Param id path string true "Quote ID"
// @Param lineId path string true "Line ID"
// @Success 200 {object} domain.QuoteDTO
// @Failure 422 {object} domain.ErrorResponse "Generated line or quote not editable"
// @Security BearerAuth
// @Router /quotes/{id}/lines/{lineId} [delete]
func (h *QuoteHandler) DeleteLine(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	lineID, err := uuid.Parse(chi.URLParam(r, "lineId"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid line ID format")
		return
	}

	actor := auth.MustFromContext(r.Context())
	quote, err := h.quoteService.DeleteLine(r.Context(), id, lineID, actor)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, quote)
}

// @Summary Check minimum buy
// @Description Runs the minimum-buy gate in advisory mode without changing state
// @Tags Quote Lifecycle
// @Produce json
// @Param id path string true "Quote ID"
// @Success 200 {object} domain.MinBuyCheckResponse
// @Security BearerAuth
// @Router /quotes/{id}/min-buy-check [get]
func (h *QuoteHandler) CheckMinimumBuy(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	result, err := h.quoteService.CheckMinimumBuy(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// @Summary Request approval
// @Description Runs the minimum-buy gate and routes the quote to its review state. Violations halt the quote in min_buy and are returned in the response.
// @Tags Quote Lifecycle
// @Produce json
// @Param id path string true "Quote ID"
// @Success 200 {object} domain.TransitionResponse
// @Failure 403 {object} domain.ErrorResponse "Min-buy release requires approver role"
// @Failure 422 {object} domain.ErrorResponse "Invalid transition"
// @Security BearerAuth
// @Router /quotes/{id}/request-approval [post]
func (h *QuoteHandler) RequestApproval(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.lifecycleService.RequestApproval)
}

// @Summary Approve quote
// @Description Advances the quote through its review states; the final approval confirms it
// @Tags Quote Lifecycle
// @Produce json
// @Param id path string true "Quote ID"
// @Success 200 {object} domain.TransitionResponse
// @Failure 403 {object} domain.ErrorResponse "Missing approver role"
// @Failure 422 {object} domain.ErrorResponse "Invalid transition or minimum buy not met"
// @Security BearerAuth
// @Router /quotes/{id}/approve [post]
func (h *QuoteHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.lifecycleService.Approve)
}

// @Summary Confirm quote
// @Description Confirms the quote, re-running the minimum-buy gate and fanning out purchase commitments
// @Tags Quote Lifecycle
// @Produce json
// @Param id path string true "Quote ID"
// @Success 200 {object} domain.TransitionResponse
// @Failure 409 {object} domain.ErrorResponse "Already confirmed or opportunity already won"
// @Failure 422 {object} domain.ErrorResponse "Invalid transition or minimum buy not met"
// @Security BearerAuth
// @Router /quotes/{id}/confirm [post]
func (h *QuoteHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.lifecycleService.Confirm)
}

// @Summary Mark quote as sent
// @Tags Quote Lifecycle
// @Produce json
// @Param id path string true "Quote ID"
// @Success 200 {object} domain.TransitionResponse
// @Failure 422 {object} domain.ErrorResponse "Invalid transition"
// @Security BearerAuth
// @Router /quotes/{id}/mark-sent [post]
func (h *QuoteHandler) MarkSent(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.lifecycleService.MarkSent)
}

// @Summary Set quote to draft
// @Tags Quote Lifecycle
// @Produce json
// @Param id path string true "Quote ID"
// @Success 200 {object} domain.TransitionResponse
// @Failure 422 {object} domain.ErrorResponse "Quote is in a terminal state"
// @Security BearerAuth
// @Router /quotes/{id}/set-to-draft [post]
func (h *QuoteHandler) SetToDraft(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.lifecycleService.SetToDraft)
}

// @Summary Cancel quote
// @Tags Quote Lifecycle
// @Produce json
// @Param id path string true "Quote ID"
// @Success 200 {object} domain.TransitionResponse
// @Failure 422 {object} domain.ErrorResponse "Quote is in a terminal state"
// @Security BearerAuth
// @Router /quotes/{id}/cancel [post]
func (h *QuoteHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.lifecycleService.Cancel)
}

// @Summary List purchase commitments of a quote
// @Tags Purchase Commitments
// @Produce json
// @Param id path string true "Quote ID"
// @Success 200 {array} domain.PurchaseCommitmentDTO
// @Security BearerAuth
// @Router /quotes/{id}/commitments [get]
func (h *QuoteHandler) ListCommitments(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	commitments, err := h.purchaseService.ListByQuote(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to list commitments", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to list commitments")
		return
	}

	respondJSON(w, http.StatusOK, mapper.ToPurchaseCommitmentDTOs(commitments))
}

// @Summary List quote activities
// @Tags Quotes
// @Produce json
// @Param id path string true "Quote ID"
// @Param limit query int false "Maximum entries" default(50)
// @Success 200 {array} domain.Activity
// @Security BearerAuth
// @Router /quotes/{id}/activities [get]
func (h *QuoteHandler) ListActivities(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	activities, err := h.quoteService.Activities(r.Context(), id, limit)
	if err != nil {
		h.logger.Error("failed to list activities", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to list activities")
		return
	}

	respondJSON(w, http.StatusOK, activities)
}

// @Summary Attach client purchase order
// @Description Uploads the client PO document requested after confirmation
// @Tags Quotes
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Quote ID"
// @Param file formData file true "Client PO document"
// @Success 201 {object} domain.FileDTO
// @Failure 422 {object} domain.ErrorResponse "Quote not confirmed"
// @Security BearerAuth
// @Router /quotes/{id}/client-po [post]
func (h *QuoteHandler) AttachClientPO(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		respondWithError(w, http.StatusRequestEntityTooLarge, "Upload exceeds size limit")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Missing file field")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	actor := auth.MustFromContext(r.Context())
	dto, err := h.quoteService.AttachClientPO(r.Context(), id, header.Filename, contentType, file, actor)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, dto)
}

// transition runs one state machine entry point and writes the result
func (h *QuoteHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	fn func(ctx context.Context, quoteID uuid.UUID, actor *auth.UserContext) (*domain.TransitionResponse, error),
) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	actor := auth.MustFromContext(r.Context())
	result, err := fn(r.Context(), id, actor)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// parseIDParam parses the {id} route parameter as a UUID
func parseIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid ID format")
		return uuid.Nil, false
	}
	return id, true
}

// parsePaging reads page/pageSize query parameters with the shared defaults
func parsePaging(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 200 {
		pageSize = 200
	}
	return page, pageSize
}
