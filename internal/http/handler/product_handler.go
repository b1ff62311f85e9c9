package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vantage-media/quote-api/internal/auth"
	"github.com/vantage-media/quote-api/internal/domain"
	"github.com/vantage-media/quote-api/internal/service"
	"go.uber.org/zap"
)

type ProductHandler struct {
	productService *service.ProductService
	logger         *zap.Logger
}

func NewProductHandler(productService *service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// @Summary List products
// @Tags Products
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Param kind query string false "Filter by kind" Enums(internal, external, international, adserving)
// @Param sellable query bool false "Filter by sellable flag"
// @Param search query string false "Search by code or name"
// @Success 200 {object} domain.PaginatedResponse
// @Security BearerAuth
// @Router /products [get]
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePaging(r)

	var kind *domain.ProductKind
	if k := r.URL.Query().Get("kind"); k != "" {
		pk := domain.ProductKind(k)
		kind = &pk
	}

	var sellable *bool
	if s := r.URL.Query().Get("sellable"); s != "" {
		v := s == "true"
		sellable = &v
	}

	result, err := h.productService.List(r.Context(), page, pageSize, kind, sellable, r.URL.Query().Get("search"))
	if err != nil {
		h.logger.Error("failed to list products", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to list products")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// @Summary Create product
// @Description Creates a catalog entry. The standard cost is derived from the public price and the resolved support commission.
// @Tags Products
// @Accept json
// @Produce json
// @Param request body domain.CreateProductRequest true "Product data"
// @Success 201 {object} domain.ProductDTO
// @Failure 400 {object} domain.ErrorResponse "Validation error or invalid validity range"
// @Failure 409 {object} domain.ErrorResponse "Product code already exists"
// @Security BearerAuth
// @Router /products [post]
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	actor := auth.MustFromContext(r.Context())
	product, err := h.productService.Create(r.Context(), &req, actor)
	if err != nil {
		h.logger.Error("failed to create product", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Location", "/api/v1/products/"+product.ID.String())
	respondJSON(w, http.StatusCreated, product)
}

// @Summary Get product
// @Tags Products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} domain.ProductDTO
// @Failure 404 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /products/{id} [get]
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	product, err := h.productService.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, product)
}

// @Summary Update product
// @Tags Products
// @Accept json
// @Produce json
// @Param id path string true "Product ID"
// @Param request body domain.UpdateProductRequest true "Fields to update"
// @Success 200 {object} domain.ProductDTO
// @Failure 400 {object} domain.ErrorResponse "Validation error or invalid validity range"
// @Security BearerAuth
// @Router /products/{id} [put]
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var req domain.UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	actor := auth.MustFromContext(r.Context())
	product, err := h.productService.Update(r.Context(), id, &req, actor)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, product)
}

// @Summary Delete product
// @Tags Products
// @Param id path string true "Product ID"
// @Success 204
// @Failure 404 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /products/{id} [delete]
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	if err := h.productService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary List supplier info
// @Description Returns the purchasing terms vendors offer for the product
// @Tags Products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {array} domain.SupplierInfoDTO
// @Security BearerAuth
// @Router /products/{id}/suppliers [get]
func (h *ProductHandler) ListSupplierInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	infos, err := h.productService.ListSupplierInfo(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to list supplier info", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to list supplier info")
		return
	}

	respondJSON(w, http.StatusOK, infos)
}

// @Summary Add supplier info
// @Description Records the terms a vendor offers for the product
// @Tags Products
// @Accept json
// @Produce json
// @Param id path string true "Product ID"
// @Param request body domain.CreateSupplierInfoRequest true "Supplier terms"
// @Success 201 {object} domain.SupplierInfoDTO
// @Failure 400 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /products/{id}/suppliers [post]
func (h *ProductHandler) AddSupplierInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var req domain.CreateSupplierInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	info, err := h.productService.AddSupplierInfo(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, info)
}

// @Summary Delete supplier info
// @Tags Products
// @Param id path string true "Product ID"
// @Param supplierId path string true "Supplier info ID"
// @Success 204
// @Failure 404 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /products/{id}/suppliers/{supplierId} [delete]
func (h *ProductHandler) DeleteSupplierInfo(w http.ResponseWriter, r *http.Request) {
	supplierID, err := uuid.Parse(chi.URLParam(r, "supplierId"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid supplier info ID format")
		return
	}

	if err := h.productService.DeleteSupplierInfo(r.Context(), supplierID); err != nil {
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
