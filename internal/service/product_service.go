package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vantage-media/quote-api/internal/auth"
	"github.com/vantage-media/quote-api/internal/domain"
	"github.com/vantage-media/quote-api/internal/mapper"
	"github.com/vantage-media/quote-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProductService manages the catalog. The standard cost is never set
// directly: it is derived from the public price and the commission of the
// product's resolved support, so vendor margins stay consistent with the
// commission configuration.
type ProductService struct {
	products *repository.ProductRepository
	sellers  *repository.SupplierInfoRepository
	catalog  *CatalogService
	logger   *zap.Logger
}

func NewProductService(
	products *repository.ProductRepository,
	sellers *repository.SupplierInfoRepository,
	catalog *CatalogService,
	logger *zap.Logger,
) *ProductService {
	return &ProductService{
		products: products,
		sellers:  sellers,
		catalog:  catalog,
		logger:   logger,
	}
}

// Create adds a catalog entry
func (s *ProductService) Create(ctx context.Context, req *domain.CreateProductRequest, actor *auth.UserContext) (*domain.ProductDTO, error) {
	if err := validateValidityRange(req.ValidFrom, req.ValidTo); err != nil {
		return nil, err
	}

	kind := req.Kind
	if kind == "" {
		kind = domain.ProductKindInternal
	}
	unit := req.Unit
	if unit == "" {
		unit = "unit"
	}

	product := &domain.Product{
		Code:        req.Code,
		Name:        req.Name,
		Kind:        kind,
		PublicPrice: req.PublicPrice,
		Unit:        unit,
		ValidFrom:   req.ValidFrom,
		ValidTo:     req.ValidTo,
		VendorID:    req.VendorID,
		SupportID:   req.SupportID,
		Sellable:    true,
		Purchasable: kind.RequiresProcurement(),
	}
	product.StandardCost = s.deriveStandardCost(ctx, product)

	if err := s.products.Create(ctx, product); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: product code %s already exists", ErrConflict, req.Code)
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info("product created",
		zap.String("productID", product.ID.String()),
		zap.String("code", product.Code),
	)

	return mapper.ToProductDTO(product), nil
}

// Get returns a product
func (s *ProductService) Get(ctx context.Context, id uuid.UUID) (*domain.ProductDTO, error) {
	product, err := s.getProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	return mapper.ToProductDTO(product), nil
}

// List returns a page of products
func (s *ProductService) List(ctx context.Context, page, pageSize int, kind *domain.ProductKind, sellable *bool, search string) (*domain.PaginatedResponse, error) {
	products, total, err := s.products.List(ctx, page, pageSize, kind, sellable, search)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	dtos := make([]domain.ProductDTO, 0, len(products))
	for i := range products {
		dtos = append(dtos, *mapper.ToProductDTO(&products[i]))
	}
	return paginate(dtos, total, page, pageSize), nil
}

// Update edits a product and re-derives its standard cost
func (s *ProductService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateProductRequest, actor *auth.UserContext) (*domain.ProductDTO, error) {
	product, err := s.getProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Kind != nil {
		product.Kind = *req.Kind
	}
	if req.PublicPrice != nil {
		product.PublicPrice = *req.PublicPrice
	}
	if req.Unit != nil {
		product.Unit = *req.Unit
	}
	if req.ValidFrom != nil {
		product.ValidFrom = req.ValidFrom
	}
	if req.ValidTo != nil {
		product.ValidTo = req.ValidTo
	}
	if req.VendorID != nil {
		product.VendorID = req.VendorID
		product.Vendor = nil
	}
	if req.SupportID != nil {
		product.SupportID = req.SupportID
		product.Support = nil
	}
	if req.Sellable != nil {
		product.Sellable = *req.Sellable
	}
	if req.Purchasable != nil {
		product.Purchasable = *req.Purchasable
	}

	if err := validateValidityRange(product.ValidFrom, product.ValidTo); err != nil {
		return nil, err
	}
	product.StandardCost = s.deriveStandardCost(ctx, product)

	if err := s.products.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return mapper.ToProductDTO(product), nil
}

// Delete removes a catalog entry
func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.getProduct(ctx, id); err != nil {
		return err
	}
	return s.products.Delete(ctx, id)
}

// AddSupplierInfo records purchasing terms a vendor offers for the product
func (s *ProductService) AddSupplierInfo(ctx context.Context, productID uuid.UUID, req *domain.CreateSupplierInfoRequest) (*domain.SupplierInfoDTO, error) {
	if _, err := s.getProduct(ctx, productID); err != nil {
		return nil, err
	}
	if err := validateValidityRange(req.ValidFrom, req.ValidTo); err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = "EUR"
	}
	unit := req.PurchaseUnit
	if unit == "" {
		unit = "unit"
	}
	ratio := req.PurchaseUnitRatio
	if ratio <= 0 {
		ratio = 1
	}

	info := &domain.SupplierInfo{
		ProductID:         productID,
		VendorID:          req.VendorID,
		SupportID:         req.SupportID,
		Price:             req.Price,
		Currency:          currency,
		MinQty:            req.MinQty,
		LeadTimeDays:      req.LeadTimeDays,
		PurchaseUnit:      unit,
		PurchaseUnitRatio: ratio,
		ValidFrom:         req.ValidFrom,
		ValidTo:           req.ValidTo,
	}
	if err := s.sellers.Create(ctx, info); err != nil {
		return nil, fmt.Errorf("failed to create supplier info: %w", err)
	}

	return mapper.ToSupplierInfoDTO(info), nil
}

// ListSupplierInfo returns the product's purchasing terms
func (s *ProductService) ListSupplierInfo(ctx context.Context, productID uuid.UUID) ([]domain.SupplierInfoDTO, error) {
	infos, err := s.sellers.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list supplier info: %w", err)
	}
	dtos := make([]domain.SupplierInfoDTO, 0, len(infos))
	for i := range infos {
		dtos = append(dtos, *mapper.ToSupplierInfoDTO(&infos[i]))
	}
	return dtos, nil
}

// DeleteSupplierInfo removes one purchasing terms row
func (s *ProductService) DeleteSupplierInfo(ctx context.Context, id uuid.UUID) error {
	if _, err := s.sellers.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: supplier info not found", ErrNotFound)
		}
		return fmt.Errorf("failed to load supplier info: %w", err)
	}
	return s.sellers.Delete(ctx, id)
}

// deriveStandardCost computes the cost backing margin calculations from the
// public price and the resolved support commission. Products without a
// resolvable support keep a zero cost, which routes their commission to the
// fallback path.
func (s *ProductService) deriveStandardCost(ctx context.Context, product *domain.Product) float64 {
	if product.PublicPrice <= 0 {
		return 0
	}
	support, err := s.catalog.ResolveSupportForProduct(ctx, product)
	if err != nil {
		return 0
	}
	cost := product.PublicPrice * (1 - support.CommissionPct/100)
	if cost < 0 {
		return 0
	}
	return round2(cost)
}

func (s *ProductService) getProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product not found", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	return product, nil
}

func validateValidityRange(from, to *time.Time) error {
	if from != nil && to != nil && from.After(*to) {
		return ErrInvalidValidityRange
	}
	return nil
}
