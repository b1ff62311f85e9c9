package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vantage-media/quote-api/internal/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CatalogProductStore is the product surface the catalog service needs
type CatalogProductStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	GetByCode(ctx context.Context, code string) (*domain.Product, error)
	Create(ctx context.Context, product *domain.Product) error
}

// SellerStore supplies per-product purchasing terms
type SellerStore interface {
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]domain.SupplierInfo, error)
	ListByProductAndVendor(ctx context.Context, productID, vendorID uuid.UUID) ([]domain.SupplierInfo, error)
}

// CatalogSupportStore resolves vendor supports
type CatalogSupportStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.VendorSupport, error)
	FindUniqueByVendor(ctx context.Context, vendorID uuid.UUID) (*domain.VendorSupport, error)
}

// CatalogService answers seller selection and support resolution questions
// from the product catalog, and owns the shared free-goods product.
type CatalogService struct {
	products CatalogProductStore
	sellers  SellerStore
	supports CatalogSupportStore
	logger   *zap.Logger
}

func NewCatalogService(products CatalogProductStore, sellers SellerStore, supports CatalogSupportStore, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		products: products,
		sellers:  sellers,
		supports: supports,
		logger:   logger,
	}
}

// SelectSeller picks the purchasing terms for a product at a quantity and
// date. The row with the greatest MinQty not exceeding the quantity wins,
// ties broken by lowest price. Rows outside their validity window are skipped.
func (s *CatalogService) SelectSeller(ctx context.Context, productID uuid.UUID, vendorID *uuid.UUID, quantity float64, date time.Time) (*domain.SupplierInfo, error) {
	var infos []domain.SupplierInfo
	var err error
	if vendorID != nil {
		infos, err = s.sellers.ListByProductAndVendor(ctx, productID, *vendorID)
	} else {
		infos, err = s.sellers.ListByProduct(ctx, productID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load supplier info: %w", err)
	}

	var best *domain.SupplierInfo
	for i := range infos {
		info := &infos[i]
		if info.ValidFrom != nil && date.Before(*info.ValidFrom) {
			continue
		}
		if info.ValidTo != nil && date.After(*info.ValidTo) {
			continue
		}
		if info.MinQty > quantity {
			continue
		}
		if best == nil ||
			info.MinQty > best.MinQty ||
			(info.MinQty == best.MinQty && info.Price < best.Price) {
			best = info
		}
	}

	if best == nil {
		return nil, ErrNoSeller
	}
	return best, nil
}

// AvailableSupports returns the distinct supports offered by the product's
// sellers. A support set on a quote line must come from this set.
func (s *CatalogService) AvailableSupports(ctx context.Context, productID uuid.UUID) ([]domain.VendorSupport, error) {
	infos, err := s.sellers.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to load supplier info: %w", err)
	}

	seen := make(map[uuid.UUID]bool)
	var supports []domain.VendorSupport
	for i := range infos {
		info := &infos[i]
		if info.SupportID == nil || info.Support == nil || seen[*info.SupportID] {
			continue
		}
		seen[*info.SupportID] = true
		supports = append(supports, *info.Support)
	}

	return supports, nil
}

// ResolveSupportForProduct determines the single support a product belongs
// to. The product's explicit default wins; otherwise the sellers must agree
// on exactly one support. Ambiguity is an error, never resolved silently.
func (s *CatalogService) ResolveSupportForProduct(ctx context.Context, product *domain.Product) (*domain.VendorSupport, error) {
	if product.SupportID != nil {
		support, err := s.supports.GetByID(ctx, *product.SupportID)
		if err != nil {
			return nil, fmt.Errorf("failed to load product support: %w", err)
		}
		return support, nil
	}

	supports, err := s.AvailableSupports(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	switch len(supports) {
	case 1:
		return &supports[0], nil
	case 0:
		// Fall through to the vendor override below
	default:
		return nil, ErrSupportAmbiguous
	}

	if product.VendorID != nil {
		support, err := s.supports.FindUniqueByVendor(ctx, *product.VendorID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		return support, nil
	}

	return nil, ErrNotFound
}

// EnsureFreeGoodsProduct returns the shared synthetic product carried by
// generated free-goods lines, creating it on first use. Search-then-create
// keeps concurrent first calls from producing duplicates: losing the create
// race falls back to the winner's row.
func (s *CatalogService) EnsureFreeGoodsProduct(ctx context.Context) (*domain.Product, error) {
	product, err := s.products.GetByCode(ctx, domain.FreeGoodsProductCode)
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up free goods product: %w", err)
	}

	created := &domain.Product{
		Code:        domain.FreeGoodsProductCode,
		Name:        "Free goods",
		Kind:        domain.ProductKindInternal,
		PublicPrice: 0,
		Unit:        "unit",
		Sellable:    true,
		Purchasable: false,
	}
	if err := s.products.Create(ctx, created); err != nil {
		// Lost the race, the row exists now
		if existing, lookupErr := s.products.GetByCode(ctx, domain.FreeGoodsProductCode); lookupErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("failed to create free goods product: %w", err)
	}

	s.logger.Info("free goods product created",
		zap.String("code", domain.FreeGoodsProductCode),
		zap.String("productID", created.ID.String()),
	)

	return created, nil
}
