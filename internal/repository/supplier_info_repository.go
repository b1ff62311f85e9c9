package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/vantage-media/quote-api/internal/domain"
	"gorm.io/gorm"
)

type SupplierInfoRepository struct {
	db *gorm.DB
}

func NewSupplierInfoRepository(db *gorm.DB) *SupplierInfoRepository {
	return &SupplierInfoRepository{db: db}
}

func (r *SupplierInfoRepository) Create(ctx context.Context, info *domain.SupplierInfo) error {
	return r.db.WithContext(ctx).Create(info).Error
}

func (r *SupplierInfoRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SupplierInfo, error) {
	var info domain.SupplierInfo
	err := r.db.WithContext(ctx).
		Preload("Vendor").
		Preload("Support").
		Where("id = ?", id).
		First(&info).Error
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (r *SupplierInfoRepository) Update(ctx context.Context, info *domain.SupplierInfo) error {
	return r.db.WithContext(ctx).Save(info).Error
}

func (r *SupplierInfoRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.SupplierInfo{}, "id = ?", id).Error
}

// ListByProduct returns a product's purchasing terms ordered by min quantity
func (r *SupplierInfoRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]domain.SupplierInfo, error) {
	var infos []domain.SupplierInfo
	err := r.db.WithContext(ctx).
		Preload("Vendor").
		Preload("Support").
		Where("product_id = ?", productID).
		Order("min_qty ASC").
		Find(&infos).Error
	return infos, err
}

// ListByProductAndVendor returns the terms a specific vendor offers for a product
func (r *SupplierInfoRepository) ListByProductAndVendor(ctx context.Context, productID, vendorID uuid.UUID) ([]domain.SupplierInfo, error) {
	var infos []domain.SupplierInfo
	err := r.db.WithContext(ctx).
		Preload("Vendor").
		Preload("Support").
		Where("product_id = ? AND vendor_id = ?", productID, vendorID).
		Order("min_qty ASC").
		Find(&infos).Error
	return infos, err
}
