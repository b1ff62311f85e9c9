package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/vantage-media/quote-api/internal/domain"
	"gorm.io/gorm"
)

type VendorRepository struct {
	db *gorm.DB
}

func NewVendorRepository(db *gorm.DB) *VendorRepository {
	return &VendorRepository{db: db}
}

func (r *VendorRepository) Create(ctx context.Context, vendor *domain.Vendor) error {
	return r.db.WithContext(ctx).Create(vendor).Error
}

func (r *VendorRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Vendor, error) {
	var vendor domain.Vendor
	err := r.db.WithContext(ctx).
		Preload("Supports").
		Where("id = ?", id).
		First(&vendor).Error
	if err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *VendorRepository) Update(ctx context.Context, vendor *domain.Vendor) error {
	return r.db.WithContext(ctx).Save(vendor).Error
}

func (r *VendorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Vendor{}, "id = ?", id).Error
}

func (r *VendorRepository) List(ctx context.Context, page, pageSize int, search string) ([]domain.Vendor, int64, error) {
	var vendors []domain.Vendor
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Vendor{})

	if search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ?", pattern)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Offset(offset).Limit(pageSize).Order("name ASC").Find(&vendors).Error

	return vendors, total, err
}
