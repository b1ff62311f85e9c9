package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/vantage-media/quote-api/internal/domain"
	"gorm.io/gorm"
)

// ErrMultipleMatches is returned by FindUnique queries that match more than
// one row. Callers must treat ambiguity as an error, never pick silently.
var ErrMultipleMatches = errors.New("query matched multiple rows, expected exactly one")

type VendorSupportRepository struct {
	db *gorm.DB
}

func NewVendorSupportRepository(db *gorm.DB) *VendorSupportRepository {
	return &VendorSupportRepository{db: db}
}

func (r *VendorSupportRepository) Create(ctx context.Context, support *domain.VendorSupport) error {
	return r.db.WithContext(ctx).Create(support).Error
}

func (r *VendorSupportRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.VendorSupport, error) {
	var support domain.VendorSupport
	err := r.db.WithContext(ctx).
		Preload("Vendor").
		Preload("FreeTiers", func(db *gorm.DB) *gorm.DB {
			return db.Order("vendor_support_free_tiers.min_qty ASC")
		}).
		Where("id = ?", id).
		First(&support).Error
	if err != nil {
		return nil, err
	}
	return &support, nil
}

func (r *VendorSupportRepository) Update(ctx context.Context, support *domain.VendorSupport) error {
	return r.db.WithContext(ctx).Save(support).Error
}

func (r *VendorSupportRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.VendorSupport{}, "id = ?", id).Error
}

func (r *VendorSupportRepository) List(ctx context.Context, page, pageSize int, companyID *domain.CompanyID, blacklisted *bool, search string) ([]domain.VendorSupport, int64, error) {
	var supports []domain.VendorSupport
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.VendorSupport{}).
		Preload("Vendor").
		Preload("FreeTiers")

	if companyID != nil {
		query = query.Where("company_id = ?", *companyID)
	}

	if blacklisted != nil {
		query = query.Where("blacklisted = ?", *blacklisted)
	}

	if search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ?", pattern)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Offset(offset).Limit(pageSize).Order("name ASC").Find(&supports).Error

	return supports, total, err
}

// ListByVendor returns all supports belonging to a vendor
func (r *VendorSupportRepository) ListByVendor(ctx context.Context, vendorID uuid.UUID) ([]domain.VendorSupport, error) {
	var supports []domain.VendorSupport
	err := r.db.WithContext(ctx).
		Preload("FreeTiers").
		Where("vendor_id = ?", vendorID).
		Find(&supports).Error
	return supports, err
}

// FindUniqueByVendor returns the single support of a vendor.
// Returns gorm.ErrRecordNotFound when none exist and ErrMultipleMatches when
// the vendor has more than one support.
func (r *VendorSupportRepository) FindUniqueByVendor(ctx context.Context, vendorID uuid.UUID) (*domain.VendorSupport, error) {
	var supports []domain.VendorSupport
	err := r.db.WithContext(ctx).
		Preload("FreeTiers").
		Where("vendor_id = ?", vendorID).
		Limit(2).
		Find(&supports).Error
	if err != nil {
		return nil, err
	}

	switch len(supports) {
	case 0:
		return nil, gorm.ErrRecordNotFound
	case 1:
		return &supports[0], nil
	default:
		return nil, ErrMultipleMatches
	}
}

// ReplaceFreeTiers swaps the complete tier list of a support
func (r *VendorSupportRepository) ReplaceFreeTiers(ctx context.Context, supportID uuid.UUID, tiers []domain.VendorSupportFreeTier) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&domain.VendorSupportFreeTier{}, "support_id = ?", supportID).Error; err != nil {
			return err
		}
		if len(tiers) == 0 {
			return nil
		}
		for i := range tiers {
			tiers[i].SupportID = supportID
		}
		return tx.Create(&tiers).Error
	})
}
