package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/vantage-media/quote-api/internal/domain"
	"gorm.io/gorm"
)

type PurchaseCommitmentRepository struct {
	db *gorm.DB
}

func NewPurchaseCommitmentRepository(db *gorm.DB) *PurchaseCommitmentRepository {
	return &PurchaseCommitmentRepository{db: db}
}

// Create persists a commitment together with its lines
func (r *PurchaseCommitmentRepository) Create(ctx context.Context, commitment *domain.PurchaseCommitment) error {
	return r.db.WithContext(ctx).Create(commitment).Error
}

func (r *PurchaseCommitmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PurchaseCommitment, error) {
	var commitment domain.PurchaseCommitment
	err := r.db.WithContext(ctx).
		Preload("Vendor").
		Preload("Lines").
		Preload("Lines.Product").
		Where("id = ?", id).
		First(&commitment).Error
	if err != nil {
		return nil, err
	}
	return &commitment, nil
}

// ListByQuote returns every commitment fanned out from a quote
func (r *PurchaseCommitmentRepository) ListByQuote(ctx context.Context, quoteID uuid.UUID) ([]domain.PurchaseCommitment, error) {
	var commitments []domain.PurchaseCommitment
	err := r.db.WithContext(ctx).
		Preload("Vendor").
		Preload("Lines").
		Preload("Lines.Product").
		Where("quote_id = ?", quoteID).
		Order("created_at ASC").
		Find(&commitments).Error
	return commitments, err
}

func (r *PurchaseCommitmentRepository) List(ctx context.Context, page, pageSize int, vendorID *uuid.UUID) ([]domain.PurchaseCommitment, int64, error) {
	var commitments []domain.PurchaseCommitment
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.PurchaseCommitment{}).
		Preload("Vendor")

	if vendorID != nil {
		query = query.Where("vendor_id = ?", *vendorID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Offset(offset).Limit(pageSize).Order("created_at DESC").Find(&commitments).Error

	return commitments, total, err
}
