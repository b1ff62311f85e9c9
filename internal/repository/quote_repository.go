package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/vantage-media/quote-api/internal/domain"
	"gorm.io/gorm"
)

type QuoteRepository struct {
	db *gorm.DB
}

func NewQuoteRepository(db *gorm.DB) *QuoteRepository {
	return &QuoteRepository{db: db}
}

func (r *QuoteRepository) Create(ctx context.Context, quote *domain.Quote) error {
	return r.db.WithContext(ctx).Create(quote).Error
}

func (r *QuoteRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Quote, error) {
	var quote domain.Quote
	err := r.db.WithContext(ctx).
		Preload("Company").
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("quote_lines.sequence ASC")
		}).
		Preload("Lines.Product").
		Preload("Lines.Support").
		Preload("Lines.Support.FreeTiers").
		Preload("Files").
		Where("id = ?", id).
		First(&quote).Error
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *QuoteRepository) Update(ctx context.Context, quote *domain.Quote) error {
	return r.db.WithContext(ctx).Save(quote).Error
}

// UpdateFields updates selected columns without touching associations
func (r *QuoteRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&domain.Quote{}).Where("id = ?", id).Updates(fields).Error
}

func (r *QuoteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Quote{}, "id = ?", id).Error
}

func (r *QuoteRepository) List(ctx context.Context, page, pageSize int, companyID *domain.CompanyID, state *domain.QuoteState, opportunityID *uuid.UUID) ([]domain.Quote, int64, error) {
	var quotes []domain.Quote
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Quote{})

	if companyID != nil {
		query = query.Where("company_id = ?", *companyID)
	}

	if state != nil {
		query = query.Where("state = ?", *state)
	}

	if opportunityID != nil {
		query = query.Where("opportunity_id = ?", *opportunityID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Offset(offset).Limit(pageSize).Order("created_at DESC").Find(&quotes).Error

	return quotes, total, err
}

// CountConfirmedByOpportunity counts confirmed quotes for an opportunity,
// excluding the given quote. Enforces the one-confirmed-quote rule.
func (r *QuoteRepository) CountConfirmedByOpportunity(ctx context.Context, opportunityID uuid.UUID, excludeQuoteID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Quote{}).
		Where("opportunity_id = ?", opportunityID).
		Where("state = ?", domain.QuoteStateConfirmed).
		Where("id <> ?", excludeQuoteID).
		Count(&count).Error
	return count, err
}

func (r *QuoteRepository) Search(ctx context.Context, searchQuery string, limit int) ([]domain.Quote, error) {
	var quotes []domain.Quote
	searchPattern := "%" + strings.ToLower(searchQuery) + "%"
	err := r.db.WithContext(ctx).
		Where("LOWER(number) LIKE ? OR LOWER(customer_name) LIKE ?", searchPattern, searchPattern).
		Limit(limit).
		Find(&quotes).Error
	return quotes, err
}
