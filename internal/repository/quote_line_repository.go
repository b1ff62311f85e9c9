package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/vantage-media/quote-api/internal/domain"
	"gorm.io/gorm"
)

type QuoteLineRepository struct {
	db *gorm.DB
}

func NewQuoteLineRepository(db *gorm.DB) *QuoteLineRepository {
	return &QuoteLineRepository{db: db}
}

func (r *QuoteLineRepository) Create(ctx context.Context, line *domain.QuoteLine) error {
	return r.db.WithContext(ctx).Create(line).Error
}

func (r *QuoteLineRepository) CreateBatch(ctx context.Context, lines []domain.QuoteLine) error {
	if len(lines) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&lines).Error
}

func (r *QuoteLineRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.QuoteLine, error) {
	var line domain.QuoteLine
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Support").
		Preload("Support.FreeTiers").
		Where("id = ?", id).
		First(&line).Error
	if err != nil {
		return nil, err
	}
	return &line, nil
}

func (r *QuoteLineRepository) Update(ctx context.Context, line *domain.QuoteLine) error {
	return r.db.WithContext(ctx).Save(line).Error
}

func (r *QuoteLineRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.QuoteLine{}, "id = ?", id).Error
}

func (r *QuoteLineRepository) DeleteBatch(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Delete(&domain.QuoteLine{}, "id IN ?", ids).Error
}

// ListByQuote returns all lines of a quote ordered by sequence
func (r *QuoteLineRepository) ListByQuote(ctx context.Context, quoteID uuid.UUID) ([]domain.QuoteLine, error) {
	var lines []domain.QuoteLine
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Support").
		Preload("Support.FreeTiers").
		Where("quote_id = ?", quoteID).
		Order("sequence ASC").
		Find(&lines).Error
	return lines, err
}

// MaxSequence returns the highest sequence number on a quote, 0 when empty
func (r *QuoteLineRepository) MaxSequence(ctx context.Context, quoteID uuid.UUID) (int, error) {
	var max int
	err := r.db.WithContext(ctx).Model(&domain.QuoteLine{}).
		Where("quote_id = ?", quoteID).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&max).Error
	return max, err
}
