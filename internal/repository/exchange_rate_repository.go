package repository

import (
	"context"
	"time"

	"github.com/vantage-media/quote-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ExchangeRateRepository struct {
	db *gorm.DB
}

func NewExchangeRateRepository(db *gorm.DB) *ExchangeRateRepository {
	return &ExchangeRateRepository{db: db}
}

func (r *ExchangeRateRepository) Create(ctx context.Context, rate *domain.ExchangeRate) error {
	return r.db.WithContext(ctx).Create(rate).Error
}

// UpsertBatch inserts rates, updating the rate value when the (pair, date)
// row already exists. Used by the refresh job which re-reads overlapping days.
func (r *ExchangeRateRepository) UpsertBatch(ctx context.Context, rates []domain.ExchangeRate) error {
	if len(rates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "from_currency"},
			{Name: "to_currency"},
			{Name: "rate_date"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"rate"}),
	}).Create(&rates).Error
}

// GetRate returns the most recent rate for the pair effective on or before
// asOf. Returns gorm.ErrRecordNotFound when the pair has no published rate.
func (r *ExchangeRateRepository) GetRate(ctx context.Context, from, to string, asOf time.Time) (*domain.ExchangeRate, error) {
	var rate domain.ExchangeRate
	err := r.db.WithContext(ctx).
		Where("from_currency = ? AND to_currency = ? AND rate_date <= ?", from, to, asOf).
		Order("rate_date DESC").
		First(&rate).Error
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

// LatestRateDate returns the newest rate date in the table, zero time when empty
func (r *ExchangeRateRepository) LatestRateDate(ctx context.Context) (time.Time, error) {
	var rate domain.ExchangeRate
	err := r.db.WithContext(ctx).
		Order("rate_date DESC").
		First(&rate).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return rate.RateDate, nil
}

func (r *ExchangeRateRepository) List(ctx context.Context, from, to string, limit int) ([]domain.ExchangeRate, error) {
	var rates []domain.ExchangeRate

	query := r.db.WithContext(ctx).Model(&domain.ExchangeRate{})

	if from != "" {
		query = query.Where("from_currency = ?", from)
	}
	if to != "" {
		query = query.Where("to_currency = ?", to)
	}

	err := query.Order("rate_date DESC").Limit(limit).Find(&rates).Error
	return rates, err
}
