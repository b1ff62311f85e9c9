package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vantage-media/quote-api/internal/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Converter converts amounts between currencies at a given date. The quote
// engine only depends on this narrow interface.
type Converter interface {
	Convert(ctx context.Context, amount float64, from, to string, asOf time.Time) (float64, error)
}

// RateStore provides stored exchange rates
type RateStore interface {
	GetRate(ctx context.Context, from, to string, asOf time.Time) (*domain.ExchangeRate, error)
}

// CurrencyService converts amounts using the locally synced exchange rates.
// When no direct rate exists the inverse pair is tried.
type CurrencyService struct {
	rates  RateStore
	logger *zap.Logger
}

func NewCurrencyService(rates RateStore, logger *zap.Logger) *CurrencyService {
	return &CurrencyService{
		rates:  rates,
		logger: logger,
	}
}

// Convert converts amount from one currency to another using the most recent
// rate effective on or before asOf
func (s *CurrencyService) Convert(ctx context.Context, amount float64, from, to string, asOf time.Time) (float64, error) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)

	if from == to || amount == 0 {
		return amount, nil
	}

	rate, err := s.rates.GetRate(ctx, from, to, asOf)
	if err == nil {
		return amount * rate.Rate, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("failed to look up exchange rate: %w", err)
	}

	// Fall back to the inverse pair
	inverse, err := s.rates.GetRate(ctx, to, from, asOf)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("%w: %s/%s as of %s", ErrRateNotFound, from, to, asOf.Format("2006-01-02"))
		}
		return 0, fmt.Errorf("failed to look up exchange rate: %w", err)
	}
	if inverse.Rate == 0 {
		return 0, fmt.Errorf("%w: %s/%s has zero rate", ErrRateNotFound, to, from)
	}

	return amount / inverse.Rate, nil
}
