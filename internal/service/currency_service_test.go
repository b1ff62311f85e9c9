package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vantage-media/quote-api/internal/domain"
	"github.com/vantage-media/quote-api/internal/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeRateStore struct {
	rates map[string]float64
}

func (s *fakeRateStore) GetRate(ctx context.Context, from, to string, asOf time.Time) (*domain.ExchangeRate, error) {
	rate, ok := s.rates[from+"/"+to]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &domain.ExchangeRate{FromCurrency: from, ToCurrency: to, Rate: rate, RateDate: asOf}, nil
}

func TestCurrencyConvert(t *testing.T) {
	ctx := context.Background()
	asOf := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("same currency is identity", func(t *testing.T) {
		svc := service.NewCurrencyService(&fakeRateStore{}, zap.NewNop())
		got, err := svc.Convert(ctx, 123.45, "EUR", "EUR", asOf)
		require.NoError(t, err)
		assert.Equal(t, 123.45, got)
	})

	t.Run("zero amount needs no rate", func(t *testing.T) {
		svc := service.NewCurrencyService(&fakeRateStore{}, zap.NewNop())
		got, err := svc.Convert(ctx, 0, "EUR", "USD", asOf)
		require.NoError(t, err)
		assert.Equal(t, 0.0, got)
	})

	t.Run("direct rate applies", func(t *testing.T) {
		store := &fakeRateStore{rates: map[string]float64{"EUR/USD": 1.1}}
		svc := service.NewCurrencyService(store, zap.NewNop())

		got, err := svc.Convert(ctx, 100, "EUR", "USD", asOf)
		require.NoError(t, err)
		assert.InDelta(t, 110.0, got, 0.001)
	})

	t.Run("falls back to the inverse pair", func(t *testing.T) {
		store := &fakeRateStore{rates: map[string]float64{"EUR/USD": 1.25}}
		svc := service.NewCurrencyService(store, zap.NewNop())

		got, err := svc.Convert(ctx, 100, "USD", "EUR", asOf)
		require.NoError(t, err)
		assert.InDelta(t, 80.0, got, 0.001)
	})

	t.Run("currency codes are case insensitive", func(t *testing.T) {
		store := &fakeRateStore{rates: map[string]float64{"EUR/USD": 1.1}}
		svc := service.NewCurrencyService(store, zap.NewNop())

		got, err := svc.Convert(ctx, 100, "eur", "usd", asOf)
		require.NoError(t, err)
		assert.InDelta(t, 110.0, got, 0.001)
	})

	t.Run("unknown pair", func(t *testing.T) {
		svc := service.NewCurrencyService(&fakeRateStore{}, zap.NewNop())

		_, err := svc.Convert(ctx, 100, "EUR", "NOK", asOf)
		assert.ErrorIs(t, err, service.ErrRateNotFound)
	})

	t.Run("zero inverse rate is not divided by", func(t *testing.T) {
		store := &fakeRateStore{rates: map[string]float64{"EUR/USD": 0}}
		svc := service.NewCurrencyService(store, zap.NewNop())

		_, err := svc.Convert(ctx, 100, "USD", "EUR", asOf)
		assert.ErrorIs(t, err, service.ErrRateNotFound)
	})
}
