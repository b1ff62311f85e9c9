package jobs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vantage-media/quote-api/internal/domain"
	"github.com/vantage-media/quote-api/internal/jobs"
	"github.com/vantage-media/quote-api/internal/ratesource"
	"go.uber.org/zap"
)

type stubFetcher struct {
	enabled  bool
	rates    []ratesource.Rate
	err      error
	askedFor time.Time
}

func (f *stubFetcher) FetchRatesSince(ctx context.Context, since time.Time) ([]ratesource.Rate, error) {
	f.askedFor = since
	return f.rates, f.err
}

func (f *stubFetcher) IsEnabled() bool { return f.enabled }

type stubSink struct {
	latest   time.Time
	upserted []domain.ExchangeRate
}

func (s *stubSink) UpsertBatch(ctx context.Context, rates []domain.ExchangeRate) error {
	s.upserted = append(s.upserted, rates...)
	return nil
}

func (s *stubSink) LatestRateDate(ctx context.Context) (time.Time, error) {
	return s.latest, nil
}

func TestRateRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled source is a no-op", func(t *testing.T) {
		sink := &stubSink{}
		job := jobs.NewRateRefreshJob(&stubFetcher{enabled: false}, sink, zap.NewNop(), time.Minute)

		n, err := job.Refresh(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Empty(t, sink.upserted)
	})

	t.Run("fetches the delta since the latest stored date", func(t *testing.T) {
		latest := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
		fetcher := &stubFetcher{
			enabled: true,
			rates: []ratesource.Rate{
				{FromCurrency: "EUR", ToCurrency: "USD", Rate: 1.1, RateDate: latest.AddDate(0, 0, 1)},
				{FromCurrency: "EUR", ToCurrency: "NOK", Rate: 11.4, RateDate: latest.AddDate(0, 0, 1)},
			},
		}
		sink := &stubSink{latest: latest}
		job := jobs.NewRateRefreshJob(fetcher, sink, zap.NewNop(), time.Minute)

		n, err := job.Refresh(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.True(t, fetcher.askedFor.Equal(latest))

		require.Len(t, sink.upserted, 2)
		assert.Equal(t, "USD", sink.upserted[0].ToCurrency)
		assert.Equal(t, 1.1, sink.upserted[0].Rate)
	})

	t.Run("empty table backfills from the past", func(t *testing.T) {
		fetcher := &stubFetcher{enabled: true}
		sink := &stubSink{}
		job := jobs.NewRateRefreshJob(fetcher, sink, zap.NewNop(), time.Minute)

		n, err := job.Refresh(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		// roughly 400 days back
		expected := time.Now().UTC().AddDate(0, 0, -400)
		assert.WithinDuration(t, expected, fetcher.askedFor, time.Hour)
	})

	t.Run("fetch failures surface", func(t *testing.T) {
		fetcher := &stubFetcher{enabled: true, err: errors.New("warehouse offline")}
		job := jobs.NewRateRefreshJob(fetcher, &stubSink{}, zap.NewNop(), time.Minute)

		_, err := job.Refresh(ctx)
		assert.Error(t, err)
	})
}
