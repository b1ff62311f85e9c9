package jobs

import (
	"context"
	"time"

	"github.com/vantage-media/quote-api/internal/domain"
	"github.com/vantage-media/quote-api/internal/ratesource"
	"go.uber.org/zap"
)

// RateRefreshJobName is the name of the exchange rate refresh job
const RateRefreshJobName = "rate_refresh"

// defaultBackfill is how far back the first run reaches when the local rate
// table is still empty
const defaultBackfill = 400 * 24 * time.Hour

// RateFetcher pulls published exchange rates from the finance warehouse.
// This interface allows the job to run against the warehouse client without
// importing the concrete mssql plumbing in tests.
type RateFetcher interface {
	FetchRatesSince(ctx context.Context, since time.Time) ([]ratesource.Rate, error)
	IsEnabled() bool
}

// RateSink stores fetched rates locally
type RateSink interface {
	UpsertBatch(ctx context.Context, rates []domain.ExchangeRate) error
	LatestRateDate(ctx context.Context) (time.Time, error)
}

// RateRefreshJob pulls the daily exchange rates the minimum-buy gate and the
// purchase fan-out convert with. It fetches only the delta since the latest
// locally stored rate date.
type RateRefreshJob struct {
	source  RateFetcher
	sink    RateSink
	logger  *zap.Logger
	timeout time.Duration
}

// NewRateRefreshJob creates a new exchange rate refresh job.
// The timeout controls how long one refresh is allowed to run.
func NewRateRefreshJob(source RateFetcher, sink RateSink, logger *zap.Logger, timeout time.Duration) *RateRefreshJob {
	return &RateRefreshJob{
		source:  source,
		sink:    sink,
		logger:  logger,
		timeout: timeout,
	}
}

// Run executes one refresh. This is called by the scheduler according to the
// cron expression.
func (j *RateRefreshJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if _, err := j.Refresh(ctx); err != nil {
		j.logger.Error("exchange rate refresh failed", zap.Error(err))
	}
}

// Refresh fetches and stores the rate delta, returning how many rates were
// written
func (j *RateRefreshJob) Refresh(ctx context.Context) (int, error) {
	if !j.source.IsEnabled() {
		j.logger.Debug("rate source disabled, skipping refresh")
		return 0, nil
	}

	start := time.Now()

	since, err := j.sink.LatestRateDate(ctx)
	if err != nil || since.IsZero() {
		since = time.Now().UTC().Add(-defaultBackfill)
	}

	fetched, err := j.source.FetchRatesSince(ctx, since)
	if err != nil {
		return 0, err
	}
	if len(fetched) == 0 {
		j.logger.Info("exchange rates already current",
			zap.Time("since", since))
		return 0, nil
	}

	rates := make([]domain.ExchangeRate, 0, len(fetched))
	for _, r := range fetched {
		rates = append(rates, domain.ExchangeRate{
			FromCurrency: r.FromCurrency,
			ToCurrency:   r.ToCurrency,
			Rate:         r.Rate,
			RateDate:     r.RateDate,
		})
	}
	if err := j.sink.UpsertBatch(ctx, rates); err != nil {
		return 0, err
	}

	j.logger.Info("exchange rate refresh completed",
		zap.Int("rates", len(rates)),
		zap.Time("since", since),
		zap.Duration("duration", time.Since(start)))

	return len(rates), nil
}

// RegisterRateRefreshJob registers the refresh with the scheduler and runs an
// immediate catch-up in the background so a freshly deployed instance does not
// wait for the next cron tick.
func RegisterRateRefreshJob(scheduler *Scheduler, source RateFetcher, sink RateSink, logger *zap.Logger, cronExpr string, timeout time.Duration, runStartupRefresh bool) error {
	job := NewRateRefreshJob(source, sink, logger, timeout)

	if runStartupRefresh {
		go job.Run()
	}

	return scheduler.AddJob(RateRefreshJobName, cronExpr, job.Run)
}
