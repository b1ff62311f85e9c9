package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/vantage-media/quote-api/internal/domain"
	"go.uber.org/zap"
)

// MinimumBuyService aggregates per-support spend and reports supports whose
// cumulative converted subtotal does not clear their minimum-buy amount.
// A subtotal exactly equal to the minimum is a violation.
type MinimumBuyService struct {
	converter Converter
	logger    *zap.Logger
}

func NewMinimumBuyService(converter Converter, logger *zap.Logger) *MinimumBuyService {
	return &MinimumBuyService{
		converter: converter,
		logger:    logger,
	}
}

// Check is non-mutating. The caller decides whether violations merely get
// surfaced (advisory) or block the operation (see CheckBlocking).
func (s *MinimumBuyService) Check(ctx context.Context, quote *domain.Quote) ([]domain.MinBuyViolation, error) {
	companyCurrency := quote.Currency
	if quote.Company != nil && quote.Company.Currency != "" {
		companyCurrency = quote.Company.Currency
	}

	type groupTotal struct {
		support  *domain.VendorSupport
		subtotal float64
	}

	totals := make(map[uuid.UUID]*groupTotal)
	var order []uuid.UUID
	for i := range quote.Lines {
		line := &quote.Lines[i]
		if line.SupportID == nil || line.Support == nil {
			continue
		}

		amount, err := s.converter.Convert(ctx, line.Subtotal(), quote.Currency, companyCurrency, quote.OrderDate)
		if err != nil {
			return nil, fmt.Errorf("failed to convert line subtotal: %w", err)
		}

		g, ok := totals[*line.SupportID]
		if !ok {
			g = &groupTotal{support: line.Support}
			totals[*line.SupportID] = g
			order = append(order, *line.SupportID)
		}
		g.subtotal += amount
	}

	var violations []domain.MinBuyViolation
	for _, supportID := range order {
		g := totals[supportID]
		if g.support.MinimumBuyAmount > 0 && g.subtotal <= g.support.MinimumBuyAmount {
			violations = append(violations, domain.MinBuyViolation{
				SupportID:   supportID,
				SupportName: g.support.Name,
				Subtotal:    g.subtotal,
				Minimum:     g.support.MinimumBuyAmount,
				Currency:    companyCurrency,
			})
		}
	}

	sort.Slice(violations, func(i, j int) bool {
		return violations[i].SupportName < violations[j].SupportName
	})

	return violations, nil
}

// CheckBlocking runs the gate in blocking mode: any violation fails the
// operation with a MinimumBuyError listing every violating support
func (s *MinimumBuyService) CheckBlocking(ctx context.Context, quote *domain.Quote) error {
	violations, err := s.Check(ctx, quote)
	if err != nil {
		return err
	}
	if len(violations) > 0 {
		return &MinimumBuyError{Violations: violations}
	}
	return nil
}
