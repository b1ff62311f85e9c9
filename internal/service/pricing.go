package service

import (
	"math"

	"github.com/vantage-media/quote-api/internal/domain"
)

// ComputeCommissionPct derives the commission percentage of a line from its
// price and cost. When the price is zero or the cost is unknown no margin can
// be derived and the support's configured fallback commission applies.
func ComputeCommissionPct(price, cost, fallbackPct float64) float64 {
	if price <= 0 {
		return fallbackPct
	}
	if cost <= 0 {
		return fallbackPct
	}
	return round2((price - cost) / price * 100)
}

// ComputeApprovalTier derives the review depth a quote requires from its
// lines and total. Only lines with quantity > 0 that are not generated count.
// N2 review is required when any considered line's commission is below the
// configured floor, when the order total exceeds the configured ceiling, or
// when a line's commission exceeds its support's configured commission.
func ComputeApprovalTier(lines []domain.QuoteLine, orderTotal, commissionFloorPct, orderTotalCeiling float64) domain.ApprovalTier {
	considered := 0
	requiresN2 := false

	for i := range lines {
		line := &lines[i]
		if line.Quantity <= 0 || line.Kind.IsGenerated() {
			continue
		}
		considered++

		if line.CommissionPct < commissionFloorPct {
			requiresN2 = true
		}
		if line.Support != nil && line.CommissionPct > line.Support.CommissionPct {
			requiresN2 = true
		}
	}

	if considered == 0 {
		return domain.ApprovalTierNone
	}
	if orderTotal > orderTotalCeiling {
		requiresN2 = true
	}
	if requiresN2 {
		return domain.ApprovalTierN2
	}
	return domain.ApprovalTierN1
}

// ComputeOrderedTotal sums all line subtotals in the quote currency
func ComputeOrderedTotal(lines []domain.QuoteLine) float64 {
	total := 0.0
	for i := range lines {
		total += lines[i].Subtotal()
	}
	return round2(total)
}

// FloorTo floors v down to a multiple of precision. A non-positive precision
// is treated as 1.
func FloorTo(v, precision float64) float64 {
	if precision <= 0 {
		precision = 1
	}
	return math.Floor(v/precision+1e-9) * precision
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
