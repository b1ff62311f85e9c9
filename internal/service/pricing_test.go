package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vantage-media/quote-api/internal/domain"
	"github.com/vantage-media/quote-api/internal/service"
)

func TestComputeCommissionPct(t *testing.T) {
	t.Run("derives margin from price and cost", func(t *testing.T) {
		assert.Equal(t, 40.0, service.ComputeCommissionPct(100, 60, 15))
		assert.Equal(t, 25.0, service.ComputeCommissionPct(200, 150, 15))
	})

	t.Run("rounds to two decimals", func(t *testing.T) {
		// (100 - 66.67) / 100 * 100 = 33.33
		assert.Equal(t, 33.33, service.ComputeCommissionPct(100, 66.67, 0))
	})

	t.Run("falls back when price is zero", func(t *testing.T) {
		assert.Equal(t, 15.0, service.ComputeCommissionPct(0, 60, 15))
	})

	t.Run("falls back when cost is unknown", func(t *testing.T) {
		assert.Equal(t, 15.0, service.ComputeCommissionPct(100, 0, 15))
		assert.Equal(t, 15.0, service.ComputeCommissionPct(100, -5, 15))
	})

	t.Run("negative margin is kept, not clamped", func(t *testing.T) {
		assert.Equal(t, -50.0, service.ComputeCommissionPct(100, 150, 15))
	})
}

func TestComputeApprovalTier(t *testing.T) {
	support := &domain.VendorSupport{CommissionPct: 30}

	line := func(qty, commission float64, kind domain.LineKind) domain.QuoteLine {
		return domain.QuoteLine{
			Quantity:      qty,
			CommissionPct: commission,
			Kind:          kind,
			Support:       support,
		}
	}

	t.Run("no considered lines means no review", func(t *testing.T) {
		tier := service.ComputeApprovalTier(nil, 0, 10, 50000)
		assert.Equal(t, domain.ApprovalTierNone, tier)

		lines := []domain.QuoteLine{
			line(0, 20, domain.LineKindRegular),
			line(5, 20, domain.LineKindFreeGoods),
		}
		tier = service.ComputeApprovalTier(lines, 0, 10, 50000)
		assert.Equal(t, domain.ApprovalTierNone, tier)
	})

	t.Run("healthy lines under ceiling need first review only", func(t *testing.T) {
		lines := []domain.QuoteLine{line(10, 20, domain.LineKindRegular)}
		tier := service.ComputeApprovalTier(lines, 1000, 10, 50000)
		assert.Equal(t, domain.ApprovalTierN1, tier)
	})

	t.Run("commission below floor escalates", func(t *testing.T) {
		lines := []domain.QuoteLine{
			line(10, 20, domain.LineKindRegular),
			line(5, 4, domain.LineKindRegular),
		}
		tier := service.ComputeApprovalTier(lines, 1000, 10, 50000)
		assert.Equal(t, domain.ApprovalTierN2, tier)
	})

	t.Run("commission above the support's configured pct escalates", func(t *testing.T) {
		lines := []domain.QuoteLine{line(10, 35, domain.LineKindRegular)}
		tier := service.ComputeApprovalTier(lines, 1000, 10, 50000)
		assert.Equal(t, domain.ApprovalTierN2, tier)
	})

	t.Run("total over ceiling escalates", func(t *testing.T) {
		lines := []domain.QuoteLine{line(10, 20, domain.LineKindRegular)}
		tier := service.ComputeApprovalTier(lines, 50001, 10, 50000)
		assert.Equal(t, domain.ApprovalTierN2, tier)

		// exactly at the ceiling stays n1
		tier = service.ComputeApprovalTier(lines, 50000, 10, 50000)
		assert.Equal(t, domain.ApprovalTierN1, tier)
	})

	t.Run("generated lines never escalate", func(t *testing.T) {
		lines := []domain.QuoteLine{
			line(10, 20, domain.LineKindRegular),
			line(2, 0, domain.LineKindFreeGoods),
		}
		tier := service.ComputeApprovalTier(lines, 1000, 10, 50000)
		assert.Equal(t, domain.ApprovalTierN1, tier)
	})
}

func TestComputeOrderedTotal(t *testing.T) {
	lines := []domain.QuoteLine{
		{Quantity: 3, UnitPrice: 100},
		{Quantity: 2, UnitPrice: 49.995},
		{Quantity: 1, UnitPrice: 0},
	}
	assert.Equal(t, 399.99, service.ComputeOrderedTotal(lines))
	assert.Equal(t, 0.0, service.ComputeOrderedTotal(nil))
}

func TestFloorTo(t *testing.T) {
	assert.Equal(t, 4.0, service.FloorTo(4.9, 1))
	assert.Equal(t, 4.5, service.FloorTo(4.74, 0.25))
	assert.Equal(t, 0.0, service.FloorTo(0.9, 1))

	// float noise must not drop a multiple to the slot below
	assert.Equal(t, 3.0, service.FloorTo(0.3*10, 1))

	// non-positive precision behaves like whole units
	assert.Equal(t, 4.0, service.FloorTo(4.9, 0))
}
