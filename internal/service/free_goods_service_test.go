package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vantage-media/quote-api/internal/domain"
	"github.com/vantage-media/quote-api/internal/service"
	"go.uber.org/zap"
)

type fakeLineStore struct {
	lines   []domain.QuoteLine
	creates int
	updates int
	deletes int
}

func (s *fakeLineStore) ListByQuote(ctx context.Context, quoteID uuid.UUID) ([]domain.QuoteLine, error) {
	out := make([]domain.QuoteLine, len(s.lines))
	copy(out, s.lines)
	return out, nil
}

func (s *fakeLineStore) CreateBatch(ctx context.Context, lines []domain.QuoteLine) error {
	s.creates += len(lines)
	for i := range lines {
		if lines[i].ID == uuid.Nil {
			lines[i].ID = uuid.New()
		}
		s.lines = append(s.lines, lines[i])
	}
	return nil
}

func (s *fakeLineStore) Update(ctx context.Context, line *domain.QuoteLine) error {
	s.updates++
	for i := range s.lines {
		if s.lines[i].ID == line.ID {
			s.lines[i] = *line
			return nil
		}
	}
	return nil
}

func (s *fakeLineStore) DeleteBatch(ctx context.Context, ids []uuid.UUID) error {
	s.deletes += len(ids)
	deleted := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		deleted[id] = true
	}
	kept := s.lines[:0]
	for _, l := range s.lines {
		if !deleted[l.ID] {
			kept = append(kept, l)
		}
	}
	s.lines = kept
	return nil
}

func (s *fakeLineStore) generated() []domain.QuoteLine {
	var out []domain.QuoteLine
	for _, l := range s.lines {
		if l.Kind.IsGenerated() {
			out = append(out, l)
		}
	}
	return out
}

type fakeFreeGoodsCatalog struct {
	product domain.Product
	calls   int
}

func (c *fakeFreeGoodsCatalog) EnsureFreeGoodsProduct(ctx context.Context) (*domain.Product, error) {
	c.calls++
	p := c.product
	return &p, nil
}

func newTieredSupport(t *testing.T) *domain.VendorSupport {
	t.Helper()
	support := &domain.VendorSupport{
		Name: "Display FR",
		FreeTiers: []domain.VendorSupportFreeTier{
			{ID: uuid.New(), MinQty: 1, FreePercent: 10},
			{ID: uuid.New(), MinQty: 10, FreePercent: 20},
		},
	}
	support.ID = uuid.New()
	return support
}

func paidLine(support *domain.VendorSupport, qty float64, sequence int) domain.QuoteLine {
	supportID := support.ID
	line := domain.QuoteLine{
		ProductID:   uuid.New(),
		Product:     &domain.Product{Code: "BANNER-300", Name: "Banner 300x250"},
		Description: "Banner 300x250",
		Quantity:    qty,
		Unit:        "unit",
		UnitPrice:   100,
		SupportID:   &supportID,
		Support:     support,
		Kind:        domain.LineKindRegular,
		Sequence:    sequence,
	}
	line.ID = uuid.New()
	return line
}

func newFreeGoodsService(store *fakeLineStore, catalog *fakeFreeGoodsCatalog) *service.FreeGoodsService {
	return service.NewFreeGoodsService(store, catalog, 1, zap.NewNop())
}

func TestFreeGoodsReconcile_GeneratesLineWhenTierUnlocked(t *testing.T) {
	ctx := context.Background()
	quoteID := uuid.New()
	support := newTieredSupport(t)

	store := &fakeLineStore{lines: []domain.QuoteLine{paidLine(support, 10, 1)}}
	catalog := &fakeFreeGoodsCatalog{product: domain.Product{Code: domain.FreeGoodsProductCode}}
	catalog.product.ID = uuid.New()

	svc := newFreeGoodsService(store, catalog)
	require.NoError(t, svc.Reconcile(ctx, quoteID))

	generated := store.generated()
	require.Len(t, generated, 1)
	free := generated[0]

	// 10 units at 20% = 2 free
	assert.Equal(t, 2.0, free.Quantity)
	assert.Equal(t, catalog.product.ID, free.ProductID)
	assert.Equal(t, quoteID, free.QuoteID)
	assert.Equal(t, 0.0, free.UnitPrice)
	assert.Equal(t, domain.LineKindFreeGoods, free.Kind)
	assert.Equal(t, "Free goods BANNER-300 (unit) 20%", free.Description)
	require.NotNil(t, free.SupportID)
	assert.Equal(t, support.ID, *free.SupportID)
	require.NotNil(t, free.GeneratorID)
	assert.Equal(t, store.lines[0].ID, *free.GeneratorID)

	// placed right after its generator
	assert.Equal(t, 2, free.Sequence)
}

func TestFreeGoodsReconcile_QuantityFlooredToPrecision(t *testing.T) {
	ctx := context.Background()
	support := newTieredSupport(t)

	// 5 units at 10% = 0.5, floors to zero: no line
	store := &fakeLineStore{lines: []domain.QuoteLine{paidLine(support, 5, 1)}}
	catalog := &fakeFreeGoodsCatalog{}

	svc := newFreeGoodsService(store, catalog)
	require.NoError(t, svc.Reconcile(ctx, uuid.New()))

	assert.Empty(t, store.generated())
	assert.Zero(t, store.creates)
}

func TestFreeGoodsReconcile_Idempotent(t *testing.T) {
	ctx := context.Background()
	quoteID := uuid.New()
	support := newTieredSupport(t)

	store := &fakeLineStore{lines: []domain.QuoteLine{paidLine(support, 12, 1)}}
	catalog := &fakeFreeGoodsCatalog{}
	catalog.product.ID = uuid.New()

	svc := newFreeGoodsService(store, catalog)
	require.NoError(t, svc.Reconcile(ctx, quoteID))
	require.Len(t, store.generated(), 1)

	creates, updates, deletes := store.creates, store.updates, store.deletes
	require.NoError(t, svc.Reconcile(ctx, quoteID))

	assert.Equal(t, creates, store.creates)
	assert.Equal(t, updates, store.updates)
	assert.Equal(t, deletes, store.deletes)
	assert.Len(t, store.generated(), 1)
}

func TestFreeGoodsReconcile_UpdatesDriftedQuantity(t *testing.T) {
	ctx := context.Background()
	quoteID := uuid.New()
	support := newTieredSupport(t)

	store := &fakeLineStore{lines: []domain.QuoteLine{paidLine(support, 10, 1)}}
	catalog := &fakeFreeGoodsCatalog{}
	catalog.product.ID = uuid.New()

	svc := newFreeGoodsService(store, catalog)
	require.NoError(t, svc.Reconcile(ctx, quoteID))
	require.Len(t, store.generated(), 1)

	// Paid quantity grows, generated quantity must follow in place
	store.lines[0].Quantity = 20
	require.NoError(t, svc.Reconcile(ctx, quoteID))

	generated := store.generated()
	require.Len(t, generated, 1)
	assert.Equal(t, 4.0, generated[0].Quantity)
}

func TestFreeGoodsReconcile_DeletesWhenTierNoLongerMet(t *testing.T) {
	ctx := context.Background()
	quoteID := uuid.New()
	support := newTieredSupport(t)

	store := &fakeLineStore{lines: []domain.QuoteLine{paidLine(support, 10, 1)}}
	catalog := &fakeFreeGoodsCatalog{}
	catalog.product.ID = uuid.New()

	svc := newFreeGoodsService(store, catalog)
	require.NoError(t, svc.Reconcile(ctx, quoteID))
	require.Len(t, store.generated(), 1)

	// Paid quantity drops below every yielding threshold
	store.lines[0].Quantity = 3
	require.NoError(t, svc.Reconcile(ctx, quoteID))

	assert.Empty(t, store.generated())
}

func TestFreeGoodsReconcile_DeletesOrphanGeneratedLines(t *testing.T) {
	ctx := context.Background()
	quoteID := uuid.New()

	orphan := domain.QuoteLine{
		ProductID:   uuid.New(),
		Description: "Free goods stray",
		Quantity:    1,
		Kind:        domain.LineKindFreeGoods,
	}
	orphan.ID = uuid.New()

	store := &fakeLineStore{lines: []domain.QuoteLine{orphan}}
	svc := newFreeGoodsService(store, &fakeFreeGoodsCatalog{})

	require.NoError(t, svc.Reconcile(ctx, quoteID))
	assert.Empty(t, store.lines)
}

func TestFreeGoodsReconcile_ShiftsOccupiedSequenceSlot(t *testing.T) {
	ctx := context.Background()
	quoteID := uuid.New()
	support := newTieredSupport(t)

	// Two paid lines on the same support but different products: the free line
	// of the first must land between them, pushing the second down
	first := paidLine(support, 10, 1)
	second := paidLine(support, 1, 2)
	second.Product = &domain.Product{Code: "SKY-160", Name: "Skyscraper"}
	second.Description = "Skyscraper"

	store := &fakeLineStore{lines: []domain.QuoteLine{first, second}}
	catalog := &fakeFreeGoodsCatalog{}
	catalog.product.ID = uuid.New()

	svc := newFreeGoodsService(store, catalog)
	require.NoError(t, svc.Reconcile(ctx, quoteID))

	sequences := make(map[string]int)
	for _, l := range store.lines {
		sequences[l.Description] = l.Sequence
	}

	// first paid stays at 1, its free line takes 2, second paid shifted to 3
	assert.Equal(t, 1, sequences["Banner 300x250"])
	assert.Equal(t, 3, sequences["Skyscraper"])

	for _, l := range store.generated() {
		if l.GeneratorID != nil && *l.GeneratorID == first.ID {
			assert.Equal(t, 2, l.Sequence)
		}
	}
}

func TestFreeGoodsReconcile_SkipsCatalogLookupWithoutTiers(t *testing.T) {
	ctx := context.Background()
	support := &domain.VendorSupport{Name: "No tiers"}
	support.ID = uuid.New()

	store := &fakeLineStore{lines: []domain.QuoteLine{paidLine(support, 100, 1)}}
	catalog := &fakeFreeGoodsCatalog{}

	svc := newFreeGoodsService(store, catalog)
	require.NoError(t, svc.Reconcile(ctx, uuid.New()))

	assert.Zero(t, catalog.calls)
	assert.Empty(t, store.generated())
}
