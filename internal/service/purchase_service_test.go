package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vantage-media/quote-api/internal/domain"
	"github.com/vantage-media/quote-api/internal/service"
	"go.uber.org/zap"
)

type fakeSellerSelector struct {
	sellers map[uuid.UUID]*domain.SupplierInfo
}

func (s *fakeSellerSelector) SelectSeller(ctx context.Context, productID uuid.UUID, vendorID *uuid.UUID, quantity float64, date time.Time) (*domain.SupplierInfo, error) {
	if seller, ok := s.sellers[productID]; ok {
		return seller, nil
	}
	return nil, service.ErrNoSeller
}

type fakeVendorStore struct {
	vendors map[uuid.UUID]*domain.Vendor
}

func (s *fakeVendorStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Vendor, error) {
	vendor, ok := s.vendors[id]
	if !ok {
		return nil, service.ErrNotFound
	}
	return vendor, nil
}

type fakeCommitmentStore struct {
	commitments []domain.PurchaseCommitment
}

func (s *fakeCommitmentStore) Create(ctx context.Context, commitment *domain.PurchaseCommitment) error {
	if commitment.ID == uuid.Nil {
		commitment.ID = uuid.New()
	}
	s.commitments = append(s.commitments, *commitment)
	return nil
}

func (s *fakeCommitmentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.PurchaseCommitment, error) {
	for i := range s.commitments {
		if s.commitments[i].ID == id {
			return &s.commitments[i], nil
		}
	}
	return nil, service.ErrNotFound
}

func (s *fakeCommitmentStore) ListByQuote(ctx context.Context, quoteID uuid.UUID) ([]domain.PurchaseCommitment, error) {
	var out []domain.PurchaseCommitment
	for _, c := range s.commitments {
		if c.QuoteID == quoteID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *fakeCommitmentStore) List(ctx context.Context, page, pageSize int, vendorID *uuid.UUID) ([]domain.PurchaseCommitment, int64, error) {
	return s.commitments, int64(len(s.commitments)), nil
}

type purchaseFixture struct {
	svc     *service.PurchaseService
	store   *fakeCommitmentStore
	vendors *fakeVendorStore
	sellers *fakeSellerSelector
	trail   *fakeActivityStore
}

func newPurchaseFixture(t *testing.T) *purchaseFixture {
	t.Helper()
	log := zap.NewNop()

	store := &fakeCommitmentStore{}
	vendors := &fakeVendorStore{vendors: make(map[uuid.UUID]*domain.Vendor)}
	sellers := &fakeSellerSelector{sellers: make(map[uuid.UUID]*domain.SupplierInfo)}
	trail := &fakeActivityStore{}
	converter := &fakeConverter{rates: map[string]float64{"EUR/USD": 1.1, "USD/EUR": 0.9}}

	svc := service.NewPurchaseService(store, vendors, sellers, converter, service.NewActivityService(trail, log), log)

	return &purchaseFixture{svc: svc, store: store, vendors: vendors, sellers: sellers, trail: trail}
}

func (f *purchaseFixture) addVendor(name, currency string) *domain.Vendor {
	vendor := &domain.Vendor{Name: name, Currency: currency}
	vendor.ID = uuid.New()
	f.vendors.vendors[vendor.ID] = vendor
	return vendor
}

func externalLine(product *domain.Product, qty, unitCost float64) domain.QuoteLine {
	line := domain.QuoteLine{
		ProductID:   product.ID,
		Product:     product,
		Description: product.Name,
		Quantity:    qty,
		Unit:        "unit",
		UnitPrice:   100,
		UnitCost:    unitCost,
		Kind:        domain.LineKindRegular,
	}
	line.ID = uuid.New()
	return line
}

func externalProduct(name string) *domain.Product {
	product := &domain.Product{Name: name, Kind: domain.ProductKindExternal, Unit: "unit"}
	product.ID = uuid.New()
	return product
}

func purchaseQuote(lines ...domain.QuoteLine) *domain.Quote {
	quote := &domain.Quote{
		Number:    "VM-2026-007",
		Currency:  "EUR",
		OrderDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Lines:     lines,
	}
	quote.ID = uuid.New()
	return quote
}

func sellerFor(vendor *domain.Vendor, price float64) *domain.SupplierInfo {
	info := &domain.SupplierInfo{
		VendorID:          vendor.ID,
		Price:             price,
		Currency:          vendor.Currency,
		PurchaseUnit:      "unit",
		PurchaseUnitRatio: 1,
	}
	info.ID = uuid.New()
	return info
}

func TestCreateCommitments_GroupsLinesByVendor(t *testing.T) {
	ctx := context.Background()
	fx := newPurchaseFixture(t)

	alpha := fx.addVendor("Alpha Media", "EUR")
	beta := fx.addVendor("Beta Media", "EUR")

	p1 := externalProduct("Banner")
	p2 := externalProduct("Skyscraper")
	p3 := externalProduct("Interstitial")
	fx.sellers.sellers[p1.ID] = sellerFor(alpha, 40)
	fx.sellers.sellers[p2.ID] = sellerFor(alpha, 60)
	fx.sellers.sellers[p3.ID] = sellerFor(beta, 80)

	quote := purchaseQuote(
		externalLine(p1, 2, 50),
		externalLine(p2, 3, 70),
		externalLine(p3, 1, 90),
	)

	created, err := fx.svc.CreateCommitments(ctx, quote)
	require.NoError(t, err)
	require.Len(t, created, 2)

	// first-appearance vendor order
	assert.Equal(t, alpha.ID, created[0].VendorID)
	assert.Equal(t, beta.ID, created[1].VendorID)

	assert.Len(t, created[0].Lines, 2)
	assert.Len(t, created[1].Lines, 1)

	for _, c := range created {
		assert.Equal(t, quote.ID, c.QuoteID)
		assert.Equal(t, "VM-2026-007", c.Origin)
		assert.Equal(t, domain.CommitmentStateConfirmed, c.State)
		assert.Equal(t, "EUR", c.Currency)
	}

	// one trail entry per commitment
	assert.Len(t, fx.trail.activities, 2)
}

func TestCreateCommitments_SkipsNonProcurableLines(t *testing.T) {
	ctx := context.Background()
	fx := newPurchaseFixture(t)

	vendor := fx.addVendor("Alpha Media", "EUR")
	external := externalProduct("Banner")
	fx.sellers.sellers[external.ID] = sellerFor(vendor, 40)

	internal := &domain.Product{Name: "Consulting", Kind: domain.ProductKindInternal}
	internal.ID = uuid.New()

	zeroQty := externalLine(external, 0, 50)
	generated := externalLine(external, 5, 0)
	generated.Kind = domain.LineKindFreeGoods
	internalLine := externalLine(internal, 5, 50)
	noVendor := externalLine(externalProduct("Unsourced"), 5, 50)

	quote := purchaseQuote(zeroQty, generated, internalLine, noVendor, externalLine(external, 2, 50))

	created, err := fx.svc.CreateCommitments(ctx, quote)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Len(t, created[0].Lines, 1)
}

func TestCreateCommitments_ProductVendorOverrideWins(t *testing.T) {
	ctx := context.Background()
	fx := newPurchaseFixture(t)

	override := fx.addVendor("Preferred Vendor", "USD")
	product := externalProduct("Banner")
	product.VendorID = &override.ID

	quote := purchaseQuote(externalLine(product, 2, 50))

	created, err := fx.svc.CreateCommitments(ctx, quote)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, override.ID, created[0].VendorID)
	assert.Equal(t, "USD", created[0].Currency)
}

func TestCreateCommitments_CostFallbackChain(t *testing.T) {
	ctx := context.Background()
	fx := newPurchaseFixture(t)

	vendor := fx.addVendor("Alpha Media", "EUR")

	t.Run("line unit cost wins when set", func(t *testing.T) {
		product := externalProduct("Banner")
		fx.sellers.sellers[product.ID] = sellerFor(vendor, 40)

		created, err := fx.svc.CreateCommitments(ctx, purchaseQuote(externalLine(product, 2, 55)))
		require.NoError(t, err)
		require.Len(t, created, 1)
		assert.Equal(t, 55.0, created[0].Lines[0].UnitCost)
	})

	t.Run("seller price in seller currency when line cost unknown", func(t *testing.T) {
		usVendor := fx.addVendor("US Vendor", "USD")
		product := externalProduct("US Banner")
		seller := sellerFor(usVendor, 40)
		seller.Currency = "USD"
		fx.sellers.sellers[product.ID] = seller

		created, err := fx.svc.CreateCommitments(ctx, purchaseQuote(externalLine(product, 2, 0)))
		require.NoError(t, err)
		require.Len(t, created, 1)
		// already in the commitment currency, no conversion applied
		assert.Equal(t, 40.0, created[0].Lines[0].UnitCost)
	})

	t.Run("product standard cost as last resort", func(t *testing.T) {
		override := fx.addVendor("Direct Vendor", "EUR")
		product := externalProduct("Direct Banner")
		product.VendorID = &override.ID
		product.StandardCost = 33

		created, err := fx.svc.CreateCommitments(ctx, purchaseQuote(externalLine(product, 2, 0)))
		require.NoError(t, err)
		require.Len(t, created, 1)
		assert.Equal(t, 33.0, created[0].Lines[0].UnitCost)
	})
}

func TestCreateCommitments_AppliesPurchasingTerms(t *testing.T) {
	ctx := context.Background()
	fx := newPurchaseFixture(t)

	vendor := fx.addVendor("Alpha Media", "EUR")
	product := externalProduct("Banner")
	seller := sellerFor(vendor, 40)
	seller.PurchaseUnit = "pack"
	seller.PurchaseUnitRatio = 0.1
	seller.LeadTimeDays = 14
	fx.sellers.sellers[product.ID] = seller

	before := time.Now().UTC()
	created, err := fx.svc.CreateCommitments(ctx, purchaseQuote(externalLine(product, 50, 20)))
	require.NoError(t, err)
	require.Len(t, created, 1)

	line := created[0].Lines[0]
	assert.Equal(t, 5.0, line.Quantity)
	assert.Equal(t, "pack", line.Unit)

	wantEarliest := before.AddDate(0, 0, 14)
	assert.False(t, line.PlannedDate.Before(wantEarliest.Add(-time.Minute)))
	assert.False(t, line.PlannedDate.After(wantEarliest.Add(time.Minute)))
}

func TestCreateCommitments_ConvertsCostToVendorCurrency(t *testing.T) {
	ctx := context.Background()
	fx := newPurchaseFixture(t)

	usVendor := fx.addVendor("US Vendor", "USD")
	product := externalProduct("Banner")
	product.VendorID = &usVendor.ID

	// 50 EUR line cost into a USD commitment at 1.1
	created, err := fx.svc.CreateCommitments(ctx, purchaseQuote(externalLine(product, 2, 50)))
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.InDelta(t, 55.0, created[0].Lines[0].UnitCost, 0.001)
}
