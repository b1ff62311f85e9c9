package service_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vantage-media/quote-api/internal/config"
	"github.com/vantage-media/quote-api/internal/domain"
	"github.com/vantage-media/quote-api/internal/repository"
	"github.com/vantage-media/quote-api/internal/service"
	"github.com/vantage-media/quote-api/internal/storage"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type quoteServiceFixture struct {
	db      *gorm.DB
	svc     *service.QuoteService
	vendor  *domain.Vendor
	support *domain.VendorSupport
	product *domain.Product
}

var serviceDBCounter int

// newQuoteServiceFixture wires the full quote engine against an in-memory
// database: real repositories, real reconciler, real pricing.
func newQuoteServiceFixture(t *testing.T) *quoteServiceFixture {
	t.Helper()

	serviceDBCounter++
	dsn := fmt.Sprintf("file:svcdb%d?mode=memory&cache=shared", serviceDBCounter)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&domain.Company{},
		&domain.Vendor{},
		&domain.VendorSupport{},
		&domain.VendorSupportFreeTier{},
		&domain.Product{},
		&domain.SupplierInfo{},
		&domain.Quote{},
		&domain.QuoteLine{},
		&domain.ExchangeRate{},
		&domain.NumberSequence{},
		&domain.Activity{},
		&domain.File{},
	))
	require.NoError(t, db.Create(&domain.Company{
		ID: domain.CompanyMedia, Name: "Vantage Media", Currency: "EUR", IsActive: true,
	}).Error)

	log := zap.NewNop()

	quoteRepo := repository.NewQuoteRepository(db)
	lineRepo := repository.NewQuoteLineRepository(db)
	productRepo := repository.NewProductRepository(db)
	supportRepo := repository.NewVendorSupportRepository(db)
	supplierRepo := repository.NewSupplierInfoRepository(db)
	fileRepo := repository.NewFileRepository(db)
	sequenceRepo := repository.NewNumberSequenceRepository(db)
	rateRepo := repository.NewExchangeRateRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	approval := config.ApprovalConfig{
		CommissionFloorPct: 10,
		OrderTotalCeiling:  50000,
		FreeQtyPrecision:   1,
	}

	activityService := service.NewActivityService(activityRepo, log)
	currencyService := service.NewCurrencyService(rateRepo, log)
	catalogService := service.NewCatalogService(productRepo, supplierRepo, supportRepo, log)
	freeGoodsService := service.NewFreeGoodsService(lineRepo, catalogService, approval.FreeQtyPrecision, log)
	minBuyService := service.NewMinimumBuyService(currencyService, log)

	fileStorage, err := storage.NewStorage(&config.StorageConfig{Mode: "local", LocalBasePath: t.TempDir()}, log)
	require.NoError(t, err)

	svc := service.NewQuoteService(
		quoteRepo, lineRepo, productRepo, supportRepo, fileRepo, sequenceRepo,
		catalogService, freeGoodsService, minBuyService, activityService,
		fileStorage, approval, log,
	)

	// One vendor, one support with a free tier, one external product bound to
	// the support. Price 100 against cost 60 derives a 40% commission, under
	// the support's 45% so no escalation.
	vendor := &domain.Vendor{Name: "Alpha Media", Currency: "EUR"}
	require.NoError(t, db.Create(vendor).Error)

	support := &domain.VendorSupport{
		Name:             "Display FR",
		VendorID:         vendor.ID,
		CompanyID:        domain.CompanyMedia,
		Currency:         "EUR",
		CommissionPct:    45,
		MinimumBuyAmount: 500,
		FreeTiers: []domain.VendorSupportFreeTier{
			{MinQty: 10, FreePercent: 10},
		},
	}
	require.NoError(t, db.Create(support).Error)

	product := &domain.Product{
		Code:         "BANNER-300",
		Name:         "Banner 300x250",
		Kind:         domain.ProductKindExternal,
		PublicPrice:  100,
		StandardCost: 60,
		Unit:         "unit",
		SupportID:    &support.ID,
		Sellable:     true,
		Purchasable:  true,
	}
	require.NoError(t, db.Create(product).Error)

	return &quoteServiceFixture{db: db, svc: svc, vendor: vendor, support: support, product: product}
}

func (f *quoteServiceFixture) createDraft(t *testing.T) *domain.QuoteDTO {
	t.Helper()
	dto, err := f.svc.Create(context.Background(), &domain.CreateQuoteRequest{
		CompanyID:    domain.CompanyMedia,
		CustomerName: "ACME Corp",
	}, salesActor())
	require.NoError(t, err)
	return dto
}

func TestQuoteService_Create(t *testing.T) {
	ctx := context.Background()
	fx := newQuoteServiceFixture(t)

	dto := fx.createDraft(t)
	assert.Equal(t, domain.QuoteStateDraft, dto.State)
	assert.Equal(t, domain.ApprovalTierNone, dto.ApprovalTier)
	assert.Equal(t, "EUR", dto.Currency)

	year := time.Now().UTC().Year()
	assert.Equal(t, fmt.Sprintf("VM-%d-001", year), dto.Number)

	second := fx.createDraft(t)
	assert.Equal(t, fmt.Sprintf("VM-%d-002", year), second.Number)

	_, err := fx.svc.Create(ctx, &domain.CreateQuoteRequest{CompanyID: "nonsense"}, salesActor())
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestQuoteService_AddLineDerivesPricing(t *testing.T) {
	ctx := context.Background()
	fx := newQuoteServiceFixture(t)
	quote := fx.createDraft(t)

	dto, err := fx.svc.AddLine(ctx, quote.ID, &domain.AddQuoteLineRequest{
		ProductID: fx.product.ID,
		Quantity:  10,
		SupportID: &fx.support.ID,
	}, salesActor())
	require.NoError(t, err)

	// paid line plus one generated free line: 10 units at 10%
	require.Len(t, dto.Lines, 2)

	paid := dto.Lines[0]
	assert.Equal(t, domain.LineKindRegular, paid.Kind)
	assert.Equal(t, 100.0, paid.UnitPrice)
	assert.Equal(t, 60.0, paid.UnitCost)
	assert.Equal(t, 40.0, paid.CommissionPct)
	assert.Equal(t, "Banner 300x250", paid.Description)

	free := dto.Lines[1]
	assert.Equal(t, domain.LineKindFreeGoods, free.Kind)
	assert.Equal(t, 1.0, free.Quantity)
	assert.Equal(t, 0.0, free.UnitPrice)
	require.NotNil(t, free.GeneratorID)
	assert.Equal(t, paid.ID, *free.GeneratorID)

	// free line does not count into the total
	assert.Equal(t, 1000.0, dto.OrderedTotal)
	assert.Equal(t, domain.ApprovalTierN1, dto.ApprovalTier)
}

func TestQuoteService_LineGuards(t *testing.T) {
	ctx := context.Background()
	fx := newQuoteServiceFixture(t)
	quote := fx.createDraft(t)

	t.Run("unsellable product rejected", func(t *testing.T) {
		dead := &domain.Product{Code: "DEAD", Name: "Retired", Sellable: false}
		require.NoError(t, fx.db.Create(dead).Error)

		_, err := fx.svc.AddLine(ctx, quote.ID, &domain.AddQuoteLineRequest{
			ProductID: dead.ID,
			Quantity:  1,
		}, salesActor())
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("blacklisted support rejected", func(t *testing.T) {
		banned := &domain.VendorSupport{
			Name: "Banned", VendorID: fx.vendor.ID, CompanyID: domain.CompanyMedia, Blacklisted: true,
		}
		require.NoError(t, fx.db.Create(banned).Error)

		_, err := fx.svc.AddLine(ctx, quote.ID, &domain.AddQuoteLineRequest{
			ProductID: fx.product.ID,
			Quantity:  1,
			SupportID: &banned.ID,
		}, salesActor())
		assert.ErrorIs(t, err, service.ErrSupportBlacklisted)
	})

	t.Run("support not offered for the product rejected", func(t *testing.T) {
		other := &domain.VendorSupport{
			Name: "Other", VendorID: fx.vendor.ID, CompanyID: domain.CompanyMedia,
		}
		require.NoError(t, fx.db.Create(other).Error)

		_, err := fx.svc.AddLine(ctx, quote.ID, &domain.AddQuoteLineRequest{
			ProductID: fx.product.ID,
			Quantity:  1,
			SupportID: &other.ID,
		}, salesActor())
		assert.ErrorIs(t, err, service.ErrSupportNotAvailable)
	})

	t.Run("generated lines cannot be edited or deleted", func(t *testing.T) {
		dto, err := fx.svc.AddLine(ctx, quote.ID, &domain.AddQuoteLineRequest{
			ProductID: fx.product.ID,
			Quantity:  10,
			SupportID: &fx.support.ID,
		}, salesActor())
		require.NoError(t, err)
		require.Len(t, dto.Lines, 2)
		freeLineID := dto.Lines[1].ID

		qty := 5.0
		_, err = fx.svc.UpdateLine(ctx, quote.ID, freeLineID, &domain.UpdateQuoteLineRequest{Quantity: &qty}, salesActor())
		assert.ErrorIs(t, err, service.ErrGeneratedLineEdit)

		_, err = fx.svc.DeleteLine(ctx, quote.ID, freeLineID, salesActor())
		assert.ErrorIs(t, err, service.ErrGeneratedLineEdit)
	})
}

func TestQuoteService_UpdateLineReconciles(t *testing.T) {
	ctx := context.Background()
	fx := newQuoteServiceFixture(t)
	quote := fx.createDraft(t)

	dto, err := fx.svc.AddLine(ctx, quote.ID, &domain.AddQuoteLineRequest{
		ProductID: fx.product.ID,
		Quantity:  10,
		SupportID: &fx.support.ID,
	}, salesActor())
	require.NoError(t, err)
	require.Len(t, dto.Lines, 2)
	paidLineID := dto.Lines[0].ID

	// dropping below the tier threshold removes the generated line
	qty := 5.0
	dto, err = fx.svc.UpdateLine(ctx, quote.ID, paidLineID, &domain.UpdateQuoteLineRequest{Quantity: &qty}, salesActor())
	require.NoError(t, err)
	require.Len(t, dto.Lines, 1)
	assert.Equal(t, 500.0, dto.OrderedTotal)

	// deleting the paid line empties the quote
	dto, err = fx.svc.DeleteLine(ctx, quote.ID, paidLineID, salesActor())
	require.NoError(t, err)
	assert.Empty(t, dto.Lines)
	assert.Equal(t, 0.0, dto.OrderedTotal)
	assert.Equal(t, domain.ApprovalTierNone, dto.ApprovalTier)
}

func TestQuoteService_EditabilityGuards(t *testing.T) {
	ctx := context.Background()
	fx := newQuoteServiceFixture(t)
	quote := fx.createDraft(t)

	require.NoError(t, fx.db.Model(&domain.Quote{}).
		Where("id = ?", quote.ID).
		Update("state", domain.QuoteStateConfirmed).Error)

	_, err := fx.svc.AddLine(ctx, quote.ID, &domain.AddQuoteLineRequest{
		ProductID: fx.product.ID,
		Quantity:  1,
	}, salesActor())
	assert.ErrorIs(t, err, service.ErrQuoteNotEditable)

	name := "New name"
	_, err = fx.svc.Update(ctx, quote.ID, &domain.UpdateQuoteRequest{CustomerName: &name}, salesActor())
	assert.ErrorIs(t, err, service.ErrQuoteNotEditable)

	err = fx.svc.Delete(ctx, quote.ID)
	assert.ErrorIs(t, err, service.ErrQuoteNotEditable)
}

func TestQuoteService_CheckMinimumBuy(t *testing.T) {
	ctx := context.Background()
	fx := newQuoteServiceFixture(t)
	quote := fx.createDraft(t)

	// 500 spend against a 500 minimum: exactly at the threshold still fails
	_, err := fx.svc.AddLine(ctx, quote.ID, &domain.AddQuoteLineRequest{
		ProductID: fx.product.ID,
		Quantity:  5,
		SupportID: &fx.support.ID,
	}, salesActor())
	require.NoError(t, err)

	result, err := fx.svc.CheckMinimumBuy(ctx, quote.ID)
	require.NoError(t, err)
	assert.False(t, result.Passed)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, "Display FR", result.Violations[0].SupportName)

	dto, err := fx.svc.Get(ctx, quote.ID)
	require.NoError(t, err)
	lineID := dto.Lines[0].ID

	qty := 6.0
	_, err = fx.svc.UpdateLine(ctx, quote.ID, lineID, &domain.UpdateQuoteLineRequest{Quantity: &qty}, salesActor())
	require.NoError(t, err)

	result, err = fx.svc.CheckMinimumBuy(ctx, quote.ID)
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Empty(t, result.Violations)
}

func TestQuoteService_AttachClientPO(t *testing.T) {
	ctx := context.Background()
	fx := newQuoteServiceFixture(t)
	quote := fx.createDraft(t)

	content := strings.NewReader("po document body")

	_, err := fx.svc.AttachClientPO(ctx, quote.ID, "po.pdf", "application/pdf", content, salesActor())
	assert.ErrorIs(t, err, service.ErrInvalidTransition)

	require.NoError(t, fx.db.Model(&domain.Quote{}).
		Where("id = ?", quote.ID).
		Update("state", domain.QuoteStateConfirmed).Error)

	content = strings.NewReader("po document body")
	file, err := fx.svc.AttachClientPO(ctx, quote.ID, "po.pdf", "application/pdf", content, salesActor())
	require.NoError(t, err)
	assert.Equal(t, "po.pdf", file.Filename)
	assert.EqualValues(t, len("po document body"), file.Size)
	require.NotNil(t, file.QuoteID)
	assert.Equal(t, quote.ID, *file.QuoteID)
}

func TestQuoteService_DeleteDraft(t *testing.T) {
	ctx := context.Background()
	fx := newQuoteServiceFixture(t)
	quote := fx.createDraft(t)

	require.NoError(t, fx.svc.Delete(ctx, quote.ID))

	_, err := fx.svc.Get(ctx, quote.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = fx.svc.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, service.ErrNotFound)
}
