package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vantage-media/quote-api/internal/domain"
	"go.uber.org/zap"
)

// SellerSelector picks purchasing terms for a product; CatalogService
// implements it
type SellerSelector interface {
	SelectSeller(ctx context.Context, productID uuid.UUID, vendorID *uuid.UUID, quantity float64, date time.Time) (*domain.SupplierInfo, error)
}

// PurchaseVendorStore resolves vendors for commitment headers
type PurchaseVendorStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Vendor, error)
}

// CommitmentStore persists purchase commitments with their lines
type CommitmentStore interface {
	Create(ctx context.Context, commitment *domain.PurchaseCommitment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PurchaseCommitment, error)
	ListByQuote(ctx context.Context, quoteID uuid.UUID) ([]domain.PurchaseCommitment, error)
	List(ctx context.Context, page, pageSize int, vendorID *uuid.UUID) ([]domain.PurchaseCommitment, int64, error)
}

// PurchaseService fans a confirmed quote out into one purchase commitment per
// resolvable vendor. Lines without a resolvable vendor or whose product is not
// externally procured are skipped, never reported as errors.
type PurchaseService struct {
	commitments CommitmentStore
	vendors     PurchaseVendorStore
	catalog     SellerSelector
	converter   Converter
	activity    *ActivityService
	logger      *zap.Logger
}

func NewPurchaseService(
	commitments CommitmentStore,
	vendors PurchaseVendorStore,
	catalog SellerSelector,
	converter Converter,
	activity *ActivityService,
	logger *zap.Logger,
) *PurchaseService {
	return &PurchaseService{
		commitments: commitments,
		vendors:     vendors,
		catalog:     catalog,
		converter:   converter,
		activity:    activity,
		logger:      logger,
	}
}

// procuredLine pairs a quote line with the seller row that resolved its vendor
type procuredLine struct {
	line   *domain.QuoteLine
	seller *domain.SupplierInfo
}

// CreateCommitments groups the quote's procurable lines by vendor and creates
// one auto-confirmed commitment per vendor. Runs once per confirmation; the
// caller guards against re-invocation.
func (s *PurchaseService) CreateCommitments(ctx context.Context, quote *domain.Quote) ([]domain.PurchaseCommitment, error) {
	groups := make(map[uuid.UUID][]procuredLine)
	var vendorOrder []uuid.UUID

	for i := range quote.Lines {
		line := &quote.Lines[i]
		if line.Quantity <= 0 || line.Kind.IsGenerated() || line.Product == nil {
			continue
		}
		if !line.Product.Kind.RequiresProcurement() {
			continue
		}

		vendorID, seller := s.resolveVendor(ctx, line, quote.OrderDate)
		if vendorID == nil {
			s.logger.Debug("line skipped in purchase fan-out, no resolvable vendor",
				zap.String("quoteID", quote.ID.String()),
				zap.String("lineID", line.ID.String()),
			)
			continue
		}

		if _, seen := groups[*vendorID]; !seen {
			vendorOrder = append(vendorOrder, *vendorID)
		}
		groups[*vendorID] = append(groups[*vendorID], procuredLine{line: line, seller: seller})
	}

	now := time.Now().UTC()
	var created []domain.PurchaseCommitment

	for _, vendorID := range vendorOrder {
		vendor, err := s.vendors.GetByID(ctx, vendorID)
		if err != nil {
			return nil, fmt.Errorf("failed to load vendor %s: %w", vendorID, err)
		}

		commitment := domain.PurchaseCommitment{
			VendorID: vendorID,
			QuoteID:  quote.ID,
			Origin:   quote.Number,
			State:    domain.CommitmentStateConfirmed,
			Currency: vendor.Currency,
		}

		for _, pl := range groups[vendorID] {
			commitmentLine, err := s.buildCommitmentLine(ctx, quote, pl, vendor.Currency, now)
			if err != nil {
				return nil, err
			}
			commitment.Lines = append(commitment.Lines, *commitmentLine)
		}

		if err := s.commitments.Create(ctx, &commitment); err != nil {
			return nil, fmt.Errorf("failed to create purchase commitment: %w", err)
		}
		created = append(created, commitment)

		s.activity.Post(ctx, domain.ActivityTargetCommitment, commitment.ID, nil,
			"Commitment created", fmt.Sprintf("from quote %s for vendor %s", quote.Number, vendor.Name))
	}

	return created, nil
}

// ListByQuote returns the commitments a quote fanned out into
func (s *PurchaseService) ListByQuote(ctx context.Context, quoteID uuid.UUID) ([]domain.PurchaseCommitment, error) {
	return s.commitments.ListByQuote(ctx, quoteID)
}

// Get returns one commitment with its lines
func (s *PurchaseService) Get(ctx context.Context, id uuid.UUID) (*domain.PurchaseCommitment, error) {
	return s.commitments.GetByID(ctx, id)
}

// List returns a page of commitments, optionally filtered by vendor
func (s *PurchaseService) List(ctx context.Context, page, pageSize int, vendorID *uuid.UUID) ([]domain.PurchaseCommitment, int64, error) {
	return s.commitments.List(ctx, page, pageSize, vendorID)
}

// resolveVendor returns the vendor a line is procured from: the product's
// explicit vendor override wins, otherwise the seller selected from the
// catalog for the line's quantity and date. nil means the line is skipped.
func (s *PurchaseService) resolveVendor(ctx context.Context, line *domain.QuoteLine, date time.Time) (*uuid.UUID, *domain.SupplierInfo) {
	product := line.Product

	seller, err := s.catalog.SelectSeller(ctx, line.ProductID, product.VendorID, line.Quantity, date)
	if err != nil {
		seller = nil
	}

	if product.VendorID != nil {
		return product.VendorID, seller
	}
	if seller != nil {
		return &seller.VendorID, seller
	}
	return nil, nil
}

// buildCommitmentLine converts a quote line into the vendor's purchasing
// terms: purchasing unit, cost in the commitment currency and a planned date
// offset by the seller's lead time
func (s *PurchaseService) buildCommitmentLine(ctx context.Context, quote *domain.Quote, pl procuredLine, commitmentCurrency string, now time.Time) (*domain.PurchaseCommitmentLine, error) {
	line := pl.line
	seller := pl.seller

	quantity := line.Quantity
	unit := line.Unit
	leadTimeDays := 0
	if seller != nil {
		if seller.PurchaseUnitRatio > 0 {
			quantity = line.Quantity * seller.PurchaseUnitRatio
		}
		if seller.PurchaseUnit != "" {
			unit = seller.PurchaseUnit
		}
		leadTimeDays = seller.LeadTimeDays
	}

	cost := line.UnitCost
	costCurrency := quote.Currency
	if cost <= 0 && seller != nil && seller.Price > 0 {
		cost = seller.Price
		costCurrency = seller.Currency
	}
	if cost <= 0 {
		cost = line.Product.StandardCost
		costCurrency = quote.Currency
	}

	converted, err := s.converter.Convert(ctx, cost, costCurrency, commitmentCurrency, quote.OrderDate)
	if err != nil {
		return nil, fmt.Errorf("failed to convert commitment cost for line %s: %w", line.ID, err)
	}

	return &domain.PurchaseCommitmentLine{
		ProductID:   line.ProductID,
		SupportID:   line.SupportID,
		Description: line.Description,
		Quantity:    quantity,
		Unit:        unit,
		UnitCost:    converted,
		PlannedDate: now.AddDate(0, 0, leadTimeDays),
	}, nil
}
