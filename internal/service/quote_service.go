package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/vantage-media/quote-api/internal/auth"
	"github.com/vantage-media/quote-api/internal/config"
	"github.com/vantage-media/quote-api/internal/domain"
	"github.com/vantage-media/quote-api/internal/mapper"
	"github.com/vantage-media/quote-api/internal/repository"
	"github.com/vantage-media/quote-api/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// QuoteService owns quote and quote line mutations. Every line change flows
// through OnLineChanged: commission recompute, tier recompute, free-goods
// reconciliation and total recompute, in that order.
type QuoteService struct {
	quotes    *repository.QuoteRepository
	lines     *repository.QuoteLineRepository
	products  *repository.ProductRepository
	supports  *repository.VendorSupportRepository
	files     *repository.FileRepository
	sequences *repository.NumberSequenceRepository
	catalog   *CatalogService
	freeGoods *FreeGoodsService
	minBuy    *MinimumBuyService
	activity  *ActivityService
	storage   storage.Storage
	approval  config.ApprovalConfig
	logger    *zap.Logger
}

func NewQuoteService(
	quotes *repository.QuoteRepository,
	lines *repository.QuoteLineRepository,
	products *repository.ProductRepository,
	supports *repository.VendorSupportRepository,
	files *repository.FileRepository,
	sequences *repository.NumberSequenceRepository,
	catalog *CatalogService,
	freeGoods *FreeGoodsService,
	minBuy *MinimumBuyService,
	activity *ActivityService,
	store storage.Storage,
	approval config.ApprovalConfig,
	logger *zap.Logger,
) *QuoteService {
	return &QuoteService{
		quotes:    quotes,
		lines:     lines,
		products:  products,
		supports:  supports,
		files:     files,
		sequences: sequences,
		catalog:   catalog,
		freeGoods: freeGoods,
		minBuy:    minBuy,
		activity:  activity,
		storage:   store,
		approval:  approval,
		logger:    logger,
	}
}

// editableStates are the states in which lines and header fields may change
func quoteEditable(state domain.QuoteState) bool {
	return state == domain.QuoteStateDraft || state == domain.QuoteStateSent
}

// Create creates a new draft quote and assigns its number
func (s *QuoteService) Create(ctx context.Context, req *domain.CreateQuoteRequest, actor *auth.UserContext) (*domain.QuoteDTO, error) {
	if !domain.IsValidCompanyID(string(req.CompanyID)) {
		return nil, fmt.Errorf("%w: unknown company %q", ErrInvalidInput, req.CompanyID)
	}

	orderDate := time.Now().UTC()
	if req.OrderDate != nil {
		orderDate = *req.OrderDate
	}
	currency := req.Currency
	if currency == "" {
		currency = "EUR"
	}

	year := orderDate.Year()
	seq, err := s.sequences.GetNextNumber(ctx, req.CompanyID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to generate quote number: %w", err)
	}

	quote := &domain.Quote{
		Number:        fmt.Sprintf("%s-%d-%03d", domain.GetCompanyPrefix(req.CompanyID), year, seq),
		CompanyID:     req.CompanyID,
		Currency:      currency,
		CustomerName:  req.CustomerName,
		State:         domain.QuoteStateDraft,
		ApprovalTier:  domain.ApprovalTierNone,
		OpportunityID: req.OpportunityID,
		OrderDate:     orderDate,
		Notes:         req.Notes,
	}

	if err := s.quotes.Create(ctx, quote); err != nil {
		return nil, fmt.Errorf("failed to create quote: %w", err)
	}

	s.activity.Post(ctx, domain.ActivityTargetQuote, quote.ID, actor, "Quote created", quote.Number)
	s.logger.Info("quote created",
		zap.String("quoteID", quote.ID.String()),
		zap.String("number", quote.Number),
		zap.String("companyID", string(quote.CompanyID)),
	)

	return mapper.ToQuoteDTO(quote), nil
}

// Get returns a quote with its lines
func (s *QuoteService) Get(ctx context.Context, id uuid.UUID) (*domain.QuoteDTO, error) {
	quote, err := s.getQuote(ctx, id)
	if err != nil {
		return nil, err
	}
	return mapper.ToQuoteDTO(quote), nil
}

// List returns a page of quotes
func (s *QuoteService) List(ctx context.Context, page, pageSize int, companyID *domain.CompanyID, state *domain.QuoteState, opportunityID *uuid.UUID) (*domain.PaginatedResponse, error) {
	quotes, total, err := s.quotes.List(ctx, page, pageSize, companyID, state, opportunityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotes: %w", err)
	}

	dtos := make([]domain.QuoteDTO, 0, len(quotes))
	for i := range quotes {
		dtos = append(dtos, *mapper.ToQuoteDTO(&quotes[i]))
	}

	return paginate(dtos, total, page, pageSize), nil
}

// Update edits mutable header fields on an editable quote
func (s *QuoteService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateQuoteRequest, actor *auth.UserContext) (*domain.QuoteDTO, error) {
	quote, err := s.getQuote(ctx, id)
	if err != nil {
		return nil, err
	}
	if !quoteEditable(quote.State) {
		return nil, ErrQuoteNotEditable
	}

	if req.CustomerName != nil {
		quote.CustomerName = *req.CustomerName
	}
	if req.OrderDate != nil {
		quote.OrderDate = *req.OrderDate
	}
	if req.Notes != nil {
		quote.Notes = *req.Notes
	}

	if err := s.quotes.Update(ctx, quote); err != nil {
		return nil, fmt.Errorf("failed to update quote: %w", err)
	}

	return mapper.ToQuoteDTO(quote), nil
}

// Delete removes a draft quote and its lines
func (s *QuoteService) Delete(ctx context.Context, id uuid.UUID) error {
	quote, err := s.getQuote(ctx, id)
	if err != nil {
		return err
	}
	if quote.State != domain.QuoteStateDraft {
		return fmt.Errorf("%w: only draft quotes can be deleted", ErrQuoteNotEditable)
	}
	return s.quotes.Delete(ctx, id)
}

// AddLine appends a regular line to an editable quote and re-derives the
// quote's pricing state
func (s *QuoteService) AddLine(ctx context.Context, quoteID uuid.UUID, req *domain.AddQuoteLineRequest, actor *auth.UserContext) (*domain.QuoteDTO, error) {
	quote, err := s.getQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if !quoteEditable(quote.State) {
		return nil, ErrQuoteNotEditable
	}

	product, err := s.products.GetByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product not found", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if !product.Sellable {
		return nil, fmt.Errorf("%w: product %s is not sellable", ErrInvalidInput, product.Code)
	}

	if err := s.validateLineSupport(ctx, product, req.SupportID); err != nil {
		return nil, err
	}

	unitPrice := product.PublicPrice
	if req.UnitPrice != nil {
		unitPrice = *req.UnitPrice
	}
	unitCost := product.StandardCost
	if req.UnitCost != nil {
		unitCost = *req.UnitCost
	}

	maxSeq, err := s.lines.MaxSequence(ctx, quoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to determine line sequence: %w", err)
	}

	line := &domain.QuoteLine{
		QuoteID:     quoteID,
		ProductID:   product.ID,
		Description: req.Description,
		Quantity:    req.Quantity,
		Unit:        product.Unit,
		UnitPrice:   unitPrice,
		UnitCost:    unitCost,
		SupportID:   req.SupportID,
		Kind:        domain.LineKindRegular,
		Sequence:    maxSeq + 1,
	}
	if line.Description == "" {
		line.Description = product.Name
	}

	if err := s.lines.Create(ctx, line); err != nil {
		return nil, fmt.Errorf("failed to create quote line: %w", err)
	}

	if err := s.OnLineChanged(ctx, quoteID); err != nil {
		return nil, err
	}

	return s.Get(ctx, quoteID)
}

// UpdateLine edits a regular line. Generated lines belong to the reconciler.
func (s *QuoteService) UpdateLine(ctx context.Context, quoteID, lineID uuid.UUID, req *domain.UpdateQuoteLineRequest, actor *auth.UserContext) (*domain.QuoteDTO, error) {
	quote, err := s.getQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if !quoteEditable(quote.State) {
		return nil, ErrQuoteNotEditable
	}

	line, err := s.getLine(ctx, quoteID, lineID)
	if err != nil {
		return nil, err
	}
	if line.Kind.IsGenerated() {
		return nil, ErrGeneratedLineEdit
	}

	if req.SupportID != nil {
		product, err := s.products.GetByID(ctx, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("failed to load product: %w", err)
		}
		if err := s.validateLineSupport(ctx, product, req.SupportID); err != nil {
			return nil, err
		}
		line.SupportID = req.SupportID
		line.Support = nil
	}
	if req.Description != nil {
		line.Description = *req.Description
	}
	if req.Quantity != nil {
		line.Quantity = *req.Quantity
	}
	if req.UnitPrice != nil {
		line.UnitPrice = *req.UnitPrice
	}
	if req.UnitCost != nil {
		line.UnitCost = *req.UnitCost
	}

	if err := s.lines.Update(ctx, line); err != nil {
		return nil, fmt.Errorf("failed to update quote line: %w", err)
	}

	if err := s.OnLineChanged(ctx, quoteID); err != nil {
		return nil, err
	}

	return s.Get(ctx, quoteID)
}

// DeleteLine removes a regular line and re-derives the quote's pricing state
func (s *QuoteService) DeleteLine(ctx context.Context, quoteID, lineID uuid.UUID, actor *auth.UserContext) (*domain.QuoteDTO, error) {
	quote, err := s.getQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if !quoteEditable(quote.State) {
		return nil, ErrQuoteNotEditable
	}

	line, err := s.getLine(ctx, quoteID, lineID)
	if err != nil {
		return nil, err
	}
	if line.Kind.IsGenerated() {
		return nil, ErrGeneratedLineEdit
	}

	if err := s.lines.Delete(ctx, lineID); err != nil {
		return nil, fmt.Errorf("failed to delete quote line: %w", err)
	}

	if err := s.OnLineChanged(ctx, quoteID); err != nil {
		return nil, err
	}

	return s.Get(ctx, quoteID)
}

// OnLineChanged re-derives everything that depends on the quote's lines:
// per-line commissions, free-goods lines, the ordered total and the
// approval tier
func (s *QuoteService) OnLineChanged(ctx context.Context, quoteID uuid.UUID) error {
	lines, err := s.lines.ListByQuote(ctx, quoteID)
	if err != nil {
		return fmt.Errorf("failed to load quote lines: %w", err)
	}

	// Commission recompute feeds both the tier and the reconciler
	for i := range lines {
		line := &lines[i]
		if line.Kind.IsGenerated() {
			continue
		}
		fallback := 0.0
		if line.Support != nil {
			fallback = line.Support.CommissionPct
		}
		pct := ComputeCommissionPct(line.UnitPrice, line.UnitCost, fallback)
		if pct != line.CommissionPct {
			line.CommissionPct = pct
			if err := s.lines.Update(ctx, line); err != nil {
				return fmt.Errorf("failed to store line commission: %w", err)
			}
		}
	}

	if err := s.freeGoods.Reconcile(ctx, quoteID); err != nil {
		return err
	}

	// Reload to include reconciler output
	lines, err = s.lines.ListByQuote(ctx, quoteID)
	if err != nil {
		return fmt.Errorf("failed to reload quote lines: %w", err)
	}

	total := ComputeOrderedTotal(lines)
	tier := ComputeApprovalTier(lines, total, s.approval.CommissionFloorPct, s.approval.OrderTotalCeiling)

	if err := s.quotes.UpdateFields(ctx, quoteID, map[string]interface{}{
		"ordered_total": total,
		"approval_tier": tier,
	}); err != nil {
		return fmt.Errorf("failed to store derived quote fields: %w", err)
	}

	return nil
}

// CheckMinimumBuy runs the gate in advisory mode
func (s *QuoteService) CheckMinimumBuy(ctx context.Context, quoteID uuid.UUID) (*domain.MinBuyCheckResponse, error) {
	quote, err := s.getQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	violations, err := s.minBuy.Check(ctx, quote)
	if err != nil {
		return nil, err
	}

	return &domain.MinBuyCheckResponse{
		Passed:     len(violations) == 0,
		Violations: violations,
	}, nil
}

// AttachClientPO stores the client purchase-order document requested after
// confirmation and links it to the quote
func (s *QuoteService) AttachClientPO(ctx context.Context, quoteID uuid.UUID, filename, contentType string, data io.Reader, actor *auth.UserContext) (*domain.FileDTO, error) {
	quote, err := s.getQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if quote.State != domain.QuoteStateConfirmed {
		return nil, fmt.Errorf("%w: client PO can only be attached to a confirmed quote", ErrInvalidTransition)
	}

	storagePath, size, err := s.storage.Upload(ctx, filename, contentType, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store client PO: %w", err)
	}

	file := &domain.File{
		Filename:    filename,
		ContentType: contentType,
		Size:        size,
		StoragePath: storagePath,
		QuoteID:     &quoteID,
	}
	if err := s.files.Create(ctx, file); err != nil {
		// Best effort cleanup of the uploaded blob
		if delErr := s.storage.Delete(ctx, storagePath); delErr != nil {
			s.logger.Warn("failed to clean up orphaned upload",
				zap.String("storagePath", storagePath),
				zap.Error(delErr),
			)
		}
		return nil, fmt.Errorf("failed to record client PO: %w", err)
	}

	s.activity.Post(ctx, domain.ActivityTargetQuote, quoteID, actor, "Client PO attached", filename)

	return mapper.ToFileDTO(file), nil
}

// Activities returns the quote's audit trail
func (s *QuoteService) Activities(ctx context.Context, quoteID uuid.UUID, limit int) ([]domain.Activity, error) {
	return s.activity.ListByTarget(ctx, domain.ActivityTargetQuote, quoteID, limit)
}

func (s *QuoteService) getQuote(ctx context.Context, id uuid.UUID) (*domain.Quote, error) {
	quote, err := s.quotes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: quote not found", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load quote: %w", err)
	}
	return quote, nil
}

func (s *QuoteService) getLine(ctx context.Context, quoteID, lineID uuid.UUID) (*domain.QuoteLine, error) {
	line, err := s.lines.GetByID(ctx, lineID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: quote line not found", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load quote line: %w", err)
	}
	if line.QuoteID != quoteID {
		return nil, fmt.Errorf("%w: quote line not found", ErrNotFound)
	}
	return line, nil
}

// validateLineSupport enforces the blacklist and availability guards on a
// support being attached to a line
func (s *QuoteService) validateLineSupport(ctx context.Context, product *domain.Product, supportID *uuid.UUID) error {
	if supportID == nil {
		return nil
	}

	support, err := s.supports.GetByID(ctx, *supportID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: vendor support not found", ErrNotFound)
		}
		return fmt.Errorf("failed to load vendor support: %w", err)
	}
	if support.Blacklisted {
		return ErrSupportBlacklisted
	}

	if product.SupportID != nil && *product.SupportID == support.ID {
		return nil
	}
	available, err := s.catalog.AvailableSupports(ctx, product.ID)
	if err != nil {
		return err
	}
	for i := range available {
		if available[i].ID == support.ID {
			return nil
		}
	}
	return ErrSupportNotAvailable
}

// paginate wraps items in the shared paging envelope
func paginate(items interface{}, total int64, page, pageSize int) *domain.PaginatedResponse {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return &domain.PaginatedResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
