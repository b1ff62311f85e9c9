package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/vantage-media/quote-api/internal/auth"
	"github.com/vantage-media/quote-api/internal/domain"
	"github.com/vantage-media/quote-api/internal/mapper"
	"github.com/vantage-media/quote-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// VendorSupportService manages the sellable channels and the free-tier rules
// the quote engine evaluates
type VendorSupportService struct {
	supports *repository.VendorSupportRepository
	vendors  *repository.VendorRepository
	activity *ActivityService
	logger   *zap.Logger
}

func NewVendorSupportService(
	supports *repository.VendorSupportRepository,
	vendors *repository.VendorRepository,
	activity *ActivityService,
	logger *zap.Logger,
) *VendorSupportService {
	return &VendorSupportService{
		supports: supports,
		vendors:  vendors,
		activity: activity,
		logger:   logger,
	}
}

// Create registers a support under an existing vendor
func (s *VendorSupportService) Create(ctx context.Context, req *domain.CreateVendorSupportRequest, actor *auth.UserContext) (*domain.VendorSupportDTO, error) {
	if !domain.IsValidCompanyID(string(req.CompanyID)) {
		return nil, fmt.Errorf("%w: unknown company %q", ErrInvalidInput, req.CompanyID)
	}
	if _, err := s.vendors.GetByID(ctx, req.VendorID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: vendor not found", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load vendor: %w", err)
	}

	tiers, err := buildFreeTiers(req.FreeTiers)
	if err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = "EUR"
	}

	support := &domain.VendorSupport{
		Name:             req.Name,
		VendorID:         req.VendorID,
		CompanyID:        req.CompanyID,
		Currency:         currency,
		CommissionPct:    req.CommissionPct,
		MinimumBuyAmount: req.MinimumBuyAmount,
		Blacklisted:      req.Blacklisted,
		FreeTiers:        tiers,
	}
	if err := s.supports.Create(ctx, support); err != nil {
		return nil, fmt.Errorf("failed to create vendor support: %w", err)
	}

	s.logger.Info("vendor support created",
		zap.String("supportID", support.ID.String()),
		zap.String("name", support.Name),
	)

	return s.Get(ctx, support.ID)
}

// Get returns a support with its vendor and tiers
func (s *VendorSupportService) Get(ctx context.Context, id uuid.UUID) (*domain.VendorSupportDTO, error) {
	support, err := s.getSupport(ctx, id)
	if err != nil {
		return nil, err
	}
	return mapper.ToVendorSupportDTO(support), nil
}

// List returns a page of supports
func (s *VendorSupportService) List(ctx context.Context, page, pageSize int, companyID *domain.CompanyID, blacklisted *bool, search string) (*domain.PaginatedResponse, error) {
	supports, total, err := s.supports.List(ctx, page, pageSize, companyID, blacklisted, search)
	if err != nil {
		return nil, fmt.Errorf("failed to list vendor supports: %w", err)
	}

	dtos := make([]domain.VendorSupportDTO, 0, len(supports))
	for i := range supports {
		dtos = append(dtos, *mapper.ToVendorSupportDTO(&supports[i]))
	}
	return paginate(dtos, total, page, pageSize), nil
}

// Update edits a support. A FreeTiers value replaces the whole tier list.
func (s *VendorSupportService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateVendorSupportRequest, actor *auth.UserContext) (*domain.VendorSupportDTO, error) {
	support, err := s.getSupport(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		support.Name = *req.Name
	}
	if req.CommissionPct != nil {
		support.CommissionPct = *req.CommissionPct
	}
	if req.MinimumBuyAmount != nil {
		support.MinimumBuyAmount = *req.MinimumBuyAmount
	}
	if req.Blacklisted != nil && *req.Blacklisted != support.Blacklisted {
		support.Blacklisted = *req.Blacklisted
		title := "Support blacklisted"
		if !support.Blacklisted {
			title = "Support removed from blacklist"
		}
		s.activity.Post(ctx, domain.ActivityTargetSupport, support.ID, actor, title, support.Name)
	}

	// Detach the tier association before saving so gorm does not upsert the
	// old list alongside the replacement
	support.FreeTiers = nil
	if err := s.supports.Update(ctx, support); err != nil {
		return nil, fmt.Errorf("failed to update vendor support: %w", err)
	}

	if req.FreeTiers != nil {
		tiers, err := buildFreeTiers(*req.FreeTiers)
		if err != nil {
			return nil, err
		}
		if err := s.supports.ReplaceFreeTiers(ctx, support.ID, tiers); err != nil {
			return nil, fmt.Errorf("failed to replace free tiers: %w", err)
		}
	}

	return s.Get(ctx, id)
}

// Delete removes a support and its tiers
func (s *VendorSupportService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.getSupport(ctx, id); err != nil {
		return err
	}
	return s.supports.Delete(ctx, id)
}

func (s *VendorSupportService) getSupport(ctx context.Context, id uuid.UUID) (*domain.VendorSupport, error) {
	support, err := s.supports.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: vendor support not found", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load vendor support: %w", err)
	}
	return support, nil
}

// buildFreeTiers validates and normalizes a tier list: thresholds must be
// unique, the result is kept ordered by MinQty
func buildFreeTiers(reqs []domain.FreeTierRequest) ([]domain.VendorSupportFreeTier, error) {
	seen := make(map[float64]bool, len(reqs))
	tiers := make([]domain.VendorSupportFreeTier, 0, len(reqs))
	for _, t := range reqs {
		if seen[t.MinQty] {
			return nil, fmt.Errorf("%w: duplicate free tier threshold %g", ErrInvalidInput, t.MinQty)
		}
		seen[t.MinQty] = true
		tiers = append(tiers, domain.VendorSupportFreeTier{
			MinQty:      t.MinQty,
			FreePercent: t.FreePercent,
		})
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].MinQty < tiers[j].MinQty })
	return tiers, nil
}
