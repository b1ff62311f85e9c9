package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vantage-media/quote-api/internal/domain"
	"github.com/vantage-media/quote-api/internal/mapper"
	"github.com/vantage-media/quote-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// VendorService manages supplying partners
type VendorService struct {
	vendors  *repository.VendorRepository
	supports *repository.VendorSupportRepository
	logger   *zap.Logger
}

func NewVendorService(vendors *repository.VendorRepository, supports *repository.VendorSupportRepository, logger *zap.Logger) *VendorService {
	return &VendorService{
		vendors:  vendors,
		supports: supports,
		logger:   logger,
	}
}

func (s *VendorService) Create(ctx context.Context, req *domain.CreateVendorRequest) (*domain.VendorDTO, error) {
	currency := req.Currency
	if currency == "" {
		currency = "EUR"
	}

	vendor := &domain.Vendor{
		Name:     req.Name,
		Currency: currency,
		Email:    req.Email,
		Country:  req.Country,
	}
	if err := s.vendors.Create(ctx, vendor); err != nil {
		return nil, fmt.Errorf("failed to create vendor: %w", err)
	}

	s.logger.Info("vendor created",
		zap.String("vendorID", vendor.ID.String()),
		zap.String("name", vendor.Name),
	)

	return mapper.ToVendorDTO(vendor), nil
}

func (s *VendorService) Get(ctx context.Context, id uuid.UUID) (*domain.VendorDTO, error) {
	vendor, err := s.getVendor(ctx, id)
	if err != nil {
		return nil, err
	}
	return mapper.ToVendorDTO(vendor), nil
}

func (s *VendorService) List(ctx context.Context, page, pageSize int, search string) (*domain.PaginatedResponse, error) {
	vendors, total, err := s.vendors.List(ctx, page, pageSize, search)
	if err != nil {
		return nil, fmt.Errorf("failed to list vendors: %w", err)
	}

	dtos := make([]domain.VendorDTO, 0, len(vendors))
	for i := range vendors {
		dtos = append(dtos, *mapper.ToVendorDTO(&vendors[i]))
	}
	return paginate(dtos, total, page, pageSize), nil
}

func (s *VendorService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateVendorRequest) (*domain.VendorDTO, error) {
	vendor, err := s.getVendor(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		vendor.Name = *req.Name
	}
	if req.Currency != nil {
		vendor.Currency = *req.Currency
	}
	if req.Email != nil {
		vendor.Email = *req.Email
	}
	if req.Country != nil {
		vendor.Country = *req.Country
	}

	if err := s.vendors.Update(ctx, vendor); err != nil {
		return nil, fmt.Errorf("failed to update vendor: %w", err)
	}
	return mapper.ToVendorDTO(vendor), nil
}

// Delete removes a vendor that has no supports left
func (s *VendorService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.getVendor(ctx, id); err != nil {
		return err
	}

	supports, err := s.supports.ListByVendor(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check vendor supports: %w", err)
	}
	if len(supports) > 0 {
		return fmt.Errorf("%w: vendor still has %d supports", ErrConflict, len(supports))
	}

	return s.vendors.Delete(ctx, id)
}

func (s *VendorService) getVendor(ctx context.Context, id uuid.UUID) (*domain.Vendor, error) {
	vendor, err := s.vendors.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: vendor not found", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load vendor: %w", err)
	}
	return vendor, nil
}
