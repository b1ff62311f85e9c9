// Package mapper converts domain models into API DTOs. Keeping the mapping
// in one place keeps handlers and services from leaking gorm models.
package mapper

import (
	"time"

	"github.com/vantage-media/quote-api/internal/domain"
)

const dateLayout = "2006-01-02"

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatDate(*t)
	return &s
}

// ToQuoteDTO maps a quote with its lines
func ToQuoteDTO(q *domain.Quote) *domain.QuoteDTO {
	if q == nil {
		return nil
	}

	dto := &domain.QuoteDTO{
		ID:            q.ID,
		Number:        q.Number,
		CompanyID:     q.CompanyID,
		Currency:      q.Currency,
		CustomerName:  q.CustomerName,
		State:         q.State,
		ApprovalTier:  q.ApprovalTier,
		OpportunityID: q.OpportunityID,
		OrderDate:     formatDate(q.OrderDate),
		OrderedTotal:  q.OrderedTotal,
		Notes:         q.Notes,
		CreatedAt:     formatTime(q.CreatedAt),
		UpdatedAt:     formatTime(q.UpdatedAt),
	}

	for i := range q.Lines {
		dto.Lines = append(dto.Lines, *ToQuoteLineDTO(&q.Lines[i]))
	}

	return dto
}

// ToQuoteLineDTO maps a single quote line
func ToQuoteLineDTO(l *domain.QuoteLine) *domain.QuoteLineDTO {
	dto := &domain.QuoteLineDTO{
		ID:            l.ID,
		ProductID:     l.ProductID,
		Description:   l.Description,
		Quantity:      l.Quantity,
		Unit:          l.Unit,
		UnitPrice:     l.UnitPrice,
		UnitCost:      l.UnitCost,
		Subtotal:      l.Subtotal(),
		SupportID:     l.SupportID,
		CommissionPct: l.CommissionPct,
		Kind:          l.Kind,
		GeneratorID:   l.GeneratorID,
		Sequence:      l.Sequence,
	}
	if l.Product != nil {
		dto.ProductName = l.Product.Name
	}
	if l.Support != nil {
		dto.SupportName = l.Support.Name
	}
	return dto
}

// ToVendorSupportDTO maps a support with its free tiers
func ToVendorSupportDTO(s *domain.VendorSupport) *domain.VendorSupportDTO {
	if s == nil {
		return nil
	}

	dto := &domain.VendorSupportDTO{
		ID:               s.ID,
		Name:             s.Name,
		VendorID:         s.VendorID,
		CompanyID:        s.CompanyID,
		Currency:         s.Currency,
		CommissionPct:    s.CommissionPct,
		MinimumBuyAmount: s.MinimumBuyAmount,
		Blacklisted:      s.Blacklisted,
		CreatedAt:        formatTime(s.CreatedAt),
		UpdatedAt:        formatTime(s.UpdatedAt),
	}
	if s.Vendor != nil {
		dto.VendorName = s.Vendor.Name
	}
	for _, t := range s.FreeTiers {
		dto.FreeTiers = append(dto.FreeTiers, domain.FreeTierDTO{
			MinQty:      t.MinQty,
			FreePercent: t.FreePercent,
		})
	}
	return dto
}

// ToVendorDTO maps a vendor
func ToVendorDTO(v *domain.Vendor) *domain.VendorDTO {
	if v == nil {
		return nil
	}
	return &domain.VendorDTO{
		ID:        v.ID,
		Name:      v.Name,
		Currency:  v.Currency,
		Email:     v.Email,
		Country:   v.Country,
		CreatedAt: formatTime(v.CreatedAt),
		UpdatedAt: formatTime(v.UpdatedAt),
	}
}

// ToSupplierInfoDTO maps a supplier info row
func ToSupplierInfoDTO(i *domain.SupplierInfo) *domain.SupplierInfoDTO {
	if i == nil {
		return nil
	}
	dto := &domain.SupplierInfoDTO{
		ID:                i.ID,
		ProductID:         i.ProductID,
		VendorID:          i.VendorID,
		SupportID:         i.SupportID,
		Price:             i.Price,
		Currency:          i.Currency,
		MinQty:            i.MinQty,
		LeadTimeDays:      i.LeadTimeDays,
		PurchaseUnit:      i.PurchaseUnit,
		PurchaseUnitRatio: i.PurchaseUnitRatio,
		ValidFrom:         formatDatePtr(i.ValidFrom),
		ValidTo:           formatDatePtr(i.ValidTo),
	}
	if i.Vendor != nil {
		dto.VendorName = i.Vendor.Name
	}
	if i.Support != nil {
		dto.SupportName = i.Support.Name
	}
	return dto
}

// ToProductDTO maps a catalog product
func ToProductDTO(p *domain.Product) *domain.ProductDTO {
	if p == nil {
		return nil
	}
	return &domain.ProductDTO{
		ID:           p.ID,
		Code:         p.Code,
		Name:         p.Name,
		Kind:         p.Kind,
		PublicPrice:  p.PublicPrice,
		StandardCost: p.StandardCost,
		Unit:         p.Unit,
		ValidFrom:    formatDatePtr(p.ValidFrom),
		ValidTo:      formatDatePtr(p.ValidTo),
		VendorID:     p.VendorID,
		SupportID:    p.SupportID,
		CreatedAt:    formatTime(p.CreatedAt),
		UpdatedAt:    formatTime(p.UpdatedAt),
	}
}

// ToPurchaseCommitmentDTO maps a commitment with its lines
func ToPurchaseCommitmentDTO(c *domain.PurchaseCommitment) *domain.PurchaseCommitmentDTO {
	if c == nil {
		return nil
	}

	dto := &domain.PurchaseCommitmentDTO{
		ID:        c.ID,
		VendorID:  c.VendorID,
		QuoteID:   c.QuoteID,
		Origin:    c.Origin,
		State:     c.State,
		Currency:  c.Currency,
		CreatedAt: formatTime(c.CreatedAt),
	}
	if c.Vendor != nil {
		dto.VendorName = c.Vendor.Name
	}
	for i := range c.Lines {
		l := &c.Lines[i]
		lineDTO := domain.PurchaseCommitmentLineDTO{
			ID:          l.ID,
			ProductID:   l.ProductID,
			SupportID:   l.SupportID,
			Description: l.Description,
			Quantity:    l.Quantity,
			Unit:        l.Unit,
			UnitCost:    l.UnitCost,
			PlannedDate: formatDate(l.PlannedDate),
		}
		if l.Product != nil {
			lineDTO.ProductName = l.Product.Name
		}
		dto.Lines = append(dto.Lines, lineDTO)
	}
	return dto
}

// ToPurchaseCommitmentDTOs maps a commitment list
func ToPurchaseCommitmentDTOs(commitments []domain.PurchaseCommitment) []domain.PurchaseCommitmentDTO {
	dtos := make([]domain.PurchaseCommitmentDTO, 0, len(commitments))
	for i := range commitments {
		dtos = append(dtos, *ToPurchaseCommitmentDTO(&commitments[i]))
	}
	return dtos
}

// ToFileDTO maps an uploaded document
func ToFileDTO(f *domain.File) *domain.FileDTO {
	if f == nil {
		return nil
	}
	return &domain.FileDTO{
		ID:          f.ID,
		Filename:    f.Filename,
		ContentType: f.ContentType,
		Size:        f.Size,
		QuoteID:     f.QuoteID,
		CreatedAt:   formatTime(f.CreatedAt),
	}
}
