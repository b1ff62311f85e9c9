package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaginatedResponse wraps list results with paging metadata
type PaginatedResponse struct {
	Items      interface{} `json:"items"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

// ErrorResponse is the swagger-facing alias for APIError
type ErrorResponse = APIError

// ---------------------------------------------------------------------------
// Quotes
// ---------------------------------------------------------------------------

// CreateQuoteRequest creates a new draft quote
type CreateQuoteRequest struct {
	CompanyID     CompanyID  `json:"companyId" validate:"required"`
	Currency      string     `json:"currency" validate:"omitempty,len=3"`
	CustomerName  string     `json:"customerName" validate:"omitempty,max=200"`
	OpportunityID *uuid.UUID `json:"opportunityId,omitempty"`
	OrderDate     *time.Time `json:"orderDate,omitempty"`
	Notes         string     `json:"notes" validate:"omitempty,max=2000"`
}

// UpdateQuoteRequest updates mutable header fields on a draft/sent quote
type UpdateQuoteRequest struct {
	CustomerName *string    `json:"customerName,omitempty" validate:"omitempty,max=200"`
	OrderDate    *time.Time `json:"orderDate,omitempty"`
	Notes        *string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// AddQuoteLineRequest appends a regular line to a quote
type AddQuoteLineRequest struct {
	ProductID   uuid.UUID  `json:"productId" validate:"required"`
	SupportID   *uuid.UUID `json:"supportId,omitempty"`
	Description string     `json:"description" validate:"omitempty,max=500"`
	Quantity    float64    `json:"quantity" validate:"gt=0"`
	UnitPrice   *float64   `json:"unitPrice,omitempty" validate:"omitempty,gte=0"`
	UnitCost    *float64   `json:"unitCost,omitempty" validate:"omitempty,gte=0"`
}

// UpdateQuoteLineRequest edits a regular line. Generated lines are rejected.
type UpdateQuoteLineRequest struct {
	SupportID   *uuid.UUID `json:"supportId,omitempty"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=500"`
	Quantity    *float64   `json:"quantity,omitempty" validate:"omitempty,gt=0"`
	UnitPrice   *float64   `json:"unitPrice,omitempty" validate:"omitempty,gte=0"`
	UnitCost    *float64   `json:"unitCost,omitempty" validate:"omitempty,gte=0"`
}

// QuoteLineDTO is the API view of a quote line
type QuoteLineDTO struct {
	ID            uuid.UUID  `json:"id"`
	ProductID     uuid.UUID  `json:"productId"`
	ProductName   string     `json:"productName,omitempty"`
	Description   string     `json:"description,omitempty"`
	Quantity      float64    `json:"quantity"`
	Unit          string     `json:"unit"`
	UnitPrice     float64    `json:"unitPrice"`
	UnitCost      float64    `json:"unitCost"`
	Subtotal      float64    `json:"subtotal"`
	SupportID     *uuid.UUID `json:"supportId,omitempty"`
	SupportName   string     `json:"supportName,omitempty"`
	CommissionPct float64    `json:"commissionPct"`
	Kind          LineKind   `json:"kind"`
	GeneratorID   *uuid.UUID `json:"generatorId,omitempty"`
	Sequence      int        `json:"sequence"`
}

// QuoteDTO is the API view of a quote
type QuoteDTO struct {
	ID            uuid.UUID      `json:"id"`
	Number        string         `json:"number,omitempty"`
	CompanyID     CompanyID      `json:"companyId"`
	Currency      string         `json:"currency"`
	CustomerName  string         `json:"customerName,omitempty"`
	State         QuoteState     `json:"state"`
	ApprovalTier  ApprovalTier   `json:"approvalTier"`
	OpportunityID *uuid.UUID     `json:"opportunityId,omitempty"`
	OrderDate     string         `json:"orderDate"`
	OrderedTotal  float64        `json:"orderedTotal"`
	Notes         string         `json:"notes,omitempty"`
	Lines         []QuoteLineDTO `json:"lines,omitempty"`
	CreatedAt     string         `json:"createdAt"`
	UpdatedAt     string         `json:"updatedAt"`
}

// MinBuyViolation describes one support whose converted spend does not clear
// its minimum-buy threshold
type MinBuyViolation struct {
	SupportID   uuid.UUID `json:"supportId"`
	SupportName string    `json:"supportName"`
	Subtotal    float64   `json:"subtotal"`
	Minimum     float64   `json:"minimum"`
	Currency    string    `json:"currency"`
}

// MinBuyCheckResponse is returned by the advisory minimum-buy check
type MinBuyCheckResponse struct {
	Passed     bool              `json:"passed"`
	Violations []MinBuyViolation `json:"violations,omitempty"`
}

// TransitionResponse is returned by every state machine entry point
type TransitionResponse struct {
	Quote *QuoteDTO `json:"quote"`
	// Violations is populated when a request-approval lands in min_buy
	Violations []MinBuyViolation `json:"violations,omitempty"`
	// AttachClientPORequested signals the human follow-up after confirmation
	AttachClientPORequested bool `json:"attachClientPoRequested,omitempty"`
	// Commitments created by the confirm fan-out
	Commitments []PurchaseCommitmentDTO `json:"commitments,omitempty"`
}

// ---------------------------------------------------------------------------
// Vendor supports
// ---------------------------------------------------------------------------

// FreeTierRequest is one free-goods threshold on a support
type FreeTierRequest struct {
	MinQty      float64 `json:"minQty" validate:"gte=0"`
	FreePercent float64 `json:"freePercent" validate:"gte=0,lte=100"`
}

// CreateVendorSupportRequest creates a sellable channel for a vendor
type CreateVendorSupportRequest struct {
	Name             string            `json:"name" validate:"required,max=200"`
	VendorID         uuid.UUID         `json:"vendorId" validate:"required"`
	CompanyID        CompanyID         `json:"companyId" validate:"required"`
	Currency         string            `json:"currency" validate:"omitempty,len=3"`
	CommissionPct    float64           `json:"commissionPct" validate:"gte=0,lte=100"`
	MinimumBuyAmount float64           `json:"minimumBuyAmount" validate:"gte=0"`
	Blacklisted      bool              `json:"blacklisted"`
	FreeTiers        []FreeTierRequest `json:"freeTiers" validate:"dive"`
}

// UpdateVendorSupportRequest updates a support; FreeTiers, when present,
// replaces the whole tier list
type UpdateVendorSupportRequest struct {
	Name             *string            `json:"name,omitempty" validate:"omitempty,max=200"`
	CommissionPct    *float64           `json:"commissionPct,omitempty" validate:"omitempty,gte=0,lte=100"`
	MinimumBuyAmount *float64           `json:"minimumBuyAmount,omitempty" validate:"omitempty,gte=0"`
	Blacklisted      *bool              `json:"blacklisted,omitempty"`
	FreeTiers        *[]FreeTierRequest `json:"freeTiers,omitempty" validate:"omitempty,dive"`
}

// FreeTierDTO is the API view of a free tier
type FreeTierDTO struct {
	MinQty      float64 `json:"minQty"`
	FreePercent float64 `json:"freePercent"`
}

// VendorSupportDTO is the API view of a vendor support
type VendorSupportDTO struct {
	ID               uuid.UUID     `json:"id"`
	Name             string        `json:"name"`
	VendorID         uuid.UUID     `json:"vendorId"`
	VendorName       string        `json:"vendorName,omitempty"`
	CompanyID        CompanyID     `json:"companyId"`
	Currency         string        `json:"currency"`
	CommissionPct    float64       `json:"commissionPct"`
	MinimumBuyAmount float64       `json:"minimumBuyAmount"`
	Blacklisted      bool          `json:"blacklisted"`
	FreeTiers        []FreeTierDTO `json:"freeTiers,omitempty"`
	CreatedAt        string        `json:"createdAt"`
	UpdatedAt        string        `json:"updatedAt"`
}

// ---------------------------------------------------------------------------
// Products
// ---------------------------------------------------------------------------

// CreateProductRequest creates a catalog entry
type CreateProductRequest struct {
	Code        string      `json:"code" validate:"required,max=50"`
	Name        string      `json:"name" validate:"required,max=200"`
	Kind        ProductKind `json:"kind" validate:"omitempty,oneof=internal external international adserving"`
	PublicPrice float64     `json:"publicPrice" validate:"gte=0"`
	Unit        string      `json:"unit" validate:"omitempty,max=50"`
	ValidFrom   *time.Time  `json:"validFrom,omitempty"`
	ValidTo     *time.Time  `json:"validTo,omitempty"`
	VendorID    *uuid.UUID  `json:"vendorId,omitempty"`
	SupportID   *uuid.UUID  `json:"supportId,omitempty"`
}

// UpdateProductRequest edits a catalog entry. StandardCost is derived from
// the public price and the resolved support commission, never set directly.
type UpdateProductRequest struct {
	Name        *string      `json:"name,omitempty" validate:"omitempty,max=200"`
	Kind        *ProductKind `json:"kind,omitempty" validate:"omitempty,oneof=internal external international adserving"`
	PublicPrice *float64     `json:"publicPrice,omitempty" validate:"omitempty,gte=0"`
	Unit        *string      `json:"unit,omitempty" validate:"omitempty,max=50"`
	ValidFrom   *time.Time   `json:"validFrom,omitempty"`
	ValidTo     *time.Time   `json:"validTo,omitempty"`
	VendorID    *uuid.UUID   `json:"vendorId,omitempty"`
	SupportID   *uuid.UUID   `json:"supportId,omitempty"`
	Sellable    *bool        `json:"sellable,omitempty"`
	Purchasable *bool        `json:"purchasable,omitempty"`
}

// CreateSupplierInfoRequest records the terms a vendor offers for a product
type CreateSupplierInfoRequest struct {
	VendorID          uuid.UUID  `json:"vendorId" validate:"required"`
	SupportID         *uuid.UUID `json:"supportId,omitempty"`
	Price             float64    `json:"price" validate:"gte=0"`
	Currency          string     `json:"currency" validate:"omitempty,len=3"`
	MinQty            float64    `json:"minQty" validate:"gte=0"`
	LeadTimeDays      int        `json:"leadTimeDays" validate:"gte=0"`
	PurchaseUnit      string     `json:"purchaseUnit" validate:"omitempty,max=50"`
	PurchaseUnitRatio float64    `json:"purchaseUnitRatio" validate:"omitempty,gt=0"`
	ValidFrom         *time.Time `json:"validFrom,omitempty"`
	ValidTo           *time.Time `json:"validTo,omitempty"`
}

// SupplierInfoDTO is the API view of a supplier info row
type SupplierInfoDTO struct {
	ID                uuid.UUID  `json:"id"`
	ProductID         uuid.UUID  `json:"productId"`
	VendorID          uuid.UUID  `json:"vendorId"`
	VendorName        string     `json:"vendorName,omitempty"`
	SupportID         *uuid.UUID `json:"supportId,omitempty"`
	SupportName       string     `json:"supportName,omitempty"`
	Price             float64    `json:"price"`
	Currency          string     `json:"currency"`
	MinQty            float64    `json:"minQty"`
	LeadTimeDays      int        `json:"leadTimeDays"`
	PurchaseUnit      string     `json:"purchaseUnit"`
	PurchaseUnitRatio float64    `json:"purchaseUnitRatio"`
	ValidFrom         *string    `json:"validFrom,omitempty"`
	ValidTo           *string    `json:"validTo,omitempty"`
}

// ProductDTO is the API view of a product
type ProductDTO struct {
	ID           uuid.UUID   `json:"id"`
	Code         string      `json:"code"`
	Name         string      `json:"name"`
	Kind         ProductKind `json:"kind"`
	PublicPrice  float64     `json:"publicPrice"`
	StandardCost float64     `json:"standardCost"`
	Unit         string      `json:"unit"`
	ValidFrom    *string     `json:"validFrom,omitempty"`
	ValidTo      *string     `json:"validTo,omitempty"`
	VendorID     *uuid.UUID  `json:"vendorId,omitempty"`
	SupportID    *uuid.UUID  `json:"supportId,omitempty"`
	CreatedAt    string      `json:"createdAt"`
	UpdatedAt    string      `json:"updatedAt"`
}

// ---------------------------------------------------------------------------
// Vendors
// ---------------------------------------------------------------------------

// CreateVendorRequest registers a supplying partner
type CreateVendorRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Currency string `json:"currency" validate:"omitempty,len=3"`
	Email    string `json:"email" validate:"omitempty,email"`
	Country  string `json:"country" validate:"omitempty,max=100"`
}

// UpdateVendorRequest edits a vendor
type UpdateVendorRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Currency *string `json:"currency,omitempty" validate:"omitempty,len=3"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Country  *string `json:"country,omitempty" validate:"omitempty,max=100"`
}

// VendorDTO is the API view of a vendor
type VendorDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	Email     string    `json:"email,omitempty"`
	Country   string    `json:"country,omitempty"`
	CreatedAt string    `json:"createdAt"`
	UpdatedAt string    `json:"updatedAt"`
}

// ---------------------------------------------------------------------------
// Purchase commitments
// ---------------------------------------------------------------------------

// PurchaseCommitmentLineDTO is the API view of a commitment line
type PurchaseCommitmentLineDTO struct {
	ID          uuid.UUID  `json:"id"`
	ProductID   uuid.UUID  `json:"productId"`
	ProductName string     `json:"productName,omitempty"`
	SupportID   *uuid.UUID `json:"supportId,omitempty"`
	Description string     `json:"description,omitempty"`
	Quantity    float64    `json:"quantity"`
	Unit        string     `json:"unit"`
	UnitCost    float64    `json:"unitCost"`
	PlannedDate string     `json:"plannedDate"`
}

// PurchaseCommitmentDTO is the API view of a purchase commitment
type PurchaseCommitmentDTO struct {
	ID         uuid.UUID                   `json:"id"`
	VendorID   uuid.UUID                   `json:"vendorId"`
	VendorName string                      `json:"vendorName,omitempty"`
	QuoteID    uuid.UUID                   `json:"quoteId"`
	Origin     string                      `json:"origin,omitempty"`
	State      CommitmentState             `json:"state"`
	Currency   string                      `json:"currency"`
	Lines      []PurchaseCommitmentLineDTO `json:"lines,omitempty"`
	CreatedAt  string                      `json:"createdAt"`
}

// ---------------------------------------------------------------------------
// Files
// ---------------------------------------------------------------------------

// FileDTO is the API view of an uploaded document
type FileDTO struct {
	ID          uuid.UUID `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	QuoteID     *uuid.UUID `json:"quoteId,omitempty"`
	CreatedAt   string    `json:"createdAt"`
}
