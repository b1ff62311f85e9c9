package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate assigns an ID so the models work on both postgres and sqlite
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// CompanyID represents a Vantage group company
type CompanyID string

const (
	CompanyAll     CompanyID = "all"
	CompanyMedia   CompanyID = "media"
	CompanyDigital CompanyID = "digital"
	CompanyRegie   CompanyID = "regie"
)

// Company represents a tenant company quotes are issued under
type Company struct {
	ID        CompanyID `gorm:"type:varchar(50);primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(200);not null" json:"name"`
	Currency  string    `gorm:"type:varchar(3);not null;default:'EUR'" json:"currency"`
	IsActive  bool      `gorm:"not null;default:true;column:is_active" json:"isActive"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// QuoteState represents the approval state of a quote
type QuoteState string

const (
	QuoteStateDraft      QuoteState = "draft"
	QuoteStateSent       QuoteState = "sent"
	QuoteStateMinBuy     QuoteState = "min_buy"
	QuoteStateToValidate QuoteState = "to_validate"
	QuoteStateToConfirm  QuoteState = "to_confirm"
	QuoteStateConfirmed  QuoteState = "confirmed"
	QuoteStateCancelled  QuoteState = "cancelled"
)

// IsValid checks if the QuoteState is a valid enum value
func (s QuoteState) IsValid() bool {
	switch s {
	case QuoteStateDraft, QuoteStateSent, QuoteStateMinBuy, QuoteStateToValidate,
		QuoteStateToConfirm, QuoteStateConfirmed, QuoteStateCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed from the state
func (s QuoteState) IsTerminal() bool {
	return s == QuoteStateConfirmed || s == QuoteStateCancelled
}

// ApprovalTier represents the review depth a quote requires before confirmation
type ApprovalTier string

const (
	ApprovalTierNone ApprovalTier = "none"
	ApprovalTierN1   ApprovalTier = "n1"
	ApprovalTierN2   ApprovalTier = "n2"
)

// Quote is the root aggregate: a sales proposal that becomes a binding order
// once confirmed. Lines are owned and cascade-deleted with the quote.
type Quote struct {
	BaseModel
	Number        string       `gorm:"type:varchar(50);unique;index"`
	CompanyID     CompanyID    `gorm:"type:varchar(50);not null;index;column:company_id"`
	Company       *Company     `gorm:"foreignKey:CompanyID"`
	Currency      string       `gorm:"type:varchar(3);not null;default:'EUR'"`
	CustomerName  string       `gorm:"type:varchar(200);column:customer_name"`
	State         QuoteState   `gorm:"type:varchar(50);not null;default:'draft';index"`
	ApprovalTier  ApprovalTier `gorm:"type:varchar(10);not null;default:'none';column:approval_tier"`
	OpportunityID *uuid.UUID   `gorm:"type:uuid;index;column:opportunity_id"`
	OrderDate     time.Time    `gorm:"type:date;not null;column:order_date"`
	OrderedTotal  float64      `gorm:"type:decimal(15,2);not null;default:0;column:ordered_total"`
	Notes         string       `gorm:"type:text"`
	Lines         []QuoteLine  `gorm:"foreignKey:QuoteID;constraint:OnDelete:CASCADE"`
	Files         []File       `gorm:"foreignKey:QuoteID"`
}

// LineKind distinguishes hand-entered lines from reconciler-generated ones
type LineKind string

const (
	LineKindRegular   LineKind = "regular"
	LineKindFreeGoods LineKind = "free_goods"
	LineKindDiscount  LineKind = "discount"
)

// IsGenerated reports whether the line is maintained by the reconciler and
// must never be edited by hand
func (k LineKind) IsGenerated() bool {
	return k == LineKindFreeGoods || k == LineKindDiscount
}

// QuoteLine is an ordered entry on a quote. Generated lines always reference
// the paid line that produced them via GeneratorID.
type QuoteLine struct {
	BaseModel
	QuoteID       uuid.UUID      `gorm:"type:uuid;not null;index;column:quote_id"`
	ProductID     uuid.UUID      `gorm:"type:uuid;not null;index;column:product_id"`
	Product       *Product       `gorm:"foreignKey:ProductID"`
	Description   string         `gorm:"type:varchar(500)"`
	Quantity      float64        `gorm:"type:decimal(12,3);not null;default:0"`
	Unit          string         `gorm:"type:varchar(50);not null;default:'unit'"`
	UnitPrice     float64        `gorm:"type:decimal(15,2);not null;default:0;column:unit_price"`
	UnitCost      float64        `gorm:"type:decimal(15,2);not null;default:0;column:unit_cost"`
	SupportID     *uuid.UUID     `gorm:"type:uuid;index;column:support_id"`
	Support       *VendorSupport `gorm:"foreignKey:SupportID"`
	CommissionPct float64        `gorm:"type:decimal(5,2);not null;default:0;column:commission_pct"`
	Kind          LineKind       `gorm:"type:varchar(20);not null;default:'regular';index"`
	GeneratorID   *uuid.UUID     `gorm:"type:uuid;index;column:generator_id"`
	Sequence      int            `gorm:"not null;default:0"`
}

// Subtotal returns the line amount in the quote currency
func (l *QuoteLine) Subtotal() float64 {
	return l.Quantity * l.UnitPrice
}

// Vendor represents a supplying partner behind one or more supports
type Vendor struct {
	BaseModel
	Name     string          `gorm:"type:varchar(200);not null;index"`
	Currency string          `gorm:"type:varchar(3);not null;default:'EUR'"`
	Email    string          `gorm:"type:varchar(255)"`
	Country  string          `gorm:"type:varchar(100)"`
	Supports []VendorSupport `gorm:"foreignKey:VendorID"`
}

// VendorSupport is a sellable channel tied to a vendor, carrying the
// commission, minimum-buy and free-tier rules used by the quote engine
type VendorSupport struct {
	BaseModel
	Name             string                  `gorm:"type:varchar(200);not null;index"`
	VendorID         uuid.UUID               `gorm:"type:uuid;not null;index;column:vendor_id"`
	Vendor           *Vendor                 `gorm:"foreignKey:VendorID"`
	CompanyID        CompanyID               `gorm:"type:varchar(50);not null;index;column:company_id"`
	Currency         string                  `gorm:"type:varchar(3);not null;default:'EUR'"`
	CommissionPct    float64                 `gorm:"type:decimal(5,2);not null;default:0;column:commission_pct"`
	MinimumBuyAmount float64                 `gorm:"type:decimal(15,2);not null;default:0;column:minimum_buy_amount"`
	Blacklisted      bool                    `gorm:"not null;default:false"`
	FreeTiers        []VendorSupportFreeTier `gorm:"foreignKey:SupportID;constraint:OnDelete:CASCADE"`
}

// ApplicableFreeTier returns the tier with the greatest MinQty not exceeding
// orderedQty, or nil when no tier qualifies. Tiers are kept ordered by MinQty
// so the last qualifying entry wins.
func (s *VendorSupport) ApplicableFreeTier(orderedQty float64) *VendorSupportFreeTier {
	var best *VendorSupportFreeTier
	for i := range s.FreeTiers {
		t := &s.FreeTiers[i]
		if orderedQty >= t.MinQty && (best == nil || t.MinQty >= best.MinQty) {
			best = t
		}
	}
	return best
}

// VendorSupportFreeTier defines a free-goods rate unlocked at a quantity threshold
type VendorSupportFreeTier struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	SupportID   uuid.UUID `gorm:"type:uuid;not null;index;column:support_id"`
	MinQty      float64   `gorm:"type:decimal(12,3);not null;column:min_qty"`
	FreePercent float64   `gorm:"type:decimal(5,2);not null;column:free_percent"`
	CreatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate assigns an ID so the model works on both postgres and sqlite
func (t *VendorSupportFreeTier) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// ProductKind classifies where a product is sourced from. Only external
// kinds participate in purchase fan-out.
type ProductKind string

const (
	ProductKindInternal      ProductKind = "internal"
	ProductKindExternal      ProductKind = "external"
	ProductKindInternational ProductKind = "international"
	ProductKindAdServing     ProductKind = "adserving"
)

// RequiresProcurement reports whether confirmed lines of this kind generate
// purchase commitments
func (k ProductKind) RequiresProcurement() bool {
	return k == ProductKindExternal || k == ProductKindInternational
}

// Product represents a sellable catalog entry
type Product struct {
	BaseModel
	Code         string         `gorm:"type:varchar(50);unique;index"`
	Name         string         `gorm:"type:varchar(200);not null;index"`
	Kind         ProductKind    `gorm:"type:varchar(20);not null;default:'internal'"`
	PublicPrice  float64        `gorm:"type:decimal(15,2);not null;default:0;column:public_price"`
	StandardCost float64        `gorm:"type:decimal(15,2);not null;default:0;column:standard_cost"`
	Unit         string         `gorm:"type:varchar(50);not null;default:'unit'"`
	ValidFrom    *time.Time     `gorm:"type:date;column:valid_from"`
	ValidTo      *time.Time     `gorm:"type:date;column:valid_to"`
	VendorID     *uuid.UUID     `gorm:"type:uuid;index;column:vendor_id"`
	Vendor       *Vendor        `gorm:"foreignKey:VendorID"`
	SupportID    *uuid.UUID     `gorm:"type:uuid;index;column:support_id"`
	Support      *VendorSupport `gorm:"foreignKey:SupportID"`
	// No default tags here: gorm would skip an explicit false on insert and
	// let the column default win, storing unsellable products as sellable.
	Sellable    bool `gorm:"not null"`
	Purchasable bool `gorm:"not null"`
}

// FreeGoodsProductCode identifies the shared synthetic product carried by
// reconciler-generated lines. Looked up or created lazily, exactly once per
// process-wide catalog.
const FreeGoodsProductCode = "SUPPORT_FREE"

// SupplierInfo holds the purchasing terms a vendor offers for a product.
// It backs seller selection during purchase fan-out.
type SupplierInfo struct {
	BaseModel
	ProductID         uuid.UUID      `gorm:"type:uuid;not null;index;column:product_id"`
	Product           *Product       `gorm:"foreignKey:ProductID"`
	VendorID          uuid.UUID      `gorm:"type:uuid;not null;index;column:vendor_id"`
	Vendor            *Vendor        `gorm:"foreignKey:VendorID"`
	SupportID         *uuid.UUID     `gorm:"type:uuid;index;column:support_id"`
	Support           *VendorSupport `gorm:"foreignKey:SupportID"`
	Price             float64        `gorm:"type:decimal(15,2);not null;default:0"`
	Currency          string         `gorm:"type:varchar(3);not null;default:'EUR'"`
	MinQty            float64        `gorm:"type:decimal(12,3);not null;default:0;column:min_qty"`
	LeadTimeDays      int            `gorm:"not null;default:0;column:lead_time_days"`
	PurchaseUnit      string         `gorm:"type:varchar(50);not null;default:'unit';column:purchase_unit"`
	PurchaseUnitRatio float64        `gorm:"type:decimal(12,3);not null;default:1;column:purchase_unit_ratio"`
	ValidFrom         *time.Time     `gorm:"type:date;column:valid_from"`
	ValidTo           *time.Time     `gorm:"type:date;column:valid_to"`
}

// CommitmentState represents the lifecycle of a purchase commitment
type CommitmentState string

const (
	CommitmentStateDraft     CommitmentState = "draft"
	CommitmentStateConfirmed CommitmentState = "confirmed"
)

// PurchaseCommitment is the vendor-facing procurement document created once
// per (quote, vendor) pair at confirmation. It is never edited afterwards.
type PurchaseCommitment struct {
	BaseModel
	VendorID uuid.UUID                `gorm:"type:uuid;not null;index;column:vendor_id"`
	Vendor   *Vendor                  `gorm:"foreignKey:VendorID"`
	QuoteID  uuid.UUID                `gorm:"type:uuid;not null;index;column:quote_id"`
	Quote    *Quote                   `gorm:"foreignKey:QuoteID"`
	Origin   string                   `gorm:"type:varchar(50)"`
	State    CommitmentState          `gorm:"type:varchar(20);not null;default:'draft'"`
	Currency string                   `gorm:"type:varchar(3);not null;default:'EUR'"`
	Lines    []PurchaseCommitmentLine `gorm:"foreignKey:CommitmentID;constraint:OnDelete:CASCADE"`
}

// PurchaseCommitmentLine is one procured line on a commitment
type PurchaseCommitmentLine struct {
	BaseModel
	CommitmentID uuid.UUID      `gorm:"type:uuid;not null;index;column:commitment_id"`
	ProductID    uuid.UUID      `gorm:"type:uuid;not null;column:product_id"`
	Product      *Product       `gorm:"foreignKey:ProductID"`
	SupportID    *uuid.UUID     `gorm:"type:uuid;column:support_id"`
	Support      *VendorSupport `gorm:"foreignKey:SupportID"`
	Description  string         `gorm:"type:varchar(500)"`
	Quantity     float64        `gorm:"type:decimal(12,3);not null"`
	Unit         string         `gorm:"type:varchar(50);not null;default:'unit'"`
	UnitCost     float64        `gorm:"type:decimal(15,2);not null;column:unit_cost"`
	PlannedDate  time.Time      `gorm:"not null;column:planned_date"`
}

// ExchangeRate holds one conversion rate effective from RateDate onwards
type ExchangeRate struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key"`
	FromCurrency string    `gorm:"type:varchar(3);not null;uniqueIndex:idx_rates_pair_date;column:from_currency"`
	ToCurrency   string    `gorm:"type:varchar(3);not null;uniqueIndex:idx_rates_pair_date;column:to_currency"`
	Rate         float64   `gorm:"type:decimal(15,6);not null"`
	RateDate     time.Time `gorm:"type:date;not null;uniqueIndex:idx_rates_pair_date;column:rate_date"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate assigns an ID so the model works on both postgres and sqlite
func (r *ExchangeRate) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// ActivityTargetType represents the type of entity an activity is attached to
type ActivityTargetType string

const (
	ActivityTargetQuote      ActivityTargetType = "Quote"
	ActivityTargetCommitment ActivityTargetType = "PurchaseCommitment"
	ActivityTargetSupport    ActivityTargetType = "VendorSupport"
)

// Activity is the message/audit trail entry posted on state transitions and
// reconciliation events. Posting is fire-and-forget: failures are logged,
// never surfaced to the triggering operation.
type Activity struct {
	BaseModel
	TargetType  ActivityTargetType `gorm:"type:varchar(50);not null;index;column:target_type"`
	TargetID    uuid.UUID          `gorm:"type:uuid;not null;index;column:target_id"`
	Title       string             `gorm:"type:varchar(200);not null"`
	Body        string             `gorm:"type:varchar(2000)"`
	OccurredAt  time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP;index;column:occurred_at"`
	CreatorID   string             `gorm:"type:varchar(100);column:creator_id"`
	CreatorName string             `gorm:"type:varchar(200);column:creator_name"`
}

// NumberSequence backs quote number generation, one counter per company/year
type NumberSequence struct {
	CompanyID  CompanyID `gorm:"type:varchar(50);primaryKey;column:company_id"`
	Year       int       `gorm:"primaryKey"`
	LastNumber int       `gorm:"not null;default:0;column:last_number"`
	UpdatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// GetCompanyPrefix returns the quote number prefix for a company
func GetCompanyPrefix(companyID CompanyID) string {
	switch companyID {
	case CompanyMedia:
		return "VM"
	case CompanyDigital:
		return "VD"
	case CompanyRegie:
		return "VR"
	default:
		return "VG"
	}
}

// IsValidCompanyID checks whether the string names a known company
func IsValidCompanyID(id string) bool {
	switch CompanyID(id) {
	case CompanyAll, CompanyMedia, CompanyDigital, CompanyRegie:
		return true
	}
	return false
}

// UserRoleType represents a role a user can hold
type UserRoleType string

const (
	RoleAdmin          UserRoleType = "admin"
	RoleSales          UserRoleType = "sales"
	RoleMinBuyApprover UserRoleType = "min_buy_approver"
	RoleApproverN1     UserRoleType = "approver_n1"
	RoleApproverN2     UserRoleType = "approver_n2"
)

// User represents an actor in the system. Roles gate the approval state
// machine transitions.
type User struct {
	ID          string     `gorm:"type:varchar(100);primaryKey" json:"id"`
	Email       string     `gorm:"type:varchar(255);not null;unique" json:"email"`
	DisplayName string     `gorm:"type:varchar(200);not null;column:display_name" json:"displayName"`
	Roles       string     `gorm:"type:varchar(500);not null;default:''" json:"roles"`
	CompanyID   *CompanyID `gorm:"type:varchar(50);column:company_id" json:"companyId,omitempty"`
	IsActive    bool       `gorm:"not null;default:true;column:is_active" json:"isActive"`
	CreatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// File represents an uploaded document, e.g. the client purchase order
// attached after a quote is confirmed
type File struct {
	BaseModel
	Filename    string     `gorm:"type:varchar(255);not null"`
	ContentType string     `gorm:"type:varchar(100);not null"`
	Size        int64      `gorm:"not null"`
	StoragePath string     `gorm:"type:varchar(500);not null;unique"`
	QuoteID     *uuid.UUID `gorm:"type:uuid;index;column:quote_id"`
	Quote       *Quote     `gorm:"foreignKey:QuoteID"`
}
