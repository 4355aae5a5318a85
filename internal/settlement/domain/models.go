// Package domain contains versioned settlement snapshots: the periodic
// financial rollup of a store's allocations, net of commission and refunds.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// SettlementStatus tracks the snapshot lifecycle. A settlement is
// immutable once FINALIZED; corrections create a new version.
type SettlementStatus string

const (
	SettlementStatusDraft     SettlementStatus = "DRAFT"
	SettlementStatusFinalized SettlementStatus = "FINALIZED"
	SettlementStatusApproved  SettlementStatus = "APPROVED"
	SettlementStatusExported  SettlementStatus = "EXPORTED"
)

// Settlement is one versioned rollup for (store, year, month).
type Settlement struct {
	ID      snowflake.ID     `gorm:"primaryKey"`
	StoreID snowflake.ID     `gorm:"not null;index;uniqueIndex:ux_settlements_store_period_version,priority:1"`
	Year    int              `gorm:"not null;uniqueIndex:ux_settlements_store_period_version,priority:2"`
	Month   int              `gorm:"not null;uniqueIndex:ux_settlements_store_period_version,priority:3"`
	Version int              `gorm:"not null;default:1;uniqueIndex:ux_settlements_store_period_version,priority:4"`
	Status  SettlementStatus `gorm:"type:text;not null;default:'DRAFT';index"`

	Currency         string          `gorm:"type:text;not null"`
	GrossSales       decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
	TotalShipping    decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
	TotalCommission  decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
	TotalRefunds     decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
	TotalAdjustments decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
	NetPayable       decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`

	FinalizedAt *time.Time `gorm:""`
	CreatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"`

	// Hydrated explicitly via Repository.LoadItems / LoadAdjustments.
	Items       []SettlementItem       `gorm:"-"`
	Adjustments []SettlementAdjustment `gorm:"-"`
}

// TableName sets the database table name.
func (Settlement) TableName() string { return "settlements" }

// Mutable reports whether items and totals may still change in place.
func (s Settlement) Mutable() bool { return s.Status == SettlementStatusDraft }

// SettlementItem is one contributing allocation's line.
type SettlementItem struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	SettlementID snowflake.ID `gorm:"not null;index"`
	AllocationID snowflake.ID `gorm:"not null;index"`
	OrderID      snowflake.ID `gorm:"not null"`

	SellerAmount     decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	ShippingAmount   decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
	CommissionRate   decimal.Decimal `gorm:"type:numeric(6,3);not null"`
	CommissionAmount decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	RefundAmount     decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
	NetAmount        decimal.Decimal `gorm:"type:numeric(18,2);not null"`

	OccurredAt time.Time `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (SettlementItem) TableName() string { return "settlement_items" }

// SettlementAdjustment is a manual correction applied to this settlement
// but originating in a different period.
type SettlementAdjustment struct {
	ID            snowflake.ID    `gorm:"primaryKey"`
	SettlementID  snowflake.ID    `gorm:"not null;index"`
	OriginalYear  int             `gorm:"not null"`
	OriginalMonth int             `gorm:"not null"`
	Amount        decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Reason        string          `gorm:"type:text;not null"`
	CreatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (SettlementAdjustment) TableName() string { return "settlement_adjustments" }

// PeriodBounds returns the UTC half-open interval [start, end) for a
// calendar month.
func PeriodBounds(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
