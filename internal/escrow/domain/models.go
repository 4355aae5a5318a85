// Package domain contains persistence models for escrowed buyer funds.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// AllocationStatus represents the lifecycle of one store's slice of an
// escrow payment. RELEASED and REFUNDED are terminal.
type AllocationStatus string

const (
	AllocationStatusHeld     AllocationStatus = "HELD"
	AllocationStatusReleased AllocationStatus = "RELEASED"
	AllocationStatusRefunded AllocationStatus = "REFUNDED"
)

// LedgerDirection represents debit or credit movements against escrow.
type LedgerDirection string

const (
	LedgerDirectionDebit  LedgerDirection = "debit"
	LedgerDirectionCredit LedgerDirection = "credit"
)

// Ledger entry reasons. Stable identifiers, referenced by reconciliation.
const (
	LedgerReasonEscrowOpen    = "escrow_open"
	LedgerReasonPayoutRelease = "payout_release"
	LedgerReasonRefund        = "refund"
)

// EscrowPayment identifies one buyer payment capture. Immutable once
// created except through allocation state transitions.
type EscrowPayment struct {
	ID          snowflake.ID    `gorm:"primaryKey"`
	OrderID     snowflake.ID    `gorm:"not null;index"`
	BuyerID     snowflake.ID    `gorm:"not null;index"`
	TotalAmount decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Currency    string          `gorm:"type:text;not null"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`

	// Hydrated explicitly via Repository.LoadAllocations / LoadLedger.
	Allocations []EscrowAllocation `gorm:"-"`
	Ledger      []EscrowLedgerEntry `gorm:"-"`
}

// TableName sets the database table name.
func (EscrowPayment) TableName() string { return "escrow_payments" }

// EscrowAllocation is the escrowed-funds slice belonging to one store
// within one order, keyed by (store, shipment).
type EscrowAllocation struct {
	ID              snowflake.ID     `gorm:"primaryKey"`
	EscrowPaymentID snowflake.ID     `gorm:"not null;index"`
	StoreID         snowflake.ID     `gorm:"not null;index"`
	ShipmentID      snowflake.ID     `gorm:"not null;index"`
	Amount          decimal.Decimal  `gorm:"type:numeric(18,2);not null"`
	ShippingAmount  decimal.Decimal  `gorm:"type:numeric(18,2);not null;default:0"`
	RefundedAmount  decimal.Decimal  `gorm:"type:numeric(18,2);not null;default:0"`
	Currency        string           `gorm:"type:text;not null"`
	Status          AllocationStatus `gorm:"type:text;not null;default:'HELD';index"`

	EligibleForPayout bool       `gorm:"not null;default:false;index"`
	PayoutEligibleAt  *time.Time `gorm:""`
	ReleasedAt        *time.Time `gorm:""`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (EscrowAllocation) TableName() string { return "escrow_allocations" }

// Outstanding is the amount still held for this allocation: the original
// amount net of partial refunds. The ledger balance of a payment equals
// the sum of Outstanding across its HELD allocations.
func (a EscrowAllocation) Outstanding() decimal.Decimal {
	return a.Amount.Sub(a.RefundedAmount)
}

// Terminal reports whether the allocation can no longer transition.
func (a EscrowAllocation) Terminal() bool {
	return a.Status == AllocationStatusReleased || a.Status == AllocationStatusRefunded
}

// EscrowLedgerEntry is the immutable record of a single debit/credit
// movement against an escrow payment. Append-only.
type EscrowLedgerEntry struct {
	ID              snowflake.ID    `gorm:"primaryKey"`
	EscrowPaymentID snowflake.ID    `gorm:"not null;index"`
	StoreID         snowflake.ID    `gorm:"not null;index"`
	Direction       LedgerDirection `gorm:"type:text;not null"`
	Amount          decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Currency        string          `gorm:"type:text;not null"`
	Reason          string          `gorm:"type:text;not null"`
	CreatedAt       time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (EscrowLedgerEntry) TableName() string { return "escrow_ledger_entries" }

// LedgerBalance folds credit-minus-debit over a payment's ledger entries.
func LedgerBalance(entries []EscrowLedgerEntry) decimal.Decimal {
	balance := decimal.Zero
	for _, e := range entries {
		switch e.Direction {
		case LedgerDirectionCredit:
			balance = balance.Add(e.Amount)
		case LedgerDirectionDebit:
			balance = balance.Sub(e.Amount)
		}
	}
	return balance
}
