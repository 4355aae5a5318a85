// Package domain contains seller payout batches and their retry state
// machine: Scheduled -> Processing -> Paid, or Failed with bounded retry.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type PayoutStatus string

const (
	PayoutStatusScheduled  PayoutStatus = "SCHEDULED"
	PayoutStatusProcessing PayoutStatus = "PROCESSING"
	PayoutStatusPaid       PayoutStatus = "PAID"
	PayoutStatusFailed     PayoutStatus = "FAILED"
)

// DefaultMethod is used until per-store payout methods arrive from the
// seller-profile collaborator.
const DefaultMethod = "bank_transfer"

// SellerPayout is one scheduled transfer of settled funds to a seller,
// batching one or more allocations.
type SellerPayout struct {
	ID      snowflake.ID `gorm:"primaryKey"`
	StoreID snowflake.ID `gorm:"not null;index"`
	Status  PayoutStatus `gorm:"type:text;not null;default:'SCHEDULED';index"`

	ScheduledDate time.Time       `gorm:"not null;index"`
	TotalAmount   decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Currency      string          `gorm:"type:text;not null"`
	Method        string          `gorm:"type:text;not null"`

	RetryCount  int        `gorm:"not null;default:0"`
	MaxRetries  int        `gorm:"not null"`
	NextRetryAt *time.Time `gorm:"index"`

	ProviderReference string     `gorm:"type:text"`
	FailureReason     string     `gorm:"type:text"`
	PaidAt            *time.Time `gorm:""`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`

	// Hydrated explicitly via Repository.LoadItems.
	Items []SellerPayoutItem `gorm:"-"`
}

// TableName sets the database table name.
func (SellerPayout) TableName() string { return "seller_payouts" }

// TerminallyFailed reports whether the payout exhausted its retries and
// now waits for operator intervention.
func (p SellerPayout) TerminallyFailed() bool {
	return p.Status == PayoutStatusFailed && p.RetryCount >= p.MaxRetries
}

// SellerPayoutItem claims exactly one allocation for its payout. Active
// is true while the claim holds and NULL once the payout terminally
// fails, so the unique index only guards live claims.
type SellerPayoutItem struct {
	ID           snowflake.ID    `gorm:"primaryKey"`
	PayoutID     snowflake.ID    `gorm:"not null;index"`
	AllocationID snowflake.ID    `gorm:"not null;uniqueIndex:ux_payout_items_allocation_active,priority:1"`
	Amount       decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Active       *bool           `gorm:"uniqueIndex:ux_payout_items_allocation_active,priority:2"`
	CreatedAt    time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (SellerPayoutItem) TableName() string { return "seller_payout_items" }

// Backoff returns the delay before retry n (1-based): exponential from
// base, capped at 24h.
func Backoff(base time.Duration, retry int) time.Duration {
	if retry < 1 {
		retry = 1
	}
	d := base
	for i := 1; i < retry; i++ {
		d *= 2
		if d >= 24*time.Hour {
			return 24 * time.Hour
		}
	}
	if d > 24*time.Hour {
		return 24 * time.Hour
	}
	return d
}
