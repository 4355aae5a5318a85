package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type AdjustmentRequest struct {
	OriginalYear  int
	OriginalMonth int
	Amount        decimal.Decimal
	Reason        string
}

// Service is the settlement aggregator.
type Service interface {
	// BuildOrUpdate rolls up the store's eligible-or-released
	// allocations for the calendar period. A draft is rebuilt in place;
	// a finalized settlement spawns version+1.
	BuildOrUpdate(ctx context.Context, storeID snowflake.ID, year, month int) (*Settlement, error)

	// Finalize is the one-way DRAFT -> FINALIZED transition; the
	// precondition for invoice issuance.
	Finalize(ctx context.Context, settlementID snowflake.ID) error

	// AddAdjustment records a cross-period correction on a draft.
	AddAdjustment(ctx context.Context, settlementID snowflake.ID, req AdjustmentRequest) error

	// StoresWithoutSettlement identifies stores with escrow activity in
	// the period lacking any settlement version. Detects missed runs.
	StoresWithoutSettlement(ctx context.Context, year, month int) ([]snowflake.ID, error)

	Get(ctx context.Context, id snowflake.ID) (*Settlement, error)
	GetLatest(ctx context.Context, storeID snowflake.ID, year, month int) (*Settlement, error)
}

// ResolveAt picks the commission resolution instant for an allocation:
// release time when released, otherwise creation time.
func ResolveAt(releasedAt *time.Time, createdAt time.Time) time.Time {
	if releasedAt != nil {
		return *releasedAt
	}
	return createdAt
}
