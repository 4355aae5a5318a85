package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Service drives payout scheduling and the per-payout state machine.
type Service interface {
	// ScheduleForStore batches the store's claimable allocations into
	// one SCHEDULED payout. ErrNothingEligible is a no-op signal, not a
	// failure.
	ScheduleForStore(ctx context.Context, storeID snowflake.ID, asOf time.Time) (*SellerPayout, error)

	// ProcessDue returns SCHEDULED payouts ready to hand to the
	// transfer provider.
	ProcessDue(ctx context.Context, before time.Time) ([]SellerPayout, error)

	// MarkProcessing transitions SCHEDULED -> PROCESSING before the
	// outbound transfer call, so an unknown outcome stays visible.
	MarkProcessing(ctx context.Context, payoutID snowflake.ID) error

	// RecordSuccess transitions to PAID and releases every claimed
	// allocation.
	RecordSuccess(ctx context.Context, payoutID snowflake.ID, providerReference string) error

	// RecordFailure increments the retry counter; below the ceiling the
	// payout waits FAILED with a backoff window, at the ceiling it is
	// terminal.
	RecordFailure(ctx context.Context, payoutID snowflake.ID, errorMessage string) error

	// DueForRetry lists FAILED payouts whose backoff elapsed.
	DueForRetry(ctx context.Context, asOf time.Time) ([]SellerPayout, error)

	// Requeue moves a retryable FAILED payout back to SCHEDULED.
	Requeue(ctx context.Context, payoutID snowflake.ID) error

	Get(ctx context.Context, id snowflake.ID) (*SellerPayout, error)
	ListByStore(ctx context.Context, storeID snowflake.ID) ([]SellerPayout, error)
}
