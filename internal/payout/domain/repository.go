package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	InTx(ctx context.Context, fn func(Repository) error) error

	Create(ctx context.Context, payout *SellerPayout) error
	Update(ctx context.Context, payout *SellerPayout) error
	FindByID(ctx context.Context, id snowflake.ID) (*SellerPayout, error)
	FindByIDForUpdate(ctx context.Context, id snowflake.ID) (*SellerPayout, error)
	ListByStore(ctx context.Context, storeID snowflake.ID) ([]SellerPayout, error)

	LoadItems(ctx context.Context, payout *SellerPayout) error
	CreateItem(ctx context.Context, item *SellerPayoutItem) error
	// DeactivateItems clears the Active claim marker when a payout
	// terminally fails, releasing its allocations for re-scheduling.
	DeactivateItems(ctx context.Context, payoutID snowflake.ID) error

	// IsAllocationClaimed reports whether a live payout item already
	// references the allocation. The unique claim index backs this up
	// under concurrency.
	IsAllocationClaimed(ctx context.Context, allocationID snowflake.ID) (bool, error)

	// ListDue returns SCHEDULED payouts with scheduledDate < before.
	ListDue(ctx context.Context, before time.Time, limit int) ([]SellerPayout, error)
	// ListDueForRetry returns FAILED payouts whose retry window opened
	// and whose retry budget is not exhausted.
	ListDueForRetry(ctx context.Context, asOf time.Time, limit int) ([]SellerPayout, error)
}
