package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Repository is the persistence contract for the escrow aggregate.
// Child collections are hydrated explicitly; callers must not assume
// eager loading.
type Repository interface {
	// InTx runs fn against a repository bound to one transaction.
	// Writes touching an allocation and its ledger go through here.
	InTx(ctx context.Context, fn func(Repository) error) error

	CreatePayment(ctx context.Context, payment *EscrowPayment) error
	FindPayment(ctx context.Context, id snowflake.ID) (*EscrowPayment, error)
	LoadAllocations(ctx context.Context, payment *EscrowPayment) error
	LoadLedger(ctx context.Context, payment *EscrowPayment) error

	CreateAllocation(ctx context.Context, alloc *EscrowAllocation) error
	FindAllocation(ctx context.Context, id snowflake.ID) (*EscrowAllocation, error)
	// FindAllocationForUpdate locks the allocation row for the duration
	// of the surrounding transaction where the dialect supports it.
	FindAllocationForUpdate(ctx context.Context, id snowflake.ID) (*EscrowAllocation, error)
	UpdateAllocation(ctx context.Context, alloc *EscrowAllocation) error

	AppendLedger(ctx context.Context, entry *EscrowLedgerEntry) error

	// EligibleAllocations returns HELD allocations for the store whose
	// payout eligibility window has opened by asOf.
	EligibleAllocations(ctx context.Context, storeID snowflake.ID, asOf time.Time) ([]EscrowAllocation, error)
	// StoresWithEligibleAllocations lists distinct stores the payout
	// sweep should visit.
	StoresWithEligibleAllocations(ctx context.Context, asOf time.Time) ([]snowflake.ID, error)
	// AllocationsForPeriod returns allocations for the store created or
	// released inside [from, to) that are released or payout-eligible.
	AllocationsForPeriod(ctx context.Context, storeID snowflake.ID, from, to time.Time) ([]EscrowAllocation, error)
	// StoresWithActivity lists distinct stores with escrow movement
	// inside [from, to).
	StoresWithActivity(ctx context.Context, from, to time.Time) ([]snowflake.ID, error)
}
