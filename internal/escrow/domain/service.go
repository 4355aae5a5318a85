package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// StoreAmount is one store's slice of an order payment at open time.
type StoreAmount struct {
	StoreID        snowflake.ID
	ShipmentID     snowflake.ID
	Amount         decimal.Decimal
	ShippingAmount decimal.Decimal
}

// OpenRequest captures one buyer payment to be held in escrow.
type OpenRequest struct {
	OrderID     snowflake.ID
	BuyerID     snowflake.ID
	TotalAmount decimal.Decimal
	Currency    string
	PerStore    []StoreAmount
}

// Service owns the escrow payment lifecycle. All operations are local
// validations plus aggregate-scoped writes; retries belong to callers.
type Service interface {
	// Open creates the payment, one HELD allocation per store slice and
	// a ledger credit per allocation. Fails with ErrAmountMismatch when
	// the slices do not sum to TotalAmount.
	Open(ctx context.Context, req OpenRequest) (*EscrowPayment, error)

	// MarkEligible flags an allocation as payable once delivery plus the
	// return window have elapsed. Idempotent.
	MarkEligible(ctx context.Context, allocationID snowflake.ID, eligibleAt time.Time) error

	// Release transitions HELD -> RELEASED and appends the matching
	// ledger debit. Called by the payout scheduler on confirmed transfer.
	Release(ctx context.Context, allocationID snowflake.ID) error

	// Refund debits up to the allocation's outstanding amount. A full
	// refund transitions the allocation to REFUNDED.
	Refund(ctx context.Context, allocationID snowflake.ID, amount decimal.Decimal) error

	// GetPayment returns the payment hydrated with allocations + ledger.
	GetPayment(ctx context.Context, id snowflake.ID) (*EscrowPayment, error)
}
