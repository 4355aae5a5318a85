// Package domain defines the outbound money-movement contract. Payout
// execution talks to a Provider and never assumes a failed call means a
// failed transfer.
package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Outcome classifies a transfer attempt. Unknown means the money may or
// may not have moved; the caller must not retry blindly.
type Outcome string

const (
	OutcomeSucceeded Outcome = "SUCCEEDED"
	OutcomeFailed    Outcome = "FAILED"
	OutcomeUnknown   Outcome = "UNKNOWN"
)

// TransferRequest describes one payout handed to a provider. PayoutID
// doubles as the idempotency key, so replaying a request after an
// Unknown outcome is safe.
type TransferRequest struct {
	PayoutID snowflake.ID
	StoreID  snowflake.ID
	Amount   decimal.Decimal
	Currency string
	Method   string
}

type TransferResult struct {
	Outcome   Outcome
	Reference string
	Reason    string
}

// Provider executes transfers against one payment rail.
type Provider interface {
	Name() string
	Transfer(ctx context.Context, req TransferRequest) (TransferResult, error)
}

var ErrUnknownProvider = errors.New("unknown_provider")
