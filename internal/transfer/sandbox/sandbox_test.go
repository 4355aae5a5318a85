package sandbox

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/sellerledger/internal/transfer/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func request(t *testing.T) domain.TransferRequest {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return domain.TransferRequest{
		PayoutID: node.Generate(),
		StoreID:  node.Generate(),
		Amount:   decimal.RequireFromString("54.00"),
		Currency: "USD",
		Method:   "bank_transfer",
	}
}

func TestTransfer_IdempotentPerPayout(t *testing.T) {
	p := New()
	req := request(t)

	first, err := p.Transfer(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSucceeded, first.Outcome)
	assert.NotEmpty(t, first.Reference)

	// Same payout, same reference. No double spend.
	second, err := p.Transfer(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.Reference, second.Reference)
}

func TestTransfer_ScriptedFailure(t *testing.T) {
	p := New()
	req := request(t)
	p.FailNext(req.PayoutID, "insufficient rail balance")

	res, err := p.Transfer(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.Equal(t, "insufficient rail balance", res.Reason)
}

func TestTransfer_ExpiredContextIsUnknown(t *testing.T) {
	p := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := p.Transfer(ctx, request(t))
	assert.Error(t, err)
	assert.Equal(t, domain.OutcomeUnknown, res.Outcome)
}
