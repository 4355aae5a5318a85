// Package sandbox is the development payment rail: transfers succeed
// instantly, are idempotent per payout, and failures can be scripted.
package sandbox

import (
	"context"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/sellerledger/internal/transfer/domain"
)

const Name = "sandbox"

type Provider struct {
	mu       sync.Mutex
	results  map[snowflake.ID]domain.TransferResult
	failWith map[snowflake.ID]string
}

func New() *Provider {
	return &Provider{
		results:  make(map[snowflake.ID]domain.TransferResult),
		failWith: make(map[snowflake.ID]string),
	}
}

func (p *Provider) Name() string { return Name }

func (p *Provider) Transfer(ctx context.Context, req domain.TransferRequest) (domain.TransferResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.TransferResult{Outcome: domain.OutcomeUnknown}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Replay returns the recorded outcome for the payout, matching how
	// real rails honor an idempotency key.
	if res, ok := p.results[req.PayoutID]; ok {
		return res, nil
	}

	// Failures are not recorded for replay: a re-queued payout is a new
	// attempt and may succeed.
	if reason, ok := p.failWith[req.PayoutID]; ok {
		delete(p.failWith, req.PayoutID)
		return domain.TransferResult{Outcome: domain.OutcomeFailed, Reason: reason}, nil
	}

	res := domain.TransferResult{
		Outcome:   domain.OutcomeSucceeded,
		Reference: "sandbox_" + uuid.NewString(),
	}
	p.results[req.PayoutID] = res
	return res, nil
}

// FailNext scripts the next transfer for the payout to fail with the
// given reason. Test hook.
func (p *Provider) FailNext(payoutID snowflake.ID, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failWith[payoutID] = reason
	delete(p.results, payoutID)
}

// Reset clears recorded outcomes and scripted failures.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = make(map[snowflake.ID]domain.TransferResult)
	p.failWith = make(map[snowflake.ID]string)
}
