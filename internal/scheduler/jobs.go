package scheduler

import (
	"context"
	"errors"

	billingdomain "github.com/smallbiznis/sellerledger/internal/billingdoc/domain"
	obsmetrics "github.com/smallbiznis/sellerledger/internal/observability/metrics"
	payoutdomain "github.com/smallbiznis/sellerledger/internal/payout/domain"
	transferdomain "github.com/smallbiznis/sellerledger/internal/transfer/domain"
	"go.uber.org/zap"
)

// SettlementRunJob builds the previous month's settlement for every
// store that had escrow activity but no snapshot yet.
func (s *Scheduler) SettlementRunJob(ctx context.Context) error {
	prev := s.clock.Now().UTC().AddDate(0, -1, 0)
	year, month := prev.Year(), int(prev.Month())

	stores, err := s.settlementSvc.StoresWithoutSettlement(ctx, year, month)
	if err != nil {
		return err
	}

	var jobErr error
	processed := 0
	for _, storeID := range stores {
		if ctx.Err() != nil {
			return errors.Join(jobErr, ctx.Err())
		}
		if _, err := s.settlementSvc.BuildOrUpdate(ctx, storeID, year, month); err != nil {
			s.log.Warn("settlement build failed",
				zap.String("job", "settlement_run"),
				zap.String("store_id", storeID.String()),
				zap.Error(err),
			)
			jobErr = errors.Join(jobErr, err)
			continue
		}
		processed++
	}
	obsmetrics.Scheduler().AddBatchProcessed("settlement_run", processed)
	return jobErr
}

// PayoutScheduleJob sweeps stores holding payout-eligible allocations
// and batches them into scheduled payouts.
func (s *Scheduler) PayoutScheduleJob(ctx context.Context) error {
	now := s.clock.Now()
	stores, err := s.escrowRepo.StoresWithEligibleAllocations(ctx, now)
	if err != nil {
		return err
	}

	var jobErr error
	processed := 0
	for _, storeID := range stores {
		if ctx.Err() != nil {
			return errors.Join(jobErr, ctx.Err())
		}
		_, err := s.payoutSvc.ScheduleForStore(ctx, storeID, now)
		if errors.Is(err, payoutdomain.ErrNothingEligible) {
			continue
		}
		if errors.Is(err, payoutdomain.ErrAllocationClaimed) {
			// Lost a race with a concurrent scheduler, the next sweep
			// picks up whatever remains unclaimed.
			continue
		}
		if err != nil {
			jobErr = errors.Join(jobErr, err)
			continue
		}
		processed++
	}
	obsmetrics.Scheduler().AddBatchProcessed("payout_schedule", processed)
	return jobErr
}

// PayoutProcessJob hands due payouts to the active transfer provider.
func (s *Scheduler) PayoutProcessJob(ctx context.Context) error {
	provider, err := s.transfers.Active()
	if err != nil {
		return err
	}

	due, err := s.payoutSvc.ProcessDue(ctx, s.clock.Now())
	if err != nil {
		return err
	}

	var jobErr error
	processed := 0
	for i := range due {
		if ctx.Err() != nil {
			return errors.Join(jobErr, ctx.Err())
		}
		if err := s.processOne(ctx, provider, &due[i]); err != nil {
			jobErr = errors.Join(jobErr, err)
			continue
		}
		processed++
	}
	obsmetrics.Scheduler().AddBatchProcessed("payout_process", processed)
	return jobErr
}

func (s *Scheduler) processOne(ctx context.Context, provider transferdomain.Provider, payout *payoutdomain.SellerPayout) error {
	log := s.log.With(
		zap.String("job", "payout_process"),
		zap.String("payout_id", payout.ID.String()),
	)

	if err := s.payoutSvc.MarkProcessing(ctx, payout.ID); err != nil {
		return err
	}

	transferCtx, cancel := context.WithTimeout(ctx, s.cfg.TransferTimeout)
	defer cancel()
	result, err := provider.Transfer(transferCtx, transferdomain.TransferRequest{
		PayoutID: payout.ID,
		StoreID:  payout.StoreID,
		Amount:   payout.TotalAmount,
		Currency: payout.Currency,
		Method:   payout.Method,
	})

	// A timed-out or otherwise indeterminate call means the money may
	// have moved. The payout stays PROCESSING until the outcome is
	// known; replaying the idempotent request later is safe.
	if errors.Is(err, context.DeadlineExceeded) || result.Outcome == transferdomain.OutcomeUnknown {
		log.Warn("transfer outcome unknown, leaving payout in processing", zap.Error(err))
		return nil
	}
	if err != nil {
		return s.payoutSvc.RecordFailure(ctx, payout.ID, err.Error())
	}

	switch result.Outcome {
	case transferdomain.OutcomeSucceeded:
		return s.payoutSvc.RecordSuccess(ctx, payout.ID, result.Reference)
	case transferdomain.OutcomeFailed:
		return s.payoutSvc.RecordFailure(ctx, payout.ID, result.Reason)
	default:
		log.Warn("unexpected transfer outcome", zap.String("outcome", string(result.Outcome)))
		return nil
	}
}

// PayoutRetryJob re-queues failed payouts whose backoff window opened.
func (s *Scheduler) PayoutRetryJob(ctx context.Context) error {
	due, err := s.payoutSvc.DueForRetry(ctx, s.clock.Now())
	if err != nil {
		return err
	}

	var jobErr error
	processed := 0
	for _, payout := range due {
		if ctx.Err() != nil {
			return errors.Join(jobErr, ctx.Err())
		}
		if err := s.payoutSvc.Requeue(ctx, payout.ID); err != nil {
			jobErr = errors.Join(jobErr, err)
			continue
		}
		processed++
	}
	obsmetrics.Scheduler().AddBatchProcessed("payout_retry", processed)
	return jobErr
}

// InvoiceIssueJob issues commission invoices for finalized settlements
// that do not carry one yet.
func (s *Scheduler) InvoiceIssueJob(ctx context.Context) error {
	settlements, err := s.settlementRepo.ListFinalizedWithoutInvoice(ctx, s.cfg.BatchSize)
	if err != nil {
		return err
	}

	var jobErr error
	processed := 0
	for _, settlement := range settlements {
		if ctx.Err() != nil {
			return errors.Join(jobErr, ctx.Err())
		}
		_, err := s.issuer.IssueInvoice(ctx, settlement.ID)
		if errors.Is(err, billingdomain.ErrAlreadyInvoiced) {
			continue
		}
		if err != nil {
			jobErr = errors.Join(jobErr, err)
			continue
		}
		processed++
	}
	obsmetrics.Scheduler().AddBatchProcessed("invoice_issue", processed)
	return jobErr
}
