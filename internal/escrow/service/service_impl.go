package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/sellerledger/internal/clock"
	escrowdomain "github.com/smallbiznis/sellerledger/internal/escrow/domain"
	"github.com/smallbiznis/sellerledger/internal/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  escrowdomain.Repository
	Clock clock.Clock
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	repo  escrowdomain.Repository
	clock clock.Clock
}

func NewService(p Params) escrowdomain.Service {
	return &Service{
		log:   p.Log.Named("escrow.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: p.Clock,
	}
}

func (s *Service) Open(ctx context.Context, req escrowdomain.OpenRequest) (*escrowdomain.EscrowPayment, error) {
	total, err := money.New(req.TotalAmount, req.Currency)
	if err != nil {
		return nil, escrowdomain.ErrCurrencyMismatch
	}
	currency := total.Currency
	if len(req.PerStore) == 0 {
		return nil, escrowdomain.ErrNoAllocations
	}
	if total.IsNegative() || total.IsZero() {
		return nil, escrowdomain.ErrInvalidAmount
	}

	parts := make([]decimal.Decimal, 0, len(req.PerStore))
	for _, slice := range req.PerStore {
		if slice.Amount.IsNegative() || slice.Amount.IsZero() {
			return nil, escrowdomain.ErrInvalidAmount
		}
		if slice.ShippingAmount.IsNegative() || slice.ShippingAmount.GreaterThan(slice.Amount) {
			return nil, escrowdomain.ErrInvalidAmount
		}
		parts = append(parts, slice.Amount)
	}
	if !money.SumEquals(total.Amount, parts) {
		return nil, escrowdomain.ErrAmountMismatch
	}

	now := s.clock.Now()
	payment := &escrowdomain.EscrowPayment{
		ID:          s.genID.Generate(),
		OrderID:     req.OrderID,
		BuyerID:     req.BuyerID,
		TotalAmount: req.TotalAmount,
		Currency:    currency,
		CreatedAt:   now,
	}

	err = s.repo.InTx(ctx, func(tx escrowdomain.Repository) error {
		if err := tx.CreatePayment(ctx, payment); err != nil {
			return err
		}
		for _, slice := range req.PerStore {
			alloc := &escrowdomain.EscrowAllocation{
				ID:              s.genID.Generate(),
				EscrowPaymentID: payment.ID,
				StoreID:         slice.StoreID,
				ShipmentID:      slice.ShipmentID,
				Amount:          slice.Amount,
				ShippingAmount:  slice.ShippingAmount,
				RefundedAmount:  decimal.Zero,
				Currency:        currency,
				Status:          escrowdomain.AllocationStatusHeld,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if err := tx.CreateAllocation(ctx, alloc); err != nil {
				return err
			}
			// Funds entering escrow: one credit per allocation.
			entry := &escrowdomain.EscrowLedgerEntry{
				ID:              s.genID.Generate(),
				EscrowPaymentID: payment.ID,
				StoreID:         slice.StoreID,
				Direction:       escrowdomain.LedgerDirectionCredit,
				Amount:          slice.Amount,
				Currency:        currency,
				Reason:          escrowdomain.LedgerReasonEscrowOpen,
				CreatedAt:       now,
			}
			if err := tx.AppendLedger(ctx, entry); err != nil {
				return err
			}
			payment.Allocations = append(payment.Allocations, *alloc)
			payment.Ledger = append(payment.Ledger, *entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("escrow payment opened",
		zap.String("payment_id", payment.ID.String()),
		zap.String("order_id", payment.OrderID.String()),
		zap.Int("allocations", len(payment.Allocations)),
	)
	return payment, nil
}

func (s *Service) MarkEligible(ctx context.Context, allocationID snowflake.ID, eligibleAt time.Time) error {
	return s.repo.InTx(ctx, func(tx escrowdomain.Repository) error {
		alloc, err := tx.FindAllocationForUpdate(ctx, allocationID)
		if err != nil {
			return err
		}
		if alloc.Terminal() {
			return escrowdomain.ErrInvalidState
		}
		eligibleAt = eligibleAt.UTC()
		// Setting the same eligibility twice is a no-op, not an error.
		if alloc.EligibleForPayout && alloc.PayoutEligibleAt != nil && alloc.PayoutEligibleAt.Equal(eligibleAt) {
			return nil
		}
		alloc.EligibleForPayout = true
		alloc.PayoutEligibleAt = &eligibleAt
		alloc.UpdatedAt = s.clock.Now()
		return tx.UpdateAllocation(ctx, alloc)
	})
}

func (s *Service) Release(ctx context.Context, allocationID snowflake.ID) error {
	return s.repo.InTx(ctx, func(tx escrowdomain.Repository) error {
		alloc, err := tx.FindAllocationForUpdate(ctx, allocationID)
		if err != nil {
			return err
		}
		if alloc.Status != escrowdomain.AllocationStatusHeld {
			return escrowdomain.ErrInvalidState
		}

		now := s.clock.Now()
		outstanding := alloc.Outstanding()
		alloc.Status = escrowdomain.AllocationStatusReleased
		alloc.ReleasedAt = &now
		alloc.UpdatedAt = now
		if err := tx.UpdateAllocation(ctx, alloc); err != nil {
			return err
		}

		return tx.AppendLedger(ctx, &escrowdomain.EscrowLedgerEntry{
			ID:              s.genID.Generate(),
			EscrowPaymentID: alloc.EscrowPaymentID,
			StoreID:         alloc.StoreID,
			Direction:       escrowdomain.LedgerDirectionDebit,
			Amount:          outstanding,
			Currency:        alloc.Currency,
			Reason:          escrowdomain.LedgerReasonPayoutRelease,
			CreatedAt:       now,
		})
	})
}

func (s *Service) Refund(ctx context.Context, allocationID snowflake.ID, amount decimal.Decimal) error {
	if amount.IsNegative() || amount.IsZero() {
		return escrowdomain.ErrInvalidAmount
	}
	return s.repo.InTx(ctx, func(tx escrowdomain.Repository) error {
		alloc, err := tx.FindAllocationForUpdate(ctx, allocationID)
		if err != nil {
			return err
		}
		if alloc.Status != escrowdomain.AllocationStatusHeld {
			return escrowdomain.ErrInvalidState
		}
		if amount.GreaterThan(alloc.Outstanding()) {
			return escrowdomain.ErrRefundExceedsAllocation
		}

		now := s.clock.Now()
		alloc.RefundedAmount = alloc.RefundedAmount.Add(amount)
		if alloc.Outstanding().IsZero() {
			alloc.Status = escrowdomain.AllocationStatusRefunded
		}
		alloc.UpdatedAt = now
		if err := tx.UpdateAllocation(ctx, alloc); err != nil {
			return err
		}

		return tx.AppendLedger(ctx, &escrowdomain.EscrowLedgerEntry{
			ID:              s.genID.Generate(),
			EscrowPaymentID: alloc.EscrowPaymentID,
			StoreID:         alloc.StoreID,
			Direction:       escrowdomain.LedgerDirectionDebit,
			Amount:          amount,
			Currency:        alloc.Currency,
			Reason:          escrowdomain.LedgerReasonRefund,
			CreatedAt:       now,
		})
	})
}

func (s *Service) GetPayment(ctx context.Context, id snowflake.ID) (*escrowdomain.EscrowPayment, error) {
	payment, err := s.repo.FindPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.LoadAllocations(ctx, payment); err != nil {
		return nil, err
	}
	if err := s.repo.LoadLedger(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}
