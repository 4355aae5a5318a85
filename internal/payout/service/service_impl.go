package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/sellerledger/internal/clock"
	"github.com/smallbiznis/sellerledger/internal/config"
	escrowdomain "github.com/smallbiznis/sellerledger/internal/escrow/domain"
	payoutdomain "github.com/smallbiznis/sellerledger/internal/payout/domain"
	"github.com/smallbiznis/sellerledger/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config bounds the retry state machine.
type Config struct {
	MaxRetries  int
	BackoffBase time.Duration
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		MaxRetries:  cfg.PayoutMaxRetries,
		BackoffBase: cfg.PayoutBackoffBase,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = time.Hour
	}
	return c
}

type Params struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       payoutdomain.Repository
	EscrowRepo escrowdomain.Repository
	EscrowSvc  escrowdomain.Service
	Clock      clock.Clock
	Config     Config `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	genID      *snowflake.Node
	cfg        Config
	repo       payoutdomain.Repository
	escrowRepo escrowdomain.Repository
	escrowSvc  escrowdomain.Service
	clock      clock.Clock
}

func NewService(p Params) payoutdomain.Service {
	return &Service{
		log:        p.Log.Named("payout.service"),
		genID:      p.GenID,
		cfg:        p.Config.withDefaults(),
		repo:       p.Repo,
		escrowRepo: p.EscrowRepo,
		escrowSvc:  p.EscrowSvc,
		clock:      p.Clock,
	}
}

func (s *Service) ScheduleForStore(ctx context.Context, storeID snowflake.ID, asOf time.Time) (*payoutdomain.SellerPayout, error) {
	eligible, err := s.escrowRepo.EligibleAllocations(ctx, storeID, asOf)
	if err != nil {
		return nil, err
	}

	claimable := make([]escrowdomain.EscrowAllocation, 0, len(eligible))
	for _, alloc := range eligible {
		claimed, err := s.repo.IsAllocationClaimed(ctx, alloc.ID)
		if err != nil {
			return nil, err
		}
		if !claimed {
			claimable = append(claimable, alloc)
		}
	}
	if len(claimable) == 0 {
		return nil, payoutdomain.ErrNothingEligible
	}

	now := s.clock.Now()
	total := decimal.Zero
	for _, alloc := range claimable {
		total = total.Add(alloc.Outstanding())
	}

	active := true
	payout := &payoutdomain.SellerPayout{
		ID:            s.genID.Generate(),
		StoreID:       storeID,
		Status:        payoutdomain.PayoutStatusScheduled,
		ScheduledDate: asOf,
		TotalAmount:   total,
		Currency:      claimable[0].Currency,
		Method:        payoutdomain.DefaultMethod,
		MaxRetries:    s.cfg.MaxRetries,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.repo.InTx(ctx, func(tx payoutdomain.Repository) error {
		if err := tx.Create(ctx, payout); err != nil {
			return err
		}
		for _, alloc := range claimable {
			item := &payoutdomain.SellerPayoutItem{
				ID:           s.genID.Generate(),
				PayoutID:     payout.ID,
				AllocationID: alloc.ID,
				Amount:       alloc.Outstanding(),
				Active:       &active,
				CreatedAt:    now,
			}
			if err := tx.CreateItem(ctx, item); err != nil {
				// The unique claim index closes the check-then-act
				// window left by IsAllocationClaimed.
				if db.IsDuplicateKeyErr(err) {
					return payoutdomain.ErrAllocationClaimed
				}
				return err
			}
			payout.Items = append(payout.Items, *item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("payout scheduled",
		zap.String("payout_id", payout.ID.String()),
		zap.String("store_id", storeID.String()),
		zap.Int("allocations", len(payout.Items)),
		zap.String("total", payout.TotalAmount.StringFixed(2)),
	)
	return payout, nil
}

func (s *Service) ProcessDue(ctx context.Context, before time.Time) ([]payoutdomain.SellerPayout, error) {
	return s.repo.ListDue(ctx, before, 100)
}

func (s *Service) MarkProcessing(ctx context.Context, payoutID snowflake.ID) error {
	return s.repo.InTx(ctx, func(tx payoutdomain.Repository) error {
		payout, err := tx.FindByIDForUpdate(ctx, payoutID)
		if err != nil {
			return err
		}
		if payout.Status != payoutdomain.PayoutStatusScheduled {
			return payoutdomain.ErrInvalidState
		}
		payout.Status = payoutdomain.PayoutStatusProcessing
		payout.UpdatedAt = s.clock.Now()
		return tx.Update(ctx, payout)
	})
}

func (s *Service) RecordSuccess(ctx context.Context, payoutID snowflake.ID, providerReference string) error {
	var items []payoutdomain.SellerPayoutItem
	err := s.repo.InTx(ctx, func(tx payoutdomain.Repository) error {
		payout, err := tx.FindByIDForUpdate(ctx, payoutID)
		if err != nil {
			return err
		}
		if payout.Status != payoutdomain.PayoutStatusScheduled && payout.Status != payoutdomain.PayoutStatusProcessing {
			return payoutdomain.ErrInvalidState
		}
		if err := tx.LoadItems(ctx, payout); err != nil {
			return err
		}
		now := s.clock.Now()
		payout.Status = payoutdomain.PayoutStatusPaid
		payout.ProviderReference = providerReference
		payout.FailureReason = ""
		payout.PaidAt = &now
		payout.UpdatedAt = now
		if err := tx.Update(ctx, payout); err != nil {
			return err
		}
		items = payout.Items
		return nil
	})
	if err != nil {
		return err
	}

	// Confirmed transfer: release every claimed allocation. Each release
	// is its own aggregate-scoped transaction.
	for _, item := range items {
		if err := s.escrowSvc.Release(ctx, item.AllocationID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) RecordFailure(ctx context.Context, payoutID snowflake.ID, errorMessage string) error {
	return s.repo.InTx(ctx, func(tx payoutdomain.Repository) error {
		payout, err := tx.FindByIDForUpdate(ctx, payoutID)
		if err != nil {
			return err
		}
		switch payout.Status {
		case payoutdomain.PayoutStatusScheduled, payoutdomain.PayoutStatusProcessing:
		default:
			return payoutdomain.ErrInvalidState
		}

		now := s.clock.Now()
		payout.RetryCount++
		payout.Status = payoutdomain.PayoutStatusFailed
		payout.FailureReason = errorMessage
		payout.UpdatedAt = now

		if payout.RetryCount < payout.MaxRetries {
			next := now.Add(payoutdomain.Backoff(s.cfg.BackoffBase, payout.RetryCount))
			payout.NextRetryAt = &next
			return tx.Update(ctx, payout)
		}

		// Retry budget exhausted: terminal. Claims are released so an
		// operator can re-schedule the allocations into a fresh payout.
		payout.NextRetryAt = nil
		if err := tx.Update(ctx, payout); err != nil {
			return err
		}
		if err := tx.DeactivateItems(ctx, payout.ID); err != nil {
			return err
		}
		s.log.Warn("payout terminally failed",
			zap.String("payout_id", payout.ID.String()),
			zap.String("store_id", payout.StoreID.String()),
			zap.Int("retries", payout.RetryCount),
		)
		return nil
	})
}

func (s *Service) DueForRetry(ctx context.Context, asOf time.Time) ([]payoutdomain.SellerPayout, error) {
	return s.repo.ListDueForRetry(ctx, asOf, 100)
}

func (s *Service) Requeue(ctx context.Context, payoutID snowflake.ID) error {
	return s.repo.InTx(ctx, func(tx payoutdomain.Repository) error {
		payout, err := tx.FindByIDForUpdate(ctx, payoutID)
		if err != nil {
			return err
		}
		if payout.Status != payoutdomain.PayoutStatusFailed {
			return payoutdomain.ErrInvalidState
		}
		if payout.RetryCount >= payout.MaxRetries {
			return payoutdomain.ErrRetriesExhausted
		}
		now := s.clock.Now()
		payout.Status = payoutdomain.PayoutStatusScheduled
		payout.ScheduledDate = now
		payout.NextRetryAt = nil
		payout.UpdatedAt = now
		return tx.Update(ctx, payout)
	})
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*payoutdomain.SellerPayout, error) {
	payout, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.LoadItems(ctx, payout); err != nil {
		return nil, err
	}
	return payout, nil
}

func (s *Service) ListByStore(ctx context.Context, storeID snowflake.ID) ([]payoutdomain.SellerPayout, error) {
	return s.repo.ListByStore(ctx, storeID)
}
