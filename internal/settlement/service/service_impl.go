package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/sellerledger/internal/clock"
	commissiondomain "github.com/smallbiznis/sellerledger/internal/commission/domain"
	escrowdomain "github.com/smallbiznis/sellerledger/internal/escrow/domain"
	"github.com/smallbiznis/sellerledger/internal/money"
	settlementdomain "github.com/smallbiznis/sellerledger/internal/settlement/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       settlementdomain.Repository
	EscrowRepo escrowdomain.Repository
	Resolver   commissiondomain.Resolver
	Clock      clock.Clock
}

type Service struct {
	log        *zap.Logger
	genID      *snowflake.Node
	repo       settlementdomain.Repository
	escrowRepo escrowdomain.Repository
	resolver   commissiondomain.Resolver
	clock      clock.Clock
}

func NewService(p Params) settlementdomain.Service {
	return &Service{
		log:        p.Log.Named("settlement.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		escrowRepo: p.EscrowRepo,
		resolver:   p.Resolver,
		clock:      p.Clock,
	}
}

func (s *Service) BuildOrUpdate(ctx context.Context, storeID snowflake.ID, year, month int) (*settlementdomain.Settlement, error) {
	if month < 1 || month > 12 || year < 2000 {
		return nil, settlementdomain.ErrInvalidPeriod
	}
	periodStart, periodEnd := settlementdomain.PeriodBounds(year, month)

	allocations, err := s.escrowRepo.AllocationsForPeriod(ctx, storeID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}

	latest, err := s.repo.FindLatest(ctx, storeID, year, month)
	switch {
	case errors.Is(err, settlementdomain.ErrNotFound):
		latest = nil
	case err != nil:
		return nil, err
	}

	if len(allocations) == 0 && latest == nil {
		return nil, settlementdomain.ErrNothingToRoll
	}

	items, currency, err := s.buildItems(ctx, allocations)
	if err != nil {
		return nil, err
	}
	if currency == "" && latest != nil {
		// A correction can empty the period; keep the prior currency.
		currency = latest.Currency
	}

	now := s.clock.Now()
	var target *settlementdomain.Settlement
	err = s.repo.InTx(ctx, func(tx settlementdomain.Repository) error {
		switch {
		case latest == nil:
			target = &settlementdomain.Settlement{
				ID:       s.genID.Generate(),
				StoreID:  storeID,
				Year:     year,
				Month:    month,
				Version:  1,
				Status:   settlementdomain.SettlementStatusDraft,
				Currency: currency,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.Create(ctx, target); err != nil {
				return err
			}
		case latest.Mutable():
			// Draft: rebuild items in place.
			target = latest
			if err := tx.DeleteItems(ctx, target.ID); err != nil {
				return err
			}
		default:
			// Finalized (or beyond): corrections get a new version.
			target = &settlementdomain.Settlement{
				ID:       s.genID.Generate(),
				StoreID:  storeID,
				Year:     year,
				Month:    month,
				Version:  latest.Version + 1,
				Status:   settlementdomain.SettlementStatusDraft,
				Currency: currency,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.Create(ctx, target); err != nil {
				return err
			}
		}
		if currency != "" {
			target.Currency = currency
		}

		for i := range items {
			items[i].SettlementID = target.ID
			if err := tx.CreateItem(ctx, &items[i]); err != nil {
				return err
			}
		}
		target.Items = items

		if err := tx.LoadAdjustments(ctx, target); err != nil {
			return err
		}
		s.applyTotals(target)
		target.UpdatedAt = now
		return tx.Update(ctx, target)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("settlement built",
		zap.String("settlement_id", target.ID.String()),
		zap.String("store_id", storeID.String()),
		zap.Int("year", year),
		zap.Int("month", month),
		zap.Int("version", target.Version),
		zap.Int("items", len(target.Items)),
	)
	return target, nil
}

func (s *Service) buildItems(ctx context.Context, allocations []escrowdomain.EscrowAllocation) ([]settlementdomain.SettlementItem, string, error) {
	items := make([]settlementdomain.SettlementItem, 0, len(allocations))
	currency := ""
	now := s.clock.Now()

	for _, alloc := range allocations {
		if currency == "" {
			currency = alloc.Currency
		}
		occurredAt := settlementdomain.ResolveAt(alloc.ReleasedAt, alloc.CreatedAt)
		rule, err := s.resolver.Resolve(ctx, alloc.StoreID, nil, occurredAt)
		if errors.Is(err, commissiondomain.ErrNotFound) {
			return nil, "", settlementdomain.ErrNoCommission
		}
		if err != nil {
			return nil, "", err
		}

		commissionBase, err := money.New(alloc.Amount.Sub(alloc.RefundedAmount), alloc.Currency)
		if err != nil {
			return nil, "", err
		}
		commissionAmount := commissionBase.ApplyRate(rule.CommissionRate).Amount
		net := alloc.Amount.Sub(commissionAmount).Sub(alloc.RefundedAmount)

		payment, err := s.escrowRepo.FindPayment(ctx, alloc.EscrowPaymentID)
		if err != nil {
			return nil, "", err
		}

		items = append(items, settlementdomain.SettlementItem{
			ID:               s.genID.Generate(),
			AllocationID:     alloc.ID,
			OrderID:          payment.OrderID,
			SellerAmount:     alloc.Amount,
			ShippingAmount:   alloc.ShippingAmount,
			CommissionRate:   rule.CommissionRate,
			CommissionAmount: commissionAmount,
			RefundAmount:     alloc.RefundedAmount,
			NetAmount:        net,
			OccurredAt:       occurredAt,
			CreatedAt:        now,
		})
	}
	return items, currency, nil
}

func (s *Service) applyTotals(settlement *settlementdomain.Settlement) {
	gross := decimal.Zero
	shipping := decimal.Zero
	commission := decimal.Zero
	refunds := decimal.Zero
	for _, item := range settlement.Items {
		gross = gross.Add(item.SellerAmount)
		shipping = shipping.Add(item.ShippingAmount)
		commission = commission.Add(item.CommissionAmount)
		refunds = refunds.Add(item.RefundAmount)
	}
	adjustments := decimal.Zero
	for _, adj := range settlement.Adjustments {
		adjustments = adjustments.Add(adj.Amount)
	}

	settlement.GrossSales = gross
	settlement.TotalShipping = shipping
	settlement.TotalCommission = commission
	settlement.TotalRefunds = refunds
	settlement.TotalAdjustments = adjustments
	settlement.NetPayable = gross.Sub(commission).Sub(refunds).Add(adjustments)
}

func (s *Service) Finalize(ctx context.Context, settlementID snowflake.ID) error {
	return s.repo.InTx(ctx, func(tx settlementdomain.Repository) error {
		settlement, err := tx.FindByID(ctx, settlementID)
		if err != nil {
			return err
		}
		if settlement.Status != settlementdomain.SettlementStatusDraft {
			return settlementdomain.ErrInvalidState
		}
		now := s.clock.Now()
		settlement.Status = settlementdomain.SettlementStatusFinalized
		settlement.FinalizedAt = &now
		settlement.UpdatedAt = now
		return tx.Update(ctx, settlement)
	})
}

func (s *Service) AddAdjustment(ctx context.Context, settlementID snowflake.ID, req settlementdomain.AdjustmentRequest) error {
	if req.OriginalMonth < 1 || req.OriginalMonth > 12 {
		return settlementdomain.ErrInvalidPeriod
	}
	return s.repo.InTx(ctx, func(tx settlementdomain.Repository) error {
		settlement, err := tx.FindByID(ctx, settlementID)
		if err != nil {
			return err
		}
		if !settlement.Mutable() {
			return settlementdomain.ErrInvalidState
		}
		if err := tx.CreateAdjustment(ctx, &settlementdomain.SettlementAdjustment{
			ID:            s.genID.Generate(),
			SettlementID:  settlement.ID,
			OriginalYear:  req.OriginalYear,
			OriginalMonth: req.OriginalMonth,
			Amount:        req.Amount,
			Reason:        req.Reason,
			CreatedAt:     s.clock.Now(),
		}); err != nil {
			return err
		}

		if err := tx.LoadItems(ctx, settlement); err != nil {
			return err
		}
		if err := tx.LoadAdjustments(ctx, settlement); err != nil {
			return err
		}
		s.applyTotals(settlement)
		settlement.UpdatedAt = s.clock.Now()
		return tx.Update(ctx, settlement)
	})
}

func (s *Service) StoresWithoutSettlement(ctx context.Context, year, month int) ([]snowflake.ID, error) {
	periodStart, periodEnd := settlementdomain.PeriodBounds(year, month)
	stores, err := s.escrowRepo.StoresWithActivity(ctx, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}

	missing := make([]snowflake.ID, 0, len(stores))
	for _, storeID := range stores {
		_, err := s.repo.FindLatest(ctx, storeID, year, month)
		if errors.Is(err, settlementdomain.ErrNotFound) {
			missing = append(missing, storeID)
			continue
		}
		if err != nil {
			return nil, err
		}
	}
	return missing, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*settlementdomain.Settlement, error) {
	settlement, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.LoadItems(ctx, settlement); err != nil {
		return nil, err
	}
	if err := s.repo.LoadAdjustments(ctx, settlement); err != nil {
		return nil, err
	}
	return settlement, nil
}

func (s *Service) GetLatest(ctx context.Context, storeID snowflake.ID, year, month int) (*settlementdomain.Settlement, error) {
	settlement, err := s.repo.FindLatest(ctx, storeID, year, month)
	if err != nil {
		return nil, err
	}
	if err := s.repo.LoadItems(ctx, settlement); err != nil {
		return nil, err
	}
	if err := s.repo.LoadAdjustments(ctx, settlement); err != nil {
		return nil, err
	}
	return settlement, nil
}
