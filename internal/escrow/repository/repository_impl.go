package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	escrowdomain "github.com/smallbiznis/sellerledger/internal/escrow/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) escrowdomain.Repository {
	return &repository{db: db}
}

func (r *repository) InTx(ctx context.Context, fn func(escrowdomain.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&repository{db: tx})
	})
}

func (r *repository) CreatePayment(ctx context.Context, payment *escrowdomain.EscrowPayment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) FindPayment(ctx context.Context, id snowflake.ID) (*escrowdomain.EscrowPayment, error) {
	var payment escrowdomain.EscrowPayment
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, escrowdomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) LoadAllocations(ctx context.Context, payment *escrowdomain.EscrowPayment) error {
	var allocations []escrowdomain.EscrowAllocation
	err := r.db.WithContext(ctx).
		Where("escrow_payment_id = ?", payment.ID).
		Order("id ASC").
		Find(&allocations).Error
	if err != nil {
		return err
	}
	payment.Allocations = allocations
	return nil
}

func (r *repository) LoadLedger(ctx context.Context, payment *escrowdomain.EscrowPayment) error {
	var entries []escrowdomain.EscrowLedgerEntry
	err := r.db.WithContext(ctx).
		Where("escrow_payment_id = ?", payment.ID).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return err
	}
	payment.Ledger = entries
	return nil
}

func (r *repository) CreateAllocation(ctx context.Context, alloc *escrowdomain.EscrowAllocation) error {
	return r.db.WithContext(ctx).Create(alloc).Error
}

func (r *repository) FindAllocation(ctx context.Context, id snowflake.ID) (*escrowdomain.EscrowAllocation, error) {
	return r.findAllocation(ctx, id, false)
}

func (r *repository) FindAllocationForUpdate(ctx context.Context, id snowflake.ID) (*escrowdomain.EscrowAllocation, error) {
	return r.findAllocation(ctx, id, true)
}

func (r *repository) findAllocation(ctx context.Context, id snowflake.ID, lock bool) (*escrowdomain.EscrowAllocation, error) {
	stmt := r.db.WithContext(ctx)
	if lock && stmt.Dialector.Name() != "sqlite" {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var alloc escrowdomain.EscrowAllocation
	err := stmt.Where("id = ?", id).First(&alloc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, escrowdomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &alloc, nil
}

func (r *repository) UpdateAllocation(ctx context.Context, alloc *escrowdomain.EscrowAllocation) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE escrow_allocations
		 SET status = ?, refunded_amount = ?, eligible_for_payout = ?, payout_eligible_at = ?, released_at = ?, updated_at = ?
		 WHERE id = ?`,
		alloc.Status,
		alloc.RefundedAmount,
		alloc.EligibleForPayout,
		alloc.PayoutEligibleAt,
		alloc.ReleasedAt,
		alloc.UpdatedAt,
		alloc.ID,
	).Error
}

func (r *repository) AppendLedger(ctx context.Context, entry *escrowdomain.EscrowLedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) EligibleAllocations(ctx context.Context, storeID snowflake.ID, asOf time.Time) ([]escrowdomain.EscrowAllocation, error) {
	var allocations []escrowdomain.EscrowAllocation
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND status = ? AND eligible_for_payout = ? AND payout_eligible_at <= ?",
			storeID, escrowdomain.AllocationStatusHeld, true, asOf).
		Order("id ASC").
		Find(&allocations).Error
	if err != nil {
		return nil, err
	}
	return allocations, nil
}

func (r *repository) StoresWithEligibleAllocations(ctx context.Context, asOf time.Time) ([]snowflake.ID, error) {
	var stores []snowflake.ID
	err := r.db.WithContext(ctx).Raw(
		`SELECT DISTINCT store_id
		 FROM escrow_allocations
		 WHERE status = ? AND eligible_for_payout = ? AND payout_eligible_at <= ?
		 ORDER BY store_id ASC`,
		escrowdomain.AllocationStatusHeld, true, asOf,
	).Scan(&stores).Error
	if err != nil {
		return nil, err
	}
	return stores, nil
}

func (r *repository) AllocationsForPeriod(ctx context.Context, storeID snowflake.ID, from, to time.Time) ([]escrowdomain.EscrowAllocation, error) {
	var allocations []escrowdomain.EscrowAllocation
	err := r.db.WithContext(ctx).Raw(
		`SELECT * FROM escrow_allocations
		 WHERE store_id = ?
		   AND (status = ? OR eligible_for_payout = ?)
		   AND (
		     (created_at >= ? AND created_at < ?)
		     OR (released_at IS NOT NULL AND released_at >= ? AND released_at < ?)
		   )
		 ORDER BY id ASC`,
		storeID,
		escrowdomain.AllocationStatusReleased, true,
		from, to,
		from, to,
	).Scan(&allocations).Error
	if err != nil {
		return nil, err
	}
	return allocations, nil
}

func (r *repository) StoresWithActivity(ctx context.Context, from, to time.Time) ([]snowflake.ID, error) {
	var stores []snowflake.ID
	err := r.db.WithContext(ctx).Raw(
		`SELECT DISTINCT store_id
		 FROM escrow_allocations
		 WHERE (created_at >= ? AND created_at < ?)
		    OR (released_at IS NOT NULL AND released_at >= ? AND released_at < ?)
		 ORDER BY store_id ASC`,
		from, to,
		from, to,
	).Scan(&stores).Error
	if err != nil {
		return nil, err
	}
	return stores, nil
}
