package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	payoutdomain "github.com/smallbiznis/sellerledger/internal/payout/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) payoutdomain.Repository {
	return &repository{db: db}
}

func (r *repository) InTx(ctx context.Context, fn func(payoutdomain.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&repository{db: tx})
	})
}

func (r *repository) Create(ctx context.Context, payout *payoutdomain.SellerPayout) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

func (r *repository) Update(ctx context.Context, payout *payoutdomain.SellerPayout) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE seller_payouts
		 SET status = ?, scheduled_date = ?, retry_count = ?, next_retry_at = ?,
		     provider_reference = ?, failure_reason = ?, paid_at = ?, updated_at = ?
		 WHERE id = ?`,
		payout.Status,
		payout.ScheduledDate,
		payout.RetryCount,
		payout.NextRetryAt,
		payout.ProviderReference,
		payout.FailureReason,
		payout.PaidAt,
		payout.UpdatedAt,
		payout.ID,
	).Error
}

func (r *repository) FindByID(ctx context.Context, id snowflake.ID) (*payoutdomain.SellerPayout, error) {
	return r.findByID(ctx, id, false)
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id snowflake.ID) (*payoutdomain.SellerPayout, error) {
	return r.findByID(ctx, id, true)
}

func (r *repository) findByID(ctx context.Context, id snowflake.ID, lock bool) (*payoutdomain.SellerPayout, error) {
	stmt := r.db.WithContext(ctx)
	if lock && stmt.Dialector.Name() != "sqlite" {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var payout payoutdomain.SellerPayout
	err := stmt.Where("id = ?", id).First(&payout).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, payoutdomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *repository) ListByStore(ctx context.Context, storeID snowflake.ID) ([]payoutdomain.SellerPayout, error) {
	var payouts []payoutdomain.SellerPayout
	err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("id DESC").
		Find(&payouts).Error
	if err != nil {
		return nil, err
	}
	return payouts, nil
}

func (r *repository) LoadItems(ctx context.Context, payout *payoutdomain.SellerPayout) error {
	var items []payoutdomain.SellerPayoutItem
	err := r.db.WithContext(ctx).
		Where("payout_id = ?", payout.ID).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return err
	}
	payout.Items = items
	return nil
}

func (r *repository) CreateItem(ctx context.Context, item *payoutdomain.SellerPayoutItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) DeactivateItems(ctx context.Context, payoutID snowflake.ID) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE seller_payout_items SET active = NULL WHERE payout_id = ?`,
		payoutID,
	).Error
}

func (r *repository) IsAllocationClaimed(ctx context.Context, allocationID snowflake.ID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM seller_payout_items
		 WHERE allocation_id = ? AND active IS NOT NULL`,
		allocationID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) ListDue(ctx context.Context, before time.Time, limit int) ([]payoutdomain.SellerPayout, error) {
	var payouts []payoutdomain.SellerPayout
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_date < ?", payoutdomain.PayoutStatusScheduled, before).
		Order("scheduled_date ASC, id ASC").
		Limit(limit).
		Find(&payouts).Error
	if err != nil {
		return nil, err
	}
	return payouts, nil
}

func (r *repository) ListDueForRetry(ctx context.Context, asOf time.Time, limit int) ([]payoutdomain.SellerPayout, error) {
	var payouts []payoutdomain.SellerPayout
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ? AND retry_count < max_retries",
			payoutdomain.PayoutStatusFailed, asOf).
		Order("next_retry_at ASC, id ASC").
		Limit(limit).
		Find(&payouts).Error
	if err != nil {
		return nil, err
	}
	return payouts, nil
}
