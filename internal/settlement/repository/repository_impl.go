package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	settlementdomain "github.com/smallbiznis/sellerledger/internal/settlement/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) settlementdomain.Repository {
	return &repository{db: db}
}

func (r *repository) InTx(ctx context.Context, fn func(settlementdomain.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&repository{db: tx})
	})
}

func (r *repository) Create(ctx context.Context, settlement *settlementdomain.Settlement) error {
	return r.db.WithContext(ctx).Create(settlement).Error
}

func (r *repository) Update(ctx context.Context, settlement *settlementdomain.Settlement) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE settlements
		 SET status = ?, gross_sales = ?, total_shipping = ?, total_commission = ?, total_refunds = ?,
		     total_adjustments = ?, net_payable = ?, finalized_at = ?, updated_at = ?
		 WHERE id = ?`,
		settlement.Status,
		settlement.GrossSales,
		settlement.TotalShipping,
		settlement.TotalCommission,
		settlement.TotalRefunds,
		settlement.TotalAdjustments,
		settlement.NetPayable,
		settlement.FinalizedAt,
		settlement.UpdatedAt,
		settlement.ID,
	).Error
}

func (r *repository) FindByID(ctx context.Context, id snowflake.ID) (*settlementdomain.Settlement, error) {
	var settlement settlementdomain.Settlement
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&settlement).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, settlementdomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &settlement, nil
}

func (r *repository) FindLatest(ctx context.Context, storeID snowflake.ID, year, month int) (*settlementdomain.Settlement, error) {
	var settlement settlementdomain.Settlement
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND year = ? AND month = ?", storeID, year, month).
		Order("version DESC").
		First(&settlement).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, settlementdomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &settlement, nil
}

func (r *repository) ListByStore(ctx context.Context, storeID snowflake.ID) ([]settlementdomain.Settlement, error) {
	var settlements []settlementdomain.Settlement
	err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("year DESC, month DESC, version DESC").
		Find(&settlements).Error
	if err != nil {
		return nil, err
	}
	return settlements, nil
}

func (r *repository) LoadItems(ctx context.Context, settlement *settlementdomain.Settlement) error {
	var items []settlementdomain.SettlementItem
	err := r.db.WithContext(ctx).
		Where("settlement_id = ?", settlement.ID).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return err
	}
	settlement.Items = items
	return nil
}

func (r *repository) LoadAdjustments(ctx context.Context, settlement *settlementdomain.Settlement) error {
	var adjustments []settlementdomain.SettlementAdjustment
	err := r.db.WithContext(ctx).
		Where("settlement_id = ?", settlement.ID).
		Order("id ASC").
		Find(&adjustments).Error
	if err != nil {
		return err
	}
	settlement.Adjustments = adjustments
	return nil
}

func (r *repository) CreateItem(ctx context.Context, item *settlementdomain.SettlementItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) DeleteItems(ctx context.Context, settlementID snowflake.ID) error {
	return r.db.WithContext(ctx).Exec(
		`DELETE FROM settlement_items WHERE settlement_id = ?`,
		settlementID,
	).Error
}

func (r *repository) CreateAdjustment(ctx context.Context, adj *settlementdomain.SettlementAdjustment) error {
	return r.db.WithContext(ctx).Create(adj).Error
}

func (r *repository) ListFinalizedWithoutInvoice(ctx context.Context, limit int) ([]settlementdomain.Settlement, error) {
	var settlements []settlementdomain.Settlement
	err := r.db.WithContext(ctx).Raw(
		`SELECT s.* FROM settlements s
		 WHERE s.status = ?
		   AND NOT EXISTS (
		     SELECT 1 FROM commission_invoices i WHERE i.settlement_id = s.id
		   )
		 ORDER BY s.id ASC
		 LIMIT ?`,
		settlementdomain.SettlementStatusFinalized,
		limit,
	).Scan(&settlements).Error
	if err != nil {
		return nil, err
	}
	return settlements, nil
}
