package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	commissiondomain "github.com/smallbiznis/sellerledger/internal/commission/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) commissiondomain.Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, rule *commissiondomain.CommissionRule) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

func (r *repository) Update(ctx context.Context, rule *commissiondomain.CommissionRule) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE commission_rules
		 SET commission_rate = ?, is_active = ?, effective_from = ?, effective_to = ?, updated_at = ?
		 WHERE id = ?`,
		rule.CommissionRate,
		rule.IsActive,
		rule.EffectiveFrom,
		rule.EffectiveTo,
		rule.UpdatedAt,
		rule.ID,
	).Error
}

func (r *repository) FindByID(ctx context.Context, id snowflake.ID) (*commissiondomain.CommissionRule, error) {
	var rule commissiondomain.CommissionRule
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, commissiondomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *repository) List(ctx context.Context, filter commissiondomain.ListRequest) ([]commissiondomain.CommissionRule, error) {
	stmt := r.db.WithContext(ctx).Model(&commissiondomain.CommissionRule{})
	if filter.RuleType != "" {
		stmt = stmt.Where("rule_type = ?", filter.RuleType)
	}
	if filter.StoreID != nil {
		stmt = stmt.Where("store_id = ?", *filter.StoreID)
	}
	if filter.CategoryID != nil {
		stmt = stmt.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.ActiveOnly {
		stmt = stmt.Where("is_active = ?", true)
	}

	var rules []commissiondomain.CommissionRule
	if err := stmt.Order("created_at DESC, id DESC").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *repository) ActiveRulesForScope(ctx context.Context, ruleType commissiondomain.RuleType, storeID, categoryID *snowflake.ID, asOf time.Time) ([]commissiondomain.CommissionRule, error) {
	stmt := r.db.WithContext(ctx).
		Model(&commissiondomain.CommissionRule{}).
		Where("rule_type = ? AND is_active = ?", ruleType, true).
		Where("(effective_from IS NULL OR effective_from <= ?)", asOf).
		Where("(effective_to IS NULL OR effective_to >= ?)", asOf)

	switch ruleType {
	case commissiondomain.RuleTypeSeller:
		stmt = stmt.Where("store_id = ?", storeID)
	case commissiondomain.RuleTypeCategory:
		stmt = stmt.Where("category_id = ?", categoryID)
	}

	var rules []commissiondomain.CommissionRule
	// Ties inside one scope break on recency; the overlap guard keeps them rare.
	if err := stmt.Order("created_at DESC, id DESC").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *repository) GetOverlappingRules(ctx context.Context, rule *commissiondomain.CommissionRule) ([]commissiondomain.CommissionRule, error) {
	stmt := r.db.WithContext(ctx).
		Model(&commissiondomain.CommissionRule{}).
		Where("rule_type = ? AND is_active = ?", rule.RuleType, true).
		Where("id <> ?", rule.ID)

	switch rule.RuleType {
	case commissiondomain.RuleTypeSeller:
		stmt = stmt.Where("store_id = ?", rule.StoreID)
	case commissiondomain.RuleTypeCategory:
		stmt = stmt.Where("category_id = ?", rule.CategoryID)
	}

	// Interval overlap with null bounds as -inf/+inf:
	// from1 <= to2 AND from2 <= to1.
	if rule.EffectiveTo != nil {
		stmt = stmt.Where("(effective_from IS NULL OR effective_from <= ?)", *rule.EffectiveTo)
	}
	if rule.EffectiveFrom != nil {
		stmt = stmt.Where("(effective_to IS NULL OR effective_to >= ?)", *rule.EffectiveFrom)
	}

	var rules []commissiondomain.CommissionRule
	if err := stmt.Order("created_at ASC").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}
