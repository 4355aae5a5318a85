// Package domain contains commission-rate rules and their resolution
// contract. Rules are written rarely through the admin surface and read
// lock-free on the settlement path.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// RuleType scopes a commission rule. Resolution priority is
// Seller > Category > Global, first match wins.
type RuleType string

const (
	RuleTypeGlobal   RuleType = "GLOBAL"
	RuleTypeCategory RuleType = "CATEGORY"
	RuleTypeSeller   RuleType = "SELLER"
)

// CommissionRule is a rate applicable at one scope within an effective
// window. Nil window bounds mean unbounded.
type CommissionRule struct {
	ID         snowflake.ID  `gorm:"primaryKey"`
	RuleType   RuleType      `gorm:"type:text;not null;index"`
	CategoryID *snowflake.ID `gorm:"index"`
	StoreID    *snowflake.ID `gorm:"index"`

	CommissionRate decimal.Decimal `gorm:"type:numeric(6,3);not null"`
	IsActive       bool            `gorm:"not null;default:true;index"`
	EffectiveFrom  *time.Time      `gorm:""`
	EffectiveTo    *time.Time      `gorm:""`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (CommissionRule) TableName() string { return "commission_rules" }

func (r *CommissionRule) Validate() error {
	if r.CommissionRate.IsNegative() || r.CommissionRate.GreaterThan(decimal.NewFromInt(100)) {
		return ErrInvalidRate
	}
	switch r.RuleType {
	case RuleTypeGlobal:
		if r.CategoryID != nil || r.StoreID != nil {
			return ErrInvalidScope
		}
	case RuleTypeCategory:
		if r.CategoryID == nil || r.StoreID != nil {
			return ErrInvalidScope
		}
	case RuleTypeSeller:
		if r.StoreID == nil || r.CategoryID != nil {
			return ErrInvalidScope
		}
	default:
		return ErrInvalidScope
	}
	if r.EffectiveFrom != nil && r.EffectiveTo != nil && r.EffectiveFrom.After(*r.EffectiveTo) {
		return ErrInvalidRange
	}
	return nil
}

// Covers reports whether the rule's effective window contains asOf.
func (r CommissionRule) Covers(asOf time.Time) bool {
	return WindowContains(r.EffectiveFrom, r.EffectiveTo, asOf)
}
