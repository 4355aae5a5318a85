package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type ListRequest struct {
	RuleType   RuleType
	StoreID    *snowflake.ID
	CategoryID *snowflake.ID
	ActiveOnly bool
}

type Repository interface {
	Create(ctx context.Context, rule *CommissionRule) error
	Update(ctx context.Context, rule *CommissionRule) error
	FindByID(ctx context.Context, id snowflake.ID) (*CommissionRule, error)
	List(ctx context.Context, filter ListRequest) ([]CommissionRule, error)

	// ActiveRulesForScope returns active rules of the given scope whose
	// window contains asOf, most recently created first.
	ActiveRulesForScope(ctx context.Context, ruleType RuleType, storeID, categoryID *snowflake.ID, asOf time.Time) ([]CommissionRule, error)

	// GetOverlappingRules returns active same-scope rules whose windows
	// overlap the candidate's. Must be consulted before every write.
	GetOverlappingRules(ctx context.Context, rule *CommissionRule) ([]CommissionRule, error)
}
