package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Resolver resolves the applicable commission rule for a
// (store, category, date) triple.
type Resolver interface {
	// Resolve walks Seller -> Category -> Global and returns the first
	// active rule whose window contains asOf. ErrNotFound when no rule
	// applies.
	Resolve(ctx context.Context, storeID snowflake.ID, categoryID *snowflake.ID, asOf time.Time) (*CommissionRule, error)
}

// Service is the admin write surface for rules.
type Service interface {
	Create(ctx context.Context, rule *CommissionRule) error
	Update(ctx context.Context, rule *CommissionRule) error
	Deactivate(ctx context.Context, id snowflake.ID) error
	List(ctx context.Context, filter ListRequest) ([]CommissionRule, error)
	GetOverlapping(ctx context.Context, rule *CommissionRule) ([]CommissionRule, error)
}
