package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	InTx(ctx context.Context, fn func(Repository) error) error

	Create(ctx context.Context, settlement *Settlement) error
	Update(ctx context.Context, settlement *Settlement) error
	FindByID(ctx context.Context, id snowflake.ID) (*Settlement, error)
	// FindLatest returns the highest version for (store, year, month),
	// ErrNotFound when no version exists.
	FindLatest(ctx context.Context, storeID snowflake.ID, year, month int) (*Settlement, error)
	ListByStore(ctx context.Context, storeID snowflake.ID) ([]Settlement, error)

	LoadItems(ctx context.Context, settlement *Settlement) error
	LoadAdjustments(ctx context.Context, settlement *Settlement) error

	CreateItem(ctx context.Context, item *SettlementItem) error
	// DeleteItems removes the items of a draft being rebuilt.
	DeleteItems(ctx context.Context, settlementID snowflake.ID) error
	CreateAdjustment(ctx context.Context, adj *SettlementAdjustment) error

	// ListFinalizedWithoutInvoice feeds the invoice issuing sweep.
	ListFinalizedWithoutInvoice(ctx context.Context, limit int) ([]Settlement, error)
}
