// Scheduler-only deployment: runs the settlement, payout, and invoice
// sweeps without the HTTP surface.
package main

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sellerledger/internal/billingdoc"
	"github.com/smallbiznis/sellerledger/internal/clock"
	"github.com/smallbiznis/sellerledger/internal/commission"
	"github.com/smallbiznis/sellerledger/internal/config"
	"github.com/smallbiznis/sellerledger/internal/escrow"
	"github.com/smallbiznis/sellerledger/internal/migration"
	"github.com/smallbiznis/sellerledger/internal/payout"
	"github.com/smallbiznis/sellerledger/internal/scheduler"
	"github.com/smallbiznis/sellerledger/internal/settlement"
	"github.com/smallbiznis/sellerledger/internal/transfer"
	"github.com/smallbiznis/sellerledger/pkg/db"
	"github.com/smallbiznis/sellerledger/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		log.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Domain services required by the scheduler
		escrow.Module,
		commission.Module,
		settlement.Module,
		payout.Module,
		billingdoc.Module,
		transfer.Module,

		// No server module!
		fx.Provide(scheduler.ProvideConfig),
		fx.Provide(scheduler.New),
		fx.Invoke(StartScheduler),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

func StartScheduler(lc fx.Lifecycle, s *scheduler.Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go s.RunForever(context.Background())
			return nil
		},
	})
}
