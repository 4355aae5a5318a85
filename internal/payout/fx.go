package payout

import (
	"github.com/smallbiznis/sellerledger/internal/payout/repository"
	"github.com/smallbiznis/sellerledger/internal/payout/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payout.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.ProvideConfig),
	fx.Provide(service.NewService),
)
