package commission

import (
	"github.com/smallbiznis/sellerledger/internal/commission/repository"
	"github.com/smallbiznis/sellerledger/internal/commission/service"
	"go.uber.org/fx"
)

var Module = fx.Module("commission.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewResolver),
	fx.Provide(service.NewService),
)
