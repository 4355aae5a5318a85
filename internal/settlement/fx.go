package settlement

import (
	"github.com/smallbiznis/sellerledger/internal/settlement/repository"
	"github.com/smallbiznis/sellerledger/internal/settlement/service"
	"go.uber.org/fx"
)

var Module = fx.Module("settlement.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
