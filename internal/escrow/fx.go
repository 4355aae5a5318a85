package escrow

import (
	"github.com/smallbiznis/sellerledger/internal/escrow/repository"
	"github.com/smallbiznis/sellerledger/internal/escrow/service"
	"go.uber.org/fx"
)

var Module = fx.Module("escrow.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
