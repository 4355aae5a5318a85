package billingdoc

import (
	"github.com/smallbiznis/sellerledger/internal/billingdoc/repository"
	"github.com/smallbiznis/sellerledger/internal/billingdoc/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billingdoc.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewIssuer),
)
