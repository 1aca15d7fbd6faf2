package paymenthistory

import (
	"github.com/smallbiznis/offsession/internal/paymenthistory/cache"
	"github.com/smallbiznis/offsession/internal/paymenthistory/repository"
	"github.com/smallbiznis/offsession/internal/paymenthistory/service"
	"go.uber.org/fx"
)

var Module = fx.Module("paymenthistory.service",
	fx.Provide(repository.Provide),
	fx.Provide(cache.Provide),
	fx.Provide(service.New),
)
