package paymentmethod

import (
	"github.com/smallbiznis/offsession/internal/paymentmethod/repository"
	"github.com/smallbiznis/offsession/internal/paymentmethod/service"
	"go.uber.org/fx"
)

var Module = fx.Module("paymentmethod.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
