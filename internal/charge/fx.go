package charge

import (
	"github.com/smallbiznis/offsession/internal/charge/domain"
	"github.com/smallbiznis/offsession/internal/charge/service"
	"github.com/smallbiznis/offsession/internal/ratelimit"
	"go.uber.org/fx"
)

var Module = fx.Module("charge.service",
	fx.Provide(service.NewConfigPolicy),
	fx.Provide(func(l *ratelimit.ChargeLimiter) domain.Limiter {
		if l == nil {
			return nil
		}
		return l
	}),
	fx.Provide(service.New),
)
