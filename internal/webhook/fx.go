package webhook

import (
	"github.com/smallbiznis/offsession/internal/ratelimit"
	"github.com/smallbiznis/offsession/internal/webhook/domain"
	"github.com/smallbiznis/offsession/internal/webhook/service"
	"go.uber.org/fx"
)

var Module = fx.Module("webhook.service",
	fx.Provide(func(l *ratelimit.Locker) domain.Lock {
		if l == nil {
			return nil
		}
		return l
	}),
	fx.Provide(service.New),
)
