package processor

import (
	"github.com/smallbiznis/offsession/internal/processor/domain"
	"github.com/smallbiznis/offsession/internal/processor/stripe"
	"go.uber.org/fx"
)

var Module = fx.Module("processor",
	fx.Provide(
		fx.Annotate(
			stripe.NewGateway,
			fx.As(new(domain.Gateway)),
		),
	),
)
