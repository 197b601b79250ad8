package portfolio

import (
	"go.uber.org/fx"
)

var Module = fx.Module("portfolio.service",
	fx.Provide(NewService),
)
