package investment

import (
	"go.uber.org/fx"
)

var Module = fx.Module("investment.service",
	fx.Provide(NewService),
)
