package playledger

import (
	"go.uber.org/fx"
)

var Module = fx.Module("playledger.service",
	fx.Provide(NewService),
)
