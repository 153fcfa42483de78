package progression

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"meeplepoint-rewards/pkg/config"
)

var Module = fx.Module("progression.service",
	fx.Provide(NewService, NewHandler),
	fx.Invoke(registerRoutes),
)

func registerRoutes(r *gin.Engine, cfg *config.Config, h *Handler) {
	h.Register(r, cfg)
}
