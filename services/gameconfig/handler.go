package gameconfig

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"meeplepoint-rewards/pkg/config"
	"meeplepoint-rewards/pkg/errutil"
	"meeplepoint-rewards/pkg/middleware"
	"meeplepoint-rewards/services/prize"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r *gin.Engine, cfg *config.Config) {
	admin := r.Group("/v1/admin", middleware.RequireAdmin(cfg.AdminAPIKey))
	admin.GET("/games", h.listGames)
	admin.GET("/games/:game_id/config", h.getGame)
	admin.PUT("/games/:game_id/config", h.putGame)
	admin.GET("/economy", h.getEconomy)
	admin.PUT("/economy", h.putEconomy)
	admin.GET("/wheel", h.getWheel)
	admin.PUT("/wheel", h.putWheel)
}

func (h *Handler) listGames(c *gin.Context) {
	games, err := h.svc.ListGames(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"games": games})
}

func (h *Handler) getGame(c *gin.Context) {
	game, err := h.svc.GetGame(c.Request.Context(), c.Param("game_id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, game)
}

func (h *Handler) putGame(c *gin.Context) {
	var body GameConfig
	if err := c.ShouldBindJSON(&body); err != nil {
		c.Error(errutil.BadRequest("invalid game config payload", err))
		return
	}

	body.GameID = c.Param("game_id")
	if err := h.svc.UpsertGame(c.Request.Context(), &body); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) getEconomy(c *gin.Context) {
	eco, err := h.svc.Economy(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	if eco == nil {
		c.Error(errutil.NotFound("economy settings not configured", nil))
		return
	}
	c.JSON(http.StatusOK, eco)
}

func (h *Handler) putEconomy(c *gin.Context) {
	var body EconomySettings
	if err := c.ShouldBindJSON(&body); err != nil {
		c.Error(errutil.BadRequest("invalid economy payload", err))
		return
	}

	if err := h.svc.UpdateEconomy(c.Request.Context(), &body); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) getWheel(c *gin.Context) {
	drops, err := h.svc.Wheel(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"drops": drops})
}

func (h *Handler) putWheel(c *gin.Context) {
	var body struct {
		Drops []prize.DropRule `json:"drops"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.Error(errutil.BadRequest("invalid wheel payload", err))
		return
	}

	if err := h.svc.UpdateWheel(c.Request.Context(), body.Drops); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"drops": body.Drops})
}
