package gotd

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"meeplepoint-rewards/pkg/config"
	"meeplepoint-rewards/pkg/errutil"
	"meeplepoint-rewards/pkg/middleware"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r *gin.Engine, cfg *config.Config) {
	r.GET("/v1/gotd", h.getCurrent)

	admin := r.Group("/v1/admin", middleware.RequireAdmin(cfg.AdminAPIKey))
	admin.PUT("/gotd", h.putManual)
	admin.POST("/gotd/rotate", h.postRotate)
	admin.GET("/rotation-policy", h.getPolicy)
	admin.PUT("/rotation-policy", h.putPolicy)
}

func (h *Handler) getCurrent(c *gin.Context) {
	st, err := h.svc.Current(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	if st == nil {
		c.JSON(http.StatusOK, gin.H{"active": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"active": true, "game": st})
}

func (h *Handler) putManual(c *gin.Context) {
	var body struct {
		GameID string `json:"game_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.GameID == "" {
		c.Error(errutil.BadRequest("game_id is required", err))
		return
	}

	st, err := h.svc.SetManual(c.Request.Context(), body.GameID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) postRotate(c *gin.Context) {
	if err := h.svc.Rotate(c.Request.Context()); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rotated": true})
}

func (h *Handler) getPolicy(c *gin.Context) {
	p, err := h.svc.Policy(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) putPolicy(c *gin.Context) {
	var body RotationPolicy
	if err := c.ShouldBindJSON(&body); err != nil {
		c.Error(errutil.BadRequest("invalid rotation policy payload", err))
		return
	}

	if err := h.svc.UpdatePolicy(c.Request.Context(), &body); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, body)
}
