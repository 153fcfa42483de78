package award

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"meeplepoint-rewards/pkg/config"
	"meeplepoint-rewards/pkg/db/pagination"
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
	user := r.Group("/v1", middleware.RequireUser())
	user.POST("/awards", h.postAward)
	user.GET("/awards/history", h.getHistory)
	user.POST("/wheel/spin", h.postSpin)
}

func (h *Handler) postAward(c *gin.Context) {
	var body AwardRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.Error(errutil.BadRequest("invalid award payload", err))
		return
	}
	if body.GameID == "" {
		c.Error(errutil.BadRequest("game_id is required", nil))
		return
	}
	body.UserID = middleware.UserID(c)

	result, err := h.svc.Award(c.Request.Context(), body)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) getHistory(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		c.Error(errutil.BadRequest("invalid paging params", err))
		return
	}

	plays, info, err := h.svc.History(c.Request.Context(), middleware.UserID(c), page)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"awards": plays, "page_info": info})
}

func (h *Handler) postSpin(c *gin.Context) {
	result, err := h.svc.Spin(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}
