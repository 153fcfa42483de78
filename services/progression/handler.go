package progression

import (
	"net/http"
	"strconv"

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
	r.GET("/v1/progression/:user_id", h.getProfile)

	user := r.Group("/v1", middleware.RequireUser())
	user.GET("/redemptions/quote", h.getQuote)
	user.POST("/redemptions", h.postRedemption)

	admin := r.Group("/v1/admin", middleware.RequireAdmin(cfg.AdminAPIKey))
	admin.GET("/tiers", h.getTiers)
	admin.PUT("/tiers", h.putTiers)
}

func (h *Handler) getProfile(c *gin.Context) {
	ctx := c.Request.Context()

	acct, err := h.svc.Account(ctx, c.Param("user_id"))
	if err != nil {
		c.Error(err)
		return
	}
	tiers, err := h.svc.Tiers(ctx)
	if err != nil {
		c.Error(err)
		return
	}

	tier := CurrentTier(tiers, acct.TotalXP)
	perks := make([]string, 0, len(tiers))
	for _, t := range tiers {
		if t.Perk != "" && HasPerk(acct.TotalXP, t.MinXP) {
			perks = append(perks, t.Perk)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"account": acct,
		"tier":    tier,
		"perks":   perks,
	})
}

func (h *Handler) getQuote(c *gin.Context) {
	orderTotal, err := strconv.ParseInt(c.Query("order_total"), 10, 64)
	if err != nil {
		c.Error(errutil.BadRequest("order_total must be an integer", err))
		return
	}

	max, err := h.svc.RedeemQuote(c.Request.Context(), middleware.UserID(c), orderTotal)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"max_redeemable": max})
}

func (h *Handler) postRedemption(c *gin.Context) {
	var body RedeemRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.Error(errutil.BadRequest("invalid redemption payload", err))
		return
	}
	body.UserID = middleware.UserID(c)

	result, err := h.svc.Redeem(c.Request.Context(), body)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) getTiers(c *gin.Context) {
	tiers, err := h.svc.Tiers(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tiers": tiers})
}

func (h *Handler) putTiers(c *gin.Context) {
	var body struct {
		Tiers []Tier `json:"tiers"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.Error(errutil.BadRequest("invalid tier payload", err))
		return
	}

	if err := h.svc.ReplaceTiers(c.Request.Context(), body.Tiers); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tiers": body.Tiers})
}
