package middleware

import (
	"net/http"

	"meeplepoint-rewards/pkg/errutil"

	"github.com/gin-gonic/gin"
)

const (
	// HeaderUserID carries the authenticated user identity injected by the
	// site gateway. Game clients never set it themselves.
	HeaderUserID = "X-User-ID"

	HeaderAdminKey = "X-Admin-Key"

	ContextUserID = "user_id"
)

// RequireUser rejects requests that arrive without an authenticated identity.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetHeader(HeaderUserID)
		if uid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errutil.BaseError{
				Code:    errutil.StatusUnauthorized,
				Message: "missing user identity",
			}.JSON())
			return
		}

		c.Set(ContextUserID, uid)
		c.Next()
	}
}

// UserID returns the authenticated user for the request.
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// RequireAdmin guards the configuration surface. Writes to game configs,
// economy settings and rotation policy are administrator-only.
func RequireAdmin(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" || c.GetHeader(HeaderAdminKey) != adminKey {
			c.AbortWithStatusJSON(http.StatusForbidden, errutil.BaseError{
				Code:    errutil.StatusForbidden,
				Message: "administrator authorization required",
			}.JSON())
			return
		}
		c.Next()
	}
}
