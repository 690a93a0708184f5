package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bitbucket.org/papermoa/trade_backend/utils"
)

// AuthMiddleware validates the bearer token and seeds the request context
// with the caller's identity. Requests without a token pass through;
// handlers that need an identity reject them individually.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")
		if auth == "" {
			c.Next()
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		validated, err := utils.JwtValidate(token)
		if err != nil || !validated.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		claim, ok := validated.Claims.(*utils.JwtCustomClaim)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), token)
		ctx = utils.SetCompanyIdInContext(ctx, claim.CompanyId)
		ctx = utils.SetUserIdInContext(ctx, claim.UserId)
		ctx = utils.SetUserNameInContext(ctx, claim.UserName)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
