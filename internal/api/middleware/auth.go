package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/uniconhq/unicon-backend/internal/model"
	"github.com/uniconhq/unicon-backend/internal/service"
	"github.com/uniconhq/unicon-backend/pkg/response"
)

const userKey = "currentUser"

// JWTAuth authenticates the Bearer token and loads the account onto the
// request context.
func JWTAuth(tokens *service.TokenService, accounts *service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			response.Unauthorized(c, "missing bearer token")
			c.Abort()
			return
		}
		userID, err := tokens.Parse(raw)
		if err != nil {
			response.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}
		user, err := accounts.GetUser(c.Request.Context(), userID)
		if err != nil {
			response.Unauthorized(c, "unknown account")
			c.Abort()
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

// RequireValidated gates the forum behind email verification.
func RequireValidated() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsValidated {
			response.Forbidden(c, "account not validated")
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated account, or nil outside JWTAuth.
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*model.User)
	return user
}
