package api

import (
	"net/http"
	"strings"

	"github.com/V3RSE-RKZA/biolast-sub000/internal/constants"
	"github.com/gin-gonic/gin"
)

// AuthRequired validates the bearer token and injects identity into context.
func AuthRequired(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(constants.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, constants.BearerPrefix)
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{constants.JSONKeyError: constants.ErrAuthRequired})
			return
		}
		claims, err := ParseToken(secret, strings.TrimSpace(token))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{constants.JSONKeyError: constants.ErrInvalidSession})
			return
		}
		c.Set(constants.ContextKeyUserID, claims.Subject)
		c.Set(constants.ContextKeyUserName, claims.Name)
		c.Next()
	}
}

func currentUser(c *gin.Context) string {
	return c.GetString(constants.ContextKeyUserID)
}
