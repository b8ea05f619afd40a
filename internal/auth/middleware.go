package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// usernameKey is where the middleware stores the verified caller identity.
const usernameKey = "username"

// RequireUser validates the Bearer token and stores the caller's username in
// the request context. Handlers behind it may call Username(c) safely.
func RequireUser(issuer *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization token"})
			c.Abort()
			return
		}

		username, err := issuer.Verify(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token is not valid or has expired"})
			c.Abort()
			return
		}

		c.Set(usernameKey, username)
		c.Next()
	}
}

// Username returns the verified caller identity set by RequireUser.
func Username(c *gin.Context) string {
	return c.GetString(usernameKey)
}

// extractToken extracts the Bearer token from the Authorization header.
func extractToken(c *gin.Context) string {
	bearerToken := c.GetHeader("Authorization")
	if len(bearerToken) > 7 && strings.HasPrefix(bearerToken, "Bearer ") {
		return bearerToken[7:]
	}
	return ""
}
