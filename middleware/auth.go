package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/LovationAdmin/family-budget-api/utils"
)

const (
	userIDKey    = "auth_user_id"
	userEmailKey = "auth_email"
)

// TokenValidator checks an access token and returns its claims.
type TokenValidator interface {
	ValidateToken(token string) (*utils.Claims, error)
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func authenticate(c *gin.Context, tokens TokenValidator, token string) bool {
	claims, err := tokens.ValidateToken(token)
	if err != nil {
		msg := "Invalid token"
		if errors.Is(err, utils.ErrExpiredToken) {
			msg = "Token has expired"
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
		return false
	}

	c.Set(userIDKey, claims.UserID)
	c.Set(userEmailKey, claims.Email)
	return true
}

// RequireAuth validates the Bearer token and stores the user in the context.
func RequireAuth(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization format. Use: Bearer <token>"})
			return
		}
		if authenticate(c, tokens, token) {
			c.Next()
		}
	}
}

// RequireAuthQuery accepts the token from the "token" query parameter, for
// websocket upgrades where browsers cannot set headers.
func RequireAuthQuery(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			token = c.Query("token")
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token required"})
			return
		}
		if authenticate(c, tokens, token) {
			c.Next()
		}
	}
}

func GetUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

func GetUserEmail(c *gin.Context) string {
	return c.GetString(userEmailKey)
}
