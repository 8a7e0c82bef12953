package middleware

import (
	"net/http"
	"strings"

	"github.com/esilogis/backend/internal/models"
	"github.com/esilogis/backend/internal/services"
	"github.com/gin-gonic/gin"
)

const (
	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
	ContextUserRole  = "user_role"
)

// TokenParser verifies a bearer token.
type TokenParser interface {
	ParseToken(token string) (*services.Claims, error)
}

// AuthMiddleware rejects requests without a valid bearer token and stores
// the caller's id, email and role in the gin context.
func AuthMiddleware(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, "Authorization header required")
			return
		}

		// Check if the header starts with "Bearer "
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abort(c, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		claims, err := tokens.ParseToken(tokenString)
		if err != nil {
			abort(c, http.StatusUnauthorized, err.Error())
			return
		}

		c.Set(ContextUserID, claims.ID)
		c.Set(ContextUserEmail, claims.Email)
		c.Set(ContextUserRole, claims.Role)

		c.Next()
	}
}

// RestrictTo lets the request through only if the caller has one of roles.
// It must run after AuthMiddleware.
func RestrictTo(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "User not authenticated")
			return
		}
		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}
		abort(c, http.StatusForbidden, "You do not have permission to perform this action")
	}
}

// CurrentActor returns the authenticated caller stored by AuthMiddleware.
func CurrentActor(c *gin.Context) (models.Actor, bool) {
	id, ok := c.Get(ContextUserID)
	if !ok {
		return models.Actor{}, false
	}
	userID, ok := id.(uint)
	if !ok {
		return models.Actor{}, false
	}
	role, _ := c.Get(ContextUserRole)
	email, _ := c.Get(ContextUserEmail)
	actor := models.Actor{ID: userID}
	actor.Role, _ = role.(models.Role)
	actor.Email, _ = email.(string)
	return actor, true
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": message,
	})
}
