package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContextUserID is the gin context key carrying the authenticated user id.
const ContextUserID = "user_id"

// RequireAuth aborts requests without a valid bearer token.
func RequireAuth(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := bearerClaims(svc, c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Set(ContextUserID, claims.UserID)
		c.Next()
	}
}

// OptionalAuth attaches the user id when a valid token is present and lets
// anonymous requests through. Wizard sessions are anonymous until save.
func OptionalAuth(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := bearerClaims(svc, c); ok {
			c.Set(ContextUserID, claims.UserID)
		}
		c.Next()
	}
}

// UserID extracts the authenticated user id from the gin context. It returns
// uuid.Nil for anonymous requests.
func UserID(c *gin.Context) uuid.UUID {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return uuid.Nil
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}

func bearerClaims(svc *Service, c *gin.Context) (*Claims, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, false
	}
	claims, err := svc.ParseToken(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		return nil, false
	}
	return claims, true
}
