package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vertex-ar/backend/internal/auth"
	"github.com/vertex-ar/backend/pkg/response"
)

const (
	// ContextOperatorID is the key for the operator ID in gin context.
	ContextOperatorID = "operator_id"
	// ContextOperatorRole is the key for the operator role in gin context.
	ContextOperatorRole = "operator_role"
)

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// JWT returns a middleware that validates the bearer token and sets operator claims in context.
func JWT(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			return
		}
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			response.Unauthorized(c, "invalid authorization header")
			return
		}
		claims, err := validator.Validate(token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			return
		}
		c.Set(ContextOperatorID, claims.OperatorID)
		c.Set(ContextOperatorRole, claims.Role)
		c.Next()
	}
}
