package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vertex-ar/backend/pkg/response"
)

// RequireRole admits operators whose token role is one of roles. It reads the claims
// JWT stored, so it must be mounted after JWT. Denials are logged with the operator
// and route so rejected console calls can be traced.
func RequireRole(logger *zap.Logger, roles ...string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		role := c.GetString(ContextOperatorRole)
		if role == "" {
			response.Unauthorized(c, "missing operator context")
			return
		}
		if !allowed[role] {
			logger.Warn("operator role denied",
				zap.String("operator_id", operatorIDString(c)),
				zap.String("role", role),
				zap.String("route", c.FullPath()),
			)
			response.Forbidden(c, "role "+role+" may not manage ar content")
			return
		}
		c.Next()
	}
}

func operatorIDString(c *gin.Context) string {
	if id, ok := c.Value(ContextOperatorID).(uuid.UUID); ok {
		return id.String()
	}
	return ""
}
