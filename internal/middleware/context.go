package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/bikers/internal/auth"
	"github.com/lalith-99/bikers/internal/observ"
	"go.uber.org/zap"
)

// Context keys for values the middleware chain stores in gin.Context.
const (
	ContextKeyIdentity  = "identity"
	ContextKeyCompanyID = "company_id"
	ContextKeyRequestID = "request_id"
)

// GetIdentity returns the caller set by Authenticate.
func GetIdentity(c *gin.Context) (auth.Identity, bool) {
	val, exists := c.Get(ContextKeyIdentity)
	if !exists {
		return auth.Identity{}, false
	}
	who, ok := val.(auth.Identity)
	return who, ok
}

// MustIdentity is GetIdentity for handlers behind Authenticate, where a
// missing identity is a wiring bug.
func MustIdentity(c *gin.Context) auth.Identity {
	who, ok := GetIdentity(c)
	if !ok {
		panic("middleware: identity not set; route is missing Authenticate")
	}
	return who
}

// GetCompanyID returns the tenant resolved by RequireTenant, or uuid.Nil.
func GetCompanyID(c *gin.Context) uuid.UUID {
	val, exists := c.Get(ContextKeyCompanyID)
	if !exists {
		return uuid.Nil
	}
	id, ok := val.(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}

func GetRequestID(c *gin.Context) string {
	return c.GetString(ContextKeyRequestID)
}

// Logger is the request-scoped logger, falling back to base.
func Logger(c *gin.Context, base *zap.Logger) *zap.Logger {
	return observ.FromContext(c.Request.Context(), base)
}
