package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/bikers/internal/apperr"
	"github.com/lalith-99/bikers/internal/observ"
)

// MaintenanceFlag is read on every gated request.
type MaintenanceFlag interface {
	Maintenance() bool
}

// Maintenance answers SERVICE_UNAVAILABLE while the flag is on. Paths under
// an exempt prefix pass regardless; the caller's role does not matter.
func Maintenance(flag MaintenanceFlag, metrics *observ.Metrics, exempt ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !flag.Maintenance() {
			c.Next()
			return
		}
		path := c.Request.URL.Path
		for _, prefix := range exempt {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}
		if metrics != nil {
			metrics.MaintenanceRejections.Inc()
		}
		abort(c, apperr.ServiceUnavailable("system is under maintenance, please try again later"))
	}
}
