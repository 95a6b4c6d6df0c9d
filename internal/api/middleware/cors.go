package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/MicroPythonOS/shell/internal/infrastructure/tracing"
)

// CORSConfig defines CORS behavior for the debug surface.
type CORSConfig struct {
	AllowOrigins  []string
	AllowMethods  []string
	AllowHeaders  []string
	ExposeHeaders []string
	MaxAge        time.Duration
}

// DefaultCORSConfig allows any origin: the API binds to the device and
// callers are development tools elsewhere on the same network. No
// credentials are involved, so the wildcard is safe. Trace headers are
// accepted and exposed so browser tools can follow a dispatch across
// the wire.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Accept",
			"Origin",
			"X-Requested-With",
			tracing.HeaderTraceID,
			tracing.HeaderSpanID,
		},
		ExposeHeaders: []string{tracing.HeaderTraceID, tracing.HeaderSpanID},
		MaxAge:        12 * time.Hour,
	}
}

// CORS creates the middleware from a config.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:  cfg.AllowOrigins,
		AllowMethods:  cfg.AllowMethods,
		AllowHeaders:  cfg.AllowHeaders,
		ExposeHeaders: cfg.ExposeHeaders,
		MaxAge:        cfg.MaxAge,
	})
}
