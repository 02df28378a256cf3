package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kochabx/membership/log"
)

// LoggerConfig configures the request logging middleware.
type LoggerConfig struct {
	SkipPaths []string
	SkipFunc  func(*gin.Context) bool
	Logger    *log.Logger
}

// Logger logs one structured line per request. Request and response
// bodies are never logged here, credentials and tokens travel in them.
func Logger(cfgs ...LoggerConfig) gin.HandlerFunc {
	cfg := LoggerConfig{}
	if len(cfgs) > 0 {
		cfg = cfgs[0]
	}

	if cfg.Logger == nil {
		cfg.Logger = log.G
	}

	matcher := NewPathMatcher(cfg.SkipPaths)

	return func(c *gin.Context) {
		if shouldSkip(c, matcher, cfg.SkipFunc) {
			c.Next()
			return
		}

		start := time.Now()

		c.Next()

		event := cfg.Logger.Info().
			Int("status", c.Writer.Status()).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP())

		if query := c.Request.URL.RawQuery; query != "" {
			event = event.Str("query", query)
		}

		if requestID := c.Request.Header.Get("X-Request-Id"); requestID != "" {
			event = event.Str("request_id", requestID)
		}

		if principal, ok := CurrentPrincipal(c); ok {
			event = event.Str("subject", principal.ID)
		}

		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.ByType(gin.ErrorTypePrivate).String())
		}

		event.Send()
	}
}
