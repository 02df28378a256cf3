package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// CorsConfig configures the CORS middleware.
type CorsConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	AllowCredentials bool
	ExposeHeaders    []string
	MaxAge           int
	SkipPaths        []string
}

// DefaultCorsConfig returns a permissive default configuration.
func DefaultCorsConfig() CorsConfig {
	return CorsConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "X-Request-Id"},
		// AllowCredentials must stay false while AllowOrigins is "*".
		AllowCredentials: false,
		ExposeHeaders:    []string{},
		MaxAge:           43200,
	}
}

// Cors creates the CORS middleware.
func Cors(cfgs ...CorsConfig) gin.HandlerFunc {
	cfg := DefaultCorsConfig()
	if len(cfgs) > 0 {
		cfg = cfgs[0]
	}

	allowAllOrigins := len(cfg.AllowOrigins) == 1 && cfg.AllowOrigins[0] == "*"

	methodsHeader := strings.Join(cfg.AllowMethods, ", ")
	headersHeader := strings.Join(cfg.AllowHeaders, ", ")
	exposeHeader := strings.Join(cfg.ExposeHeaders, ", ")
	maxAgeHeader := strconv.Itoa(cfg.MaxAge)
	credentialsHeader := strconv.FormatBool(cfg.AllowCredentials)

	matcher := NewPathMatcher(cfg.SkipPaths)

	return func(c *gin.Context) {
		if shouldSkip(c, matcher, nil) {
			c.Next()
			return
		}

		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}

		if !allowAllOrigins && !isOriginAllowed(origin, cfg.AllowOrigins) {
			c.Next()
			return
		}

		header := c.Writer.Header()
		if allowAllOrigins && !cfg.AllowCredentials {
			header.Set("Access-Control-Allow-Origin", "*")
		} else {
			header.Set("Access-Control-Allow-Origin", origin)
			header.Set("Vary", "Origin")
		}

		header.Set("Access-Control-Allow-Methods", methodsHeader)
		header.Set("Access-Control-Allow-Headers", headersHeader)
		header.Set("Access-Control-Allow-Credentials", credentialsHeader)

		if exposeHeader != "" {
			header.Set("Access-Control-Expose-Headers", exposeHeader)
		}
		header.Set("Access-Control-Max-Age", maxAgeHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func isOriginAllowed(origin string, allowedOrigins []string) bool {
	for _, allowed := range allowedOrigins {
		if allowed == origin {
			return true
		}
		if strings.HasPrefix(allowed, "*.") {
			if strings.HasSuffix(origin, allowed[1:]) {
				return true
			}
		}
	}
	return false
}
