package middleware

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"os"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kochabx/membership/log"
)

// RecoveryConfig configures the recovery middleware.
type RecoveryConfig struct {
	StackTrace bool
	Logger     *log.Logger
}

// Recovery turns panics into 500 responses instead of dropped
// connections.
func Recovery(cfgs ...RecoveryConfig) gin.HandlerFunc {
	cfg := RecoveryConfig{
		StackTrace: true,
	}
	if len(cfgs) > 0 {
		cfg = cfgs[0]
	}

	if cfg.Logger == nil {
		cfg.Logger = log.G
	}

	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				httpRequest, _ := httputil.DumpRequest(c.Request, false)

				// A broken pipe means the client is gone, there is no
				// point writing a status to it.
				if isBrokenPipe(err) {
					cfg.Logger.Warn().
						Str("error", fmt.Sprintf("%v", err)).
						Bytes("request", httpRequest).
						Msg("broken pipe")
					_ = c.Error(fmt.Errorf("%v", err))
					c.Abort()
					return
				}

				event := cfg.Logger.Error().
					Str("error", fmt.Sprintf("%v", err)).
					Bytes("request", httpRequest)

				if cfg.StackTrace {
					event = event.Bytes("stack", debug.Stack())
				}

				event.Msg("panic recovered")
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}

func isBrokenPipe(err any) bool {
	if ne, ok := err.(*net.OpError); ok {
		if se, ok := ne.Err.(*os.SyscallError); ok {
			errStr := strings.ToLower(se.Error())
			return strings.Contains(errStr, "broken pipe") ||
				strings.Contains(errStr, "connection reset by peer")
		}
	}
	return false
}
