package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kochabx/membership/core/auth"
	"github.com/kochabx/membership/errors"
	transporthttp "github.com/kochabx/membership/transport/http"
	"github.com/kochabx/membership/transport/http/metrics"
)

const (
	principalContextKey = "auth.principal"
	tokenContextKey     = "auth.token"
)

// AuthConfig configures the authentication gate.
type AuthConfig struct {
	// SkippedPathPrefixes lists paths that bypass authentication entirely,
	// e.g. login and registration endpoints.
	SkippedPathPrefixes []string
	Auth                *auth.Service
}

// Auth builds the authentication gate. Every request passes through it:
// requests without a usable bearer token proceed unauthenticated and are
// only rejected when they reach a handler that demands an identity.
// A blacklisted token is rejected outright, and an unreachable revocation
// cache fails closed with 503 instead of letting the token through.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	matcher := NewPathMatcher(cfg.SkippedPathPrefixes)

	return func(c *gin.Context) {
		if cfg.Auth == nil || shouldSkip(c, matcher, nil) {
			c.Next()
			return
		}

		tokenString := BearerToken(c)
		if tokenString == "" {
			c.Next()
			return
		}

		principal, err := cfg.Auth.Authenticate(c.Request.Context(), tokenString)
		if err != nil {
			if errors.IsServiceUnavailable(err) {
				metrics.Prom.BlacklistUnavailable.Inc()
			} else if errors.IsUnauthorized(err) {
				metrics.Prom.BlacklistRejections.Inc()
			}
			transporthttp.GinError(c, err)
			return
		}
		if principal == nil {
			// Unverifiable token, treat the request as anonymous.
			c.Next()
			return
		}

		c.Set(principalContextKey, principal)
		c.Set(tokenContextKey, tokenString)
		c.Next()
	}
}

// RequireAuth rejects requests that did not authenticate.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentPrincipal(c); !ok {
			transporthttp.GinErrorE(c, http.StatusUnauthorized, "invalid or expired credentials, please log in again")
			return
		}
		c.Next()
	}
}

// RequireAuthority rejects authenticated requests whose principal lacks
// the given authority.
func RequireAuthority(authority string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := CurrentPrincipal(c)
		if !ok {
			transporthttp.GinErrorE(c, http.StatusUnauthorized, "invalid or expired credentials, please log in again")
			return
		}
		for _, a := range principal.Authorities {
			if a == authority {
				c.Next()
				return
			}
		}
		transporthttp.GinErrorE(c, http.StatusForbidden, "insufficient authority")
	}
}

// CurrentPrincipal returns the authenticated principal, if any.
func CurrentPrincipal(c *gin.Context) (*auth.Principal, bool) {
	v, ok := c.Get(principalContextKey)
	if !ok {
		return nil, false
	}
	principal, ok := v.(*auth.Principal)
	return principal, ok
}

// CurrentToken returns the bearer token the request authenticated with.
func CurrentToken(c *gin.Context) (string, bool) {
	v, ok := c.Get(tokenContextKey)
	if !ok {
		return "", false
	}
	tokenString, ok := v.(string)
	return tokenString, ok
}

// BearerToken extracts the bearer credential from the Authorization
// header, or "" when the header is absent or not a bearer scheme.
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}

	scheme, credentials, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(credentials)
}
