package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// PathMatcher matches request paths against a precompiled skip list.
// Two forms are supported: exact paths such as "/health", and prefix
// paths such as "/api/auth/**" which match the prefix itself and every
// path below it.
type PathMatcher struct {
	exact    map[string]struct{}
	prefixes []string
}

// NewPathMatcher precompiles the skip list.
func NewPathMatcher(paths []string) *PathMatcher {
	pm := &PathMatcher{
		exact: make(map[string]struct{}, len(paths)),
	}
	for _, p := range paths {
		if prefix, ok := strings.CutSuffix(p, "/**"); ok {
			pm.prefixes = append(pm.prefixes, prefix)
		} else {
			pm.exact[p] = struct{}{}
		}
	}
	return pm
}

// Match reports whether urlPath is covered by the skip list.
func (pm *PathMatcher) Match(urlPath string) bool {
	if pm == nil {
		return false
	}

	if _, ok := pm.exact[urlPath]; ok {
		return true
	}

	for _, prefix := range pm.prefixes {
		if urlPath == prefix {
			return true
		}
		if len(urlPath) > len(prefix) && urlPath[len(prefix)] == '/' && strings.HasPrefix(urlPath, prefix) {
			return true
		}
	}
	return false
}

func shouldSkip(c *gin.Context, matcher *PathMatcher, skipFunc func(*gin.Context) bool) bool {
	if skipFunc != nil && skipFunc(c) {
		return true
	}
	return matcher.Match(c.Request.URL.Path)
}
