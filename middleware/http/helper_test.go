package middleware_test

import (
	"testing"

	middleware "github.com/kochabx/membership/middleware/http"
)

func TestPathMatcher(t *testing.T) {
	pm := middleware.NewPathMatcher([]string{
		"/health",
		"/api/auth/**",
	})

	cases := []struct {
		path string
		want bool
	}{
		{"/health", true},
		{"/healthz", false},
		{"/health/live", false},
		{"/api/auth", true},
		{"/api/auth/login", true},
		{"/api/auth/sessions/abc", true},
		{"/api/authx", false},
		{"/api/members", false},
		{"/", false},
	}

	for _, tc := range cases {
		if got := pm.Match(tc.path); got != tc.want {
			t.Errorf("Match(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestPathMatcher_Nil(t *testing.T) {
	var pm *middleware.PathMatcher
	if pm.Match("/anything") {
		t.Error("nil matcher must match nothing")
	}
}
