package app

import (
	"net/url"
	"strings"
)

// extractOriginHost reduces an Origin header value to its host[:port] part so
// allowed-origin patterns match regardless of scheme.
func extractOriginHost(origin string) string {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return origin
	}
	return u.Host
}

// matchOriginPattern matches a request host against one allowed-origins entry.
// Entries are exact hosts, "*.example.com" subdomain wildcards, or
// "localhost:*" port wildcards.
func matchOriginPattern(pattern, host string) bool {
	switch {
	case pattern == host:
		return true
	case strings.HasPrefix(pattern, "*."):
		return strings.HasSuffix(host, pattern[1:])
	case strings.HasSuffix(pattern, ":*"):
		return strings.HasPrefix(host, pattern[:len(pattern)-1])
	}
	return false
}
