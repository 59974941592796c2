package httputil

import (
	"net"
	"net/http"
	"strings"
)

// GetClientIP extracts the client address of a request, checking in order:
//  1. X-Forwarded-For (first entry of the comma-separated list)
//  2. X-Real-IP
//  3. RemoteAddr, with the port stripped
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// HeaderTokens splits every value of a list-valued header such as
// Content-Encoding into lower-cased, trimmed tokens.
func HeaderTokens(h http.Header, key string) []string {
	var tokens []string
	for _, v := range h.Values(key) {
		for _, part := range strings.Split(v, ",") {
			if tok := strings.ToLower(strings.TrimSpace(part)); tok != "" {
				tokens = append(tokens, tok)
			}
		}
	}
	return tokens
}
