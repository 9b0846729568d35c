package server

import (
	"net/http"
	"slices"
	"strings"
)

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

func (c CORSOptions) enabled() bool { return len(c.AllowedOrigins) > 0 }

// apply writes the CORS response headers for r when its Origin is allowed.
func (c CORSOptions) apply(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" || !c.enabled() {
		return
	}
	wildcard := slices.Contains(c.AllowedOrigins, "*")
	if !wildcard && !slices.Contains(c.AllowedOrigins, origin) {
		return
	}

	hdr := w.Header()
	if wildcard {
		hdr.Set("Access-Control-Allow-Origin", "*")
	} else {
		hdr.Set("Access-Control-Allow-Origin", origin)
		hdr.Add("Vary", "Origin")
	}
	if r.Method != http.MethodOptions {
		return
	}
	if req := r.Header.Get("Access-Control-Request-Headers"); req != "" {
		hdr.Set("Access-Control-Allow-Headers", req)
	}
	hdr.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
}

func acceptsHTML(accept string) bool {
	for _, part := range strings.Split(accept, ",") {
		part = strings.TrimSpace(part)
		if part == "*/*" || strings.HasPrefix(part, "text/html") {
			return true
		}
	}
	return false
}
