package citations

import (
	"net/url"
	"strings"
)

// FilesPath is the backend's protected file-serving route. Links below it are
// guarded by the same bearer token as the chat endpoint; since a plain anchor
// navigation cannot carry a header, the token travels as a query parameter.
const FilesPath = "/api/files/"

// Resolve maps a citation to a URL the host can open. It never fails; a
// citation without a URL is simply unresolved (ok == false).
//
// Rules, in order: absolute http(s) URLs pass through (plus the protected-path
// token rule); root-relative paths are prefixed with apiBase; file:// URLs are
// rewritten onto the backend's file-serving route using their final path
// segment, keeping any fragment such as a page anchor; anything else passes
// through unchanged.
func Resolve(c Citation, apiBase, token string) (string, bool) {
	raw := strings.TrimSpace(c.URL)
	if raw == "" {
		return "", false
	}
	base := strings.TrimRight(apiBase, "/")
	switch {
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
		return withFileToken(raw, base, token), true
	case strings.HasPrefix(raw, "/"):
		return withFileToken(base+raw, base, token), true
	case strings.HasPrefix(raw, "file://"):
		name := Basename(raw)
		frag := ""
		if i := strings.Index(name, "#"); i >= 0 {
			name, frag = name[:i], name[i:]
		}
		u := base + FilesPath + url.PathEscape(name) + frag
		return withFileToken(u, base, token), true
	default:
		return raw, true
	}
}

// withFileToken appends the bearer token as a query parameter when the URL
// targets the backend's protected file route. The token goes before any
// fragment so the server actually sees it.
func withFileToken(u, base, token string) string {
	if token == "" || !strings.HasPrefix(u, base+FilesPath) {
		return u
	}
	frag := ""
	if i := strings.Index(u, "#"); i >= 0 {
		u, frag = u[:i], u[i:]
	}
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + "token=" + url.QueryEscape(token) + frag
}
