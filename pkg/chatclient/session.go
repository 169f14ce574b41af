package chatclient

import (
	"net/http"
	"time"
)

// SessionGuard owns the short-lived bearer token minted by the hosting page.
// It is immutable for the lifetime of the mounted client: the guard only ever
// reads the expiry, it never refreshes or extends the token.
type SessionGuard struct {
	token     string
	expiresAt int64 // epoch seconds; 0 means the minting authority enforces expiry itself
	now       func() time.Time
}

type SessionGuardOption func(*SessionGuard)

// WithClock substitutes the time source, for expiry tests.
func WithClock(now func() time.Time) SessionGuardOption {
	return func(g *SessionGuard) { g.now = now }
}

func NewSessionGuard(token string, expiresAtEpochSeconds int64, opts ...SessionGuardOption) *SessionGuard {
	g := &SessionGuard{token: token, expiresAt: expiresAtEpochSeconds, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CanSend reports whether a request may go out: a token must be present, and
// when an expiry was supplied, it must still be in the future.
func (g *SessionGuard) CanSend() bool {
	if g == nil || g.token == "" {
		return false
	}
	if g.expiresAt == 0 {
		return true
	}
	return g.now().Unix() < g.expiresAt
}

// Authorize attaches the token as a bearer credential. It never mutates guard
// state and is a no-op without a token.
func (g *SessionGuard) Authorize(req *http.Request) *http.Request {
	if g != nil && g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}
	return req
}

// Token exposes the raw token for places that cannot send a header, such as
// citation file links.
func (g *SessionGuard) Token() string {
	if g == nil {
		return ""
	}
	return g.token
}
