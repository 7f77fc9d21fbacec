package guard

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// TokenPair carries the raw, opaque tokens the cookie store holds for a
// session. The guard never inspects them beyond handing them to the backend.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Empty reports whether the jar held no session tokens at all.
func (t TokenPair) Empty() bool {
	return t.AccessToken == "" && t.RefreshToken == ""
}

// IdentityBackend is the external identity service contract. Both reads take
// the token pair the cookie store supplied; each may fail independently.
type IdentityBackend interface {
	GetUser(ctx context.Context, tokens TokenPair) (*User, error)
	GetSession(ctx context.Context, tokens TokenPair) (*Session, error)
}

// SessionRefresher is implemented by backends that can rotate tokens. The
// route guard uses it to refresh an expired session before deciding; the
// diagnostic probe never does, it stays read-only.
type SessionRefresher interface {
	RefreshSession(ctx context.Context, tokens TokenPair) (*Session, error)
}

// TokenSource supplies the token pair a resolver reads from. CookieJar is the
// canonical implementation.
type TokenSource interface {
	SessionTokens() TokenPair
}

// Config holds guard options
type Config interface {
	GetLoginPath() string
	GetLandingPath() string
	GetAccessCookieName() string
	GetRefreshCookieName() string
	GetRejectedRouteKey() string
	GetContextKey() string
	GetSecureCookies() bool
}

// DefaultLogger returns the fallback stdout logger used when no logger is
// configured.
func DefaultLogger() Logger {
	return defLogger{}
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] GUARD "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] GUARD "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] GUARD "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] GUARD "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
