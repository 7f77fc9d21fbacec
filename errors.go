package guard

import (
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeIdentityBackend     = "IDENTITY_BACKEND_ERROR"
	textCodeSessionExpired      = "SESSION_EXPIRED"
	textCodeCookieWriteDeferred = "COOKIE_WRITE_DEFERRED"
	textCodeDiagnosticFailure   = "DIAGNOSTIC_FAILURE"
)

// ErrIdentityBackend wraps user/session fetch failures (network, invalid
// token, backend outage). The guard recovers locally: a failed fetch reads as
// user=nil/session=nil and the error surfaces only in diagnostics.
var ErrIdentityBackend = goerrors.New("identity backend request failed", goerrors.CategoryOperation).
	WithTextCode(textCodeIdentityBackend).
	WithCode(goerrors.CodeInternal)

// ErrSessionExpired is returned when a session's expiry is not in the future.
var ErrSessionExpired = goerrors.New("session is expired", goerrors.CategoryAuth).
	WithTextCode(textCodeSessionExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrCookieWriteDeferred marks a write attempted after the response
// committed. It is never raised to callers; the jar counts the event and an
// external refresh pass re-applies the write next cycle.
var ErrCookieWriteDeferred = goerrors.New("cookie write after response commit", goerrors.CategoryConflict).
	WithTextCode(textCodeCookieWriteDeferred).
	WithCode(goerrors.CodeConflict)

// ErrDiagnosticFailure is the generic probe failure surfaced as HTTP 500.
var ErrDiagnosticFailure = goerrors.New("diagnostic probe failed", goerrors.CategoryInternal).
	WithTextCode(textCodeDiagnosticFailure).
	WithCode(goerrors.CodeInternal)

// ErrNoSessionTokens is the error when the jar holds no auth cookies
var ErrNoSessionTokens = errors.New("no session tokens in cookie jar")

// ErrUnableToParseClaims unable to get claims from token
var ErrUnableToParseClaims = errors.New("unable to parse token claims")

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	var rich *goerrors.Error
	if errors.As(err, &rich) && rich.TextCode == textCodeSessionExpired {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}
