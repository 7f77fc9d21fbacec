package guard

import (
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// diagnosticCookieMarkers flags cookie names worth surfacing in the probe.
// Substring matching is a debug convenience, not a security boundary.
var diagnosticCookieMarkers = []string{"supabase", "sb-", "auth"}

// DiagnosticController serves the read-only auth introspection probe. It
// never mutates cookies or backend state and never echoes secret material:
// cookie values are reported as hasValue/valueLength only.
type DiagnosticController struct {
	Debug   bool
	backend IdentityBackend
	cfg     Config
	logger  Logger
}

// DiagnosticOption customizes the probe.
type DiagnosticOption func(*DiagnosticController)

// WithDiagnosticLogger overrides the probe's logger.
func WithDiagnosticLogger(l Logger) DiagnosticOption {
	return func(d *DiagnosticController) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDiagnosticController builds the probe over the same backend the guard
// uses.
func NewDiagnosticController(backend IdentityBackend, cfg Config, opts ...DiagnosticOption) *DiagnosticController {
	if cfg == nil {
		cfg = NewConfig()
	}

	d := &DiagnosticController{
		backend: backend,
		cfg:     cfg,
		logger:  defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}

	return d
}

// Handler implements the probe route. Any panic degrades to HTTP 500 with a
// generic message plus the caught error's description, never token values.
func (d *DiagnosticController) Handler(ctx router.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("diagnostic probe panicked: %v", r)
			err = ctx.Status(router.StatusInternalServerError).JSON(router.StatusInternalServerError, map[string]any{
				"error":   ErrDiagnosticFailure.Message,
				"details": fmt.Sprint(r),
			})
		}
	}()

	jar := NewCookieJar(ctx, d.cfg, WithJarLogger(d.logger))
	resolver := NewResolver(d.backend, jar, WithResolverLogger(d.logger))
	snap := resolver.Resolve(ctx.Context())

	cookies := jar.GetAll()
	probeCookies := make([]map[string]any, 0, len(cookies))
	for _, c := range cookies {
		if !diagnosticCookie(c.Name) {
			continue
		}
		probeCookies = append(probeCookies, map[string]any{
			"name":        c.Name,
			"hasValue":    c.Value != "",
			"valueLength": len(c.Value),
		})
	}

	debug := map[string]any{
		"hasUser":         snap.User != nil,
		"hasSession":      snap.Session != nil,
		"userId":          userField(snap.User, func(u *User) string { return u.ID }),
		"userEmail":       userField(snap.User, func(u *User) string { return u.Email }),
		"sessionExpiry":   sessionExpiry(snap.Session),
		"authError":       errorDescription(snap.UserErr),
		"sessionError":    errorDescription(snap.SessionErr),
		"cookieCount":     len(cookies),
		"supabaseCookies": probeCookies,
		"requestHeaders": map[string]any{
			"authorization": headerSummary(ctx.GetString("Authorization", "")),
			"cookie":        headerSummary(ctx.GetString("Cookie", "")),
		},
	}

	if d.Debug {
		fmt.Println(print.MaybePrettyJSON(debug))
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"success": true,
		"debug":   debug,
	})
}

func diagnosticCookie(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range diagnosticCookieMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func userField(u *User, pick func(*User) string) any {
	if u == nil {
		return nil
	}
	return pick(u)
}

func sessionExpiry(s *Session) any {
	if s == nil {
		return nil
	}
	return s.ExpiresAt.Format(time.RFC3339)
}

func errorDescription(err error) any {
	if err == nil {
		return nil
	}
	return err.Error()
}

// headerSummary reports presence and size, never content.
func headerSummary(v string) string {
	if v == "" {
		return "missing"
	}
	return fmt.Sprintf("present (%d bytes)", len(v))
}
