package guard

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventRedirectToLogin     ActivityEventType = "guard.redirect.login"
	ActivityEventRedirectToHome      ActivityEventType = "guard.redirect.home"
	ActivityEventSessionRefreshed    ActivityEventType = "auth.session.refresh"
	ActivityEventLogout              ActivityEventType = "auth.logout"
	ActivityEventCookieWriteDeferred ActivityEventType = "cookie.write.deferred"
)

// ActivityEvent captures audit-friendly information about a guard action.
type ActivityEvent struct {
	EventType  ActivityEventType
	UserID     string
	Path       string
	Decision   string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
// Sinks run best-effort: failures are logged, never propagated, so a slow
// audit store cannot block request handling.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
