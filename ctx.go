package guard

import (
	"context"

	"github.com/goliatone/go-router"
)

var snapshotCtxKey = &contextKey{"snapshot"}

type contextKey struct {
	name string
}

// WithSnapshotContext sets the resolved Snapshot in the given context
func WithSnapshotContext(ctx context.Context, snap Snapshot) context.Context {
	return context.WithValue(ctx, snapshotCtxKey, snap)
}

// SnapshotFromContext finds the snapshot from the context.
func SnapshotFromContext(ctx context.Context) (Snapshot, bool) {
	raw, ok := ctx.Value(snapshotCtxKey).(Snapshot)
	return raw, ok
}

// UserFromContext is a convenience accessor for the resolved user.
func UserFromContext(ctx context.Context) (*User, bool) {
	snap, ok := SnapshotFromContext(ctx)
	if !ok || snap.User == nil {
		return nil, false
	}
	return snap.User, true
}

// SnapshotFromRouter extracts the snapshot the guard stored in the router
// context after a Render decision.
func SnapshotFromRouter(ctx router.Context, key string) (Snapshot, bool) {
	if key == "" {
		key = DefaultContextKey
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return Snapshot{}, false
	}
	snap, ok := raw.(Snapshot)
	return snap, ok
}
