package guard

import (
	"context"
	"sync"
	"time"
)

// Snapshot is the resolver's composed view of auth state. It is immutable;
// every change produces a new value.
type Snapshot struct {
	User       *User
	Session    *Session
	Loading    bool
	UserErr    error
	SessionErr error
}

// Err surfaces the first backend failure. Diagnostics only; the guard never
// sees raw errors, a failed fetch reads as "not authenticated".
func (s Snapshot) Err() error {
	if s.UserErr != nil {
		return s.UserErr
	}
	return s.SessionErr
}

// IsAuthenticated requires both a resolved user AND an unexpired session.
func (s Snapshot) IsAuthenticated(now time.Time) bool {
	return s.User != nil && s.Session != nil && s.Session.ValidAt(now)
}

// Resolver composes the user and session reads into a Snapshot. It is scoped
// to one request/render cycle; build a fresh one per request, there is no
// cross-request shared state.
type Resolver struct {
	backend IdentityBackend
	tokens  TokenSource
	logger  Logger
	clock   func() time.Time

	mu       sync.RWMutex
	last     Snapshot
	resolved bool
	gen      uint64
}

// ResolverOption customizes resolver construction.
type ResolverOption func(*Resolver)

// WithResolverLogger overrides the resolver's logger.
func WithResolverLogger(l Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithResolverClock injects a custom clock (useful for tests).
func WithResolverClock(clock func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// NewResolver builds a resolver over the backend and a token source, usually
// the request's CookieJar.
func NewResolver(backend IdentityBackend, tokens TokenSource, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		backend: backend,
		tokens:  tokens,
		logger:  defLogger{},
		clock:   time.Now,
		last:    Snapshot{Loading: true},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	return r
}

// Snapshot returns the latest composed snapshot without blocking. Loading is
// true only until the first Resolve completes; a refresh in flight keeps
// serving the stale snapshot rather than flipping Loading back.
func (r *Resolver) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

type userResult struct {
	user *User
	err  error
}

type sessionResult struct {
	session *Session
	err     error
}

// Resolve takes one token snapshot from the store and issues both backend
// reads concurrently. Both must finish (or fail) before the composed
// snapshot commits; each failure collapses independently into a nil field.
// A canceled ctx lets in-flight reads finish on their own and discards their
// results, so a superseded navigation never applies a stale decision.
func (r *Resolver) Resolve(ctx context.Context) Snapshot {
	r.mu.Lock()
	r.gen++
	gen := r.gen
	r.mu.Unlock()

	tokens := r.tokens.SessionTokens()

	userCh := make(chan userResult, 1)
	sessCh := make(chan sessionResult, 1)

	go func() {
		u, err := r.backend.GetUser(ctx, tokens)
		userCh <- userResult{user: u, err: err}
	}()
	go func() {
		s, err := r.backend.GetSession(ctx, tokens)
		sessCh <- sessionResult{session: s, err: err}
	}()

	var (
		u        userResult
		s        sessionResult
		userDone bool
		sessDone bool
	)

	for !userDone || !sessDone {
		select {
		case u = <-userCh:
			userDone = true
		case s = <-sessCh:
			sessDone = true
		case <-ctx.Done():
			r.logger.Debug("resolve superseded before completion: %v", ctx.Err())
			return r.Snapshot()
		}
	}

	snap := Snapshot{
		User:       u.user,
		Session:    s.session,
		UserErr:    u.err,
		SessionErr: s.err,
	}

	if u.err != nil {
		snap.User = nil
		r.logger.Debug("user fetch failed, treating as anonymous: %v", u.err)
	}
	if s.err != nil {
		snap.Session = nil
		r.logger.Debug("session fetch failed, treating as no session: %v", s.err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.gen {
		// a newer Resolve superseded this one; discard
		return r.last
	}

	r.resolved = true
	r.last = snap
	return snap
}

// Resolved reports whether both reads have completed at least once.
func (r *Resolver) Resolved() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resolved
}
