package guard

import (
	"net/http"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// Decision is the guard's verdict for one snapshot/policy pair. Transient:
// recomputed on every snapshot change, never persisted.
type Decision int

const (
	DecisionPending Decision = iota
	DecisionRender
	DecisionRedirectToLogin
	DecisionRedirectToHome
)

func (d Decision) String() string {
	switch d {
	case DecisionPending:
		return "pending"
	case DecisionRender:
		return "render"
	case DecisionRedirectToLogin:
		return "redirect_to_login"
	case DecisionRedirectToHome:
		return "redirect_to_home"
	default:
		return "unknown"
	}
}

// RoutePolicy is the per-route guard policy.
type RoutePolicy struct {
	RequireAuth bool
	RedirectTo  string
}

// DefaultRoutePolicy protects the route and sends strangers to the login path.
func DefaultRoutePolicy() RoutePolicy {
	return RoutePolicy{RequireAuth: true, RedirectTo: DefaultLoginPath}
}

// Decide maps a snapshot and policy to a decision. Pure function, fixed
// evaluation order: pending while loading, then login redirect for
// unauthenticated visitors on protected routes, then home redirect for
// authenticated visitors on public-only routes, else render.
func Decide(snap Snapshot, policy RoutePolicy, now time.Time) Decision {
	if snap.Loading {
		return DecisionPending
	}

	authenticated := snap.IsAuthenticated(now)

	if policy.RequireAuth && !authenticated {
		return DecisionRedirectToLogin
	}
	if !policy.RequireAuth && authenticated {
		return DecisionRedirectToHome
	}
	return DecisionRender
}

// guardInputs captures everything a decision depends on. The machine redoes
// the decision whenever any of them change; strict equality is the only
// cache key.
type guardInputs struct {
	loading       bool
	authenticated bool
	requireAuth   bool
	redirectTo    string
}

// GuardMachine tracks decision transitions so navigation fires exactly once
// per state entry. It is level-triggered: recomputation happens on every
// input change, but only entering a redirect state (or re-targeting one)
// reports navigate=true.
type GuardMachine struct {
	clock  func() time.Time
	inputs *guardInputs
	state  Decision
	navs   int
}

// GuardMachineOption customizes machine construction.
type GuardMachineOption func(*GuardMachine)

// WithMachineClock injects a custom clock (useful for tests).
func WithMachineClock(clock func() time.Time) GuardMachineOption {
	return func(m *GuardMachine) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// NewGuardMachine builds a machine starting in the pending state.
func NewGuardMachine(opts ...GuardMachineOption) *GuardMachine {
	m := &GuardMachine{
		clock: time.Now,
		state: DecisionPending,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

// Recompute returns the current decision and whether the caller should
// perform the navigation side effect now. Unchanged inputs never navigate
// twice; changed inputs always yield a fresh decision.
func (m *GuardMachine) Recompute(snap Snapshot, policy RoutePolicy) (Decision, bool) {
	now := m.clock()

	in := guardInputs{
		loading:       snap.Loading,
		authenticated: snap.IsAuthenticated(now),
		requireAuth:   policy.RequireAuth,
		redirectTo:    policy.RedirectTo,
	}

	if m.inputs != nil && *m.inputs == in {
		return m.state, false
	}

	decision := Decide(snap, policy, now)

	entered := m.inputs == nil || decision != m.state
	retargeted := decision.redirects() && m.inputs != nil && m.inputs.redirectTo != in.redirectTo

	m.inputs = &in
	m.state = decision

	navigate := decision.redirects() && (entered || retargeted)
	if navigate {
		m.navs++
	}
	return decision, navigate
}

// State returns the machine's current decision.
func (m *GuardMachine) State() Decision {
	return m.state
}

// Navigations counts how many redirects the machine has authorized.
func (m *GuardMachine) Navigations() int {
	return m.navs
}

func (d Decision) redirects() bool {
	return d == DecisionRedirectToLogin || d == DecisionRedirectToHome
}

// RouteGuard wires the cookie store, resolver and guard machine into
// go-router middleware.
type RouteGuard struct {
	backend IdentityBackend
	cfg     Config
	logger  Logger
	sink    ActivitySink
	clock   func() time.Time

	// LoadingHandler renders the waiting affordance while the snapshot is
	// still pending. The redirect responses themselves stand in for the
	// redirecting affordance server-side.
	LoadingHandler func(router.Context) error
}

// RouteGuardOption customizes guard construction.
type RouteGuardOption func(*RouteGuard)

// WithGuardLogger overrides the guard's logger.
func WithGuardLogger(l Logger) RouteGuardOption {
	return func(g *RouteGuard) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithGuardActivitySink sets the sink receiving guard events.
func WithGuardActivitySink(s ActivitySink) RouteGuardOption {
	return func(g *RouteGuard) {
		g.sink = normalizeActivitySink(s)
	}
}

// WithGuardClock injects a custom clock (useful for tests).
func WithGuardClock(clock func() time.Time) RouteGuardOption {
	return func(g *RouteGuard) {
		if clock != nil {
			g.clock = clock
		}
	}
}

// NewRouteGuard builds the HTTP route guard.
func NewRouteGuard(backend IdentityBackend, cfg Config, opts ...RouteGuardOption) (*RouteGuard, error) {
	if backend == nil {
		return nil, goerrors.New("identity backend is required", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}
	if cfg == nil {
		cfg = NewConfig()
	}

	g := &RouteGuard{
		backend: backend,
		cfg:     cfg,
		logger:  defLogger{},
		sink:    noopActivitySink{},
		clock:   time.Now,
	}
	g.LoadingHandler = g.defaultLoadingHandler

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g, nil
}

// Protect guards a route with the given policy. Each request gets its own
// jar, resolver and machine; evaluations are pure given their inputs and
// nothing is shared across requests.
func (g *RouteGuard) Protect(policy RoutePolicy) router.MiddlewareFunc {
	if policy.RedirectTo == "" {
		policy.RedirectTo = g.cfg.GetLoginPath()
	}

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			jar := NewCookieJar(ctx, g.cfg,
				WithJarLogger(g.logger),
				WithJarActivitySink(g.sink),
				WithJarClock(g.clock),
			)
			resolver := NewResolver(g.backend, jar,
				WithResolverLogger(g.logger),
				WithResolverClock(g.clock),
			)
			machine := NewGuardMachine(WithMachineClock(g.clock))

			snap := resolver.Resolve(ctx.Context())
			snap = g.refreshSession(ctx, jar, snap)

			// one batch per outgoing response, whatever the decision
			defer jar.Commit()

			decision, navigate := machine.Recompute(snap, policy)

			switch decision {
			case DecisionPending:
				return g.LoadingHandler(ctx)
			case DecisionRedirectToLogin:
				if !navigate {
					return nil
				}
				g.rememberRejectedRoute(ctx)
				return g.redirect(ctx, policy.RedirectTo, snap, ActivityEventRedirectToLogin)
			case DecisionRedirectToHome:
				if !navigate {
					return nil
				}
				return g.redirect(ctx, g.cfg.GetLandingPath(), snap, ActivityEventRedirectToHome)
			default:
				ctx.Locals(g.cfg.GetContextKey(), snap)
				ctx.SetContext(WithSnapshotContext(ctx.Context(), snap))
				return next(ctx)
			}
		}
	}
}

// Logout clears the auth cookies. The jar stays the only cookie writer.
func (g *RouteGuard) Logout(ctx router.Context) {
	jar := NewCookieJar(ctx, g.cfg,
		WithJarLogger(g.logger),
		WithJarActivitySink(g.sink),
		WithJarClock(g.clock),
	)
	jar.Clear(g.cfg.GetAccessCookieName(), g.cfg.GetRefreshCookieName())
	jar.Commit()

	g.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventLogout,
		Path:      ctx.OriginalURL(),
	})
}

// GetRedirect pops the remembered rejected route, falling back to def.
func (g *RouteGuard) GetRedirect(ctx router.Context, def string) string {
	key := g.cfg.GetRejectedRouteKey()
	r := ctx.Cookies(key)
	if r == "" {
		return def
	}
	g.dropCookie(ctx, key)
	return r
}

// refreshSession asks the backend to rotate tokens when the resolved session
// expired but a refresh token survives. The jar, as the only cookie writer,
// re-synchronizes the response cookies with whatever the backend issued.
func (g *RouteGuard) refreshSession(ctx router.Context, jar *CookieJar, snap Snapshot) Snapshot {
	now := g.clock()

	if snap.Session != nil && snap.Session.ValidAt(now) {
		g.syncSessionCookies(jar, snap.Session)
		return snap
	}

	refresher, ok := g.backend.(SessionRefresher)
	if !ok {
		return snap
	}

	tokens := jar.SessionTokens()
	if tokens.RefreshToken == "" {
		return snap
	}

	fresh, err := refresher.RefreshSession(ctx.Context(), tokens)
	if err != nil || fresh == nil {
		g.logger.Warn("session refresh failed: %v", err)
		return snap
	}

	snap.Session = fresh
	snap.SessionErr = nil
	g.syncSessionCookies(jar, fresh)

	// the user read may have run against the dead token; retry once
	if snap.User == nil {
		if u, uerr := g.backend.GetUser(ctx.Context(), fresh.Tokens()); uerr == nil {
			snap.User = u
			snap.UserErr = nil
		}
	}

	g.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventSessionRefreshed,
		UserID:    fresh.UserID,
		Path:      ctx.OriginalURL(),
	})

	return snap
}

// syncSessionCookies stages the session's tokens when they differ from what
// the request carried, keeping client cookies aligned with rotation.
func (g *RouteGuard) syncSessionCookies(jar *CookieJar, sess *Session) {
	if sess == nil || sess.AccessToken == "" {
		return
	}

	current := jar.SessionTokens()
	if current.AccessToken == sess.AccessToken && current.RefreshToken == sess.RefreshToken {
		return
	}

	jar.SetAll(
		CookieRecord{Name: g.cfg.GetAccessCookieName(), Value: sess.AccessToken},
		CookieRecord{Name: g.cfg.GetRefreshCookieName(), Value: sess.RefreshToken},
	)
}

func (g *RouteGuard) redirect(ctx router.Context, target string, snap Snapshot, event ActivityEventType) error {
	userID := ""
	if snap.User != nil {
		userID = snap.User.ID
	}

	g.logger.Info("guard redirecting %s -> %s", ctx.OriginalURL(), target)

	g.recordActivity(ctx, ActivityEvent{
		EventType: event,
		UserID:    userID,
		Path:      ctx.OriginalURL(),
		Decision:  g.decisionFor(event).String(),
	})

	statusCode := http.StatusSeeOther
	if ctx.Method() == string(router.GET) {
		statusCode = http.StatusFound
	}
	return ctx.Redirect(target, statusCode)
}

func (g *RouteGuard) decisionFor(event ActivityEventType) Decision {
	if event == ActivityEventRedirectToHome {
		return DecisionRedirectToHome
	}
	return DecisionRedirectToLogin
}

// rememberRejectedRoute stores the path the visitor was denied, so the login
// flow can send them back afterwards. Short-lived and HttpOnly: this is not
// an auth cookie and does not go through the session store policy.
func (g *RouteGuard) rememberRejectedRoute(ctx router.Context) {
	ctx.Cookie(&router.Cookie{
		Name:     g.cfg.GetRejectedRouteKey(),
		Value:    ctx.OriginalURL(),
		Expires:  g.clock().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   g.cfg.GetSecureCookies(),
		SameSite: SessionCookieSameSite,
	})
}

func (g *RouteGuard) dropCookie(ctx router.Context, name string) {
	ctx.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  g.clock().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   g.cfg.GetSecureCookies(),
		SameSite: SessionCookieSameSite,
	})
}

func (g *RouteGuard) recordActivity(ctx router.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = g.clock()
	}
	if err := g.sink.Record(ctx.Context(), event); err != nil {
		g.logger.Warn("route guard activity sink error: %v", err)
	}
}

func (g *RouteGuard) defaultLoadingHandler(ctx router.Context) error {
	return ctx.Status(router.StatusOK).SendString("Loading...")
}
