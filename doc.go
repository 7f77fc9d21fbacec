// Package guard provides a cookie-backed client-session authentication guard
// for go-router based applications: a per-request cookie session store, an
// auth state resolver, and a route guard state machine that decides between
// rendering protected content and redirecting.
//
// Cookie session store:
//   - CookieJar is an explicit, request-scoped store for auth cookies. Every
//     write it commits carries a fixed six month lifetime, path "/", and a lax
//     same-site policy. Cookies are deliberately NOT HttpOnly so client-side
//     readers can observe session state; that trade-off (XSS exposure versus
//     convenience) is documented behavior, harden upstream if needed.
//   - Writes attempted after the response committed are not raised as errors.
//     They are counted and emitted as cookie.write.deferred activity events;
//     an external refresh pass is expected to re-apply them next cycle.
//
// Auth state resolver:
//   - Resolver issues the user and session reads concurrently against an
//     IdentityBackend and composes a Snapshot. Each read fails independently;
//     backend errors collapse into "not authenticated" and surface only in
//     diagnostics. Loading flips false once both reads complete and never
//     flips back, even while a refresh is in flight.
//
// Route guard:
//   - Decide is a pure function from (Snapshot, RoutePolicy) to a Decision.
//     GuardMachine recomputes it on every input change but navigates exactly
//     once per decision entry, so redirect storms cannot happen. RouteGuard
//     packages all of it as go-router middleware.
//
// Activity sinks:
//   - ActivitySink is a best-effort audit emitter (errors are logged) used for
//     redirects, refreshes, logouts, and deferred cookie writes. A Bun-backed
//     sink lives in the repository package.
package guard
