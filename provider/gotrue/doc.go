// Package gotrue implements the guard.IdentityBackend contract against a
// GoTrue-compatible identity service (Supabase Auth and friends).
//
// Session reads validate the access token locally, with an HS256 shared
// secret or a JWKS endpoint for asymmetric deployments. User reads hit the
// service's /user endpoint with the visitor's own access token, so a revoked
// account fails even while its token still verifies. Refresh exchanges the
// refresh token at /token?grant_type=refresh_token and hands the rotated
// pair back to the caller; writing it to cookies stays the cookie store's
// job.
package gotrue
