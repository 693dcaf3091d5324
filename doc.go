// Package auth implements password login, email verification and refresh
// token rotation on top of pluggable stores.
//
// Tokens:
//   - TokenService signs HS256 access and refresh tokens with distinct
//     secrets. Verification returns a VerifyResult whose Status tells an
//     expired token apart from a malformed one, so callers can ask for a
//     new login instead of a retry.
//
// Sessions:
//   - Every issued refresh token is backed by a session row. Refresh swaps
//     the row to the new token with a conditional update, so a refresh
//     token is accepted at most once even under concurrent requests.
//     The repository package has bun (sqlite, postgres) and redis stores.
//
// Verification:
//   - Signup creates an inactive user and emails an activation link. The
//     email is sent in the background; AuthService.Wait blocks until queued
//     messages reach the Mailer.
//
// Activity sinks:
//   - ActivitySink receives login, refresh, logout, signup and verification
//     events. Metrics implements it with prometheus counters. Sinks are
//     best effort and never fail a request.
//
// HTTP:
//   - AuthController and RegisterAuthRoutes expose the flows over go-router,
//     carrying the refresh token in an HttpOnly cookie. NewErrorHandler
//     renders every error as the uniform error envelope.
package auth
