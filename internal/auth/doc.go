// Package auth provides authentication and authorisation for Inventory Core.
//
// It implements a 4-tier role model (viewer → user → manager → admin) with:
//   - bcrypt password hashing (cost 12)
//   - Short-lived JWT access tokens carrying identity and role claims
//   - Opaque server-side refresh tokens with single-session rotation
//   - A persisted permission catalog ({resource}.{action} capability names)
//     whose role policy is rebuilt wholesale at every startup
//
// The refresh token store enforces a single active session per user:
// issuing a new token revokes every outstanding token for that user in
// the same transaction. Access tokens stay valid until their own expiry,
// so revocation lags by at most one access-token lifetime. There is no
// access-token blocklist; immediate global logout is not a guarantee
// this package makes.
package auth
