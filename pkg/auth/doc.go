// Package auth is the core of the authentication system: JWT token pairs,
// the login/logout/refresh flows, and the revocation blacklist.
//
// # Token model
//
// Login mints an access/refresh pair of HS256 JWTs carrying identical
// identity claims (user id, department, data scope, role authorities); the
// two differ only in jti, lifetime and the isRefresh flag. Verification is
// stateless; shared state is touched only by revocation, which writes a
// blacklist entry keyed by jti whose TTL equals the token's remaining
// lifetime. A token is usable iff its signature checks out, it has not
// expired and its jti is not blacklisted.
//
// Refresh mints a new access token from a valid refresh token; the refresh
// token itself is reused unchanged until it expires or is revoked.
//
// # Error handling
//
// Validation failures are classified internally (malformed, expired, bad
// signature, revoked, wrong type) for logs and metrics, but the HTTP
// boundary collapses them into one generic invalid-token response.
package auth
