// Package api exposes the authentication HTTP surface: captcha issuance,
// login, logout and token refresh, plus the Protect helper embedding
// services use to guard their own routes with token validation and
// permission checks.
//
// Errors cross the wire as a {code, message} envelope. Token validation
// failures collapse into one generic response; internals never leak.
package api
