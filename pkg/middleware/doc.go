// Package middleware provides the HTTP middleware chain: request id
// propagation, access token validation, permission enforcement and request
// metrics.
package middleware
