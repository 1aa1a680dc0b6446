package auth

import "errors"

// Internal error kinds for token validation. The HTTP boundary deliberately
// collapses all of them into one generic invalid-token response; the
// distinction exists for logging and metrics.
var (
	ErrTokenMalformed        = errors.New("auth: token malformed")
	ErrTokenExpired          = errors.New("auth: token expired")
	ErrTokenSignatureInvalid = errors.New("auth: token signature invalid")
	ErrTokenRevoked          = errors.New("auth: token revoked")
	ErrWrongTokenType        = errors.New("auth: wrong token type")

	// ErrRefreshTokenInvalid is returned by RefreshAccessToken for any
	// refresh token that fails revalidation.
	ErrRefreshTokenInvalid = errors.New("auth: refresh token invalid")

	// ErrBadCredentials is returned by authenticators for unknown users,
	// wrong passwords and disabled accounts alike.
	ErrBadCredentials = errors.New("auth: bad credentials")
)

// Wire error codes carried in the response envelope.
const (
	CodeUserPasswordError   = "USER_PASSWORD_ERROR"
	CodeAccessTokenInvalid  = "ACCESS_TOKEN_INVALID"
	CodeRefreshTokenInvalid = "REFRESH_TOKEN_INVALID"
	CodeCaptchaExpired      = "CAPTCHA_EXPIRED"
	CodeCaptchaIncorrect    = "CAPTCHA_INCORRECT"
	CodeAccessUnauthorized  = "ACCESS_UNAUTHORIZED"
)

// ErrorKind maps a token validation error to a short label for logs and
// metrics. It never reaches clients.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "valid"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenSignatureInvalid):
		return "signature"
	case errors.Is(err, ErrTokenRevoked):
		return "revoked"
	case errors.Is(err, ErrWrongTokenType):
		return "wrong_type"
	case errors.Is(err, ErrTokenMalformed):
		return "malformed"
	default:
		return "error"
	}
}
