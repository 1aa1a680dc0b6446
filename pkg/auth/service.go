package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/wardenhq/warden/pkg/captcha"
	"github.com/wardenhq/warden/pkg/observability"
)

// Authenticator verifies credentials against an external user store.
// Password hashing policy is owned by the implementation, not by this core.
type Authenticator interface {
	// Authenticate returns the principal for valid credentials, or
	// ErrBadCredentials. Unknown users, wrong passwords and disabled
	// accounts are indistinguishable to callers.
	Authenticate(ctx context.Context, username, password string) (*Principal, error)
}

// Service orchestrates the login, logout and refresh flows by composing the
// captcha service, the credential verifier and the token manager.
type Service struct {
	captcha *captcha.Service
	tokens  *Manager
	users   Authenticator
	logger  *observability.Logger
}

// NewService wires the auth orchestrator.
func NewService(captchaSvc *captcha.Service, tokens *Manager, users Authenticator, logger *observability.Logger) *Service {
	return &Service{
		captcha: captchaSvc,
		tokens:  tokens,
		users:   users,
		logger:  logger,
	}
}

// LoginRequest carries the login form.
type LoginRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	CaptchaKey  string `json:"captchaKey"`
	CaptchaCode string `json:"captchaCode"`
}

// IssueCaptcha creates a fresh login challenge.
func (s *Service) IssueCaptcha(ctx context.Context) (*captcha.Challenge, error) {
	return s.captcha.Issue(ctx)
}

// Login validates the captcha, verifies credentials and mints a token pair.
// Captcha errors and ErrBadCredentials pass through for the HTTP layer to
// map onto the error envelope.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*TokenPair, error) {
	if err := s.captcha.Verify(ctx, req.CaptchaKey, req.CaptchaCode); err != nil {
		return nil, err
	}

	principal, err := s.users.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrBadCredentials) {
			s.logger.WithField("username", req.Username).Info("login rejected: bad credentials")
			return nil, err
		}
		return nil, fmt.Errorf("authenticate %q: %w", req.Username, err)
	}

	pair, err := s.tokens.GenerateTokenPair(principal)
	if err != nil {
		return nil, fmt.Errorf("mint token pair: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"username": principal.Username,
		"user_id":  principal.UserID,
	}).Info("login succeeded")
	return pair, nil
}

// Logout revokes the access token. When the client also presents its refresh
// token, that is revoked too; a refresh token that no longer parses is
// logged and ignored so logout stays idempotent.
func (s *Service) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if err := s.tokens.InvalidateToken(ctx, accessToken); err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}

	if refreshToken != "" {
		if err := s.tokens.InvalidateToken(ctx, refreshToken); err != nil {
			s.logger.WithError(err).Warn("refresh token not revoked on logout")
		}
	}
	return nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	pair, err := s.tokens.RefreshAccessToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshTokenInvalid) {
			s.logger.WithField("kind", ErrorKind(err)).Info("refresh rejected")
		}
		return nil, err
	}
	return pair, nil
}
