package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/wardenhq/warden/pkg/cache"
	"github.com/wardenhq/warden/pkg/datascope"
)

// TokenType is the scheme clients present tokens with.
const TokenType = "Bearer"

// Claims are the JWT claims embedded in both access and refresh tokens.
// Access and refresh tokens of one pair carry identical identity claims and
// differ only in jti, expiry and the isRefresh flag.
type Claims struct {
	UserID      int64    `json:"userId"`
	DeptID      int64    `json:"deptId"`
	DataScope   int      `json:"dataScope"`
	Authorities []string `json:"authorities"`
	Refresh     bool     `json:"isRefresh"`
	jwt.RegisteredClaims
}

// TokenPair is the credential set returned by login and refresh.
type TokenPair struct {
	TokenType    string `json:"tokenType"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	// ExpiresIn is the access token lifetime in seconds, -1 when access
	// tokens are configured to never expire.
	ExpiresIn int64 `json:"expiresIn"`
}

// Config holds token manager settings.
type Config struct {
	Secret []byte
	Issuer string
	// AccessTTL is the access token lifetime. A negative value disables
	// access token expiry.
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Manager mints, validates, refreshes and revokes token pairs. Tokens are
// stateless HS256 JWTs; revocation before natural expiry goes through a
// shared blacklist keyed by jti.
type Manager struct {
	secret      []byte
	issuer      string
	accessTTL   time.Duration
	refreshTTL  time.Duration
	revocations *RevocationStore
}

// NewManager creates a token manager backed by the given shared store.
func NewManager(config Config, store cache.Store) (*Manager, error) {
	if len(config.Secret) == 0 {
		return nil, errors.New("auth: signing secret is required")
	}
	if config.RefreshTTL <= 0 {
		return nil, errors.New("auth: refresh token TTL must be positive")
	}
	return &Manager{
		secret:      config.Secret,
		issuer:      config.Issuer,
		accessTTL:   config.AccessTTL,
		refreshTTL:  config.RefreshTTL,
		revocations: NewRevocationStore(store),
	}, nil
}

// GenerateTokenPair mints an access and a refresh token for the principal.
// No shared state is written at issuance; the pair is independently
// verifiable from signature and expiry alone.
func (m *Manager) GenerateTokenPair(p *Principal) (*TokenPair, error) {
	now := time.Now().UTC()

	access, err := m.sign(p, now, m.accessTTL, false)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := m.sign(p, now, m.refreshTTL, true)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	expiresIn := int64(-1)
	if m.accessTTL >= 0 {
		expiresIn = int64(m.accessTTL.Seconds())
	}

	return &TokenPair{
		TokenType:    TokenType,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    expiresIn,
	}, nil
}

func (m *Manager) sign(p *Principal, now time.Time, ttl time.Duration, refresh bool) (string, error) {
	claims := Claims{
		UserID:      p.UserID,
		DeptID:      p.DeptID,
		DataScope:   int(p.DataScope),
		Authorities: p.Authorities(),
		Refresh:     refresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   m.issuer,
			Subject:  p.Username,
			IssuedAt: jwt.NewNumericDate(now),
			ID:       uuid.NewString(),
		},
	}
	if ttl >= 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// keyFunc rejects any signing method other than HS256 before releasing the
// secret to the verifier.
func (m *Manager) keyFunc(t *jwt.Token) (interface{}, error) {
	if t.Method != jwt.SigningMethodHS256 {
		return nil, ErrTokenSignatureInvalid
	}
	return m.secret, nil
}

// parse verifies the signature and, when validateClaims is set, the
// registered claims (expiry). Parse errors are classified into the internal
// error kinds.
func (m *Manager) parse(raw string, validateClaims bool) (*Claims, error) {
	var opts []jwt.ParserOption
	if !validateClaims {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, m.keyFunc, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, ErrTokenSignatureInvalid):
			return nil, ErrTokenSignatureInvalid
		default:
			return nil, ErrTokenMalformed
		}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// ValidateToken checks signature, expiry and the revocation store. A nil
// return means the token is valid; any other result is one of the internal
// error kinds, or a wrapped store error when the blacklist is unreachable.
func (m *Manager) ValidateToken(ctx context.Context, raw string) error {
	claims, err := m.parse(raw, true)
	if err != nil {
		return err
	}

	revoked, err := m.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return ErrTokenRevoked
	}
	return nil
}

// ValidateRefreshToken is ValidateToken plus a check that the token is
// actually a refresh token. Access tokens are rejected with
// ErrWrongTokenType.
func (m *Manager) ValidateRefreshToken(ctx context.Context, raw string) error {
	claims, err := m.parse(raw, true)
	if err != nil {
		return err
	}
	if !claims.Refresh {
		return ErrWrongTokenType
	}

	revoked, err := m.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return ErrTokenRevoked
	}
	return nil
}

// ParseToken extracts the principal from a token. The signature is always
// verified, but expiry and revocation are not rechecked: request-handling
// paths must call ValidateToken first.
func (m *Manager) ParseToken(raw string) (*Principal, error) {
	claims, err := m.parse(raw, false)
	if err != nil {
		return nil, err
	}
	return &Principal{
		UserID:    claims.UserID,
		Username:  claims.Subject,
		DeptID:    claims.DeptID,
		DataScope: datascope.ParseLevel(claims.DataScope),
		RoleCodes: rolesFromAuthorities(claims.Authorities),
	}, nil
}

// RefreshAccessToken exchanges a valid refresh token for a new access token
// with a fresh jti and TTL. The refresh token itself is reused unchanged; it
// is not rotated (see DESIGN.md).
func (m *Manager) RefreshAccessToken(ctx context.Context, refreshRaw string) (*TokenPair, error) {
	if err := m.ValidateRefreshToken(ctx, refreshRaw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRefreshTokenInvalid, err)
	}

	principal, err := m.ParseToken(refreshRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRefreshTokenInvalid, err)
	}

	now := time.Now().UTC()
	access, err := m.sign(principal, now, m.accessTTL, false)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	expiresIn := int64(-1)
	if m.accessTTL >= 0 {
		expiresIn = int64(m.accessTTL.Seconds())
	}

	return &TokenPair{
		TokenType:    TokenType,
		AccessToken:  access,
		RefreshToken: refreshRaw,
		ExpiresIn:    expiresIn,
	}, nil
}

// InvalidateToken revokes the token before its natural expiry. The
// revocation entry's TTL equals the token's remaining lifetime, so the entry
// self-expires exactly when the token would have; an already-expired token
// is a no-op. Idempotent: revoking twice rewrites the same entry.
func (m *Manager) InvalidateToken(ctx context.Context, raw string) error {
	claims, err := m.parse(raw, false)
	if err != nil {
		return err
	}

	var ttl time.Duration
	if claims.ExpiresAt != nil {
		remaining := time.Until(claims.ExpiresAt.Time)
		if remaining <= 0 {
			return nil
		}
		ttl = remaining
	}
	// ttl stays zero for non-expiring tokens: the entry never expires,
	// matching the token it revokes.

	return m.revocations.Revoke(ctx, claims.ID, ttl)
}

// RevocationStore is the shared token blacklist. Entries are keyed by jti
// and expire with the token they revoke, so the store never needs a sweep.
type RevocationStore struct {
	store  cache.Store
	prefix string
}

// NewRevocationStore creates a revocation store over the shared cache.
func NewRevocationStore(store cache.Store) *RevocationStore {
	return &RevocationStore{store: store, prefix: "auth:blacklist:"}
}

// Revoke writes a revocation entry for jti. A ttl of zero stores the entry
// without expiration (non-expiring token).
func (s *RevocationStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if err := s.store.Set(ctx, s.prefix+jti, "1", ttl); err != nil {
		return fmt.Errorf("write revocation entry: %w", err)
	}
	return nil
}

// IsRevoked reports whether jti has been revoked.
func (s *RevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return s.store.Exists(ctx, s.prefix+jti)
}
