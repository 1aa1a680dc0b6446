package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/wardenhq/warden/pkg/cache"
	"github.com/wardenhq/warden/pkg/datascope"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func testPrincipal() *Principal {
	return &Principal{
		UserID:    42,
		Username:  "alice",
		DeptID:    5,
		DataScope: datascope.LevelDeptAndSub,
		RoleCodes: []string{"HR_MANAGER", "AUDITOR"},
	}
}

func setupManagerTest(t *testing.T, config Config) (*Manager, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	store, err := cache.NewRedis(cache.Config{URL: "redis://" + mr.Addr()})
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create cache: %v", err)
	}

	if config.Secret == nil {
		config.Secret = testSecret
	}
	if config.Issuer == "" {
		config.Issuer = "warden"
	}
	if config.AccessTTL == 0 {
		config.AccessTTL = 30 * time.Minute
	}
	if config.RefreshTTL == 0 {
		config.RefreshTTL = 24 * time.Hour
	}

	manager, err := NewManager(config, store)
	if err != nil {
		store.Close()
		mr.Close()
		t.Fatalf("Failed to create manager: %v", err)
	}

	cleanup := func() {
		store.Close()
		mr.Close()
	}
	return manager, mr, cleanup
}

// signTestToken mints a raw token outside the manager, for boundary cases
// like past expiry or foreign secrets.
func signTestToken(t *testing.T, secret []byte, p *Principal, expiresAt *time.Time, refresh bool) string {
	t.Helper()

	claims := Claims{
		UserID:      p.UserID,
		DeptID:      p.DeptID,
		DataScope:   int(p.DataScope),
		Authorities: p.Authorities(),
		Refresh:     refresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   "warden",
			Subject:  p.Username,
			IssuedAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			ID:       uuid.NewString(),
		},
	}
	if expiresAt != nil {
		claims.ExpiresAt = jwt.NewNumericDate(*expiresAt)
	}

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("Failed to sign test token: %v", err)
	}
	return raw
}

func TestNewManager_Validation(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	defer mr.Close()

	store, err := cache.NewRedis(cache.Config{URL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer store.Close()

	if _, err := NewManager(Config{RefreshTTL: time.Hour}, store); err == nil {
		t.Error("Expected error for missing secret")
	}
	if _, err := NewManager(Config{Secret: testSecret}, store); err == nil {
		t.Error("Expected error for missing refresh TTL")
	}
}

func TestGenerateTokenPair_RoundTrip(t *testing.T) {
	manager, _, cleanup := setupManagerTest(t, Config{AccessTTL: 30 * time.Minute})
	defer cleanup()

	ctx := context.Background()
	pair, err := manager.GenerateTokenPair(testPrincipal())
	if err != nil {
		t.Fatalf("GenerateTokenPair failed: %v", err)
	}

	if pair.TokenType != "Bearer" {
		t.Errorf("Expected token type Bearer, got %s", pair.TokenType)
	}
	if pair.ExpiresIn <= 0 {
		t.Errorf("Expected positive expiresIn, got %d", pair.ExpiresIn)
	}

	// Both tokens validate and parse back to the minting principal.
	for _, raw := range []string{pair.AccessToken, pair.RefreshToken} {
		if raw == pair.AccessToken {
			if err := manager.ValidateToken(ctx, raw); err != nil {
				t.Fatalf("ValidateToken failed: %v", err)
			}
		} else {
			if err := manager.ValidateRefreshToken(ctx, raw); err != nil {
				t.Fatalf("ValidateRefreshToken failed: %v", err)
			}
		}

		p, err := manager.ParseToken(raw)
		if err != nil {
			t.Fatalf("ParseToken failed: %v", err)
		}
		if p.UserID != 42 || p.Username != "alice" || p.DeptID != 5 {
			t.Errorf("Principal identity did not round-trip: %+v", p)
		}
		if p.DataScope != datascope.LevelDeptAndSub {
			t.Errorf("Data scope did not round-trip: %v", p.DataScope)
		}
		if len(p.RoleCodes) != 2 || p.RoleCodes[0] != "HR_MANAGER" || p.RoleCodes[1] != "AUDITOR" {
			t.Errorf("Roles did not round-trip: %v", p.RoleCodes)
		}
	}
}

func TestGenerateTokenPair_UniqueTokenIDs(t *testing.T) {
	manager, _, cleanup := setupManagerTest(t, Config{})
	defer cleanup()

	pair, err := manager.GenerateTokenPair(testPrincipal())
	if err != nil {
		t.Fatalf("GenerateTokenPair failed: %v", err)
	}

	access, _ := manager.parse(pair.AccessToken, false)
	refresh, _ := manager.parse(pair.RefreshToken, false)
	if access.ID == "" || access.ID == refresh.ID {
		t.Errorf("Expected distinct jtis, got %q and %q", access.ID, refresh.ID)
	}
	if access.Refresh {
		t.Error("Access token must carry isRefresh=false")
	}
	if !refresh.Refresh {
		t.Error("Refresh token must carry isRefresh=true")
	}
}

func TestValidateToken_Expired(t *testing.T) {
	manager, _, cleanup := setupManagerTest(t, Config{})
	defer cleanup()

	past := time.Now().Add(-time.Minute)
	raw := signTestToken(t, testSecret, testPrincipal(), &past, false)

	// Correct signature, no revocation entry: expiry alone must fail it.
	err := manager.ValidateToken(context.Background(), raw)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("Expected ErrTokenExpired, got %v", err)
	}
}

func TestValidateToken_TamperedSignature(t *testing.T) {
	manager, _, cleanup := setupManagerTest(t, Config{})
	defer cleanup()

	future := time.Now().Add(time.Hour)
	raw := signTestToken(t, []byte("another-secret-entirely-32-bytes"), testPrincipal(), &future, false)

	err := manager.ValidateToken(context.Background(), raw)
	if !errors.Is(err, ErrTokenSignatureInvalid) {
		t.Fatalf("Expected ErrTokenSignatureInvalid, got %v", err)
	}
}

func TestValidateToken_Malformed(t *testing.T) {
	manager, _, cleanup := setupManagerTest(t, Config{})
	defer cleanup()

	err := manager.ValidateToken(context.Background(), "not.a.jwt")
	if !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("Expected ErrTokenMalformed, got %v", err)
	}
}

func TestValidateRefreshToken_RejectsAccessToken(t *testing.T) {
	manager, _, cleanup := setupManagerTest(t, Config{})
	defer cleanup()

	pair, err := manager.GenerateTokenPair(testPrincipal())
	if err != nil {
		t.Fatalf("GenerateTokenPair failed: %v", err)
	}

	// Otherwise fully valid, but isRefresh=false.
	err = manager.ValidateRefreshToken(context.Background(), pair.AccessToken)
	if !errors.Is(err, ErrWrongTokenType) {
		t.Fatalf("Expected ErrWrongTokenType, got %v", err)
	}
}

func TestInvalidateToken_RevokesAndIsIdempotent(t *testing.T) {
	manager, _, cleanup := setupManagerTest(t, Config{})
	defer cleanup()

	ctx := context.Background()
	pair, err := manager.GenerateTokenPair(testPrincipal())
	if err != nil {
		t.Fatalf("GenerateTokenPair failed: %v", err)
	}

	if err := manager.ValidateToken(ctx, pair.AccessToken); err != nil {
		t.Fatalf("Expected token valid before revocation: %v", err)
	}

	if err := manager.InvalidateToken(ctx, pair.AccessToken); err != nil {
		t.Fatalf("InvalidateToken failed: %v", err)
	}

	err = manager.ValidateToken(ctx, pair.AccessToken)
	if !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("Expected ErrTokenRevoked after invalidation, got %v", err)
	}

	// Second invalidation is safe.
	if err := manager.InvalidateToken(ctx, pair.AccessToken); err != nil {
		t.Fatalf("Expected idempotent invalidation, got %v", err)
	}
}

func TestInvalidateToken_ExpiredIsNoOp(t *testing.T) {
	manager, mr, cleanup := setupManagerTest(t, Config{})
	defer cleanup()

	past := time.Now().Add(-time.Minute)
	raw := signTestToken(t, testSecret, testPrincipal(), &past, false)

	if err := manager.InvalidateToken(context.Background(), raw); err != nil {
		t.Fatalf("Expected no-op for expired token, got %v", err)
	}

	// No revocation entry may be written for an already-expired token.
	if len(mr.Keys()) != 0 {
		t.Errorf("Expected empty revocation store, got keys %v", mr.Keys())
	}
}

func TestInvalidateToken_EntryExpiresWithToken(t *testing.T) {
	manager, mr, cleanup := setupManagerTest(t, Config{AccessTTL: time.Minute})
	defer cleanup()

	ctx := context.Background()
	pair, err := manager.GenerateTokenPair(testPrincipal())
	if err != nil {
		t.Fatalf("GenerateTokenPair failed: %v", err)
	}

	if err := manager.InvalidateToken(ctx, pair.AccessToken); err != nil {
		t.Fatalf("InvalidateToken failed: %v", err)
	}
	if len(mr.Keys()) != 1 {
		t.Fatalf("Expected one revocation entry, got %v", mr.Keys())
	}

	// Once the token's own lifetime has passed, the entry is gone too.
	mr.FastForward(2 * time.Minute)
	if len(mr.Keys()) != 0 {
		t.Errorf("Expected revocation entry to expire with the token, got %v", mr.Keys())
	}
}

func TestRefreshAccessToken(t *testing.T) {
	manager, _, cleanup := setupManagerTest(t, Config{AccessTTL: 30 * time.Minute})
	defer cleanup()

	ctx := context.Background()
	pair, err := manager.GenerateTokenPair(testPrincipal())
	if err != nil {
		t.Fatalf("GenerateTokenPair failed: %v", err)
	}

	refreshed, err := manager.RefreshAccessToken(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshAccessToken failed: %v", err)
	}

	if refreshed.RefreshToken != pair.RefreshToken {
		t.Error("Expected the refresh token to be reused unchanged")
	}
	if refreshed.ExpiresIn != int64((30 * time.Minute).Seconds()) {
		t.Errorf("Unexpected expiresIn %d", refreshed.ExpiresIn)
	}

	// The new access token is valid and carries a fresh jti.
	if err := manager.ValidateToken(ctx, refreshed.AccessToken); err != nil {
		t.Fatalf("New access token invalid: %v", err)
	}
	oldClaims, _ := manager.parse(pair.AccessToken, false)
	newClaims, _ := manager.parse(refreshed.AccessToken, false)
	if oldClaims.ID == newClaims.ID {
		t.Error("Expected refreshed access token to carry a new jti")
	}
	if newClaims.Refresh {
		t.Error("Refreshed access token must carry isRefresh=false")
	}
}

func TestRefreshAccessToken_RejectsAccessToken(t *testing.T) {
	manager, _, cleanup := setupManagerTest(t, Config{})
	defer cleanup()

	pair, err := manager.GenerateTokenPair(testPrincipal())
	if err != nil {
		t.Fatalf("GenerateTokenPair failed: %v", err)
	}

	_, err = manager.RefreshAccessToken(context.Background(), pair.AccessToken)
	if !errors.Is(err, ErrRefreshTokenInvalid) {
		t.Fatalf("Expected ErrRefreshTokenInvalid, got %v", err)
	}
}

func TestRefreshAccessToken_RejectsRevokedRefreshToken(t *testing.T) {
	manager, _, cleanup := setupManagerTest(t, Config{})
	defer cleanup()

	ctx := context.Background()
	pair, err := manager.GenerateTokenPair(testPrincipal())
	if err != nil {
		t.Fatalf("GenerateTokenPair failed: %v", err)
	}

	if err := manager.InvalidateToken(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("InvalidateToken failed: %v", err)
	}

	_, err = manager.RefreshAccessToken(ctx, pair.RefreshToken)
	if !errors.Is(err, ErrRefreshTokenInvalid) {
		t.Fatalf("Expected ErrRefreshTokenInvalid, got %v", err)
	}
	if !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("Expected underlying ErrTokenRevoked, got %v", err)
	}
}

func TestNonExpiringAccessTokens(t *testing.T) {
	manager, _, cleanup := setupManagerTest(t, Config{AccessTTL: -1})
	defer cleanup()

	ctx := context.Background()
	pair, err := manager.GenerateTokenPair(testPrincipal())
	if err != nil {
		t.Fatalf("GenerateTokenPair failed: %v", err)
	}

	if pair.ExpiresIn != -1 {
		t.Errorf("Expected expiresIn -1 for non-expiring config, got %d", pair.ExpiresIn)
	}

	claims, err := manager.parse(pair.AccessToken, false)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if claims.ExpiresAt != nil {
		t.Error("Expected no exp claim on non-expiring token")
	}

	if err := manager.ValidateToken(ctx, pair.AccessToken); err != nil {
		t.Fatalf("Expected non-expiring token to validate: %v", err)
	}

	// Revocation still works; the blacklist entry simply never expires.
	if err := manager.InvalidateToken(ctx, pair.AccessToken); err != nil {
		t.Fatalf("InvalidateToken failed: %v", err)
	}
	if err := manager.ValidateToken(ctx, pair.AccessToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("Expected ErrTokenRevoked, got %v", err)
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "valid"},
		{ErrTokenExpired, "expired"},
		{ErrTokenSignatureInvalid, "signature"},
		{ErrTokenRevoked, "revoked"},
		{ErrWrongTokenType, "wrong_type"},
		{ErrTokenMalformed, "malformed"},
		{errors.New("something else"), "error"},
	}

	for _, tt := range tests {
		if got := ErrorKind(tt.err); got != tt.want {
			t.Errorf("ErrorKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
