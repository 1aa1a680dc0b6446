// Package captcha issues and verifies short-lived image challenges gating
// the login endpoint.
//
// Rendering is delegated to base64Captcha drivers (arithmetic or random
// characters); the expected answer is stored under an unguessable key in the
// shared cache with a fixed TTL. Verification is case-insensitive and
// consumes the challenge on success, while failed attempts leave the entry
// in place so the user can retry until the TTL runs out.
package captcha

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mojocn/base64Captcha"

	"github.com/wardenhq/warden/pkg/cache"
)

var (
	// ErrChallengeExpired is returned when the key is unknown or the
	// challenge's TTL has elapsed.
	ErrChallengeExpired = errors.New("captcha: challenge expired")

	// ErrCodeMismatch is returned when the submitted code does not match.
	ErrCodeMismatch = errors.New("captcha: code mismatch")
)

// Driver kinds selectable via configuration.
const (
	DriverMath   = "math"
	DriverString = "string"
)

// alphanumeric code alphabet, ambiguous glyphs removed
const codeSource = "234567890abcdefghjkmnpqrstuvwxyz"

// Challenge is the issued captcha as returned to clients.
type Challenge struct {
	Key         string `json:"captchaKey"`
	ImageBase64 string `json:"captchaImageBase64"`
}

// NewDriver builds a rendering driver of the given kind. length applies to
// the random-character driver; the arithmetic driver always renders one
// expression.
func NewDriver(kind string, length int) base64Captcha.Driver {
	if length <= 0 {
		length = 4
	}
	switch kind {
	case DriverMath:
		return base64Captcha.NewDriverMath(48, 140, 0, base64Captcha.OptionShowHollowLine, nil, nil, nil)
	default:
		return base64Captcha.NewDriverString(48, 140, 0, base64Captcha.OptionShowHollowLine, length, codeSource, nil, nil, nil)
	}
}

// Service issues and verifies captcha challenges.
type Service struct {
	driver base64Captcha.Driver
	store  cache.Store
	ttl    time.Duration
	prefix string
}

// NewService creates a captcha service over the shared cache.
func NewService(driver base64Captcha.Driver, store cache.Store, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Service{
		driver: driver,
		store:  store,
		ttl:    ttl,
		prefix: "captcha:",
	}
}

// Issue generates a challenge, stores the expected answer under a fresh
// opaque key and returns the rendered image.
func (s *Service) Issue(ctx context.Context) (*Challenge, error) {
	_, question, answer := s.driver.GenerateIdQuestionAnswer()

	item, err := s.driver.DrawCaptcha(question)
	if err != nil {
		return nil, fmt.Errorf("render captcha: %w", err)
	}

	key := uuid.NewString()
	if err := s.store.Set(ctx, s.prefix+key, answer, s.ttl); err != nil {
		return nil, fmt.Errorf("store captcha answer: %w", err)
	}

	return &Challenge{
		Key:         key,
		ImageBase64: item.EncodeB64string(),
	}, nil
}

// Verify compares the submitted code against the stored answer. Comparison
// is case-insensitive; the arithmetic driver stores the evaluated result so
// the same comparison covers both kinds. The entry is deleted only on
// success.
func (s *Service) Verify(ctx context.Context, key, submitted string) error {
	expected, err := s.store.Get(ctx, s.prefix+key)
	if errors.Is(err, cache.ErrNotFound) {
		return ErrChallengeExpired
	}
	if err != nil {
		return fmt.Errorf("load captcha answer: %w", err)
	}

	if !strings.EqualFold(strings.TrimSpace(submitted), expected) {
		return ErrCodeMismatch
	}

	// Consume the challenge so a verified code cannot be replayed.
	if err := s.store.Del(ctx, s.prefix+key); err != nil {
		return fmt.Errorf("consume captcha: %w", err)
	}
	return nil
}
