package captcha

import (
	"context"
	"errors"
	"image/color"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mojocn/base64Captcha"

	"github.com/wardenhq/warden/pkg/cache"
)

// stubDriver returns a fixed question/answer pair
type stubDriver struct {
	question string
	answer   string
}

func (d *stubDriver) GenerateIdQuestionAnswer() (string, string, string) {
	return "id", d.question, d.answer
}

func (d *stubDriver) DrawCaptcha(content string) (base64Captcha.Item, error) {
	return base64Captcha.NewItemChar(140, 48, color.RGBA{R: 255, G: 255, B: 255, A: 255}), nil
}

func setupCaptchaTest(t *testing.T, driver base64Captcha.Driver, ttl time.Duration) (*Service, *miniredis.Miniredis, func()) {
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

	svc := NewService(driver, store, ttl)
	cleanup := func() {
		store.Close()
		mr.Close()
	}
	return svc, mr, cleanup
}

func TestIssueAndVerify(t *testing.T) {
	svc, _, cleanup := setupCaptchaTest(t, &stubDriver{question: "AB7K", answer: "AB7K"}, time.Minute)
	defer cleanup()

	ctx := context.Background()
	ch, err := svc.Issue(ctx)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if ch.Key == "" {
		t.Fatal("Expected non-empty challenge key")
	}
	if ch.ImageBase64 == "" {
		t.Fatal("Expected rendered image")
	}

	if err := svc.Verify(ctx, ch.Key, "AB7K"); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
}

func TestVerify_CaseInsensitive(t *testing.T) {
	svc, _, cleanup := setupCaptchaTest(t, &stubDriver{question: "AB7K", answer: "AB7K"}, time.Minute)
	defer cleanup()

	ctx := context.Background()
	ch, err := svc.Issue(ctx)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if err := svc.Verify(ctx, ch.Key, "ab7k"); err != nil {
		t.Fatalf("Expected lower-cased code to verify: %v", err)
	}
}

func TestVerify_TrimsWhitespace(t *testing.T) {
	svc, _, cleanup := setupCaptchaTest(t, &stubDriver{question: "AB7K", answer: "AB7K"}, time.Minute)
	defer cleanup()

	ctx := context.Background()
	ch, _ := svc.Issue(ctx)

	if err := svc.Verify(ctx, ch.Key, "  AB7K "); err != nil {
		t.Fatalf("Expected padded code to verify: %v", err)
	}
}

func TestVerify_ConsumedOnSuccess(t *testing.T) {
	svc, _, cleanup := setupCaptchaTest(t, &stubDriver{question: "AB7K", answer: "AB7K"}, time.Minute)
	defer cleanup()

	ctx := context.Background()
	ch, _ := svc.Issue(ctx)

	if err := svc.Verify(ctx, ch.Key, "AB7K"); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	// Second use of the same challenge must fail: it was consumed.
	if err := svc.Verify(ctx, ch.Key, "AB7K"); !errors.Is(err, ErrChallengeExpired) {
		t.Fatalf("Expected ErrChallengeExpired on replay, got %v", err)
	}
}

func TestVerify_WrongCodeLeavesChallenge(t *testing.T) {
	svc, _, cleanup := setupCaptchaTest(t, &stubDriver{question: "AB7K", answer: "AB7K"}, time.Minute)
	defer cleanup()

	ctx := context.Background()
	ch, _ := svc.Issue(ctx)

	if err := svc.Verify(ctx, ch.Key, "WRONG"); !errors.Is(err, ErrCodeMismatch) {
		t.Fatalf("Expected ErrCodeMismatch, got %v", err)
	}

	// A failed attempt must not consume the challenge.
	if err := svc.Verify(ctx, ch.Key, "AB7K"); err != nil {
		t.Fatalf("Expected retry with correct code to verify: %v", err)
	}
}

func TestVerify_Expired(t *testing.T) {
	svc, mr, cleanup := setupCaptchaTest(t, &stubDriver{question: "AB7K", answer: "AB7K"}, time.Minute)
	defer cleanup()

	ctx := context.Background()
	ch, _ := svc.Issue(ctx)

	mr.FastForward(2 * time.Minute)

	if err := svc.Verify(ctx, ch.Key, "AB7K"); !errors.Is(err, ErrChallengeExpired) {
		t.Fatalf("Expected ErrChallengeExpired after TTL, got %v", err)
	}
}

func TestVerify_UnknownKey(t *testing.T) {
	svc, _, cleanup := setupCaptchaTest(t, &stubDriver{question: "AB7K", answer: "AB7K"}, time.Minute)
	defer cleanup()

	if err := svc.Verify(context.Background(), "no-such-key", "AB7K"); !errors.Is(err, ErrChallengeExpired) {
		t.Fatalf("Expected ErrChallengeExpired for unknown key, got %v", err)
	}
}

func TestIssue_MathDriver(t *testing.T) {
	svc, _, cleanup := setupCaptchaTest(t, NewDriver(DriverMath, 0), time.Minute)
	defer cleanup()

	ctx := context.Background()
	ch, err := svc.Issue(ctx)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if !strings.HasPrefix(ch.ImageBase64, "data:image/png;base64,") {
		t.Errorf("Expected PNG data URI, got prefix %q", ch.ImageBase64[:min(len(ch.ImageBase64), 30)])
	}
}

func TestIssue_StringDriver(t *testing.T) {
	svc, _, cleanup := setupCaptchaTest(t, NewDriver(DriverString, 5), time.Minute)
	defer cleanup()

	ch, err := svc.Issue(context.Background())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if ch.ImageBase64 == "" {
		t.Error("Expected rendered image")
	}
}
