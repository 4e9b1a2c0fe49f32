package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/picosretail/pos-terminal/pkg/config"
	"github.com/picosretail/pos-terminal/pkg/logger"
)

func testToken(t *testing.T, ttl time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "cashier",
		"exp": time.Now().Add(ttl).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return signed
}

type countingRefresher struct {
	calls atomic.Int32
	err   error
}

func (c *countingRefresher) RefreshNow(ctx context.Context) error {
	c.calls.Add(1)
	return c.err
}

func testValidator(store Store, refresher Refresher) *Validator {
	return NewValidator(store, refresher, logger.New(logger.Options{ServiceName: "test"}), config.SessionConfig{
		RefreshInterval: 5 * time.Millisecond,
		ExpiryThreshold: time.Minute,
	})
}

func TestTokenExpiryDecodesClaim(t *testing.T) {
	t.Parallel()

	expiry, err := TokenExpiry(testToken(t, time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if remaining := time.Until(expiry); remaining < 59*time.Minute || remaining > time.Hour {
		t.Fatalf("unexpected remaining lifetime %v", remaining)
	}

	if _, err := TokenExpiry("not-a-jwt"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}

func TestCheckOnceSkipsWhenUnauthenticated(t *testing.T) {
	t.Parallel()

	refresher := &countingRefresher{}
	v := testValidator(NewMemoryStore(), refresher)

	v.checkOnce(context.Background())
	if refresher.calls.Load() != 0 {
		t.Fatal("refresh must not run without credentials")
	}
}

func TestCheckOnceSkipsFreshToken(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	if err := store.Set(context.Background(), Credentials{
		AccessToken:  testToken(t, time.Hour),
		RefreshToken: "r",
	}); err != nil {
		t.Fatalf("set: %v", err)
	}

	refresher := &countingRefresher{}
	v := testValidator(store, refresher)

	v.checkOnce(context.Background())
	if refresher.calls.Load() != 0 {
		t.Fatal("refresh must not run while the token has remaining lifetime")
	}
}

func TestCheckOnceRefreshesNearExpiry(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	if err := store.Set(context.Background(), Credentials{
		AccessToken:  testToken(t, 10*time.Second),
		RefreshToken: "r",
	}); err != nil {
		t.Fatalf("set: %v", err)
	}

	refresher := &countingRefresher{}
	v := testValidator(store, refresher)

	v.checkOnce(context.Background())
	if refresher.calls.Load() != 1 {
		t.Fatalf("expected one refresh, got %d", refresher.calls.Load())
	}
}

func TestStartStopDoesNotLeak(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	if err := store.Set(context.Background(), Credentials{
		AccessToken:  testToken(t, 5*time.Second),
		RefreshToken: "r",
	}); err != nil {
		t.Fatalf("set: %v", err)
	}

	refresher := &countingRefresher{}
	v := testValidator(store, refresher)

	v.Start(context.Background())

	deadline := time.After(time.Second)
	for refresher.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("validator never triggered a refresh")
		case <-time.After(time.Millisecond):
		}
	}

	v.Stop()
	v.Stop() // idempotent
}
