package session

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/picosretail/pos-terminal/pkg/config"
	"github.com/picosretail/pos-terminal/pkg/logger"
)

// Refresher is the surface the validator shares with the transport layer so
// proactive and reactive refreshes coalesce on the same in-flight call.
type Refresher interface {
	RefreshNow(ctx context.Context) error
}

// Validator renews the access token ahead of expiry instead of waiting for a
// request to bounce. The reactive retry path in transport remains the
// correctness backstop for races and clock skew; this loop only reduces how
// often it fires.
type Validator struct {
	store     Store
	refresher Refresher
	logg      *logger.Logger
	interval  time.Duration
	threshold time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewValidator(store Store, refresher Refresher, logg *logger.Logger, cfg config.SessionConfig) *Validator {
	return &Validator{
		store:     store,
		refresher: refresher,
		logg:      logg,
		interval:  cfg.RefreshInterval,
		threshold: cfg.ExpiryThreshold,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the renewal loop. It checks once immediately, then on every
// tick. Stop (or ctx cancellation) terminates the loop so timers never leak
// across login/logout cycles.
func (v *Validator) Start(ctx context.Context) {
	go func() {
		defer close(v.done)

		v.checkOnce(ctx)

		ticker := time.NewTicker(v.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-v.stop:
				return
			case <-ticker.C:
				v.checkOnce(ctx)
			}
		}
	}()
}

// Stop tears down the loop and waits for it to exit. Safe to call more than
// once.
func (v *Validator) Stop() {
	v.stopOnce.Do(func() { close(v.stop) })
	<-v.done
}

func (v *Validator) checkOnce(ctx context.Context) {
	creds, ok := v.store.Get()
	if !ok || creds.AccessToken == "" {
		return
	}

	expiry, err := TokenExpiry(creds.AccessToken)
	if err != nil {
		v.logg.Warn(ctx, "access token has no readable expiry claim")
		return
	}

	if time.Until(expiry) >= v.threshold {
		return
	}

	if err := v.refresher.RefreshNow(ctx); err != nil {
		// The refresher already tore the session down; nothing to retry here.
		v.logg.Error(ctx, "proactive token refresh failed", err)
		return
	}
	v.logg.Debug(ctx, "access token refreshed ahead of expiry")
}

// TokenExpiry decodes the exp claim without verifying the signature. The
// client holds no signing secret; verification is the server's job.
func TokenExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, err
	}
	expiry, err := claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return time.Time{}, jwt.ErrTokenRequiredClaimMissing
	}
	return expiry.Time, nil
}
