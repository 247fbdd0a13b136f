// Package throttle enforces per-domain request spacing and a global rate cap.
package throttle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/marketlens/harvest/internal/metrics"
)

// Config controls throttling behavior.
type Config struct {
	// MinDelay is the minimum interval between successive requests to the
	// same domain.
	MinDelay time.Duration
	// GlobalRPS caps the aggregate request rate across all domains. Zero or
	// negative disables the global bucket.
	GlobalRPS float64
	// GlobalBurst is the token bucket capacity. Defaults to 1.
	GlobalBurst int
}

// domainSlot tracks the last request start for one domain. The slot mutex is
// held across the check, the wait, and the timestamp update so two callers
// can never both pass the spacing check.
type domainSlot struct {
	mu          sync.Mutex
	lastRequest time.Time
}

// Throttle spaces requests per domain and meters them globally. Safe for
// concurrent use.
type Throttle struct {
	minDelay time.Duration
	global   *rate.Limiter
	logger   *zap.Logger

	mu    sync.Mutex
	slots map[string]*domainSlot

	nowFunc func() time.Time
}

// New builds a Throttle from cfg.
func New(cfg Config, logger *zap.Logger) *Throttle {
	if logger == nil {
		logger = zap.NewNop()
	}
	var global *rate.Limiter
	if cfg.GlobalRPS > 0 {
		burst := cfg.GlobalBurst
		if burst <= 0 {
			burst = 1
		}
		global = rate.NewLimiter(rate.Limit(cfg.GlobalRPS), burst)
	}
	return &Throttle{
		minDelay: cfg.MinDelay,
		global:   global,
		logger:   logger,
		slots:    make(map[string]*domainSlot),
		nowFunc:  time.Now,
	}
}

func (t *Throttle) slot(domain string) *domainSlot {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.slots[domain]
	if !ok {
		s = &domainSlot{}
		t.slots[domain] = s
	}
	return s
}

// Acquire blocks until the caller may issue a request to domain: first a
// token from the global bucket, then the per-domain minimum spacing. The
// domain's last-request timestamp is updated to the post-wait time before the
// slot is released.
func (t *Throttle) Acquire(ctx context.Context, domain string) error {
	start := t.nowFunc()

	if t.global != nil {
		if err := t.global.Wait(ctx); err != nil {
			return fmt.Errorf("global rate limit wait: %w", err)
		}
	}

	s := t.slot(domain)
	s.mu.Lock()
	defer s.mu.Unlock()

	now := t.nowFunc()
	if t.minDelay > 0 && !s.lastRequest.IsZero() {
		if wait := t.minDelay - now.Sub(s.lastRequest); wait > 0 {
			t.logger.Debug("throttling domain",
				zap.String("domain", domain),
				zap.Duration("wait", wait),
			)
			if err := sleepWithContext(ctx, wait); err != nil {
				return err
			}
			now = t.nowFunc()
		}
	}
	s.lastRequest = now

	metrics.ObserveThrottleWait(now.Sub(start))
	return nil
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("throttle wait canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
