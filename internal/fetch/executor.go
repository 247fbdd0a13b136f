package fetch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/marketlens/harvest/internal/harvest"
	"github.com/marketlens/harvest/internal/metrics"
	"github.com/marketlens/harvest/internal/robots"
)

// Breaker gates fetch attempts on per-domain health.
type Breaker interface {
	Admit(domain string) error
	RecordSuccess(domain string)
	RecordFailure(domain string)
}

// Throttler paces outbound requests.
type Throttler interface {
	Acquire(ctx context.Context, domain string) error
}

// Spec describes one fetch call.
type Spec struct {
	URL string
	// Mode selects the strategy for this call; empty falls back to the
	// executor default.
	Mode harvest.RenderMode
	// WaitSelector is honored by the rendered strategy only.
	WaitSelector string
}

// ExecutorConfig controls executor-wide behavior.
type ExecutorConfig struct {
	DefaultMode    harvest.RenderMode
	MaxRetries     int
	RetryBaseDelay time.Duration
	// DetectorMinHTMLBytes tunes auto-mode escalation; zero keeps the default.
	DetectorMinHTMLBytes int
}

// Executor performs guarded single-page fetches: circuit breaker, robots
// policy, and throttle run before the network, a retry policy runs around it.
// Fetch always returns exactly one ScrapedPage; failures are error-tagged,
// never raised, so batch callers proceed uninterrupted.
type Executor struct {
	breaker     Breaker
	robots      robots.Policy
	throttle    Throttler
	retry       RetryPolicy
	lightweight Strategy
	rendered    Strategy
	detector    *RenderDetector
	agents      *UserAgentPool
	clock       harvest.Clock
	logger      *zap.Logger
	defaultMode harvest.RenderMode
}

// NewExecutor wires an executor. rendered may be nil, in which case rendered
// and auto-escalated fetches degrade to the lightweight strategy.
func NewExecutor(
	cfg ExecutorConfig,
	breaker Breaker,
	robotsPolicy robots.Policy,
	throttler Throttler,
	lightweight Strategy,
	rendered Strategy,
	agents *UserAgentPool,
	clock harvest.Clock,
	logger *zap.Logger,
) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = harvest.SystemClock{}
	}
	mode := cfg.DefaultMode
	if mode == "" {
		mode = harvest.RenderLightweight
	}
	minBytes := cfg.DetectorMinHTMLBytes
	if minBytes == 0 {
		minBytes = 2000
	}
	return &Executor{
		breaker:     breaker,
		robots:      robotsPolicy,
		throttle:    throttler,
		retry:       NewExponentialRetryPolicy(cfg.MaxRetries, cfg.RetryBaseDelay),
		lightweight: lightweight,
		rendered:    rendered,
		detector:    NewRenderDetector(minBytes),
		agents:      agents,
		clock:       clock,
		logger:      logger,
		defaultMode: mode,
	}
}

// Fetch runs the full guard sequence and returns one ScrapedPage. The page
// carries a non-empty Error instead of content when any step fails.
func (e *Executor) Fetch(ctx context.Context, spec Spec) harvest.ScrapedPage {
	domain, err := harvest.Domain(spec.URL)
	if err != nil {
		return e.errorPage(spec.URL, err)
	}

	if err := e.breaker.Admit(domain); err != nil {
		e.logger.Debug("fetch rejected by circuit breaker",
			zap.String("url", spec.URL),
			zap.String("domain", domain),
		)
		return e.errorPage(spec.URL, err)
	}

	if !e.robots.Allowed(ctx, spec.URL) {
		return e.errorPage(spec.URL, &harvest.RobotsDisallowedError{URL: spec.URL})
	}

	if err := e.throttle.Acquire(ctx, domain); err != nil {
		return e.errorPage(spec.URL, err)
	}

	mode := spec.Mode
	if mode == "" {
		mode = e.defaultMode
	}
	strategy := e.pick(mode)

	raw, err := e.fetchWithRetry(ctx, strategy, spec)
	if err != nil {
		e.breaker.RecordFailure(domain)
		metrics.ObserveFetch(strategy.Name(), false)
		e.logger.Warn("fetch failed",
			zap.String("url", spec.URL),
			zap.String("strategy", strategy.Name()),
			zap.Error(err),
		)
		return e.errorPage(spec.URL, err)
	}

	if mode == harvest.RenderAuto && strategy == e.lightweight && e.rendered != nil &&
		e.detector.NeedsRender(raw.HTML) {
		if promoted, ok := e.promote(ctx, domain, spec); ok {
			raw = promoted
			strategy = e.rendered
		}
	}

	e.breaker.RecordSuccess(domain)
	metrics.ObserveFetch(strategy.Name(), true)
	return Normalize(raw, e.clock.Now(), strategy == e.rendered)
}

// pick maps a render mode onto an available strategy.
func (e *Executor) pick(mode harvest.RenderMode) Strategy {
	if mode == harvest.RenderRendered && e.rendered != nil {
		return e.rendered
	}
	return e.lightweight
}

// promote re-fetches through the rendered strategy after the detector flags a
// JS-dependent page. Promotion failures keep the lightweight result.
func (e *Executor) promote(ctx context.Context, domain string, spec Spec) (RawPage, bool) {
	if err := e.throttle.Acquire(ctx, domain); err != nil {
		return RawPage{}, false
	}
	raw, err := e.fetchWithRetry(ctx, e.rendered, spec)
	if err != nil {
		e.logger.Warn("render promotion failed; keeping lightweight result",
			zap.String("url", spec.URL),
			zap.Error(err),
		)
		return RawPage{}, false
	}
	e.logger.Info("render promotion applied", zap.String("url", spec.URL))
	return raw, true
}

func (e *Executor) fetchWithRetry(ctx context.Context, strategy Strategy, spec Spec) (RawPage, error) {
	req := Request{
		URL:          spec.URL,
		UserAgent:    e.agents.Next(),
		WaitSelector: spec.WaitSelector,
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		raw, err := strategy.Fetch(ctx, req)
		if err == nil {
			return raw, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return RawPage{}, lastErr
		}
		if !e.retry.ShouldRetry(err, attempt) {
			return RawPage{}, lastErr
		}

		metrics.ObserveRetry()
		delay := e.retry.Backoff(attempt)
		e.logger.Debug("retrying fetch",
			zap.String("url", spec.URL),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return RawPage{}, fmt.Errorf("retry backoff canceled: %w", ctx.Err())
		case <-timer.C:
		}
	}
}

func (e *Executor) errorPage(url string, err error) harvest.ScrapedPage {
	return harvest.ScrapedPage{
		URL:       url,
		FetchedAt: e.clock.Now(),
		Error:     err.Error(),
	}
}
