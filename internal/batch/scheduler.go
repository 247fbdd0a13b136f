// Package batch runs many fetches under bounded concurrency with an
// order-preserving, one-result-per-URL guarantee.
package batch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/marketlens/harvest/internal/fetch"
	"github.com/marketlens/harvest/internal/harvest"
)

// Fetcher is the single-page executor the scheduler fans out over.
type Fetcher interface {
	Fetch(ctx context.Context, spec fetch.Spec) harvest.ScrapedPage
}

// Config controls scheduler pacing.
type Config struct {
	// MaxConcurrent bounds in-flight fetches.
	MaxConcurrent int
	// BatchDelay is inserted between waves of MaxConcurrent dispatches to
	// avoid synchronized bursts across domains.
	BatchDelay time.Duration
}

// Scheduler fans a URL list out over a worker pool.
type Scheduler struct {
	fetcher Fetcher
	cfg     Config
	logger  *zap.Logger
}

// NewScheduler builds a Scheduler.
func NewScheduler(fetcher Fetcher, cfg Config, logger *zap.Logger) *Scheduler {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{fetcher: fetcher, cfg: cfg, logger: logger}
}

// BatchFetch fetches every URL and returns exactly one ScrapedPage per input,
// in input order. Individual failures are error-tagged results; a context
// deadline turns not-yet-completed fetches into error-tagged results as well.
// No URL is dropped and none is duplicated.
func (s *Scheduler) BatchFetch(ctx context.Context, urls []string, mode harvest.RenderMode) []harvest.ScrapedPage {
	results := make([]harvest.ScrapedPage, len(urls))
	if len(urls) == 0 {
		return results
	}

	batchID := uuid.NewString()
	start := time.Now()
	s.logger.Info("batch started",
		zap.String("batch_id", batchID),
		zap.Int("urls", len(urls)),
		zap.Int("max_concurrent", s.cfg.MaxConcurrent),
	)

	g := &errgroup.Group{}
	g.SetLimit(s.cfg.MaxConcurrent)

	for i, rawURL := range urls {
		i, rawURL := i, rawURL
		if s.cfg.BatchDelay > 0 && i > 0 && i%s.cfg.MaxConcurrent == 0 {
			pause(ctx, s.cfg.BatchDelay)
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = harvest.ScrapedPage{
					URL:       rawURL,
					FetchedAt: time.Now(),
					Error:     "batch deadline exceeded: " + err.Error(),
				}
				return nil
			}
			results[i] = s.fetcher.Fetch(ctx, fetch.Spec{URL: rawURL, Mode: mode})
			return nil
		})
	}

	// Fetch never propagates an error; Wait only synchronizes the pool.
	_ = g.Wait()

	succeeded := 0
	for _, r := range results {
		if r.OK() {
			succeeded++
		}
	}
	s.logger.Info("batch finished",
		zap.String("batch_id", batchID),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", len(urls)-succeeded),
		zap.Duration("elapsed", time.Since(start)),
	)
	return results
}

func pause(ctx context.Context, delay time.Duration) {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
