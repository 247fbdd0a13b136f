// Package engine assembles the harvesting components behind one facade.
package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/marketlens/harvest/internal/analyze"
	"github.com/marketlens/harvest/internal/backlink"
	"github.com/marketlens/harvest/internal/batch"
	"github.com/marketlens/harvest/internal/breaker"
	"github.com/marketlens/harvest/internal/config"
	"github.com/marketlens/harvest/internal/fetch"
	"github.com/marketlens/harvest/internal/harvest"
	"github.com/marketlens/harvest/internal/profile"
	"github.com/marketlens/harvest/internal/robots"
	"github.com/marketlens/harvest/internal/throttle"
)

// Engine is the top-level entry point. One instance owns the shared browser,
// the breaker and throttle state, and the robots cache; it is safe for
// concurrent use.
type Engine struct {
	cfg        config.Config
	executor   *fetch.Executor
	scheduler  *batch.Scheduler
	assembler  *profile.Assembler
	discoverer *backlink.Discoverer
	analyzer   *analyze.Analyzer
	rendered   *fetch.LazyStrategy
	logger     *zap.Logger
}

// New builds an Engine from configuration. The rendered strategy (a shared
// headless browser) launches eagerly when the default render mode is rendered
// or auto, where a launch failure is fatal; with a lightweight default it
// launches on the first per-call rendered fetch, and a launch failure
// error-tags that fetch instead.
func New(cfg config.Config, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	agents := fetch.NewUserAgentPool(cfg.Fetch.RotateUserAgents, cfg.Fetch.CustomUserAgents)

	registry := breaker.NewRegistry(breaker.Config{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		RecoveryTimeout:  cfg.Breaker.RecoveryTimeout,
		HalfOpenMaxCalls: cfg.Breaker.HalfOpenMaxCalls,
	}, logger)

	throttler := throttle.New(throttle.Config{
		MinDelay:    cfg.Throttle.ThrottleDelay,
		GlobalRPS:   cfg.Throttle.GlobalRPS,
		GlobalBurst: cfg.Throttle.GlobalBurst,
	}, logger)

	robotsPolicy := robots.New(cfg.Fetch.RespectRobotsTxt, agents.Primary(), logger)

	lightweight := fetch.NewLightweightStrategy(fetch.LightweightConfig{
		Timeout: cfg.Fetch.DefaultTimeout,
	})

	// The rendered strategy is always wired so explicit per-call rendered
	// fetches work whatever the default mode is. The browser launches on
	// first use; when the default mode itself needs it, launch now so a
	// broken browser install fails construction instead of every fetch.
	rendered := fetch.NewLazyStrategy("rendered", func() (fetch.Strategy, error) {
		s, err := fetch.NewRenderedStrategy(fetch.RenderedConfig{
			NavigationTimeout: cfg.Fetch.NavigationTimeout,
			MaxTabs:           cfg.Fetch.MaxTabs,
		}, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
	defaultMode := harvest.RenderMode(cfg.Fetch.RenderMode)
	if defaultMode == harvest.RenderRendered || defaultMode == harvest.RenderAuto {
		if err := rendered.Start(); err != nil {
			return nil, fmt.Errorf("start rendered strategy: %w", err)
		}
	}

	executor := fetch.NewExecutor(fetch.ExecutorConfig{
		DefaultMode:          defaultMode,
		MaxRetries:           cfg.Fetch.MaxRetries,
		RetryBaseDelay:       cfg.Fetch.RetryBaseDelay,
		DetectorMinHTMLBytes: cfg.Fetch.DetectorMinBytes,
	}, registry, robotsPolicy, throttler, lightweight, rendered, agents, nil, logger)

	indexClient := backlink.NewIndexClient(
		backlink.WithBaseURL(cfg.Backlink.IndexBaseURL),
		backlink.WithAPIKey(cfg.Backlink.APIKey),
	)

	return &Engine{
		cfg:      cfg,
		executor: executor,
		scheduler: batch.NewScheduler(executor, batch.Config{
			MaxConcurrent: cfg.Batch.MaxConcurrent,
			BatchDelay:    cfg.Batch.BatchDelay,
		}, logger),
		assembler: profile.NewAssembler(executor, profile.Config{
			MaxBlogPosts: cfg.Profile.MaxBlogPosts,
		}, logger),
		discoverer: backlink.NewDiscoverer(indexClient, logger),
		analyzer: analyze.NewAnalyzer(analyze.Config{
			MinContentLength: cfg.Analyze.MinContentLength,
			TopKeywords:      cfg.Analyze.TopKeywords,
		}),
		rendered: rendered,
		logger:   logger,
	}, nil
}

// Fetch retrieves a single page. An empty mode uses the configured default.
func (e *Engine) Fetch(ctx context.Context, url string, mode harvest.RenderMode) harvest.ScrapedPage {
	return e.executor.Fetch(ctx, fetch.Spec{URL: url, Mode: mode})
}

// BatchFetch retrieves many pages under bounded concurrency, returning one
// result per URL in input order.
func (e *Engine) BatchFetch(ctx context.Context, urls []string, mode harvest.RenderMode) []harvest.ScrapedPage {
	return e.scheduler.BatchFetch(ctx, urls, mode)
}

// AssembleProfile builds a competitor snapshot for a domain.
func (e *Engine) AssembleProfile(ctx context.Context, domain string, mode harvest.RenderMode) harvest.CompetitorProfile {
	return e.assembler.Assemble(ctx, domain, mode)
}

// DiscoverBacklinks queries the external web index for referring pages. It
// never fails; an unavailable index yields an empty list.
func (e *Engine) DiscoverBacklinks(ctx context.Context, domain string, limit int) []harvest.BacklinkRecord {
	if limit <= 0 {
		limit = e.cfg.Backlink.DefaultLimit
	}
	return e.discoverer.Discover(ctx, domain, limit)
}

// Analyze runs the content analyzer over a fetched page. Returns false when
// analysis is disabled or the page has too little text.
func (e *Engine) Analyze(page harvest.ScrapedPage) (harvest.ContentAnalysisResult, bool) {
	if !e.cfg.Analyze.EnableNLP {
		return harvest.ContentAnalysisResult{URL: page.URL}, false
	}
	return e.analyzer.Analyze(page)
}

// AnalyzeAll analyzes every successfully fetched page in the slice, skipping
// failures and pages below the analyzer's text floor.
func (e *Engine) AnalyzeAll(pages []harvest.ScrapedPage) []harvest.ContentAnalysisResult {
	var results []harvest.ContentAnalysisResult
	for _, page := range pages {
		if !page.OK() {
			continue
		}
		if result, ok := e.Analyze(page); ok {
			results = append(results, result)
		}
	}
	return results
}

// Close releases the shared browser, if one was ever started.
func (e *Engine) Close() {
	e.rendered.Close()
}
