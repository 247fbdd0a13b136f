package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
)

// LightweightConfig controls the plain-HTTP strategy.
type LightweightConfig struct {
	Timeout         time.Duration
	MaxConnsPerHost int
}

// LightweightStrategy fetches markup over plain HTTP using a Colly collector
// with a pooled transport. Robots enforcement happens in the executor, so the
// collector's own robots handling is disabled to avoid duplicate policy
// fetches.
type LightweightStrategy struct {
	baseCollector *colly.Collector
	timeout       time.Duration
}

// NewLightweightStrategy builds the strategy.
func NewLightweightStrategy(cfg LightweightConfig) *LightweightStrategy {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	maxConns := cfg.MaxConnsPerHost
	if maxConns <= 0 {
		maxConns = 8
	}

	base := colly.NewCollector(colly.Async(false))
	base.AllowURLRevisit = true
	base.IgnoreRobotsTxt = true
	base.ParseHTTPErrorResponse = true
	base.SetRequestTimeout(cfg.Timeout)
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          128,
		MaxIdleConnsPerHost:   16,
		MaxConnsPerHost:       maxConns,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
	})

	return &LightweightStrategy{
		baseCollector: base,
		timeout:       cfg.Timeout,
	}
}

// Name implements Strategy.
func (s *LightweightStrategy) Name() string { return "lightweight" }

// Fetch retrieves the page once via a cloned collector. Non-2xx statuses are
// returned as data, not errors.
func (s *LightweightStrategy) Fetch(ctx context.Context, req Request) (RawPage, error) {
	collector := s.baseCollector.Clone()
	if req.UserAgent != "" {
		collector.UserAgent = req.UserAgent
	}

	start := time.Now()
	resultCh := make(chan RawPage, 1)
	errCh := make(chan error, 1)
	var once sync.Once

	collector.OnResponse(func(r *colly.Response) {
		once.Do(func() {
			resultCh <- RawPage{
				URL:        req.URL,
				FinalURL:   r.Request.URL.String(),
				StatusCode: r.StatusCode,
				HTML:       string(r.Body),
				Duration:   time.Since(start),
			}
		})
	})
	collector.OnError(func(_ *colly.Response, err error) {
		once.Do(func() {
			if err == nil {
				err = errors.New("unknown collector error")
			}
			errCh <- err
		})
	})

	done := make(chan error, 1)
	go func() {
		visitErr := collector.Visit(req.URL)
		collector.Wait()
		done <- visitErr
	}()

	select {
	case <-ctx.Done():
		return RawPage{}, fmt.Errorf("lightweight fetch canceled: %w", ctx.Err())
	case visitErr := <-done:
		select {
		case page := <-resultCh:
			return page, nil
		case err := <-errCh:
			return RawPage{}, fmt.Errorf("lightweight fetch %s: %w", req.URL, err)
		default:
			if visitErr != nil {
				return RawPage{}, fmt.Errorf("lightweight visit %s: %w", req.URL, visitErr)
			}
			return RawPage{}, fmt.Errorf("lightweight fetch %s produced no result", req.URL)
		}
	}
}
