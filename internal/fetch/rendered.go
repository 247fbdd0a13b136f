package fetch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// RenderedConfig controls the headless-browser strategy.
type RenderedConfig struct {
	NavigationTimeout time.Duration
	MaxTabs           int
}

// RenderedStrategy drives a single long-lived headless browser. Each fetch
// opens an isolated tab, navigates, optionally waits for a selector, and
// snapshots the DOM. The tab is closed on every exit path.
type RenderedStrategy struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	sem           chan struct{}
	timeout       time.Duration
	logger        *zap.Logger
}

// NewRenderedStrategy launches the shared browser. A launch failure is fatal
// to the caller: without a browser the rendered mode cannot exist.
func NewRenderedStrategy(cfg RenderedConfig, logger *zap.Logger) (*RenderedStrategy, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 45 * time.Second
	}
	if cfg.MaxTabs <= 0 {
		cfg.MaxTabs = 4
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("launch headless browser: %w", err)
	}
	logger.Info("headless browser launched", zap.Int("max_tabs", cfg.MaxTabs))

	return &RenderedStrategy{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		sem:           make(chan struct{}, cfg.MaxTabs),
		timeout:       cfg.NavigationTimeout,
		logger:        logger,
	}, nil
}

// Close tears down the browser and its allocator.
func (s *RenderedStrategy) Close() {
	if s == nil {
		return
	}
	s.browserCancel()
	s.allocCancel()
}

// Name implements Strategy.
func (s *RenderedStrategy) Name() string { return "rendered" }

// Fetch renders the page in a fresh tab. The deferred cancels guarantee the
// tab is released on success, timeout, and error alike.
func (s *RenderedStrategy) Fetch(ctx context.Context, req Request) (RawPage, error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return RawPage{}, fmt.Errorf("acquire browser tab: %w", ctx.Err())
	}
	defer func() { <-s.sem }()

	tabCtx, cancelTab := chromedp.NewContext(s.browserCtx)
	defer cancelTab()

	taskCtx, cancelTask := context.WithTimeout(tabCtx, s.timeout)
	defer cancelTask()

	stop := forwardCancel(ctx, cancelTask)
	defer stop()

	meta := newResponseMeta()
	chromedp.ListenTarget(tabCtx, meta.captureEvent)

	start := time.Now()
	html, finalURL, err := s.runTab(taskCtx, req)
	if err != nil {
		return RawPage{}, fmt.Errorf("rendered fetch %s: %w", req.URL, err)
	}

	status, responseURL := meta.snapshotWithFallbacks(req.URL, finalURL)
	return RawPage{
		URL:        req.URL,
		FinalURL:   responseURL,
		StatusCode: status,
		HTML:       html,
		Duration:   time.Since(start),
	}, nil
}

func (s *RenderedStrategy) runTab(ctx context.Context, req Request) (string, string, error) {
	var (
		html     string
		finalURL string
	)
	actions := []chromedp.Action{
		network.Enable(),
	}
	if req.UserAgent != "" {
		actions = append(actions, emulation.SetUserAgentOverride(req.UserAgent))
	}
	actions = append(actions,
		chromedp.Navigate(req.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if req.WaitSelector != "" {
		actions = append(actions, chromedp.WaitVisible(req.WaitSelector, chromedp.ByQuery))
	}
	actions = append(actions,
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err := chromedp.Run(ctx, actions...); err != nil {
		return "", "", fmt.Errorf("chromedp run: %w", err)
	}
	return html, finalURL, nil
}

// forwardCancel propagates cancellation of the caller's context into the tab
// task without tying the tab's lifetime to it.
func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}

// responseMeta captures the document response status from CDP events.
type responseMeta struct {
	once   sync.Once
	status int
	url    string
}

func newResponseMeta() *responseMeta {
	return &responseMeta{}
}

func (m *responseMeta) captureEvent(ev any) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	m.once.Do(func() {
		m.status = int(resp.Response.Status)
		m.url = resp.Response.URL
	})
}

func (m *responseMeta) snapshotWithFallbacks(requestURL, finalURL string) (int, string) {
	url := m.url
	switch {
	case url != "":
	case finalURL != "":
		url = finalURL
	default:
		url = requestURL
	}
	status := m.status
	if status == 0 {
		status = 200
	}
	return status, url
}
