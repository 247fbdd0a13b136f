// Package robots enforces robots.txt crawl policy with a per-domain TTL cache.
package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/marketlens/harvest/internal/metrics"
)

// Policy answers whether a URL may be fetched.
type Policy interface {
	Allowed(ctx context.Context, rawURL string) bool
}

const (
	defaultTTL          = 24 * time.Hour
	defaultFetchTimeout = 10 * time.Second
	maxRobotsBytes      = 1 << 20
)

// cacheEntry is a wholesale-replaced snapshot of one domain's parsed policy.
type cacheEntry struct {
	data      *robotstxt.RobotsData
	expiresAt time.Time
}

// Cache fetches, parses, and caches robots.txt per domain. A policy older
// than the TTL is refetched; any fetch or parse failure fails open so an
// unreachable robots file never blocks harvesting.
type Cache struct {
	client    *http.Client
	userAgent string
	ttl       time.Duration
	logger    *zap.Logger

	mu      sync.Mutex
	entries map[string]cacheEntry
	flight  singleflight.Group

	nowFunc func() time.Time
}

// New builds a Policy. When respect is false the returned policy always
// allows and never touches the network.
func New(respect bool, userAgent string, logger *zap.Logger) Policy {
	if !respect {
		return allowAll{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		client:    &http.Client{Timeout: defaultFetchTimeout},
		userAgent: userAgent,
		ttl:       defaultTTL,
		logger:    logger,
		entries:   make(map[string]cacheEntry),
		nowFunc:   time.Now,
	}
}

// Allowed implements Policy.
func (c *Cache) Allowed(ctx context.Context, rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return false
	}
	data, err := c.load(ctx, parsed)
	if err != nil {
		c.logger.Warn("robots fetch failed; failing open",
			zap.String("host", parsed.Host),
			zap.Error(err),
		)
		return true
	}
	group := data.FindGroup(c.userAgent)
	if group == nil {
		return true
	}
	testPath := parsed.Path
	if testPath == "" {
		testPath = "/"
	}
	return group.Test(testPath)
}

func (c *Cache) load(ctx context.Context, parsed *url.URL) (*robotstxt.RobotsData, error) {
	hostKey := strings.ToLower(parsed.Host)

	if data, ok := c.cached(hostKey); ok {
		return data, nil
	}

	// Concurrent first-time callers for one host share a single fetch.
	v, err, _ := c.flight.Do(hostKey, func() (any, error) {
		if data, ok := c.cached(hostKey); ok {
			return data, nil
		}
		data, err := c.fetch(ctx, parsed)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[hostKey] = cacheEntry{data: data, expiresAt: c.nowFunc().Add(c.ttl)}
		c.mu.Unlock()
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*robotstxt.RobotsData), nil
}

func (c *Cache) cached(hostKey string) (*robotstxt.RobotsData, bool) {
	c.mu.Lock()
	entry, ok := c.entries[hostKey]
	c.mu.Unlock()
	if ok && c.nowFunc().Before(entry.expiresAt) {
		return entry.data, true
	}
	return nil, false
}

func (c *Cache) fetch(ctx context.Context, parsed *url.URL) (*robotstxt.RobotsData, error) {
	robotsURL := *parsed
	robotsURL.Path = path.Join("/", "robots.txt")
	robotsURL.RawQuery = ""
	robotsURL.Fragment = ""

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("new robots request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	metrics.ObserveRobotsFetch()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug("close robots response body", zap.Error(cerr))
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return nil, fmt.Errorf("read robots body: %w", err)
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots: %w", err)
	}
	return data, nil
}

type allowAll struct{}

func (allowAll) Allowed(context.Context, string) bool { return true }
