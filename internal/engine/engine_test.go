package engine

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marketlens/harvest/internal/config"
	"github.com/marketlens/harvest/internal/harvest"
)

func testConfig() config.Config {
	return config.Config{
		Fetch: config.FetchConfig{
			DefaultTimeout:   5 * time.Second,
			MaxRetries:       1,
			RetryBaseDelay:   10 * time.Millisecond,
			RespectRobotsTxt: false,
			RenderMode:       "lightweight",
			RotateUserAgents: true,
		},
		Throttle: config.ThrottleConfig{
			ThrottleDelay: 10 * time.Millisecond,
			GlobalRPS:     100,
			GlobalBurst:   10,
		},
		Breaker: config.BreakerConfig{
			FailureThreshold: 5,
			RecoveryTimeout:  time.Minute,
			HalfOpenMaxCalls: 1,
		},
		Batch: config.BatchConfig{MaxConcurrent: 3},
		Analyze: config.AnalyzeConfig{
			EnableNLP:        true,
			MinContentLength: 20,
			TopKeywords:      5,
		},
		Profile:  config.ProfileConfig{MaxBlogPosts: 3},
		Backlink: config.BacklinkConfig{IndexBaseURL: "http://127.0.0.1:0", DefaultLimit: 10},
	}
}

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Landing</title></head>`+
			`<body><h1>Welcome</h1><p>`+strings.Repeat("Useful marketing copy. ", 5)+`</p></body></html>`)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestEngineFetchAndAnalyze(t *testing.T) {
	srv := testServer(t)
	eng, err := New(testConfig(), nil)
	require.NoError(t, err)
	defer eng.Close()

	page := eng.Fetch(context.Background(), srv.URL, harvest.RenderLightweight)

	require.True(t, page.OK())
	require.Equal(t, 200, page.StatusCode)
	require.Equal(t, "Landing", page.Title)
	require.Contains(t, page.ExtractedText, "Useful marketing copy")

	result, ok := eng.Analyze(page)
	require.True(t, ok)
	require.Positive(t, result.WordCount)
}

func TestEngineExplicitRenderedIsNeverServedLightweight(t *testing.T) {
	srv := testServer(t)
	eng, err := New(testConfig(), nil) // default mode is lightweight
	require.NoError(t, err)
	defer eng.Close()

	page := eng.Fetch(context.Background(), srv.URL, harvest.RenderRendered)

	// Depending on whether a browser can launch here, the fetch either goes
	// through the rendered strategy or fails; it must never come back as a
	// success-tagged lightweight page.
	if page.OK() {
		require.True(t, page.Rendered)
	} else {
		require.NotEmpty(t, page.Error)
	}
}

func TestEngineBatchFetchPreservesOrder(t *testing.T) {
	srv := testServer(t)
	eng, err := New(testConfig(), nil)
	require.NoError(t, err)
	defer eng.Close()

	urls := []string{srv.URL + "/", srv.URL + "/missing", srv.URL + "/"}
	pages := eng.BatchFetch(context.Background(), urls, harvest.RenderLightweight)

	require.Len(t, pages, 3)
	require.Equal(t, urls[0], pages[0].URL)
	require.Equal(t, 200, pages[0].StatusCode)
	// A 404 is data, not a failure.
	require.Equal(t, 404, pages[1].StatusCode)
	require.True(t, pages[1].OK())
	require.Equal(t, 200, pages[2].StatusCode)
}

func TestEngineAnalyzeDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Analyze.EnableNLP = false
	eng, err := New(cfg, nil)
	require.NoError(t, err)
	defer eng.Close()

	_, ok := eng.Analyze(harvest.ScrapedPage{
		URL:           "https://example.com",
		ExtractedText: strings.Repeat("plenty of text here ", 10),
	})

	require.False(t, ok)
}

func TestEngineAnalyzeAllSkipsFailedPages(t *testing.T) {
	eng, err := New(testConfig(), nil)
	require.NoError(t, err)
	defer eng.Close()

	text := strings.Repeat("analytics dashboards and reporting pipelines ", 4)
	pages := []harvest.ScrapedPage{
		{URL: "https://a.example", ExtractedText: text},
		{URL: "https://b.example", Error: "request timed out"},
		{URL: "https://c.example", ExtractedText: "tiny"},
	}

	results := eng.AnalyzeAll(pages)

	require.Len(t, results, 1)
	require.Equal(t, "https://a.example", results[0].URL)
}

func TestEngineDiscoverBacklinksSoftFailure(t *testing.T) {
	cfg := testConfig()
	// Point the index at a closed port so the query fails fast.
	cfg.Backlink.IndexBaseURL = "http://127.0.0.1:1"
	eng, err := New(cfg, nil)
	require.NoError(t, err)
	defer eng.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	records := eng.DiscoverBacklinks(ctx, "acme.example", 5)

	require.Empty(t, records)
}
