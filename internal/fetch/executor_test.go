package fetch

import (
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/marketlens/harvest/internal/harvest"
)

type fakeBreaker struct {
	mu        sync.Mutex
	admitErr  error
	successes []string
	failures  []string
}

func (b *fakeBreaker) Admit(string) error { return b.admitErr }

func (b *fakeBreaker) RecordSuccess(domain string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.successes = append(b.successes, domain)
}

func (b *fakeBreaker) RecordFailure(domain string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = append(b.failures, domain)
}

type fakeThrottle struct {
	mu       sync.Mutex
	acquires int
}

func (t *fakeThrottle) Acquire(context.Context, string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.acquires++
	return nil
}

type staticRobots struct{ allowed bool }

func (r staticRobots) Allowed(context.Context, string) bool { return r.allowed }

type scriptedStrategy struct {
	mu       sync.Mutex
	name     string
	fails    int
	failWith error
	page     RawPage
	attempts int
}

func (s *scriptedStrategy) Name() string { return s.name }

func (s *scriptedStrategy) Fetch(_ context.Context, req Request) (RawPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.attempts <= s.fails {
		return RawPage{}, s.failWith
	}
	page := s.page
	if page.URL == "" {
		page.URL = req.URL
	}
	return page, nil
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "dial tcp: i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func newTestExecutor(t *testing.T, breaker Breaker, policy staticRobots, strategy Strategy, rendered Strategy) (*Executor, *fakeThrottle) {
	t.Helper()
	throttle := &fakeThrottle{}
	exec := NewExecutor(
		ExecutorConfig{MaxRetries: 2, RetryBaseDelay: time.Millisecond},
		breaker,
		policy,
		throttle,
		strategy,
		rendered,
		NewUserAgentPool(false, nil),
		harvest.SystemClock{},
		zap.NewNop(),
	)
	return exec, throttle
}

func TestExecutor_SuccessNormalizesPage(t *testing.T) {
	t.Parallel()

	const html = `<html><head><title>Widgets Inc</title>
<meta name="description" content="We sell widgets.">
</head><body><h1>Widgets</h1><p>Industrial widgets for everyone.</p>
<a href="/about">About</a></body></html>`

	strategy := &scriptedStrategy{
		name: "lightweight",
		page: RawPage{FinalURL: "https://widgets.example/", StatusCode: 200, HTML: html, Duration: 30 * time.Millisecond},
	}
	breaker := &fakeBreaker{}
	exec, _ := newTestExecutor(t, breaker, staticRobots{allowed: true}, strategy, nil)

	page := exec.Fetch(context.Background(), Spec{URL: "https://widgets.example/"})

	require.Empty(t, page.Error)
	require.Equal(t, "Widgets Inc", page.Title)
	require.Equal(t, "We sell widgets.", page.MetaDescription)
	require.Equal(t, []string{"Widgets"}, page.Headings["h1"])
	require.Contains(t, page.Links, "https://widgets.example/about")
	require.Equal(t, 200, page.StatusCode)
	require.Equal(t, []string{"widgets.example"}, breaker.successes)
	require.Empty(t, breaker.failures)
}

func TestExecutor_RetriesTransientThenSucceeds(t *testing.T) {
	t.Parallel()

	strategy := &scriptedStrategy{
		name:     "lightweight",
		fails:    2,
		failWith: timeoutErr{},
		page:     RawPage{StatusCode: 200, HTML: "<html><body>ok</body></html>"},
	}
	breaker := &fakeBreaker{}
	exec, _ := newTestExecutor(t, breaker, staticRobots{allowed: true}, strategy, nil)

	page := exec.Fetch(context.Background(), Spec{URL: "https://flaky.example/"})

	require.Empty(t, page.Error)
	require.Equal(t, 3, strategy.attempts)
	require.Len(t, breaker.successes, 1)
}

func TestExecutor_ExhaustedRetriesYieldErrorPage(t *testing.T) {
	t.Parallel()

	strategy := &scriptedStrategy{
		name:     "lightweight",
		fails:    10,
		failWith: timeoutErr{},
	}
	breaker := &fakeBreaker{}
	exec, _ := newTestExecutor(t, breaker, staticRobots{allowed: true}, strategy, nil)

	page := exec.Fetch(context.Background(), Spec{URL: "https://down.example/page"})

	require.NotEmpty(t, page.Error)
	require.Empty(t, page.ExtractedText)
	require.Empty(t, page.Title)
	require.Equal(t, "https://down.example/page", page.URL)
	require.Equal(t, 3, strategy.attempts) // initial + MaxRetries
	require.Equal(t, []string{"down.example"}, breaker.failures)
	require.Empty(t, breaker.successes)
}

func TestExecutor_NonRetryableFailsImmediately(t *testing.T) {
	t.Parallel()

	strategy := &scriptedStrategy{
		name:  "lightweight",
		fails: 10,
		failWith: &net.DNSError{
			Err:        "no such host",
			Name:       "down.example",
			IsNotFound: true,
		},
	}
	breaker := &fakeBreaker{}
	exec, _ := newTestExecutor(t, breaker, staticRobots{allowed: true}, strategy, nil)

	page := exec.Fetch(context.Background(), Spec{URL: "https://down.example/"})

	require.NotEmpty(t, page.Error)
	require.Equal(t, 1, strategy.attempts)
}

func TestExecutor_CircuitOpenSkipsNetwork(t *testing.T) {
	t.Parallel()

	strategy := &scriptedStrategy{name: "lightweight"}
	breaker := &fakeBreaker{admitErr: &harvest.CircuitOpenError{Domain: "dead.example"}}
	exec, throttle := newTestExecutor(t, breaker, staticRobots{allowed: true}, strategy, nil)

	page := exec.Fetch(context.Background(), Spec{URL: "https://dead.example/"})

	require.Contains(t, page.Error, "circuit open")
	require.Zero(t, strategy.attempts)
	require.Zero(t, throttle.acquires)
	require.Empty(t, breaker.failures, "a rejected admit must not count as a failure")
}

func TestExecutor_RobotsDisallowedZeroRetries(t *testing.T) {
	t.Parallel()

	strategy := &scriptedStrategy{name: "lightweight"}
	breaker := &fakeBreaker{}
	exec, throttle := newTestExecutor(t, breaker, staticRobots{allowed: false}, strategy, nil)

	page := exec.Fetch(context.Background(), Spec{URL: "https://polite.example/admin"})

	require.Contains(t, page.Error, "robots.txt disallows")
	require.Zero(t, strategy.attempts)
	require.Zero(t, throttle.acquires)
	require.Empty(t, breaker.failures)
}

func TestExecutor_AutoModePromotesJSApps(t *testing.T) {
	t.Parallel()

	sparse := `<html><head><script>window.__APOLLO_STATE__={}</script></head><body><div id="root"></div><script src="app.js"></script></body></html>`
	full := `<html><head><title>Hydrated</title></head><body><h1>Real content</h1><p>` +
		strings.Repeat("rendered text ", 50) + `</p></body></html>`

	light := &scriptedStrategy{name: "lightweight", page: RawPage{StatusCode: 200, HTML: sparse}}
	rendered := &scriptedStrategy{name: "rendered", page: RawPage{StatusCode: 200, HTML: full}}
	breaker := &fakeBreaker{}
	exec, throttle := newTestExecutor(t, breaker, staticRobots{allowed: true}, light, rendered)

	page := exec.Fetch(context.Background(), Spec{URL: "https://spa.example/", Mode: harvest.RenderAuto})

	require.Empty(t, page.Error)
	require.True(t, page.Rendered)
	require.Equal(t, "Hydrated", page.Title)
	require.Equal(t, 1, light.attempts)
	require.Equal(t, 1, rendered.attempts)
	require.Equal(t, 2, throttle.acquires, "promotion issues a second throttled request")
}

func TestExecutor_ExplicitModeIsPerCall(t *testing.T) {
	t.Parallel()

	light := &scriptedStrategy{name: "lightweight", page: RawPage{StatusCode: 200, HTML: "<html><body>light</body></html>"}}
	rendered := &scriptedStrategy{name: "rendered", page: RawPage{StatusCode: 200, HTML: "<html><body>heavy</body></html>"}}
	exec, _ := newTestExecutor(t, &fakeBreaker{}, staticRobots{allowed: true}, light, rendered)

	first := exec.Fetch(context.Background(), Spec{URL: "https://mix.example/", Mode: harvest.RenderRendered})
	second := exec.Fetch(context.Background(), Spec{URL: "https://mix.example/blog/post", Mode: harvest.RenderLightweight})

	require.True(t, first.Rendered)
	require.False(t, second.Rendered)
	require.Equal(t, 1, light.attempts)
	require.Equal(t, 1, rendered.attempts)
}

func TestExecutor_NonSuccessStatusIsDataNotError(t *testing.T) {
	t.Parallel()

	strategy := &scriptedStrategy{
		name: "lightweight",
		page: RawPage{StatusCode: 404, HTML: "<html><body>not found</body></html>"},
	}
	breaker := &fakeBreaker{}
	exec, _ := newTestExecutor(t, breaker, staticRobots{allowed: true}, strategy, nil)

	page := exec.Fetch(context.Background(), Spec{URL: "https://gone.example/missing"})

	require.Empty(t, page.Error)
	require.Equal(t, 404, page.StatusCode)
	require.Len(t, breaker.successes, 1)
}
