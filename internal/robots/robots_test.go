package robots

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCache_EnforcesDisallow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			fmt.Fprintln(w, "User-agent: *\nDisallow: /private")
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	policy := New(true, "harvest-test", zap.NewNop())
	require.True(t, policy.Allowed(ctx, srv.URL+"/public"))
	require.False(t, policy.Allowed(ctx, srv.URL+"/private/page"))
}

func TestCache_DisabledNeverFetches(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	policy := New(false, "harvest-test", zap.NewNop())
	require.True(t, policy.Allowed(context.Background(), srv.URL+"/anything"))
	require.Equal(t, int32(0), hits.Load())
}

func TestCache_SecondCallWithinTTLUsesCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var robotsHits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			robotsHits.Add(1)
			fmt.Fprintln(w, "User-agent: *\nDisallow: /blocked")
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	policy := New(true, "harvest-test", zap.NewNop())
	require.True(t, policy.Allowed(ctx, srv.URL+"/a"))
	require.True(t, policy.Allowed(ctx, srv.URL+"/b"))
	require.False(t, policy.Allowed(ctx, srv.URL+"/blocked"))
	require.Equal(t, int32(1), robotsHits.Load())
}

func TestCache_ExpiredEntryRefetches(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var robotsHits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			robotsHits.Add(1)
			fmt.Fprintln(w, "User-agent: *\nAllow: /")
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	policy := New(true, "harvest-test", zap.NewNop())
	cache, ok := policy.(*Cache)
	require.True(t, ok)

	now := time.Now()
	cache.nowFunc = func() time.Time { return now }

	require.True(t, policy.Allowed(ctx, srv.URL+"/a"))
	require.Equal(t, int32(1), robotsHits.Load())

	now = now.Add(25 * time.Hour)
	require.True(t, policy.Allowed(ctx, srv.URL+"/a"))
	require.Equal(t, int32(2), robotsHits.Load())
}

func TestCache_FullyDisallowedSiteBlocksBareHostURL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			fmt.Fprintln(w, "User-agent: *\nDisallow: /")
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	policy := New(true, "harvest-test", zap.NewNop())
	// srv.URL has no trailing slash; the homepage must still be blocked.
	require.False(t, policy.Allowed(ctx, srv.URL))
	require.False(t, policy.Allowed(ctx, srv.URL+"/"))
	require.False(t, policy.Allowed(ctx, srv.URL+"/anything"))
}

func TestCache_ConcurrentFirstCallsShareOneFetch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var robotsHits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			robotsHits.Add(1)
			time.Sleep(50 * time.Millisecond) // hold callers in flight
			fmt.Fprintln(w, "User-agent: *\nDisallow: /blocked")
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	policy := New(true, "harvest-test", zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.True(t, policy.Allowed(ctx, srv.URL+"/open"))
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), robotsHits.Load())
}

func TestCache_UnreachableRobotsFailsOpen(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	addr := srv.URL
	srv.Close() // connection refused from here on

	policy := New(true, "harvest-test", zap.NewNop())
	require.True(t, policy.Allowed(context.Background(), addr+"/whatever"))
}

func TestCache_SlowRobotsFailsOpen(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			time.Sleep(2 * time.Second)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	policy := New(true, "harvest-test", zap.NewNop())
	cache, ok := policy.(*Cache)
	require.True(t, ok)
	cache.client.Timeout = 100 * time.Millisecond

	require.True(t, policy.Allowed(context.Background(), srv.URL+"/page"))
}
