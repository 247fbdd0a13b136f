package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIsTransient(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"conn reset", syscall.ECONNRESET, true},
		{"conn aborted", syscall.ECONNABORTED, true},
		{"net timeout", timeoutErr{}, true},
		{"dns", &net.DNSError{Err: "no such host", Name: "x", IsNotFound: true}, false},
		{"tls record", tls.RecordHeaderError{Msg: "first record does not look like a TLS handshake"}, false},
		{"wrapped reset", errors.New("read tcp 1.2.3.4:443: connection reset by peer"), true},
		{"generic", errors.New("boom"), false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, IsTransient(tc.err))
		})
	}
}

func TestExponentialRetryPolicy_ShouldRetry(t *testing.T) {
	t.Parallel()

	p := NewExponentialRetryPolicy(2, 10*time.Millisecond)

	require.True(t, p.ShouldRetry(timeoutErr{}, 0))
	require.True(t, p.ShouldRetry(timeoutErr{}, 1))
	require.False(t, p.ShouldRetry(timeoutErr{}, 2), "attempt budget exhausted")
	require.False(t, p.ShouldRetry(nil, 0))
	require.False(t, p.ShouldRetry(&net.DNSError{Err: "nope", Name: "x"}, 0))
}

func TestExponentialRetryPolicy_BackoffGrowsAndCaps(t *testing.T) {
	t.Parallel()

	p := NewExponentialRetryPolicy(10, 100*time.Millisecond)

	for attempt := 0; attempt < 10; attempt++ {
		d := p.Backoff(attempt)
		require.Positive(t, d)
		require.LessOrEqual(t, d, 10*time.Second)
	}

	// Later attempts should not back off less than the base delay's half.
	require.GreaterOrEqual(t, p.Backoff(5), 50*time.Millisecond)
}
