package harvest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDomain(t *testing.T) {
	cases := map[string]string{
		"https://Example.com/about":     "example.com",
		"http://sub.example.com:8080/x": "sub.example.com",
		"example.com/pricing":           "example.com",
		"https://example.com?q=1#frag":  "example.com",
	}
	for raw, want := range cases {
		got, err := Domain(raw)
		require.NoError(t, err, "url %q", raw)
		require.Equal(t, want, got, "url %q", raw)
	}

	_, err := Domain("://nope")
	require.Error(t, err)
}

func TestNormalizeURL(t *testing.T) {
	got, err := NormalizeURL("HTTPS://Example.COM:443/path?b=2&a=1#section")
	require.NoError(t, err)
	require.Equal(t, "https://example.com/path?a=1&b=2", got)

	got, err = NormalizeURL("http://example.com:80/")
	require.NoError(t, err)
	require.Equal(t, "http://example.com/", got)
}

func TestSameHost(t *testing.T) {
	require.True(t, SameHost("https://acme.example/a", "https://ACME.example/b"))
	require.False(t, SameHost("https://acme.example", "https://blog.acme.example"))
	require.False(t, SameHost("https://acme.example", "://bad"))
}
