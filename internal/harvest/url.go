package harvest

import (
	"fmt"
	"net/url"
	"strings"
)

// Domain extracts the lowercased hostname from a raw URL. Scheme-less inputs
// like "example.com/about" are treated as https.
func Domain(rawURL string) (string, error) {
	raw := rawURL
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", rawURL, err)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("url %q has no host", rawURL)
	}
	return host, nil
}

// NormalizeURL standardizes a URL to avoid duplicate fetches: lowercases the
// scheme and host, strips default ports and fragments, and sorts query
// parameters.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if u.Scheme == "http" {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	u.Fragment = ""
	u.RawQuery = u.Query().Encode()

	return u.String(), nil
}

// SameHost reports whether two URLs share a hostname, ignoring case.
func SameHost(a, b string) bool {
	ha, errA := Domain(a)
	hb, errB := Domain(b)
	if errA != nil || errB != nil {
		return false
	}
	return ha == hb
}
