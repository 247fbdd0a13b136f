// Package fetch executes guarded, retried page fetches and normalizes the
// results into harvest.ScrapedPage records.
package fetch

import (
	"context"
	"time"
)

// Request carries everything a strategy needs to fetch one page.
type Request struct {
	URL       string
	UserAgent string
	// WaitSelector, when non-empty, makes the rendered strategy wait for the
	// selector to appear before snapshotting the DOM. Ignored by the
	// lightweight strategy.
	WaitSelector string
}

// RawPage is the unnormalized output of a single strategy fetch.
type RawPage struct {
	URL        string
	FinalURL   string
	StatusCode int
	HTML       string
	Duration   time.Duration
}

// Strategy fetches a URL's markup. Implementations: lightweight (plain HTTP)
// and rendered (headless browser).
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, req Request) (RawPage, error)
}
