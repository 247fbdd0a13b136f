package backlink

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/marketlens/harvest/internal/harvest"
)

const snippetLimit = 280

// Discoverer finds pages that reference a target domain.
type Discoverer struct {
	client  IndexClient
	logger  *zap.Logger
	nowFunc func() time.Time
}

// NewDiscoverer builds a Discoverer around an index client.
func NewDiscoverer(client IndexClient, logger *zap.Logger) *Discoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discoverer{client: client, logger: logger, nowFunc: time.Now}
}

// Discover queries the index for pages mentioning the domain and returns up
// to limit referring records, excluding hits on the domain itself. Any index
// failure is logged and yields an empty list. Callers never see an error.
func (d *Discoverer) Discover(ctx context.Context, domain string, limit int) []harvest.BacklinkRecord {
	if limit <= 0 {
		limit = 20
	}
	target, err := harvest.Domain(domain)
	if err != nil {
		d.logger.Warn("backlink discovery skipped", zap.String("domain", domain), zap.Error(err))
		return nil
	}

	// Over-fetch so that same-domain hits can be filtered out and the
	// caller still gets close to limit records.
	results, err := d.client.Search(ctx, "\""+target+"\"", limit*2)
	if err != nil {
		d.logger.Warn("backlink index unavailable",
			zap.String("domain", target),
			zap.Error(err),
		)
		return nil
	}

	now := d.nowFunc()
	var records []harvest.BacklinkRecord
	for _, hit := range results {
		if len(records) >= limit {
			break
		}
		referrer, err := harvest.Domain(hit.URL)
		if err != nil || referrer == target {
			continue
		}
		records = append(records, harvest.BacklinkRecord{
			TargetDomain:    target,
			ReferringDomain: referrer,
			ReferringURL:    hit.URL,
			AnchorText:      hit.Title,
			DiscoveredAt:    now,
			Snippet:         snippet(hit),
		})
	}

	d.logger.Info("backlink discovery finished",
		zap.String("domain", target),
		zap.Int("records", len(records)),
	)
	return records
}

func snippet(hit IndexResult) string {
	s := hit.Description
	if s == "" {
		s = hit.Content
	}
	if len(s) > snippetLimit {
		s = s[:snippetLimit]
	}
	return s
}
