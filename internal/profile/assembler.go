// Package profile assembles a per-domain competitor snapshot from a handful
// of targeted fetches: homepage, a probed about page, and recent blog posts.
package profile

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/marketlens/harvest/internal/fetch"
	"github.com/marketlens/harvest/internal/harvest"
)

// Fetcher is the single-page executor the assembler drives.
type Fetcher interface {
	Fetch(ctx context.Context, spec fetch.Spec) harvest.ScrapedPage
}

// Candidate paths probed in order; the first 200 response wins the category.
var (
	aboutPaths = []string{"/about", "/about-us", "/company", "/who-we-are", "/about-me"}
	blogPaths  = []string{"/blog", "/news", "/articles", "/insights", "/posts"}
)

// Config controls assembly limits.
type Config struct {
	// MaxBlogPosts caps how many same-site blog links are fetched from a
	// discovered blog index.
	MaxBlogPosts int
}

// Assembler builds CompetitorProfiles.
type Assembler struct {
	fetcher Fetcher
	cfg     Config
	logger  *zap.Logger
}

// NewAssembler builds an Assembler.
func NewAssembler(fetcher Fetcher, cfg Config, logger *zap.Logger) *Assembler {
	if cfg.MaxBlogPosts <= 0 {
		cfg.MaxBlogPosts = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{fetcher: fetcher, cfg: cfg, logger: logger}
}

// Assemble fetches the domain's homepage with the given render mode, probes
// for about and blog pages, and extracts contact, social, and technology
// signals. A missing about page or blog is not a failure. Only a failed
// homepage fetch sets the profile's Error field, and even then a minimal
// profile is returned.
func (a *Assembler) Assemble(ctx context.Context, domain string, mode harvest.RenderMode) harvest.CompetitorProfile {
	domain = strings.TrimPrefix(strings.TrimPrefix(domain, "https://"), "http://")
	domain = strings.TrimSuffix(domain, "/")
	base := "https://" + domain

	profile := harvest.CompetitorProfile{Domain: domain}

	homepage := a.fetcher.Fetch(ctx, fetch.Spec{URL: base, Mode: mode})
	profile.Homepage = &homepage
	if !homepage.OK() {
		profile.Error = "homepage fetch failed: " + homepage.Error
		a.logger.Warn("profile homepage failed",
			zap.String("domain", domain),
			zap.String("error", homepage.Error),
		)
		return profile
	}

	if about := a.probe(ctx, base, aboutPaths); about != nil {
		profile.AboutPage = about
	}
	if blogIndex := a.probe(ctx, base, blogPaths); blogIndex != nil {
		profile.BlogPosts = a.fetchBlogPosts(ctx, base, blogIndex)
	}

	pages := []*harvest.ScrapedPage{profile.Homepage, profile.AboutPage}
	profile.ContactInfo = extractContactInfo(pages)
	profile.SocialLinks = extractSocialLinks(homepage.Links)
	profile.Technologies = detectTechnologies(homepage.RawHTML)

	a.logger.Info("profile assembled",
		zap.String("domain", domain),
		zap.Bool("about_found", profile.AboutPage != nil),
		zap.Int("blog_posts", len(profile.BlogPosts)),
	)
	return profile
}

// probe tries candidate paths in order and returns the first page that came
// back with HTTP 200. Misses are expected and not logged above debug.
func (a *Assembler) probe(ctx context.Context, base string, paths []string) *harvest.ScrapedPage {
	for _, path := range paths {
		page := a.fetcher.Fetch(ctx, fetch.Spec{URL: base + path, Mode: harvest.RenderLightweight})
		if page.OK() && page.StatusCode == 200 {
			return &page
		}
		a.logger.Debug("probe miss", zap.String("url", base+path), zap.Int("status", page.StatusCode))
	}
	return nil
}

// fetchBlogPosts pulls same-site links off the blog index and fetches up to
// MaxBlogPosts of them in lightweight mode. Failed posts are dropped rather
// than error-tagged: the profile only carries content that was retrieved.
func (a *Assembler) fetchBlogPosts(ctx context.Context, base string, index *harvest.ScrapedPage) []harvest.ScrapedPage {
	var posts []harvest.ScrapedPage
	seen := map[string]bool{index.URL: true, base: true, base + "/": true}
	for _, link := range index.Links {
		if len(posts) >= a.cfg.MaxBlogPosts {
			break
		}
		if normalized, err := harvest.NormalizeURL(link); err == nil {
			link = normalized
		}
		if seen[link] || !harvest.SameHost(base, link) {
			continue
		}
		seen[link] = true
		page := a.fetcher.Fetch(ctx, fetch.Spec{URL: link, Mode: harvest.RenderLightweight})
		if page.OK() && page.StatusCode == 200 {
			posts = append(posts, page)
		}
	}
	return posts
}
