package fetch

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// jsAppKeywords are markup signatures of client-rendered applications.
var jsAppKeywords = []string{
	"__NEXT_DATA__",
	"data-reactroot",
	"ng-app",
	"window.__APOLLO_STATE__",
	"window.__NUXT__",
}

// RenderDetector decides whether a lightweight fetch result looks
// JavaScript-dependent and should be escalated to the rendered strategy.
type RenderDetector struct {
	minHTMLBytes int
	keywords     []string
}

// NewRenderDetector constructs a detector. minHTMLBytes below which a body is
// considered suspiciously empty; zero disables the size check.
func NewRenderDetector(minHTMLBytes int) *RenderDetector {
	return &RenderDetector{
		minHTMLBytes: minHTMLBytes,
		keywords:     jsAppKeywords,
	}
}

// NeedsRender inspects the fetched markup for signals that the visible
// content is assembled in the browser.
func (d *RenderDetector) NeedsRender(html string) bool {
	if d == nil || html == "" {
		return false
	}
	if d.minHTMLBytes > 0 && len(html) < d.minHTMLBytes {
		return true
	}
	lower := strings.ToLower(html)
	for _, kw := range d.keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return d.emptyBody(html)
}

func (d *RenderDetector) emptyBody(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	body := doc.Find("body")
	if body.Length() == 0 {
		return false
	}
	text := strings.TrimSpace(body.Text())
	return len(text) < 40 && body.Find("script").Length() > 0
}
