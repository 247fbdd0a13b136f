package fetch

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/marketlens/harvest/internal/harvest"
)

var headingLevels = []string{"h1", "h2", "h3", "h4", "h5", "h6"}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Normalize parses a raw fetch result into an immutable ScrapedPage. Markup
// that fails to parse still yields a page carrying the raw HTML; only the
// structured fields stay empty.
func Normalize(raw RawPage, fetchedAt time.Time, rendered bool) harvest.ScrapedPage {
	page := harvest.ScrapedPage{
		URL:            raw.URL,
		RawHTML:        raw.HTML,
		StatusCode:     raw.StatusCode,
		ResponseTimeMs: raw.Duration.Milliseconds(),
		FetchedAt:      fetchedAt,
		Rendered:       rendered,
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw.HTML))
	if err != nil {
		return page
	}

	base := raw.FinalURL
	if base == "" {
		base = raw.URL
	}
	baseURL, _ := url.Parse(base)

	page.Title = cleanText(doc.Find("title").First().Text())
	page.MetaDescription = metaContent(doc, "description")
	page.MetaKeywords = metaContent(doc, "keywords")
	page.Headings = extractHeadings(doc)
	page.Links = extractAttrs(doc, "a[href]", "href", baseURL)
	page.Images = extractAttrs(doc, "img[src]", "src", baseURL)
	page.ExtractedText = extractText(doc)

	return page
}

func metaContent(doc *goquery.Document, name string) string {
	var content string
	doc.Find("meta[name]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.EqualFold(s.AttrOr("name", ""), name) {
			content = strings.TrimSpace(s.AttrOr("content", ""))
			return false
		}
		return true
	})
	return content
}

func extractHeadings(doc *goquery.Document) map[string][]string {
	headings := make(map[string][]string)
	for _, level := range headingLevels {
		doc.Find(level).Each(func(_ int, s *goquery.Selection) {
			if text := cleanText(s.Text()); text != "" {
				headings[level] = append(headings[level], text)
			}
		})
	}
	if len(headings) == 0 {
		return nil
	}
	return headings
}

func extractAttrs(doc *goquery.Document, selector, attr string, base *url.URL) []string {
	var out []string
	seen := make(map[string]struct{})
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		val := strings.TrimSpace(s.AttrOr(attr, ""))
		if val == "" || strings.HasPrefix(val, "javascript:") || strings.HasPrefix(val, "data:") {
			return
		}
		if base != nil {
			if ref, err := url.Parse(val); err == nil {
				val = base.ResolveReference(ref).String()
			}
		}
		if _, ok := seen[val]; ok {
			return
		}
		seen[val] = struct{}{}
		out = append(out, val)
	})
	return out
}

func extractText(doc *goquery.Document) string {
	clone := doc.Find("body").Clone()
	clone.Find("script, style, noscript, iframe").Remove()
	return cleanText(clone.Text())
}

func cleanText(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}
