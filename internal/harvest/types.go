// Package harvest defines the core types shared across the harvesting engine.
package harvest

import "time"

// RenderMode selects the fetch strategy for a single fetch call.
type RenderMode string

// Render modes accepted by the executor. Auto probes with the lightweight
// strategy first and escalates to the rendered strategy when the page looks
// JavaScript-dependent.
const (
	RenderLightweight RenderMode = "lightweight"
	RenderRendered    RenderMode = "rendered"
	RenderAuto        RenderMode = "auto"
)

// ScrapedPage is the normalized result of one fetch attempt. Exactly one is
// produced per attempt: on failure the content fields are empty and Error is
// populated. A produced page is never mutated afterwards.
type ScrapedPage struct {
	URL             string              `json:"url"`
	RawHTML         string              `json:"raw_html,omitempty"`
	ExtractedText   string              `json:"extracted_text,omitempty"`
	Title           string              `json:"title,omitempty"`
	MetaDescription string              `json:"meta_description,omitempty"`
	MetaKeywords    string              `json:"meta_keywords,omitempty"`
	Headings        map[string][]string `json:"headings,omitempty"`
	Links           []string            `json:"links,omitempty"`
	Images          []string            `json:"images,omitempty"`
	StatusCode      int                 `json:"status_code"`
	ResponseTimeMs  int64               `json:"response_time_ms"`
	FetchedAt       time.Time           `json:"fetched_at"`
	Error           string              `json:"error,omitempty"`
	Rendered        bool                `json:"rendered"`
}

// OK reports whether the fetch behind this page succeeded at the network level.
func (p ScrapedPage) OK() bool {
	return p.Error == ""
}

// ContactInfo holds contact signals extracted from page text.
type ContactInfo struct {
	Emails []string `json:"emails,omitempty"`
	Phones []string `json:"phones,omitempty"`
}

// CompetitorProfile aggregates the pages and signals collected for one domain.
// Partial fields are expected: a missing about page or blog simply leaves the
// corresponding field empty. Error is set only when the homepage fetch failed
// at the network level.
type CompetitorProfile struct {
	Domain       string            `json:"domain"`
	Homepage     *ScrapedPage      `json:"homepage,omitempty"`
	AboutPage    *ScrapedPage      `json:"about_page,omitempty"`
	BlogPosts    []ScrapedPage     `json:"blog_posts,omitempty"`
	ContactInfo  ContactInfo       `json:"contact_info"`
	SocialLinks  map[string]string `json:"social_links,omitempty"`
	Technologies []string          `json:"technologies,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// TopicScore pairs a topic term with its relative weight.
type TopicScore struct {
	Term  string  `json:"term"`
	Score float64 `json:"score"`
}

// ContentAnalysisResult is the deterministic NLP summary of one page's text.
type ContentAnalysisResult struct {
	URL            string             `json:"url"`
	Topics         []TopicScore       `json:"topics,omitempty"`
	Polarity       float64            `json:"polarity"`
	Subjectivity   float64            `json:"subjectivity"`
	Readability    float64            `json:"readability"`
	WordCount      int                `json:"word_count"`
	SentenceCount  int                `json:"sentence_count"`
	HeadingCounts  map[string]int     `json:"heading_counts,omitempty"`
	KeywordDensity map[string]float64 `json:"keyword_density,omitempty"`
}

// BacklinkRecord describes one referring page discovered in an external index.
type BacklinkRecord struct {
	TargetDomain    string    `json:"target_domain"`
	ReferringDomain string    `json:"referring_domain"`
	ReferringURL    string    `json:"referring_url"`
	AnchorText      string    `json:"anchor_text,omitempty"`
	DiscoveredAt    time.Time `json:"discovered_at"`
	Snippet         string    `json:"snippet,omitempty"`
}
