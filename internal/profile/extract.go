package profile

import (
	"regexp"
	"sort"
	"strings"

	"github.com/marketlens/harvest/internal/harvest"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?\d[\d\s().\-]{7,}\d`)
)

// socialPlatforms is the allow-list of hosts recognized as social profiles.
// Only the first matching link per platform is kept.
var socialPlatforms = map[string][]string{
	"facebook":  {"facebook.com"},
	"twitter":   {"twitter.com", "x.com"},
	"linkedin":  {"linkedin.com"},
	"instagram": {"instagram.com"},
	"youtube":   {"youtube.com"},
	"github":    {"github.com"},
	"tiktok":    {"tiktok.com"},
}

// techSignatures maps markup substrings to a technology label.
var techSignatures = []struct {
	marker string
	name   string
}{
	{"wp-content", "WordPress"},
	{"wp-includes", "WordPress"},
	{"cdn.shopify.com", "Shopify"},
	{"__NEXT_DATA__", "Next.js"},
	{"data-reactroot", "React"},
	{"ng-version", "Angular"},
	{"__NUXT__", "Nuxt"},
	{"static.squarespace.com", "Squarespace"},
	{"static.wixstatic.com", "Wix"},
	{"js.hs-scripts.com", "HubSpot"},
	{"googletagmanager.com", "Google Tag Manager"},
	{"cdn.segment.com", "Segment"},
	{"assets.calendly.com", "Calendly"},
}

// extractContactInfo scans the text of the given pages for email addresses
// and phone numbers. Nil pages are skipped. Results are deduplicated and
// sorted for stable output.
func extractContactInfo(pages []*harvest.ScrapedPage) harvest.ContactInfo {
	emailSet := map[string]bool{}
	phoneSet := map[string]bool{}
	for _, page := range pages {
		if page == nil {
			continue
		}
		text := page.ExtractedText + " " + page.RawHTML
		for _, m := range emailPattern.FindAllString(text, -1) {
			emailSet[strings.ToLower(m)] = true
		}
		for _, m := range phonePattern.FindAllString(page.ExtractedText, -1) {
			if digits := countDigits(m); digits >= 8 && digits <= 15 {
				phoneSet[strings.TrimSpace(m)] = true
			}
		}
	}
	return harvest.ContactInfo{
		Emails: sortedKeys(emailSet),
		Phones: sortedKeys(phoneSet),
	}
}

// extractSocialLinks matches outbound links against the platform allow-list.
func extractSocialLinks(links []string) map[string]string {
	found := map[string]string{}
	for _, link := range links {
		host, err := harvest.Domain(link)
		if err != nil {
			continue
		}
		for platform, hosts := range socialPlatforms {
			if _, ok := found[platform]; ok {
				continue
			}
			for _, h := range hosts {
				if host == h || strings.HasSuffix(host, "."+h) {
					found[platform] = link
					break
				}
			}
		}
	}
	if len(found) == 0 {
		return nil
	}
	return found
}

// detectTechnologies fingerprints the raw markup with substring signatures.
func detectTechnologies(rawHTML string) []string {
	if rawHTML == "" {
		return nil
	}
	seen := map[string]bool{}
	var techs []string
	for _, sig := range techSignatures {
		if seen[sig.name] {
			continue
		}
		if strings.Contains(rawHTML, sig.marker) {
			seen[sig.name] = true
			techs = append(techs, sig.name)
		}
	}
	return techs
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
