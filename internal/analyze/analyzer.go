// Package analyze computes a deterministic text summary of a fetched page:
// lexicon sentiment, Flesch readability, keyword density, and naive topics.
// Everything here is a pure function of the input text.
package analyze

import (
	"regexp"
	"sort"
	"strings"

	"github.com/marketlens/harvest/internal/harvest"
)

// Config controls analysis thresholds.
type Config struct {
	// MinContentLength is the extracted-text floor, in bytes, below which
	// analysis is skipped.
	MinContentLength int
	// TopKeywords caps the keyword-density and topic lists.
	TopKeywords int
}

func (c Config) withDefaults() Config {
	if c.MinContentLength <= 0 {
		c.MinContentLength = 100
	}
	if c.TopKeywords <= 0 {
		c.TopKeywords = 10
	}
	return c
}

// Analyzer scores page text. It holds no mutable state and is safe for
// concurrent use.
type Analyzer struct {
	cfg Config
}

// NewAnalyzer builds an Analyzer.
func NewAnalyzer(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg.withDefaults()}
}

var (
	tokenPattern    = regexp.MustCompile(`[a-zA-Z][a-zA-Z']*`)
	sentencePattern = regexp.MustCompile(`[.!?]+`)
)

// Analyze summarizes a page's extracted text. The second return value is
// false when the text is shorter than MinContentLength and no analysis was
// performed.
func (a *Analyzer) Analyze(page harvest.ScrapedPage) (harvest.ContentAnalysisResult, bool) {
	text := page.ExtractedText
	if len(text) < a.cfg.MinContentLength {
		return harvest.ContentAnalysisResult{URL: page.URL}, false
	}

	tokens := tokenize(text)
	sentences := countSentences(text)
	polarity, subjectivity := scoreSentiment(tokens)
	density := keywordDensity(tokens, a.cfg.TopKeywords)

	result := harvest.ContentAnalysisResult{
		URL:            page.URL,
		Polarity:       polarity,
		Subjectivity:   subjectivity,
		Readability:    fleschReadingEase(tokens, sentences),
		WordCount:      len(tokens),
		SentenceCount:  sentences,
		KeywordDensity: density,
		Topics:         topicsFromDensity(density),
		HeadingCounts:  headingCounts(page.Headings),
	}
	return result, true
}

func tokenize(text string) []string {
	matches := tokenPattern.FindAllString(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(matches))
	for _, m := range matches {
		tokens = append(tokens, strings.Trim(m, "'"))
	}
	return tokens
}

func countSentences(text string) int {
	n := len(sentencePattern.FindAllString(text, -1))
	if n == 0 {
		n = 1
	}
	return n
}

// fleschReadingEase is 206.835 - 1.015*(words/sentences) - 84.6*(syllables/words),
// clamped to [0, 100].
func fleschReadingEase(tokens []string, sentences int) float64 {
	if len(tokens) == 0 {
		return 0
	}
	syllables := 0
	for _, tok := range tokens {
		syllables += countSyllables(tok)
	}
	words := float64(len(tokens))
	score := 206.835 - 1.015*(words/float64(sentences)) - 84.6*(float64(syllables)/words)
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// countSyllables approximates syllables as vowel groups, discounting a silent
// trailing e. Every word counts at least one.
func countSyllables(word string) int {
	count := 0
	prevVowel := false
	for _, r := range word {
		v := isVowel(r)
		if v && !prevVowel {
			count++
		}
		prevVowel = v
	}
	if strings.HasSuffix(word, "e") && !strings.HasSuffix(word, "le") && count > 1 {
		count--
	}
	if count < 1 {
		count = 1
	}
	return count
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u', 'y':
		return true
	}
	return false
}

// keywordDensity reports the top-N non-stopword tokens (length >= 3) as
// percentages of the total token count.
func keywordDensity(tokens []string, topN int) map[string]float64 {
	if len(tokens) == 0 {
		return nil
	}
	freq := make(map[string]int)
	for _, tok := range tokens {
		if len(tok) < 3 || stopwords[tok] {
			continue
		}
		freq[tok]++
	}
	if len(freq) == 0 {
		return nil
	}

	type entry struct {
		term  string
		count int
	}
	entries := make([]entry, 0, len(freq))
	for term, count := range freq {
		entries = append(entries, entry{term, count})
	}
	// Ties break alphabetically so repeated runs rank identically.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].term < entries[j].term
	})
	if len(entries) > topN {
		entries = entries[:topN]
	}

	total := float64(len(tokens))
	density := make(map[string]float64, len(entries))
	for _, e := range entries {
		density[e.term] = float64(e.count) / total * 100
	}
	return density
}

// topicsFromDensity reinterprets the density ranking as topic/score pairs,
// ordered by score descending with alphabetical tie-breaks.
func topicsFromDensity(density map[string]float64) []harvest.TopicScore {
	if len(density) == 0 {
		return nil
	}
	topics := make([]harvest.TopicScore, 0, len(density))
	for term, score := range density {
		topics = append(topics, harvest.TopicScore{Term: term, Score: score})
	}
	sort.Slice(topics, func(i, j int) bool {
		if topics[i].Score != topics[j].Score {
			return topics[i].Score > topics[j].Score
		}
		return topics[i].Term < topics[j].Term
	})
	return topics
}

func headingCounts(headings map[string][]string) map[string]int {
	if len(headings) == 0 {
		return nil
	}
	counts := make(map[string]int, len(headings))
	for level, items := range headings {
		counts[level] = len(items)
	}
	return counts
}

// scoreSentiment does lexicon scoring over the token stream. Polarity is the
// signed ratio of positive minus negative hits over all sentiment-bearing
// hits, in [-1, 1]. Subjectivity is the share of tokens carrying any
// sentiment or intensity at all, in [0, 1].
func scoreSentiment(tokens []string) (polarity, subjectivity float64) {
	if len(tokens) == 0 {
		return 0, 0
	}
	var positive, negative, subjective int
	negated := false
	for _, tok := range tokens {
		if negators[tok] {
			negated = true
			subjective++
			continue
		}
		switch {
		case positiveWords[tok]:
			subjective++
			if negated {
				negative++
			} else {
				positive++
			}
		case negativeWords[tok]:
			subjective++
			if negated {
				positive++
			} else {
				negative++
			}
		case intensifiers[tok]:
			subjective++
		}
		negated = false
	}

	if positive+negative > 0 {
		polarity = float64(positive-negative) / float64(positive+negative)
	}
	subjectivity = float64(subjective) / float64(len(tokens))
	if subjectivity > 1 {
		subjectivity = 1
	}
	return polarity, subjectivity
}
