package analyze

// Compact lexicons for sentiment and stopword filtering. Kept small on
// purpose: the scoring only needs directional signal, not linguistic
// coverage.

var positiveWords = wordSet(
	"good", "great", "excellent", "amazing", "awesome", "best", "better",
	"love", "loved", "happy", "wonderful", "fantastic", "perfect", "positive",
	"success", "successful", "win", "winning", "easy", "helpful", "improve",
	"improved", "innovative", "leading", "powerful", "reliable", "trusted",
	"fast", "efficient", "quality", "valuable", "beautiful", "delight",
	"recommend", "recommended", "outstanding", "superior", "impressive",
)

var negativeWords = wordSet(
	"bad", "worse", "worst", "terrible", "awful", "horrible", "hate",
	"hated", "poor", "negative", "fail", "failed", "failure", "problem",
	"problems", "difficult", "hard", "slow", "broken", "bug", "bugs",
	"error", "errors", "expensive", "disappointing", "disappointed",
	"useless", "wrong", "weak", "ugly", "confusing", "frustrating",
)

var intensifiers = wordSet(
	"very", "really", "extremely", "absolutely", "totally", "completely",
	"highly", "incredibly", "quite", "especially", "particularly",
)

var negators = wordSet(
	"not", "no", "never", "neither", "nor", "cannot", "can't", "won't",
	"don't", "doesn't", "didn't", "isn't", "aren't", "wasn't", "weren't",
)

var stopwords = wordSet(
	"the", "and", "for", "are", "but", "not", "you", "all", "any", "can",
	"had", "her", "was", "one", "our", "out", "day", "get", "has", "him",
	"his", "how", "man", "new", "now", "old", "see", "two", "way", "who",
	"its", "did", "yes", "your", "from", "they", "know", "want", "been",
	"much", "some", "time", "very", "when", "come", "here", "just", "like",
	"long", "make", "many", "more", "only", "over", "such", "take", "than",
	"them", "well", "were", "will", "with", "have", "this", "that", "what",
	"which", "their", "there", "about", "would", "these", "other", "into",
	"could", "because", "also", "after", "before", "while", "where", "being",
	"each", "most", "should", "does", "then", "through", "between", "both",
	"under", "same", "during",
)

func wordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
