package pipeline

import (
	"math"
	"regexp"
	"strings"
)

// TokenVector is the sparse term-frequency representation of one article's
// normalized title and snippet. Derived per run, never persisted.
type TokenVector map[string]int

var urlPattern = regexp.MustCompile(`[a-z][a-z0-9+.-]*://\S+`)

// stopWords is intentionally small: articles, prepositions and the common
// auxiliary verbs that dominate headline text.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"of": {}, "in": {}, "on": {}, "at": {}, "to": {}, "for": {},
	"with": {}, "by": {}, "from": {}, "as": {}, "is": {}, "are": {},
	"was": {}, "were": {}, "be": {}, "been": {}, "has": {}, "have": {},
	"had": {}, "it": {}, "its": {}, "this": {}, "that": {}, "will": {},
}

// BuildVector reduces an article's title and optional snippet to a bag of
// stemmed, stop-word-filtered token counts.
func BuildVector(title, snippet string) TokenVector {
	text := strings.ToLower(strings.TrimSpace(title + " " + snippet))
	if text == "" {
		return TokenVector{}
	}

	text = urlPattern.ReplaceAllString(text, " ")
	// Possessives are handled before punctuation stripping so "fed's" does
	// not leave a stray single-letter token.
	text = strings.ReplaceAll(text, "'s", " ")

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	vector := TokenVector{}
	for _, token := range strings.Fields(b.String()) {
		stemmed := stemToken(token)
		if len(stemmed) < 2 {
			continue
		}
		if _, stopped := stopWords[stemmed]; stopped {
			continue
		}
		vector[stemmed]++
	}
	return vector
}

// stemToken applies the crude suffix-stripping heuristic the similarity
// threshold was calibrated against. It is deliberately not a dictionary
// stemmer; swapping it for a real one changes clustering outcomes.
func stemToken(token string) string {
	switch {
	case strings.HasSuffix(token, "ing") && len(token) > 5:
		return token[:len(token)-3]
	case strings.HasSuffix(token, "ed") && len(token) > 4:
		return token[:len(token)-2]
	case hasSibilantESSuffix(token) && len(token) > 4:
		return token[:len(token)-2]
	case strings.HasSuffix(token, "s") && !strings.HasSuffix(token, "ss") && len(token) > 3:
		return token[:len(token)-1]
	default:
		return token
	}
}

func hasSibilantESSuffix(token string) bool {
	for _, suffix := range []string{"ses", "xes", "zes", "ches", "shes"} {
		if strings.HasSuffix(token, suffix) {
			return true
		}
	}
	return false
}

// CosineSimilarity computes the cosine of two sparse term-frequency
// vectors. Returns 0 when either vector is empty or has a zero norm.
func CosineSimilarity(a, b TokenVector) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	// Iterate the smaller map for the dot product.
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}

	dot := 0
	for token, count := range small {
		if other, ok := large[token]; ok {
			dot += count * other
		}
	}
	if dot == 0 {
		return 0
	}

	normA := vectorNorm(a)
	normB := vectorNorm(b)
	if normA == 0 || normB == 0 {
		return 0
	}
	return float64(dot) / (normA * normB)
}

func vectorNorm(v TokenVector) float64 {
	sum := 0
	for _, count := range v {
		sum += count * count
	}
	return math.Sqrt(float64(sum))
}

// addInto accumulates src into dst elementwise.
func addInto(dst, src TokenVector) {
	for token, count := range src {
		dst[token] += count
	}
}
