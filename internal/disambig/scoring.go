package disambig

import (
	"strings"
)

// Scorer rates how well a stored candidate value matches the user's input.
// Scores are in [0, 1] with 1 meaning identical. Strategies are pluggable
// so exact, edit-distance, and token-overlap matching can be combined
// without changing the disambiguator's control flow.
type Scorer interface {
	Name() string
	Score(candidate, input string) float64
}

// EditDistanceScorer scores by normalized Levenshtein distance, catching
// typos and small spelling drift.
type EditDistanceScorer struct{}

func (EditDistanceScorer) Name() string { return "edit_distance" }

func (EditDistanceScorer) Score(candidate, input string) float64 {
	a := normalize(candidate)
	b := normalize(input)
	if a == b {
		return 1
	}
	longest := max(len(a), len(b))
	if longest == 0 {
		return 0
	}
	return 1 - float64(levenshtein(a, b))/float64(longest)
}

// TokenOverlapScorer scores by Jaccard overlap of whitespace-separated
// tokens, catching reordered or partially specified names
// ("Acme Corp" vs "corp acme").
type TokenOverlapScorer struct{}

func (TokenOverlapScorer) Name() string { return "token_overlap" }

func (TokenOverlapScorer) Score(candidate, input string) float64 {
	a := tokenSet(candidate)
	b := tokenSet(input)
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for tok := range b {
		if _, ok := a[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(normalize(s)) {
		set[tok] = struct{}{}
	}
	return set
}

func levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
