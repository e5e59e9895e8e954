package search

import (
	"fmt"
	"regexp"
	"strings"
)

// explicitFixes are literal pattern-to-replacement corrections for known
// domain typos, applied before the fuzzy pass.
var explicitFixes = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`(?i)\bnetwoth\b`), "net worth"},
	{regexp.MustCompile(`(?i)\bnetworth\b`), "net worth"},
	{regexp.MustCompile(`(?i)\bnet-worth\b`), "net worth"},
}

// vocabulary is the small domain word list used for conservative token-level
// correction.
var vocabulary = []string{"net", "worth", "networth", "net worth", "wealth", "elon", "musk"}

// similarityCutoff is the minimum score for a fuzzy token replacement.
const similarityCutoff = 0.85

// Correction is the outcome of normalizing a raw query.
type Correction struct {
	Corrected string
	Changed   bool
	// Hint is a human-readable suggestion, empty when nothing changed.
	Hint string
}

// CleanText collapses whitespace runs to single spaces and trims.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Normalize cleans the query and applies conservative typo correction:
// literal fixes first, then per-token fuzzy matching against the vocabulary.
// It never fails; empty input yields an empty correction.
func Normalize(raw string) Correction {
	corrected := raw
	for _, f := range explicitFixes {
		corrected = f.pattern.ReplaceAllString(corrected, f.replacement)
	}

	tokens := strings.Fields(corrected)
	for i, t := range tokens {
		match, ok := closestMatch(t, vocabulary)
		if ok && !strings.EqualFold(match, t) {
			tokens[i] = match
		}
	}
	corrected = strings.Join(tokens, " ")

	cleaned := CleanText(raw)
	changed := !strings.EqualFold(CleanText(corrected), cleaned)

	hint := ""
	if changed {
		hint = fmt.Sprintf("(Did you mean: '%s'?)", CleanText(corrected))
	}
	return Correction{Corrected: CleanText(corrected), Changed: changed, Hint: hint}
}

// closestMatch returns the vocabulary entry most similar to the token, if its
// score clears the cutoff.
func closestMatch(token string, vocab []string) (string, bool) {
	lower := strings.ToLower(token)
	best := ""
	bestScore := 0.0
	for _, v := range vocab {
		s := similarity(lower, strings.ToLower(v))
		if s > bestScore {
			bestScore = s
			best = v
		}
	}
	if bestScore >= similarityCutoff {
		return best, true
	}
	return "", false
}

// similarity scores two strings in [0,1] from their edit distance. Identical
// strings score 1.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshteinDistance(a, b))/float64(longest)
}

// levenshteinDistance calculates the edit distance between two strings using
// the two-row dynamic programming formulation.
func levenshteinDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
