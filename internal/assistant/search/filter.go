package search

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// TopicFilter specializes query augmentation and snippet filtering for one
// class of fact-lookup queries. Filters are consulted in registration order;
// the first whose Matches returns true wins, with a passthrough fallback.
type TopicFilter interface {
	Name() string
	// Matches reports whether the filter applies to the bare search terms.
	Matches(terms string) bool
	// AugmentTerms returns extra terms appended to the search query.
	AugmentTerms(now time.Time) string
	// Keep decides whether an extracted title/snippet pair survives.
	Keep(title, snippet string) bool
}

// worthPattern matches currency-magnitude phrasing: a dollar sign or digits
// followed by a scale word.
var worthPattern = regexp.MustCompile(`(?i)\$?\s*[\d,.]+\s*(?:billion|million|trillion|\$)`)

type netWorthFilter struct{}

func (netWorthFilter) Name() string { return "net_worth" }

func (netWorthFilter) Matches(terms string) bool {
	return strings.Contains(strings.ToLower(terms), "net worth")
}

func (netWorthFilter) AugmentTerms(now time.Time) string {
	return fmt.Sprintf("forbes bloomberg %d current billionaire richest", now.Year())
}

func (netWorthFilter) Keep(_, snippet string) bool {
	return worthPattern.MatchString(snippet)
}

type passthroughFilter struct{}

func (passthroughFilter) Name() string { return "default" }

func (passthroughFilter) Matches(string) bool { return true }

func (passthroughFilter) AugmentTerms(now time.Time) string {
	return fmt.Sprintf("%d current", now.Year())
}

func (passthroughFilter) Keep(_, _ string) bool { return true }

// defaultFilters is the built-in registry: specialized filters first, the
// passthrough last.
func defaultFilters() []TopicFilter {
	return []TopicFilter{netWorthFilter{}, passthroughFilter{}}
}
