package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/nova-assistant/server/internal/assistant/model"
	logx "github.com/nova-assistant/server/pkg/logger"
)

// apologyGeneric is returned on any lower-level fault; Search never
// propagates an error to the caller.
const apologyGeneric = "I apologize, but I couldn't retrieve the information. Please try asking in a different way."

// leadIns are boilerplate phrases stripped from the query before searching.
var leadIns = []string{"what is", "tell me about", "search for"}

// resultSelectors are tried in order; search-backend markup is heterogeneous
// and any single selector under-covers results.
var resultSelectors = []string{"li.b_algo", "div.b_ans", "div.b_special", "div.news-card"}

var (
	titleSelectors   = []string{"h2, h3, h4", ".title, .headline"}
	snippetSelectors = []string{
		"div.b_caption, p.b_caption",
		"div.b_snippet, p.b_snippet",
		"div.description, p.description",
	}
)

// Engine fetches search results and extracts filtered title/snippet evidence.
type Engine struct {
	cfg     model.SearchConfig
	client  *http.Client
	filters []TopicFilter
	now     func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides the time source, used by the year-stamped query
// augmentation.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithFilters prepends topic filters ahead of the built-in registry.
func WithFilters(filters ...TopicFilter) Option {
	return func(e *Engine) { e.filters = append(filters, e.filters...) }
}

func NewEngine(cfg model.SearchConfig, opts ...Option) *Engine {
	e := &Engine{
		cfg: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		filters: defaultFilters(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search runs the full evidence pipeline: normalize, augment, fetch, extract,
// filter. It always returns a usable string — joined evidence pairs on
// success, an apologetic sentence otherwise.
func (e *Engine) Search(ctx context.Context, query string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			logx.Component("search").Error().Msgf("panic recovered: %v", r)
			result = apologyGeneric
		}
	}()

	query = CleanText(query)
	corr := Normalize(query)
	terms := stripLeadIns(corr.Corrected)

	filter := e.filterFor(terms)
	specific := strings.TrimSpace(terms + " " + filter.AugmentTerms(e.now()))

	logx.Component("search").Debug().
		Str("terms", terms).
		Str("filter", filter.Name()).
		Msg("fetching search results")

	doc, err := e.fetch(ctx, specific)
	if err != nil {
		logx.Component("search").Warn().Err(err).Msg("search fetch failed")
		return apologyGeneric
	}

	pairs := e.extract(doc, filter)
	if len(pairs) > 0 {
		return strings.Join(pairs, "\n\n")
	}

	if corr.Changed {
		return fmt.Sprintf(
			"I found some results for '%s', but they don't contain specific information. %s Could you try rephrasing your question or be more specific?",
			terms, corr.Hint)
	}
	return fmt.Sprintf(
		"I found some results, but they don't seem to contain specific information about %s. Could you try rephrasing your question?",
		terms)
}

func (e *Engine) filterFor(terms string) TopicFilter {
	for _, f := range e.filters {
		if f.Matches(terms) {
			return f
		}
	}
	return passthroughFilter{}
}

func (e *Engine) fetch(ctx context.Context, specific string) (*goquery.Document, error) {
	params := url.Values{}
	params.Set("q", specific)
	params.Set("format", "rss")
	params.Set("count", strconv.Itoa(e.cfg.ResultCount))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("User-Agent", e.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request: unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse search document: %w", err)
	}
	return doc, nil
}

// extract scans result blocks across the known structural markers. A block
// missing a title or snippet is skipped; one bad block never aborts the scan.
func (e *Engine) extract(doc *goquery.Document, filter TopicFilter) []string {
	var pairs []string
	for _, sel := range resultSelectors {
		doc.Find(sel).Each(func(_ int, block *goquery.Selection) {
			title := firstText(block, titleSelectors)
			snippet := firstText(block, snippetSelectors)
			if title == "" || snippet == "" {
				return
			}
			if !filter.Keep(title, snippet) {
				return
			}
			pairs = append(pairs, title+"\n"+snippet)
		})
	}
	return pairs
}

// firstText walks the ordered fallback selector list and returns the first
// non-empty trimmed text.
func firstText(block *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(block.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func stripLeadIns(terms string) string {
	lower := strings.ToLower(terms)
	for _, phrase := range leadIns {
		for {
			idx := strings.Index(lower, phrase)
			if idx < 0 {
				break
			}
			terms = terms[:idx] + terms[idx+len(phrase):]
			lower = lower[:idx] + lower[idx+len(phrase):]
		}
	}
	return CleanText(terms)
}
