package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetWorthFilterMatches(t *testing.T) {
	f := netWorthFilter{}

	assert.True(t, f.Matches("elon musk net worth"))
	assert.True(t, f.Matches("Elon Musk NET WORTH today"))
	assert.False(t, f.Matches("elon musk biography"))
}

func TestNetWorthFilterKeep(t *testing.T) {
	f := netWorthFilter{}

	tests := []struct {
		snippet string
		want    bool
	}{
		{"Estimated at $241 billion by Forbes.", true},
		{"His fortune grew to 300 million this year.", true},
		{"Valued around 1.5 trillion in total.", true},
		{"He founded several companies.", false},
		{"Born in 1971 in Pretoria.", false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, f.Keep("title", tc.snippet), "snippet=%q", tc.snippet)
	}
}

func TestNetWorthFilterAugmentTermsStampsYear(t *testing.T) {
	f := netWorthFilter{}
	terms := f.AugmentTerms(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	assert.Contains(t, terms, "2024")
	assert.Contains(t, terms, "forbes")
}

func TestPassthroughFilterKeepsEverything(t *testing.T) {
	f := passthroughFilter{}

	assert.True(t, f.Matches("anything at all"))
	assert.True(t, f.Keep("any title", "any snippet"))
	assert.Contains(t, f.AugmentTerms(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)), "2025")
}

func TestDefaultFiltersOrder(t *testing.T) {
	filters := defaultFilters()

	require.Len(t, filters, 2)
	assert.Equal(t, "net_worth", filters[0].Name())
	assert.Equal(t, "default", filters[1].Name())
}
