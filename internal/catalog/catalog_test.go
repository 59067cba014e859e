package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsai/onboarding-backend/internal/analysis"
)

func TestSuggestFiltersDuplicates(t *testing.T) {
	opps := []analysis.IntegrationOpportunity{
		{Provider: "stripe", Priority: "detected", Confidence: 90},
		{Provider: "stripe", Priority: "suggested", Confidence: 50},
		{Provider: "shopify", Priority: "detected", Confidence: 85},
	}

	suggestions := Suggest(opps)

	seen := make(map[string]int)
	for _, s := range suggestions {
		seen[s.ID]++
	}
	for id, count := range seen {
		assert.Equalf(t, 1, count, "provider %s appears %d times", id, count)
	}

	// Detected provenance wins over the duplicate suggestion.
	require.NotEmpty(t, suggestions)
	assert.Equal(t, "stripe", suggestions[0].ID)
	assert.Equal(t, StatusDetected, suggestions[0].Status)
	assert.Equal(t, 90, suggestions[0].Confidence)
}

func TestSuggestAppendsCatalogAsOptional(t *testing.T) {
	suggestions := Suggest([]analysis.IntegrationOpportunity{
		{Provider: "stripe", Priority: "detected", Confidence: 90},
	})

	var foundSlack bool
	for _, s := range suggestions {
		if s.ID == "slack" {
			foundSlack = true
			assert.Equal(t, StatusOptional, s.Status)
		}
	}
	assert.True(t, foundSlack, "catalog providers should be appended as optional")
}

func TestSuggestUnknownProvider(t *testing.T) {
	suggestions := Suggest([]analysis.IntegrationOpportunity{
		{Provider: "fancy-new-tool", Priority: "weird-priority", Confidence: 70},
	})

	require.NotEmpty(t, suggestions)
	assert.Equal(t, "fancy-new-tool", suggestions[0].ID)
	assert.Equal(t, "other", suggestions[0].Type)
	// Unknown provenance collapses to suggested.
	assert.Equal(t, StatusSuggested, suggestions[0].Status)
}

func TestLookup(t *testing.T) {
	entry, ok := Lookup("hubspot")
	require.True(t, ok)
	assert.Equal(t, "crm", entry.Type)

	_, ok = Lookup("nope")
	assert.False(t, ok)
}
