package catalog

import (
	"github.com/opsai/onboarding-backend/internal/analysis"
)

// Entry is a connectable third-party provider known to the platform.
type Entry struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	LogoURL string `json:"logo_url"`
}

// Suggestion pairs a catalog entry with its provenance for a given business:
// detected on the site, suggested by the analyzer, or optional.
type Suggestion struct {
	Entry
	Status     string `json:"status"`
	Confidence int    `json:"confidence"`
	Reason     string `json:"reason,omitempty"`
}

const (
	StatusDetected  = "detected"
	StatusSuggested = "suggested"
	StatusOptional  = "optional"
)

var entries = []Entry{
	{ID: "stripe", Name: "Stripe", Type: "payments", LogoURL: "/logos/stripe.svg"},
	{ID: "shopify", Name: "Shopify", Type: "ecommerce", LogoURL: "/logos/shopify.svg"},
	{ID: "hubspot", Name: "HubSpot", Type: "crm", LogoURL: "/logos/hubspot.svg"},
	{ID: "salesforce", Name: "Salesforce", Type: "crm", LogoURL: "/logos/salesforce.svg"},
	{ID: "quickbooks", Name: "QuickBooks", Type: "accounting", LogoURL: "/logos/quickbooks.svg"},
	{ID: "google-analytics", Name: "Google Analytics", Type: "analytics", LogoURL: "/logos/google-analytics.svg"},
	{ID: "mailchimp", Name: "Mailchimp", Type: "marketing", LogoURL: "/logos/mailchimp.svg"},
	{ID: "slack", Name: "Slack", Type: "messaging", LogoURL: "/logos/slack.svg"},
	{ID: "zendesk", Name: "Zendesk", Type: "support", LogoURL: "/logos/zendesk.svg"},
	{ID: "github", Name: "GitHub", Type: "developer", LogoURL: "/logos/github.svg"},
}

// Entries returns every provider in the catalog.
func Entries() []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// Lookup finds a catalog entry by provider id.
func Lookup(id string) (Entry, bool) {
	for _, e := range entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Suggest merges analyzer-detected opportunities with the static catalog.
// Detected providers come first and keep their analyzer confidence; catalog
// providers the analyzer did not mention are appended as optional. Duplicate
// ids are filtered, detected provenance winning.
func Suggest(opportunities []analysis.IntegrationOpportunity) []Suggestion {
	seen := make(map[string]bool)
	var out []Suggestion

	for _, opp := range opportunities {
		if seen[opp.Provider] {
			continue
		}
		entry, ok := Lookup(opp.Provider)
		if !ok {
			// Analyzer can name providers the catalog has no card for yet.
			entry = Entry{ID: opp.Provider, Name: opp.Provider, Type: "other"}
		}
		status := opp.Priority
		if status != StatusDetected && status != StatusSuggested && status != StatusOptional {
			status = StatusSuggested
		}
		out = append(out, Suggestion{
			Entry:      entry,
			Status:     status,
			Confidence: opp.Confidence,
			Reason:     opp.Reason,
		})
		seen[opp.Provider] = true
	}

	for _, entry := range entries {
		if seen[entry.ID] {
			continue
		}
		out = append(out, Suggestion{Entry: entry, Status: StatusOptional})
		seen[entry.ID] = true
	}

	return out
}
