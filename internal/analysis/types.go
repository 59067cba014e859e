package analysis

import "encoding/json"

// BusinessProfile is the business-profile blob returned by the analysis
// collaborator. Only the fields the wizard destructures are typed; the full
// payload is retained in Raw and round-trips untouched.
type BusinessProfile struct {
	BusinessIntelligence  BusinessIntelligence  `json:"businessIntelligence"`
	TechnicalRequirements TechnicalRequirements `json:"technicalRequirements"`
	WorkflowSuggestions   []WorkflowSuggestion  `json:"workflowSuggestions"`
	DashboardSuggestions  []WidgetSuggestion    `json:"dashboardSuggestions"`

	Raw json.RawMessage `json:"-"`
}

// BusinessIntelligence summarizes what the analyzer learned about the business.
type BusinessIntelligence struct {
	IndustryCategory string   `json:"industryCategory"`
	BusinessModel    string   `json:"businessModel"`
	RevenueStreams   []string `json:"revenueStreams"`
	TargetAudience   string   `json:"targetAudience"`
}

// TechnicalRequirements carries the integration and workflow opportunities
// detected for the analyzed site.
type TechnicalRequirements struct {
	IntegrationOpportunities []IntegrationOpportunity `json:"integrationOpportunities"`
	DataModels               []string                 `json:"dataModels"`
}

// IntegrationOpportunity names a third-party provider the analyzer believes
// the business already uses or would benefit from.
type IntegrationOpportunity struct {
	Provider string `json:"provider"`
	Priority string `json:"priority"`
	// Confidence is a 0-100 match score.
	Confidence int    `json:"confidence"`
	Reason     string `json:"reason,omitempty"`
}

// WorkflowSuggestion describes an automation the analyzer proposes.
type WorkflowSuggestion struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Triggers    []string `json:"triggers"`
	Actions     []string `json:"actions"`
}

// WidgetSuggestion describes a dashboard widget the analyzer proposes.
type WidgetSuggestion struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}
