package analysis

import (
	"context"
	"encoding/json"
	"strings"
)

// StubClient produces a deterministic business profile from keywords in the
// website URL. It stands in for the analysis collaborator in development and
// tests.
type StubClient struct{}

func NewStubClient() *StubClient {
	return &StubClient{}
}

func (c *StubClient) Analyze(ctx context.Context, websiteURL string) (*BusinessProfile, error) {
	url := strings.ToLower(websiteURL)

	var profile BusinessProfile
	switch {
	case containsAny(url, "shop", "store", "boutique", "market"):
		profile = ecommerceProfile()
	case containsAny(url, "app", "saas", "cloud", "platform"):
		profile = saasProfile()
	default:
		profile = servicesProfile()
	}

	raw, err := json.Marshal(&profile)
	if err != nil {
		return nil, err
	}
	profile.Raw = raw
	return &profile, nil
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func ecommerceProfile() BusinessProfile {
	return BusinessProfile{
		BusinessIntelligence: BusinessIntelligence{
			IndustryCategory: "ecommerce",
			BusinessModel:    "b2c",
			RevenueStreams:   []string{"product_sales", "subscriptions"},
			TargetAudience:   "online shoppers",
		},
		TechnicalRequirements: TechnicalRequirements{
			IntegrationOpportunities: []IntegrationOpportunity{
				{Provider: "shopify", Priority: "detected", Confidence: 92, Reason: "storefront platform detected"},
				{Provider: "stripe", Priority: "detected", Confidence: 88, Reason: "checkout provider detected"},
				{Provider: "mailchimp", Priority: "suggested", Confidence: 64, Reason: "no email marketing tool found"},
			},
			DataModels: []string{"orders", "customers", "products"},
		},
		WorkflowSuggestions: []WorkflowSuggestion{
			{
				ID:          "abandoned-cart-recovery",
				Name:        "Abandoned cart recovery",
				Description: "Email customers who left items in their cart",
				Triggers:    []string{"cart.abandoned"},
				Actions:     []string{"email.send", "discount.create"},
			},
			{
				ID:          "order-fulfillment",
				Name:        "Order fulfillment",
				Description: "Notify the warehouse when a new order is paid",
				Triggers:    []string{"order.paid"},
				Actions:     []string{"slack.notify", "shipment.create"},
			},
		},
		DashboardSuggestions: []WidgetSuggestion{
			{ID: "revenue-trend", Name: "Revenue trend", Category: "finance"},
			{ID: "top-products", Name: "Top products", Category: "sales"},
			{ID: "cart-conversion", Name: "Cart conversion", Category: "sales"},
		},
	}
}

func saasProfile() BusinessProfile {
	return BusinessProfile{
		BusinessIntelligence: BusinessIntelligence{
			IndustryCategory: "b2b_saas",
			BusinessModel:    "subscription",
			RevenueStreams:   []string{"subscriptions", "usage_fees"},
			TargetAudience:   "business teams",
		},
		TechnicalRequirements: TechnicalRequirements{
			IntegrationOpportunities: []IntegrationOpportunity{
				{Provider: "stripe", Priority: "detected", Confidence: 90, Reason: "billing provider detected"},
				{Provider: "hubspot", Priority: "suggested", Confidence: 71, Reason: "CRM recommended for pipeline tracking"},
				{Provider: "slack", Priority: "suggested", Confidence: 66, Reason: "team notifications"},
			},
			DataModels: []string{"accounts", "subscriptions", "usage_events"},
		},
		WorkflowSuggestions: []WorkflowSuggestion{
			{
				ID:          "trial-expiry-outreach",
				Name:        "Trial expiry outreach",
				Description: "Reach out before a trial account expires",
				Triggers:    []string{"trial.expiring"},
				Actions:     []string{"email.send", "crm.task.create"},
			},
			{
				ID:          "churn-alert",
				Name:        "Churn alert",
				Description: "Alert the team when usage drops sharply",
				Triggers:    []string{"usage.dropped"},
				Actions:     []string{"slack.notify"},
			},
		},
		DashboardSuggestions: []WidgetSuggestion{
			{ID: "mrr", Name: "Monthly recurring revenue", Category: "finance"},
			{ID: "active-accounts", Name: "Active accounts", Category: "growth"},
			{ID: "churn-rate", Name: "Churn rate", Category: "growth"},
		},
	}
}

func servicesProfile() BusinessProfile {
	return BusinessProfile{
		BusinessIntelligence: BusinessIntelligence{
			IndustryCategory: "professional_services",
			BusinessModel:    "services",
			RevenueStreams:   []string{"invoices"},
			TargetAudience:   "local clients",
		},
		TechnicalRequirements: TechnicalRequirements{
			IntegrationOpportunities: []IntegrationOpportunity{
				{Provider: "quickbooks", Priority: "suggested", Confidence: 68, Reason: "invoicing and bookkeeping"},
				{Provider: "google-analytics", Priority: "suggested", Confidence: 61, Reason: "website traffic insight"},
				{Provider: "hubspot", Priority: "optional", Confidence: 45, Reason: "client relationship tracking"},
			},
			DataModels: []string{"clients", "invoices", "appointments"},
		},
		WorkflowSuggestions: []WorkflowSuggestion{
			{
				ID:          "invoice-reminder",
				Name:        "Invoice reminder",
				Description: "Remind clients about unpaid invoices",
				Triggers:    []string{"invoice.overdue"},
				Actions:     []string{"email.send"},
			},
		},
		DashboardSuggestions: []WidgetSuggestion{
			{ID: "outstanding-invoices", Name: "Outstanding invoices", Category: "finance"},
			{ID: "site-traffic", Name: "Site traffic", Category: "marketing"},
		},
	}
}
