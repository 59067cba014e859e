package onboarding

// Step identifies a wizard phase.
type Step string

const (
	StepAnalysis      Step = "analysis"
	StepIntegrations  Step = "integrations"
	StepWorkflows     Step = "workflows"
	StepAuth          Step = "auth"
	StepVisualization Step = "visualization"
	StepReview        Step = "review"
)

// Steps is the registry of wizard phases, strictly linear, no branching.
var Steps = []Step{
	StepAnalysis,
	StepIntegrations,
	StepWorkflows,
	StepAuth,
	StepVisualization,
	StepReview,
}

// IntegrationStatus is the provenance of an integration card, set once when
// the list is assembled.
type IntegrationStatus string

const (
	IntegrationDetected  IntegrationStatus = "detected"
	IntegrationSuggested IntegrationStatus = "suggested"
	IntegrationOptional  IntegrationStatus = "optional"
)

// ConnectionStatus is the mutable connection state of an integration, driven
// by the connection flow.
type ConnectionStatus string

const (
	ConnectionNotConnected ConnectionStatus = "not_connected"
	ConnectionConnecting   ConnectionStatus = "connecting"
	ConnectionConnected    ConnectionStatus = "connected"
	ConnectionError        ConnectionStatus = "error"
)

// Integration is a third-party provider card in the wizard.
type Integration struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Type             string            `json:"type"`
	LogoURL          string            `json:"logo_url,omitempty"`
	Status           IntegrationStatus `json:"status"`
	ConnectionStatus ConnectionStatus  `json:"connection_status"`
	Confidence       int               `json:"confidence,omitempty"`
	StatusMessage    string            `json:"status_message,omitempty"`
}

// WorkflowCategory records where a workflow entry came from.
type WorkflowCategory string

const (
	WorkflowAIGenerated WorkflowCategory = "ai_generated"
	WorkflowUserAdded   WorkflowCategory = "user_added"
	WorkflowTemplate    WorkflowCategory = "template"
)

// Workflow is a user-togglable automation description.
type Workflow struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Enabled     bool             `json:"enabled"`
	Triggers    []string         `json:"triggers,omitempty"`
	Actions     []string         `json:"actions,omitempty"`
	Category    WorkflowCategory `json:"category"`
}

// AuthMethodType enumerates supported sign-in methods.
type AuthMethodType string

const (
	AuthMethodEmail  AuthMethodType = "email"
	AuthMethodGoogle AuthMethodType = "google"
	AuthMethodGithub AuthMethodType = "github"
	AuthMethodSAML   AuthMethodType = "saml"
)

// AuthMethod is a sign-in method toggle for the generated application.
type AuthMethod struct {
	Type       AuthMethodType `json:"type"`
	Enabled    bool           `json:"enabled"`
	Configured bool           `json:"configured"`
}

// AuthConfig is the auth step's configuration.
type AuthConfig struct {
	Methods      []AuthMethod `json:"methods"`
	RequireMFA   bool         `json:"require_mfa"`
	AllowSignups bool         `json:"allow_signups"`
}

// EnabledMethods returns the enabled method types.
func (c *AuthConfig) EnabledMethods() []string {
	var out []string
	for _, m := range c.Methods {
		if m.Enabled {
			out = append(out, string(m.Type))
		}
	}
	return out
}

// DashboardWidget is a dashboard widget toggle.
type DashboardWidget struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Enabled  bool   `json:"enabled"`
	Category string `json:"category,omitempty"`
}

// VisualizationConfig is the visualization step's configuration.
type VisualizationConfig struct {
	Theme   string            `json:"theme"`
	Widgets []DashboardWidget `json:"widgets"`
}

// EnabledWidgets returns the ids of enabled widgets.
func (c *VisualizationConfig) EnabledWidgets() []string {
	var out []string
	for _, w := range c.Widgets {
		if w.Enabled {
			out = append(out, w.ID)
		}
	}
	return out
}
