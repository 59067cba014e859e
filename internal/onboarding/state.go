package onboarding

import (
	"github.com/opsai/onboarding-backend/internal/analysis"
	"github.com/opsai/onboarding-backend/internal/deploy"
)

// State is the single aggregate the wizard operates on. Sub-trees are held
// by pointer so Merge can preserve the identity of anything a patch does not
// touch, letting clients skip re-renders on shallow equality.
type State struct {
	WebsiteURL       string                    `json:"website_url"`
	BusinessAnalysis *analysis.BusinessProfile `json:"business_analysis,omitempty"`
	Integrations     []Integration             `json:"integrations"`
	Workflows        []Workflow                `json:"workflows"`
	AuthConfig       *AuthConfig               `json:"auth_config"`
	Visualization    *VisualizationConfig      `json:"visualization"`
	CurrentStep      int                       `json:"current_step"`
	IsAnalyzing      bool                      `json:"is_analyzing"`
	IsDeploying      bool                      `json:"is_deploying"`
	IsSaving         bool                      `json:"is_saving"`
	LastError        string                    `json:"last_error,omitempty"`
	Deployment       *deploy.Result            `json:"deployment,omitempty"`
}

// Patch is a partial update to State. Nil fields leave the corresponding
// sub-tree untouched. Busy flags and collaborator results are settable only
// by the service, never through the HTTP merge endpoint.
type Patch struct {
	WebsiteURL       *string                   `json:"website_url,omitempty"`
	BusinessAnalysis *analysis.BusinessProfile `json:"business_analysis,omitempty"`
	Integrations     []Integration             `json:"integrations,omitempty"`
	Workflows        []Workflow                `json:"workflows,omitempty"`
	AuthConfig       *AuthConfig               `json:"auth_config,omitempty"`
	Visualization    *VisualizationConfig      `json:"visualization,omitempty"`

	IsAnalyzing *bool          `json:"-"`
	IsDeploying *bool          `json:"-"`
	IsSaving    *bool          `json:"-"`
	LastError   *string        `json:"-"`
	Deployment  *deploy.Result `json:"-"`
}

// NewState builds the default aggregate for a fresh wizard session.
func NewState(websiteURL string) State {
	return State{
		WebsiteURL:   websiteURL,
		Integrations: []Integration{},
		Workflows:    []Workflow{},
		AuthConfig: &AuthConfig{
			Methods: []AuthMethod{
				{Type: AuthMethodEmail, Enabled: true, Configured: true},
				{Type: AuthMethodGoogle},
				{Type: AuthMethodGithub},
				{Type: AuthMethodSAML},
			},
			AllowSignups: true,
		},
		Visualization: &VisualizationConfig{Theme: "system"},
	}
}

// Merge shallow-merges the patch into a copy of the state. Untouched pointer
// sub-trees keep their identity; CurrentStep is never moved by a merge.
func (s State) Merge(p Patch) State {
	next := s
	if p.WebsiteURL != nil {
		next.WebsiteURL = *p.WebsiteURL
	}
	if p.BusinessAnalysis != nil {
		next.BusinessAnalysis = p.BusinessAnalysis
	}
	if p.Integrations != nil {
		next.Integrations = p.Integrations
	}
	if p.Workflows != nil {
		next.Workflows = p.Workflows
	}
	if p.AuthConfig != nil {
		next.AuthConfig = p.AuthConfig
	}
	if p.Visualization != nil {
		next.Visualization = p.Visualization
	}
	if p.IsAnalyzing != nil {
		next.IsAnalyzing = *p.IsAnalyzing
	}
	if p.IsDeploying != nil {
		next.IsDeploying = *p.IsDeploying
	}
	if p.IsSaving != nil {
		next.IsSaving = *p.IsSaving
	}
	if p.LastError != nil {
		next.LastError = *p.LastError
	}
	if p.Deployment != nil {
		next.Deployment = p.Deployment
	}
	return next
}

// Step returns the active wizard phase.
func (s State) Step() Step {
	if s.CurrentStep < 0 || s.CurrentStep >= len(Steps) {
		return StepReview
	}
	return Steps[s.CurrentStep]
}

// CanProceed reports whether the active step's gate is satisfied.
func (s State) CanProceed() bool {
	switch s.Step() {
	case StepAnalysis:
		return s.BusinessAnalysis != nil
	case StepIntegrations:
		// Every desired integration must have resolved or been abandoned
		// before the wizard moves on; this gate is the only ordering
		// enforcement across connection attempts.
		for _, in := range s.Integrations {
			if in.ConnectionStatus == ConnectionConnecting {
				return false
			}
		}
		return true
	case StepWorkflows:
		for _, w := range s.Workflows {
			if w.Enabled {
				return true
			}
		}
		return false
	case StepAuth:
		return s.AuthConfig != nil && len(s.AuthConfig.EnabledMethods()) > 0
	case StepVisualization:
		return true
	default:
		// review is terminal; it exits sideways via launch or save.
		return false
	}
}

func strptr(s string) *string { return &s }

func boolptr(b bool) *bool { return &b }
