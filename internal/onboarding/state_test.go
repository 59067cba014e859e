package onboarding

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opsai/onboarding-backend/internal/analysis"
)

func TestMergeLeavesUntouchedSubtreesIdentical(t *testing.T) {
	state := NewState("https://acme.example")
	state.BusinessAnalysis = &analysis.BusinessProfile{}

	merged := state.Merge(Patch{WebsiteURL: strptr("https://other.example")})

	assert.Equal(t, "https://other.example", merged.WebsiteURL)
	// Pointer sub-trees the patch does not name keep their identity.
	assert.Same(t, state.BusinessAnalysis, merged.BusinessAnalysis)
	assert.Same(t, state.AuthConfig, merged.AuthConfig)
	assert.Same(t, state.Visualization, merged.Visualization)
}

func TestMergeReplacesNamedSubtree(t *testing.T) {
	state := NewState("https://acme.example")
	newAuth := &AuthConfig{Methods: []AuthMethod{{Type: AuthMethodGoogle, Enabled: true}}}

	merged := state.Merge(Patch{AuthConfig: newAuth})

	assert.Same(t, newAuth, merged.AuthConfig)
	assert.Same(t, state.Visualization, merged.Visualization)
	// The original state is untouched.
	assert.NotSame(t, newAuth, state.AuthConfig)
}

func TestMergeDoesNotMoveStep(t *testing.T) {
	state := NewState("https://acme.example")
	state.CurrentStep = 2

	merged := state.Merge(Patch{Workflows: []Workflow{{ID: "wf-1", Enabled: true}}})

	assert.Equal(t, 2, merged.CurrentStep)
}

func TestCanProceedGates(t *testing.T) {
	state := NewState("https://acme.example")

	// analysis: needs a business profile
	assert.False(t, state.CanProceed())
	state.BusinessAnalysis = &analysis.BusinessProfile{}
	assert.True(t, state.CanProceed())

	// integrations: refused while any connection is still in flight
	state.CurrentStep = 1
	state.Integrations = []Integration{
		{ID: "stripe", ConnectionStatus: ConnectionConnected},
		{ID: "shopify", ConnectionStatus: ConnectionConnecting},
	}
	assert.False(t, state.CanProceed())
	state.Integrations[1].ConnectionStatus = ConnectionError
	assert.True(t, state.CanProceed())

	// workflows: at least one enabled
	state.CurrentStep = 2
	state.Workflows = []Workflow{{ID: "wf-1", Enabled: false}}
	assert.False(t, state.CanProceed())
	state.Workflows[0].Enabled = true
	assert.True(t, state.CanProceed())

	// auth: at least one enabled method (email is enabled by default)
	state.CurrentStep = 3
	assert.True(t, state.CanProceed())
	state.AuthConfig = &AuthConfig{}
	assert.False(t, state.CanProceed())

	// visualization: always passable
	state.CurrentStep = 4
	assert.True(t, state.CanProceed())

	// review: terminal
	state.CurrentStep = 5
	assert.False(t, state.CanProceed())
}

func TestStepOutOfRangeClampsToReview(t *testing.T) {
	state := NewState("https://acme.example")
	state.CurrentStep = 99
	assert.Equal(t, StepReview, state.Step())
}
