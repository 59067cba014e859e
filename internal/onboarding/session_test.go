package onboarding

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsai/onboarding-backend/internal/analysis"
)

func TestAdvanceRequiresGate(t *testing.T) {
	store := NewStore(time.Hour)
	sess := store.Create("https://acme.example")

	// analysis gate fails without a profile
	assert.False(t, sess.Advance())
	assert.Equal(t, StepAnalysis, sess.State().Step())

	sess.Apply(Patch{BusinessAnalysis: &analysis.BusinessProfile{}})
	assert.True(t, sess.Advance())
	assert.Equal(t, StepIntegrations, sess.State().Step())
}

func TestAdvanceStopsAtLastStep(t *testing.T) {
	store := NewStore(time.Hour)
	sess := store.Create("https://acme.example")
	sess.Apply(Patch{
		BusinessAnalysis: &analysis.BusinessProfile{},
		Workflows:        []Workflow{{ID: "wf-1", Enabled: true}},
	})

	for sess.Advance() {
	}
	assert.Equal(t, StepReview, sess.State().Step())
	assert.False(t, sess.Advance())
	assert.Equal(t, StepReview, sess.State().Step())
}

func TestRetreatFlooredAtFirstStep(t *testing.T) {
	store := NewStore(time.Hour)
	sess := store.Create("https://acme.example")

	assert.False(t, sess.Retreat())

	sess.Apply(Patch{BusinessAnalysis: &analysis.BusinessProfile{}})
	require.True(t, sess.Advance())
	assert.True(t, sess.Retreat())
	assert.Equal(t, StepAnalysis, sess.State().Step())
	assert.False(t, sess.Retreat())
}

func TestRetreatRefusedWhileDeploying(t *testing.T) {
	store := NewStore(time.Hour)
	sess := store.Create("https://acme.example")
	sess.Apply(Patch{BusinessAnalysis: &analysis.BusinessProfile{}})
	require.True(t, sess.Advance())

	sess.Apply(Patch{IsDeploying: boolptr(true)})
	assert.False(t, sess.Retreat())

	sess.Apply(Patch{IsDeploying: boolptr(false)})
	assert.True(t, sess.Retreat())
}

func TestSetConnectionStatusCopiesSlice(t *testing.T) {
	store := NewStore(time.Hour)
	sess := store.Create("https://acme.example")
	sess.Apply(Patch{Integrations: []Integration{
		{ID: "stripe", ConnectionStatus: ConnectionNotConnected},
	}})

	before := sess.State()

	updated, err := sess.SetConnectionStatus("stripe", ConnectionConnecting, "")
	require.NoError(t, err)
	assert.Equal(t, ConnectionConnecting, updated.ConnectionStatus)

	// The earlier snapshot is unaffected by the update.
	assert.Equal(t, ConnectionNotConnected, before.Integrations[0].ConnectionStatus)
	assert.Equal(t, ConnectionConnecting, sess.State().Integrations[0].ConnectionStatus)
}

func TestApplyClientPatchOwnsConnectionFields(t *testing.T) {
	store := NewStore(time.Hour)
	sess := store.Create("https://acme.example")
	sess.Apply(Patch{Integrations: []Integration{
		{ID: "stripe", ConnectionStatus: ConnectionConnected, StatusMessage: "ok"},
	}})

	state := sess.ApplyClientPatch(Patch{Integrations: []Integration{
		{ID: "stripe", ConnectionStatus: ConnectionNotConnected, StatusMessage: "spoofed"},
		{ID: "shopify", ConnectionStatus: ConnectionConnected},
	}})

	require.Len(t, state.Integrations, 2)
	// Existing ids keep their server-side connection fields.
	assert.Equal(t, ConnectionConnected, state.Integrations[0].ConnectionStatus)
	assert.Equal(t, "ok", state.Integrations[0].StatusMessage)
	// New ids always start not_connected.
	assert.Equal(t, ConnectionNotConnected, state.Integrations[1].ConnectionStatus)
	assert.Empty(t, state.Integrations[1].StatusMessage)
}

func TestSetConnectionStatusUnknownProvider(t *testing.T) {
	store := NewStore(time.Hour)
	sess := store.Create("https://acme.example")

	_, err := sess.SetConnectionStatus("stripe", ConnectionConnecting, "")
	assert.Error(t, err)
}

func TestStoreSweepEvictsIdleSessions(t *testing.T) {
	store := NewStore(10 * time.Millisecond)
	sess := store.Create("https://acme.example")

	time.Sleep(20 * time.Millisecond)
	removed := store.Sweep()
	assert.Equal(t, 1, removed)

	_, err := store.Get(sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStoreGetUnknownSession(t *testing.T) {
	store := NewStore(time.Hour)
	sess := store.Create("https://acme.example")
	store.Delete(sess.ID)

	_, err := store.Get(sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
