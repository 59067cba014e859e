package onboarding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opsai/onboarding-backend/internal/analysis"
	"github.com/opsai/onboarding-backend/internal/apps"
	"github.com/opsai/onboarding-backend/internal/deploy"
	"github.com/opsai/onboarding-backend/internal/events"
	"github.com/opsai/onboarding-backend/pkg/storage"
)

// MockRegistrar is a mock implementation of the AppRegistrar interface
type MockRegistrar struct {
	mock.Mock
}

func (m *MockRegistrar) Register(ctx context.Context, app *apps.Application) error {
	args := m.Called(ctx, app)
	return args.Error(0)
}

// MockArchiver is a mock implementation of the Archiver interface
type MockArchiver struct {
	mock.Mock
}

func (m *MockArchiver) Archive(ctx context.Context, sess *Session) error {
	args := m.Called(ctx, sess)
	return args.Error(0)
}

type failingAnalyzer struct{}

func (failingAnalyzer) Analyze(ctx context.Context, websiteURL string) (*analysis.BusinessProfile, error) {
	return nil, errors.New("analysis service unavailable")
}

func newTestService(t *testing.T) (*Service, *MockRegistrar, *MockArchiver) {
	t.Helper()
	registrar := new(MockRegistrar)
	archiver := new(MockArchiver)
	svc := NewService(
		NewStore(time.Hour),
		analysis.NewStubClient(),
		deploy.NewStubClient(),
		registrar,
		archiver,
		storage.NewMemorySnapshots(),
		events.NopPublisher{},
		"test",
		zap.NewNop(),
	)
	return svc, registrar, archiver
}

func TestAnalyzeSeedsSuggestions(t *testing.T) {
	svc, _, _ := newTestService(t)
	sess, err := svc.StartSession("https://shop.acme.example")
	require.NoError(t, err)

	state, err := svc.Analyze(context.Background(), sess.ID)
	require.NoError(t, err)

	assert.NotNil(t, state.BusinessAnalysis)
	assert.False(t, state.IsAnalyzing)
	assert.NotEmpty(t, state.Integrations)
	assert.NotEmpty(t, state.Workflows)

	for _, in := range state.Integrations {
		assert.Equal(t, ConnectionNotConnected, in.ConnectionStatus)
	}
	for _, w := range state.Workflows {
		assert.Equal(t, WorkflowAIGenerated, w.Category)
		assert.True(t, w.Enabled)
	}
}

func TestAnalyzeFailureSurfacesError(t *testing.T) {
	svc, _, _ := newTestService(t)
	svc.analyzer = failingAnalyzer{}

	sess, err := svc.StartSession("https://acme.example")
	require.NoError(t, err)

	state, err := svc.Analyze(context.Background(), sess.ID)
	assert.Error(t, err)
	assert.False(t, state.IsAnalyzing)
	assert.Contains(t, state.LastError, "analysis service unavailable")
	assert.Nil(t, state.BusinessAnalysis)
}

func TestReanalyzeKeepsUserWorkflowsAndConnections(t *testing.T) {
	svc, _, _ := newTestService(t)
	sess, err := svc.StartSession("https://shop.acme.example")
	require.NoError(t, err)

	_, err = svc.Analyze(context.Background(), sess.ID)
	require.NoError(t, err)

	// User connects a provider and adds a workflow by hand.
	state := sess.State()
	require.NotEmpty(t, state.Integrations)
	connected := state.Integrations[0].ID
	_, err = sess.SetConnectionStatus(connected, ConnectionConnected, "")
	require.NoError(t, err)
	custom := Workflow{ID: "custom-1", Name: "Custom", Enabled: true, Category: WorkflowUserAdded}
	sess.Apply(Patch{Workflows: append(sess.State().Workflows, custom)})

	state, err = svc.Analyze(context.Background(), sess.ID)
	require.NoError(t, err)

	var foundCustom, foundConnected bool
	for _, w := range state.Workflows {
		if w.ID == "custom-1" {
			foundCustom = true
			assert.Equal(t, WorkflowUserAdded, w.Category)
		}
	}
	for _, in := range state.Integrations {
		if in.ID == connected {
			foundConnected = true
			assert.Equal(t, ConnectionConnected, in.ConnectionStatus)
		}
	}
	assert.True(t, foundCustom, "user-added workflow must survive re-analysis")
	assert.True(t, foundConnected, "connected status must survive re-analysis")
}

func TestLaunchOnlyFromReview(t *testing.T) {
	svc, _, _ := newTestService(t)
	sess, err := svc.StartSession("https://acme.example")
	require.NoError(t, err)

	_, err = svc.Launch(context.Background(), sess.ID)
	assert.ErrorIs(t, err, ErrWrongStep)
}

func TestLaunchDeploysAndRecordsResult(t *testing.T) {
	svc, _, _ := newTestService(t)
	sess, err := svc.StartSession("https://acme.example")
	require.NoError(t, err)

	_, err = svc.Analyze(context.Background(), sess.ID)
	require.NoError(t, err)
	sess.Apply(Patch{Workflows: []Workflow{{ID: "wf-1", Enabled: true}}})
	for sess.Advance() {
	}
	require.Equal(t, StepReview, sess.State().Step())

	state, err := svc.Launch(context.Background(), sess.ID)
	require.NoError(t, err)

	assert.False(t, state.IsDeploying)
	require.NotNil(t, state.Deployment)
	assert.NotEmpty(t, state.Deployment.Endpoint())

	// The assembled configuration is snapshotted for audit.
	snap, err := svc.snapshots.Get(context.Background(), snapshotKey(sess.ID))
	require.NoError(t, err)
	snap.Close()
}

func TestSaveRequiresAccount(t *testing.T) {
	svc, _, _ := newTestService(t)
	sess, err := svc.StartSession("https://acme.example")
	require.NoError(t, err)

	_, err = svc.Save(context.Background(), sess.ID, uuid.Nil)
	assert.ErrorIs(t, err, ErrSignupRequired)
}

func TestSaveArchivesAndRegisters(t *testing.T) {
	svc, registrar, archiver := newTestService(t)
	sess, err := svc.StartSession("https://acme.example")
	require.NoError(t, err)
	_, err = svc.Analyze(context.Background(), sess.ID)
	require.NoError(t, err)

	userID := uuid.New()
	archiver.On("Archive", mock.Anything, sess).Return(nil)
	registrar.On("Register", mock.Anything, mock.AnythingOfType("*apps.Application")).Return(nil)

	app, err := svc.Save(context.Background(), sess.ID, userID)
	require.NoError(t, err)

	assert.Equal(t, userID, app.OwnerID)
	assert.Equal(t, sess.TenantID, app.TenantID)
	assert.Equal(t, "https://acme.example", app.WebsiteURL)
	assert.False(t, sess.State().IsSaving)

	archiver.AssertExpectations(t)
	registrar.AssertExpectations(t)
}

func TestSaveArchiveFailureAborts(t *testing.T) {
	svc, registrar, archiver := newTestService(t)
	sess, err := svc.StartSession("https://acme.example")
	require.NoError(t, err)

	archiver.On("Archive", mock.Anything, sess).Return(errors.New("db down"))

	_, err = svc.Save(context.Background(), sess.ID, uuid.New())
	assert.Error(t, err)
	registrar.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}
