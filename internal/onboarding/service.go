package onboarding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/opsai/onboarding-backend/internal/analysis"
	"github.com/opsai/onboarding-backend/internal/apps"
	"github.com/opsai/onboarding-backend/internal/catalog"
	"github.com/opsai/onboarding-backend/internal/deploy"
	"github.com/opsai/onboarding-backend/internal/events"
	"github.com/opsai/onboarding-backend/pkg/storage"
)

var (
	// ErrSignupRequired is returned when an anonymous session tries to save.
	ErrSignupRequired = errors.New("an account is required to save the application")
	// ErrWrongStep is returned when an operation is invoked outside the step
	// it belongs to.
	ErrWrongStep = errors.New("operation not available at the current step")
	// ErrBusy is returned when a long-running operation is already in flight
	// for the session.
	ErrBusy = errors.New("operation already in progress")
)

// AppRegistrar persists generated applications to a user's account.
type AppRegistrar interface {
	Register(ctx context.Context, app *apps.Application) error
}

// Service drives the onboarding wizard: session lifecycle, the analyze and
// launch operations, and saving the result to an account.
type Service struct {
	store     *Store
	analyzer  analysis.Client
	deployer  deploy.Client
	registrar AppRegistrar
	archiver  Archiver
	snapshots storage.SnapshotStore
	events    events.Publisher
	logger    *zap.Logger
	target    string
}

func NewService(
	store *Store,
	analyzer analysis.Client,
	deployer deploy.Client,
	registrar AppRegistrar,
	archiver Archiver,
	snapshots storage.SnapshotStore,
	publisher events.Publisher,
	target string,
	logger *zap.Logger,
) *Service {
	if target == "" {
		target = "vercel"
	}
	return &Service{
		store:     store,
		analyzer:  analyzer,
		deployer:  deployer,
		registrar: registrar,
		archiver:  archiver,
		snapshots: snapshots,
		events:    publisher,
		logger:    logger,
		target:    target,
	}
}

// Store exposes the session store for route handlers and sweepers.
func (s *Service) Store() *Store {
	return s.store
}

// StartSession creates a fresh wizard session for the given site.
func (s *Service) StartSession(websiteURL string) (*Session, error) {
	if websiteURL == "" {
		return nil, fmt.Errorf("website url is required")
	}
	sess := s.store.Create(websiteURL)
	s.logger.Info("Onboarding session started",
		zap.String("session_id", sess.ID.String()),
		zap.String("website_url", websiteURL))
	return sess, nil
}

// Analyze runs the business analysis for the session's site and seeds the
// integration, workflow and dashboard suggestions from the result. Workflows
// the user added by hand survive re-analysis; AI-generated ones are replaced.
func (s *Service) Analyze(ctx context.Context, sessionID uuid.UUID) (State, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return State{}, err
	}

	if sess.State().IsAnalyzing {
		return State{}, ErrBusy
	}

	sess.Apply(Patch{IsAnalyzing: boolptr(true), LastError: strptr("")})
	s.publish(sess.ID, events.TypeAnalysisStarted, map[string]any{
		"website_url": sess.State().WebsiteURL,
	})

	profile, err := s.analyzer.Analyze(ctx, sess.State().WebsiteURL)
	if err != nil {
		state := sess.Apply(Patch{IsAnalyzing: boolptr(false), LastError: strptr(err.Error())})
		s.publish(sess.ID, events.TypeAnalysisFailed, map[string]any{"error": err.Error()})
		return state, fmt.Errorf("analysis failed: %w", err)
	}

	prev := sess.State()
	patch := Patch{
		BusinessAnalysis: profile,
		Integrations:     integrationsFromSuggestions(catalog.Suggest(profile.TechnicalRequirements.IntegrationOpportunities), prev.Integrations),
		Workflows:        workflowsFromSuggestions(profile.WorkflowSuggestions, prev.Workflows),
		Visualization:    visualizationFromSuggestions(profile.DashboardSuggestions, prev.Visualization),
		IsAnalyzing:      boolptr(false),
	}
	state := sess.Apply(patch)

	s.publish(sess.ID, events.TypeAnalysisCompleted, map[string]any{
		"industry":     profile.BusinessIntelligence.IndustryCategory,
		"integrations": len(state.Integrations),
		"workflows":    len(state.Workflows),
	})

	return state, nil
}

// Launch assembles the full configuration, snapshots it, and hands it to the
// deployment collaborator. Only available from the review step.
func (s *Service) Launch(ctx context.Context, sessionID uuid.UUID) (State, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return State{}, err
	}

	state := sess.State()
	if state.Step() != StepReview {
		return state, ErrWrongStep
	}
	if state.IsDeploying {
		return state, ErrBusy
	}
	if state.BusinessAnalysis == nil {
		return state, fmt.Errorf("cannot launch before analysis")
	}

	sess.Apply(Patch{IsDeploying: boolptr(true), LastError: strptr("")})
	s.publish(sess.ID, events.TypeDeployStarted, nil)

	genReq := buildGenerateRequest(sess.TenantID, state, s.target)

	if key, snapErr := s.snapshotConfig(ctx, sess.ID, genReq); snapErr != nil {
		// The snapshot is an audit artifact; deployment proceeds without it.
		s.logger.Warn("Failed to store configuration snapshot",
			zap.String("session_id", sess.ID.String()),
			zap.Error(snapErr))
	} else {
		s.logger.Debug("Configuration snapshot stored", zap.String("key", key))
	}

	result, err := s.deployer.Generate(ctx, genReq)
	if err != nil {
		next := sess.Apply(Patch{IsDeploying: boolptr(false), LastError: strptr(err.Error())})
		s.publish(sess.ID, events.TypeDeployFailed, map[string]any{"error": err.Error()})
		return next, err
	}

	next := sess.Apply(Patch{IsDeploying: boolptr(false), Deployment: result})
	s.publish(sess.ID, events.TypeDeployCompleted, map[string]any{"url": result.Endpoint()})

	s.logger.Info("Application launched",
		zap.String("session_id", sess.ID.String()),
		zap.String("url", result.Endpoint()))

	return next, nil
}

// Save archives the session and registers the generated application under
// the user's account. Anonymous sessions must sign up first.
func (s *Service) Save(ctx context.Context, sessionID, userID uuid.UUID) (*apps.Application, error) {
	if userID == uuid.Nil {
		return nil, ErrSignupRequired
	}

	sess, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	state := sess.State()
	if state.IsSaving {
		return nil, ErrBusy
	}
	sess.Apply(Patch{IsSaving: boolptr(true)})
	defer sess.Apply(Patch{IsSaving: boolptr(false)})

	if err := s.archiver.Archive(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to archive session: %w", err)
	}

	genReq := buildGenerateRequest(sess.TenantID, state, s.target)
	configBlob, err := json.Marshal(genReq)
	if err != nil {
		return nil, fmt.Errorf("failed to encode configuration: %w", err)
	}

	providers := make(pq.StringArray, 0, len(genReq.Integrations))
	for _, in := range genReq.Integrations {
		providers = append(providers, in.Provider)
	}

	app := &apps.Application{
		OwnerID:     userID,
		TenantID:    sess.TenantID,
		Name:        appName(state),
		WebsiteURL:  state.WebsiteURL,
		SnapshotKey: snapshotKey(sess.ID),
		Providers:   providers,
		Config:      types.JSONText(configBlob),
	}
	if state.Deployment != nil {
		app.AppURL = state.Deployment.Endpoint()
	}

	if err := s.registrar.Register(ctx, app); err != nil {
		return nil, err
	}

	return app, nil
}

func (s *Service) publish(sessionID uuid.UUID, eventType string, data map[string]any) {
	s.events.Publish(sessionID.String(), events.Message{
		Type:      eventType,
		SessionID: sessionID.String(),
		Data:      data,
		Timestamp: time.Now(),
	})
}

func (s *Service) snapshotConfig(ctx context.Context, sessionID uuid.UUID, genReq *deploy.GenerateRequest) (string, error) {
	blob, err := json.MarshalIndent(genReq, "", "  ")
	if err != nil {
		return "", err
	}
	key := snapshotKey(sessionID)
	if err := s.snapshots.Put(ctx, key, bytes.NewReader(blob)); err != nil {
		return "", err
	}
	return key, nil
}

func snapshotKey(sessionID uuid.UUID) string {
	return fmt.Sprintf("sessions/%s/config.json", sessionID)
}

func appName(state State) string {
	if state.BusinessAnalysis != nil && state.BusinessAnalysis.BusinessIntelligence.IndustryCategory != "" {
		return fmt.Sprintf("%s app for %s", state.BusinessAnalysis.BusinessIntelligence.IndustryCategory, state.WebsiteURL)
	}
	return state.WebsiteURL
}

// buildGenerateRequest flattens the wizard aggregate into the deployment
// collaborator's request shape. Only connected integrations and enabled
// workflows make it into the generated app.
func buildGenerateRequest(tenantID string, state State, target string) *deploy.GenerateRequest {
	genReq := &deploy.GenerateRequest{
		TenantID:   tenantID,
		WebsiteURL: state.WebsiteURL,
		Target:     target,
	}

	if state.BusinessAnalysis != nil {
		if len(state.BusinessAnalysis.Raw) > 0 {
			genReq.BusinessProfile = state.BusinessAnalysis.Raw
		} else if blob, err := json.Marshal(state.BusinessAnalysis); err == nil {
			genReq.BusinessProfile = blob
		}
	}

	for _, in := range state.Integrations {
		if in.ConnectionStatus != ConnectionConnected {
			continue
		}
		genReq.Integrations = append(genReq.Integrations, deploy.IntegrationSpec{
			Provider: in.ID,
			Type:     in.Type,
		})
	}

	for _, w := range state.Workflows {
		if !w.Enabled {
			continue
		}
		genReq.Workflows = append(genReq.Workflows, deploy.WorkflowSpec{
			ID:       w.ID,
			Name:     w.Name,
			Triggers: w.Triggers,
			Actions:  w.Actions,
		})
	}

	if state.AuthConfig != nil {
		genReq.AuthMethods = state.AuthConfig.EnabledMethods()
	}
	if state.Visualization != nil {
		genReq.Theme = state.Visualization.Theme
		genReq.Widgets = state.Visualization.EnabledWidgets()
	}

	return genReq
}

// integrationsFromSuggestions converts catalog suggestions to wizard cards.
// Connection state from an earlier analysis run is carried over so an
// already connected provider is not reset.
func integrationsFromSuggestions(suggestions []catalog.Suggestion, prev []Integration) []Integration {
	prevByID := make(map[string]Integration, len(prev))
	for _, in := range prev {
		prevByID[in.ID] = in
	}

	out := make([]Integration, 0, len(suggestions))
	for _, sug := range suggestions {
		in := Integration{
			ID:               sug.ID,
			Name:             sug.Name,
			Type:             sug.Type,
			LogoURL:          sug.LogoURL,
			Status:           IntegrationStatus(sug.Status),
			ConnectionStatus: ConnectionNotConnected,
			Confidence:       sug.Confidence,
		}
		if old, ok := prevByID[sug.ID]; ok && old.ConnectionStatus != ConnectionNotConnected {
			in.ConnectionStatus = old.ConnectionStatus
			in.StatusMessage = old.StatusMessage
		}
		out = append(out, in)
	}
	return out
}

// workflowsFromSuggestions replaces AI-generated workflows with the new
// suggestions while keeping everything the user added or toggled by hand.
func workflowsFromSuggestions(suggestions []analysis.WorkflowSuggestion, prev []Workflow) []Workflow {
	out := make([]Workflow, 0, len(suggestions)+len(prev))
	for _, sug := range suggestions {
		out = append(out, Workflow{
			ID:          sug.ID,
			Name:        sug.Name,
			Description: sug.Description,
			Enabled:     true,
			Triggers:    sug.Triggers,
			Actions:     sug.Actions,
			Category:    WorkflowAIGenerated,
		})
	}
	for _, w := range prev {
		if w.Category == WorkflowAIGenerated {
			continue
		}
		out = append(out, w)
	}
	return out
}

func visualizationFromSuggestions(suggestions []analysis.WidgetSuggestion, prev *VisualizationConfig) *VisualizationConfig {
	next := &VisualizationConfig{Theme: "system"}
	if prev != nil && prev.Theme != "" {
		next.Theme = prev.Theme
	}
	for _, sug := range suggestions {
		next.Widgets = append(next.Widgets, DashboardWidget{
			ID:       sug.ID,
			Name:     sug.Name,
			Enabled:  true,
			Category: sug.Category,
		})
	}
	return next
}
