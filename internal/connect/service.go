package connect

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opsai/onboarding-backend/internal/broker"
	"github.com/opsai/onboarding-backend/internal/config"
	"github.com/opsai/onboarding-backend/internal/events"
	"github.com/opsai/onboarding-backend/internal/onboarding"
	"github.com/opsai/onboarding-backend/internal/syncsetup"
	"github.com/opsai/onboarding-backend/pkg/transitions"
)

var (
	// ErrConnectionInFlight is returned when a second connection attempt is
	// made for a provider that is already connecting.
	ErrConnectionInFlight = errors.New("connection attempt already in progress")
	// ErrInvalidTransition is returned when the integration's current status
	// does not allow starting a connection.
	ErrInvalidTransition = errors.New("integration cannot start connecting from its current status")
	// ErrOriginNotAllowed is returned for callbacks from origins outside the
	// allow-list.
	ErrOriginNotAllowed = errors.New("callback origin not allowed")
	// ErrNoAttempt is returned when a callback or popup report references no
	// live connection attempt.
	ErrNoAttempt = errors.New("no connection attempt in progress")
	// ErrStateMismatch is returned when the callback's state nonce does not
	// match the attempt's.
	ErrStateMismatch = errors.New("callback state does not match")
)

// statusTransitions is the legal connection-status graph. Connected is
// terminal; a failed attempt can retry, an abandoned one returns to
// not_connected.
var statusTransitions = map[string][]string{
	string(onboarding.ConnectionNotConnected): {string(onboarding.ConnectionConnecting)},
	string(onboarding.ConnectionConnecting): {
		string(onboarding.ConnectionConnected),
		string(onboarding.ConnectionError),
		string(onboarding.ConnectionNotConnected),
	},
	string(onboarding.ConnectionError):     {string(onboarding.ConnectionConnecting)},
	string(onboarding.ConnectionConnected): {},
}

// CallbackMessage is the completion message relayed from the OAuth popup.
type CallbackMessage struct {
	Type         string `json:"type"`
	Provider     string `json:"provider"`
	SessionID    string `json:"session_id"`
	State        string `json:"state"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Callback message types sent by the OAuth popup.
const (
	CallbackSuccess = "OAUTH_SUCCESS"
	CallbackError   = "OAUTH_ERROR"
)

type waiterKey struct {
	session  uuid.UUID
	provider string
}

type callbackResult struct {
	cred *Credential
	err  string
}

// waiter tracks one live connection attempt. The await goroutine is the only
// writer of the integration's status once the attempt starts.
type waiter struct {
	state       string
	signal      chan callbackResult
	popupClosed atomic.Bool
	done        chan struct{}
}

// Service runs the integration connection flow: it opens an authorization
// with the broker, then waits for the first of completion callback, popup
// abandonment, or timeout.
type Service struct {
	sessions *onboarding.Store
	broker   broker.Client
	tokens   TokenStore
	sync     syncsetup.Client
	events   events.Publisher
	machine  *transitions.Machine
	logger   *zap.Logger

	timeout        time.Duration
	pollInterval   time.Duration
	allowedOrigins map[string]bool

	mu      sync.Mutex
	waiters map[waiterKey]*waiter
}

func NewService(
	sessions *onboarding.Store,
	brokerClient broker.Client,
	tokens TokenStore,
	syncClient syncsetup.Client,
	publisher events.Publisher,
	cfg config.OAuthConfig,
	logger *zap.Logger,
) *Service {
	allowed := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		allowed[origin] = true
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 2 * time.Second
	}

	return &Service{
		sessions:       sessions,
		broker:         brokerClient,
		tokens:         tokens,
		sync:           syncClient,
		events:         publisher,
		machine:        transitions.New(statusTransitions),
		logger:         logger,
		timeout:        timeout,
		pollInterval:   poll,
		allowedOrigins: allowed,
		waiters:        make(map[waiterKey]*waiter),
	}
}

// Connect starts a connection attempt for one integration and returns the
// authorization URL the client should open. The attempt resolves in the
// background; progress is pushed over the events hub.
func (s *Service) Connect(ctx context.Context, sessionID uuid.UUID, provider string) (*broker.AuthorizationSession, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	integration, ok := sess.Integration(provider)
	if !ok {
		return nil, fmt.Errorf("integration %s not present in session", provider)
	}

	if !s.machine.CanTransition(string(integration.ConnectionStatus), string(onboarding.ConnectionConnecting)) {
		if integration.ConnectionStatus == onboarding.ConnectionConnecting {
			return nil, ErrConnectionInFlight
		}
		allowed := s.machine.AllowedFrom(string(integration.ConnectionStatus))
		if len(allowed) == 0 {
			return nil, fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, integration.ConnectionStatus)
		}
		return nil, fmt.Errorf("%w: %s allows only %s",
			ErrInvalidTransition, integration.ConnectionStatus, strings.Join(allowed, ", "))
	}

	authSession, err := s.broker.CreateAuthorization(ctx, provider, sess.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to create authorization: %w", err)
	}

	key := waiterKey{session: sessionID, provider: provider}
	w := &waiter{
		state:  authSession.State,
		signal: make(chan callbackResult, 1),
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	if _, exists := s.waiters[key]; exists {
		s.mu.Unlock()
		return nil, ErrConnectionInFlight
	}
	s.waiters[key] = w
	s.mu.Unlock()

	if _, err := sess.SetConnectionStatus(provider, onboarding.ConnectionConnecting, ""); err != nil {
		s.removeWaiter(key)
		return nil, err
	}
	s.publish(sessionID, events.TypeIntegrationConnecting, provider, nil)

	go s.await(sess, provider, key, w)

	return authSession, nil
}

// HandleCallback delivers an OAuth completion message to the waiting
// connection attempt. The origin must be on the allow-list and the state
// nonce must match the attempt; anything else is dropped with an error so
// spoofed completions cannot flip an integration to connected.
func (s *Service) HandleCallback(ctx context.Context, origin string, msg CallbackMessage) error {
	// Same policy as the websocket hub: cross-origin callers must be on the
	// allow-list, and an empty list admits none of them.
	if origin != "" && !s.allowedOrigins[origin] {
		s.logger.Warn("Rejected callback from unknown origin", zap.String("origin", origin))
		return ErrOriginNotAllowed
	}

	sessionID, err := uuid.Parse(msg.SessionID)
	if err != nil {
		return fmt.Errorf("invalid session id: %w", err)
	}

	key := waiterKey{session: sessionID, provider: msg.Provider}
	s.mu.Lock()
	w, ok := s.waiters[key]
	s.mu.Unlock()
	if !ok {
		return ErrNoAttempt
	}
	if msg.State != w.state {
		return ErrStateMismatch
	}

	var result callbackResult
	switch msg.Type {
	case CallbackSuccess:
		sess, err := s.sessions.Get(sessionID)
		if err != nil {
			return err
		}
		cred := &Credential{
			TenantID:     sess.TenantID,
			Provider:     msg.Provider,
			AccessToken:  msg.AccessToken,
			RefreshToken: msg.RefreshToken,
		}
		if msg.ExpiresIn > 0 {
			cred.ExpiresAt = time.Now().Add(time.Duration(msg.ExpiresIn) * time.Second)
		}
		if err := s.tokens.Save(ctx, cred); err != nil {
			return err
		}
		result = callbackResult{cred: cred}
	case CallbackError:
		reason := msg.Error
		if reason == "" {
			reason = "authorization failed"
		}
		result = callbackResult{err: reason}
	default:
		return fmt.Errorf("unknown callback type %q", msg.Type)
	}

	select {
	case w.signal <- result:
	case <-w.done:
		// Attempt already resolved; late message is dropped.
	default:
		// A result is already queued; extras are dropped.
	}
	return nil
}

// ReportPopupClosed records that the user closed the authorization popup.
// The waiter notices on its next poll and resolves the attempt.
func (s *Service) ReportPopupClosed(sessionID uuid.UUID, provider string) error {
	key := waiterKey{session: sessionID, provider: provider}
	s.mu.Lock()
	w, ok := s.waiters[key]
	s.mu.Unlock()
	if !ok {
		return ErrNoAttempt
	}
	w.popupClosed.Store(true)
	return nil
}

// await resolves one connection attempt. Exactly one of the three arms wins:
// a completion callback, the poll loop (popup closed or credential found), or
// the timeout. The ticker, timer and waiter registration are torn down on
// every path.
func (s *Service) await(sess *onboarding.Session, provider string, key waiterKey, w *waiter) {
	ticker := time.NewTicker(s.pollInterval)
	timer := time.NewTimer(s.timeout)
	defer func() {
		ticker.Stop()
		timer.Stop()
		close(w.done)
		s.removeWaiter(key)
	}()

	ctx := context.Background()

	for {
		select {
		case result := <-w.signal:
			if result.err != "" {
				s.resolve(sess, provider, onboarding.ConnectionError, result.err, events.TypeIntegrationError)
				return
			}
			s.finishConnected(ctx, sess, provider)
			return

		case <-ticker.C:
			// The completion message can be lost (popup navigated away
			// before posting). A persisted credential is treated as success.
			if cred, found, err := s.tokens.Lookup(ctx, sess.TenantID, provider); err == nil && found && cred.AccessToken != "" {
				s.finishConnected(ctx, sess, provider)
				return
			}
			if w.popupClosed.Load() {
				s.resolve(sess, provider, onboarding.ConnectionNotConnected, "", events.TypeIntegrationAbandoned)
				return
			}

		case <-timer.C:
			s.resolve(sess, provider, onboarding.ConnectionError, "connection timed out", events.TypeIntegrationError)
			return
		}
	}
}

func (s *Service) finishConnected(ctx context.Context, sess *onboarding.Session, provider string) {
	s.resolve(sess, provider, onboarding.ConnectionConnected, "", events.TypeIntegrationConnected)

	// Data-sync setup is best effort; a failure is surfaced on the card but
	// does not undo the connection.
	result, err := s.sync.Setup(ctx, syncsetup.SetupRequest{
		TenantID: sess.TenantID,
		Provider: provider,
	})
	if err != nil || result == nil || !result.Success {
		msg := "connected, but data sync setup failed"
		s.logger.Warn("Data sync setup failed",
			zap.String("session_id", sess.ID.String()),
			zap.String("provider", provider),
			zap.Error(err))
		if _, statusErr := sess.SetConnectionStatus(provider, onboarding.ConnectionConnected, msg); statusErr != nil {
			s.logger.Warn("Failed to record sync warning", zap.Error(statusErr))
		}
	}
}

func (s *Service) resolve(sess *onboarding.Session, provider string, status onboarding.ConnectionStatus, message, eventType string) {
	integration, ok := sess.Integration(provider)
	if !ok {
		return
	}
	if !s.machine.CanTransition(string(integration.ConnectionStatus), string(status)) {
		s.logger.Warn("Dropped illegal connection transition",
			zap.String("provider", provider),
			zap.String("from", string(integration.ConnectionStatus)),
			zap.String("to", string(status)))
		return
	}
	if _, err := sess.SetConnectionStatus(provider, status, message); err != nil {
		s.logger.Warn("Failed to update connection status", zap.Error(err))
		return
	}

	data := map[string]any{"provider": provider, "status": string(status)}
	if message != "" {
		data["message"] = message
	}
	s.publish(sess.ID, eventType, provider, data)
}

func (s *Service) publish(sessionID uuid.UUID, eventType, provider string, data map[string]any) {
	if data == nil {
		data = map[string]any{"provider": provider}
	}
	s.events.Publish(sessionID.String(), events.Message{
		Type:      eventType,
		SessionID: sessionID.String(),
		Data:      data,
		Timestamp: time.Now(),
	})
}

func (s *Service) removeWaiter(key waiterKey) {
	s.mu.Lock()
	delete(s.waiters, key)
	s.mu.Unlock()
}
