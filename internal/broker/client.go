package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opsai/onboarding-backend/internal/config"
)

// AuthorizationSession is the broker's response to an authorization request.
// Completion is signaled out-of-band via the callback endpoint, not here.
type AuthorizationSession struct {
	AuthURL string `json:"authUrl"`
	State   string `json:"state"`
}

// Client requests provider authorization URLs from the OAuth broker.
type Client interface {
	CreateAuthorization(ctx context.Context, provider, tenantID string) (*AuthorizationSession, error)
}

// NewClient returns an HTTP client against the configured broker, or a local
// stand-in when no broker URL is configured.
func NewClient(cfg config.OAuthConfig, logger *zap.Logger) Client {
	if cfg.BrokerURL == "" {
		return NewLocalClient()
	}
	return &HTTPClient{
		baseURL: cfg.BrokerURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

// HTTPClient calls the external OAuth broker.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

type authorizationRequest struct {
	Provider string `json:"provider"`
	TenantID string `json:"tenantId"`
}

func (c *HTTPClient) CreateAuthorization(ctx context.Context, provider, tenantID string) (*AuthorizationSession, error) {
	body, err := json.Marshal(authorizationRequest{Provider: provider, TenantID: tenantID})
	if err != nil {
		return nil, fmt.Errorf("failed to encode authorization request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/authorize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build authorization request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("authorization request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oauth broker returned %d for provider %s", resp.StatusCode, provider)
	}

	var session AuthorizationSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("failed to decode authorization response: %w", err)
	}
	if session.AuthURL == "" || session.State == "" {
		return nil, fmt.Errorf("oauth broker returned an incomplete authorization for provider %s", provider)
	}

	c.logger.Info("Authorization created",
		zap.String("provider", provider),
		zap.String("tenant_id", tenantID))

	return &session, nil
}

// LocalClient fabricates authorization sessions for development runs where no
// broker is available. The generated URL points at a placeholder host.
type LocalClient struct{}

func NewLocalClient() *LocalClient {
	return &LocalClient{}
}

func (c *LocalClient) CreateAuthorization(ctx context.Context, provider, tenantID string) (*AuthorizationSession, error) {
	state := uuid.New().String()
	q := url.Values{}
	q.Set("provider", provider)
	q.Set("tenant_id", tenantID)
	q.Set("state", state)
	return &AuthorizationSession{
		AuthURL: "https://broker.local/authorize?" + q.Encode(),
		State:   state,
	}, nil
}
