package syncsetup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/opsai/onboarding-backend/internal/config"
)

// SetupRequest asks the data-sync collaborator to provision a pipeline for a
// freshly connected provider.
type SetupRequest struct {
	TenantID   string `json:"tenantId"`
	Provider   string `json:"provider"`
	PropertyID string `json:"propertyId,omitempty"`
}

// Result is the collaborator's response.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Client provisions data-sync pipelines after a successful OAuth connection.
// Failures here are soft: the OAuth grant itself already succeeded.
type Client interface {
	Setup(ctx context.Context, req SetupRequest) (*Result, error)
}

// NewClient returns an HTTP client against the configured sync endpoint, or a
// no-op client when none is configured.
func NewClient(cfg config.SyncConfig, logger *zap.Logger) Client {
	if cfg.Endpoint == "" {
		return NewNoopClient()
	}
	return &HTTPClient{
		endpoint: cfg.Endpoint,
		http:     &http.Client{Timeout: cfg.Timeout},
		logger:   logger,
	}
}

// HTTPClient calls the external data-sync setup service.
type HTTPClient struct {
	endpoint string
	http     *http.Client
	logger   *zap.Logger
}

func (c *HTTPClient) Setup(ctx context.Context, setupReq SetupRequest) (*Result, error) {
	body, err := json.Marshal(setupReq)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sync setup request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build sync setup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sync setup request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sync setup service returned %d for provider %s", resp.StatusCode, setupReq.Provider)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode sync setup response: %w", err)
	}

	c.logger.Info("Data sync configured",
		zap.String("provider", setupReq.Provider),
		zap.String("tenant_id", setupReq.TenantID),
		zap.Bool("success", result.Success))

	return &result, nil
}

// NoopClient reports success without provisioning anything.
type NoopClient struct{}

func NewNoopClient() *NoopClient {
	return &NoopClient{}
}

func (c *NoopClient) Setup(ctx context.Context, req SetupRequest) (*Result, error) {
	return &Result{Success: true, Message: "sync setup skipped (no endpoint configured)"}, nil
}
