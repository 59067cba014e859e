package deploy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/opsai/onboarding-backend/internal/config"
)

// GenerateRequest is the assembled configuration sent to the
// code-generation/deployment collaborator.
type GenerateRequest struct {
	TenantID        string            `json:"tenantId"`
	WebsiteURL      string            `json:"websiteUrl"`
	BusinessProfile json.RawMessage   `json:"businessProfile"`
	Integrations    []IntegrationSpec `json:"integrations"`
	Workflows       []WorkflowSpec    `json:"workflows"`
	AuthMethods     []string          `json:"authMethods"`
	Theme           string            `json:"theme"`
	Widgets         []string          `json:"widgets"`
	Target          string            `json:"deploymentTarget"`
}

// IntegrationSpec is a connected provider included in the generated app.
type IntegrationSpec struct {
	Provider string `json:"provider"`
	Type     string `json:"type"`
}

// WorkflowSpec is an enabled workflow included in the generated app.
type WorkflowSpec struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Triggers []string `json:"triggers"`
	Actions  []string `json:"actions"`
}

// Result is the deployment outcome. The collaborator answers with either url
// or appUrl depending on the target platform.
type Result struct {
	Success bool   `json:"success"`
	URL     string `json:"url,omitempty"`
	AppURL  string `json:"appUrl,omitempty"`
	Port    int    `json:"port,omitempty"`
}

// Endpoint returns whichever deployment address the collaborator filled in.
func (r *Result) Endpoint() string {
	if r.URL != "" {
		return r.URL
	}
	return r.AppURL
}

type errorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Client generates and deploys an application from the assembled
// configuration.
type Client interface {
	Generate(ctx context.Context, req *GenerateRequest) (*Result, error)
}

// NewClient returns an HTTP client against the configured deployment
// endpoint, or the stub when none is configured.
func NewClient(cfg config.DeployConfig, logger *zap.Logger) Client {
	if cfg.Endpoint == "" {
		return NewStubClient()
	}
	return &HTTPClient{
		endpoint: cfg.Endpoint,
		http:     &http.Client{Timeout: cfg.Timeout},
		logger:   logger,
	}
}

// HTTPClient calls the external code-generation/deployment service.
type HTTPClient struct {
	endpoint string
	http     *http.Client
	logger   *zap.Logger
}

func (c *HTTPClient) Generate(ctx context.Context, genReq *GenerateRequest) (*Result, error) {
	body, err := json.Marshal(genReq)
	if err != nil {
		return nil, fmt.Errorf("failed to encode generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var payload errorPayload
		if decodeErr := json.NewDecoder(resp.Body).Decode(&payload); decodeErr == nil && payload.Error != "" {
			return nil, fmt.Errorf("deployment failed: %s", payload.Error)
		}
		return nil, fmt.Errorf("deployment service returned %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode deployment response: %w", err)
	}
	if !result.Success {
		return nil, fmt.Errorf("deployment service reported failure")
	}

	c.logger.Info("Application deployed",
		zap.String("tenant_id", genReq.TenantID),
		zap.String("endpoint", result.Endpoint()))

	return &result, nil
}

// StubClient fabricates a deployment result from the tenant id. It stands in
// for the deployment collaborator in development and tests.
type StubClient struct{}

func NewStubClient() *StubClient {
	return &StubClient{}
}

func (c *StubClient) Generate(ctx context.Context, req *GenerateRequest) (*Result, error) {
	slug := slugify(req.WebsiteURL)
	if slug == "" {
		slug = req.TenantID
	}
	return &Result{
		Success: true,
		URL:     fmt.Sprintf("https://%s.apps.opsai.dev", slug),
		Port:    8080,
	}, nil
}

func slugify(websiteURL string) string {
	u, err := url.Parse(websiteURL)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.TrimPrefix(u.Host, "www.")
	if i := strings.Index(host, "."); i > 0 {
		host = host[:i]
	}
	return strings.ToLower(host)
}
