package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/opsai/onboarding-backend/internal/config"
)

// Client analyzes a business website and returns its profile.
type Client interface {
	Analyze(ctx context.Context, websiteURL string) (*BusinessProfile, error)
}

// NewClient returns an HTTP client against the configured analysis endpoint,
// or the deterministic stub when no endpoint is configured.
func NewClient(cfg config.AnalysisConfig, logger *zap.Logger) Client {
	if cfg.Endpoint == "" {
		return NewStubClient()
	}
	return &HTTPClient{
		endpoint: cfg.Endpoint,
		http:     &http.Client{Timeout: cfg.Timeout},
		logger:   logger,
	}
}

// HTTPClient calls the external AI analysis service.
type HTTPClient struct {
	endpoint string
	http     *http.Client
	logger   *zap.Logger
}

type analyzeRequest struct {
	WebsiteURL string `json:"websiteUrl"`
}

// Analyze POSTs the website URL and decodes the profile blob.
func (c *HTTPClient) Analyze(ctx context.Context, websiteURL string) (*BusinessProfile, error) {
	body, err := json.Marshal(analyzeRequest{WebsiteURL: websiteURL})
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build analysis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analysis request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read analysis response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("analysis service returned %d: %s", resp.StatusCode, string(raw))
	}

	var profile BusinessProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, fmt.Errorf("failed to decode business profile: %w", err)
	}
	profile.Raw = raw

	c.logger.Info("Website analyzed",
		zap.String("website_url", websiteURL),
		zap.String("industry", profile.BusinessIntelligence.IndustryCategory),
		zap.Duration("elapsed", time.Since(start)))

	return &profile, nil
}
