package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHTTPClientAnalyze(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://acme-store.com", req["websiteUrl"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"businessIntelligence": {"industryCategory": "ecommerce"},
			"technicalRequirements": {
				"integrationOpportunities": [
					{"provider": "stripe", "priority": "detected", "confidence": 95}
				]
			},
			"someFutureField": {"nested": true}
		}`))
	}))
	defer srv.Close()

	client := &HTTPClient{
		endpoint: srv.URL,
		http:     &http.Client{Timeout: time.Second},
		logger:   zap.NewNop(),
	}

	profile, err := client.Analyze(context.Background(), "https://acme-store.com")
	require.NoError(t, err)
	assert.Equal(t, "ecommerce", profile.BusinessIntelligence.IndustryCategory)
	require.Len(t, profile.TechnicalRequirements.IntegrationOpportunities, 1)
	assert.Equal(t, "stripe", profile.TechnicalRequirements.IntegrationOpportunities[0].Provider)

	// Fields the wizard does not destructure survive in the raw payload.
	assert.Contains(t, string(profile.Raw), "someFutureField")
}

func TestHTTPClientAnalyzeNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"analysis unavailable"}`, http.StatusBadGateway)
	}))
	defer srv.Close()

	client := &HTTPClient{
		endpoint: srv.URL,
		http:     &http.Client{Timeout: time.Second},
		logger:   zap.NewNop(),
	}

	_, err := client.Analyze(context.Background(), "https://acme.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestStubClientDeterministic(t *testing.T) {
	stub := NewStubClient()

	a, err := stub.Analyze(context.Background(), "https://acme-store.com")
	require.NoError(t, err)
	b, err := stub.Analyze(context.Background(), "https://acme-store.com")
	require.NoError(t, err)
	assert.Equal(t, a.BusinessIntelligence, b.BusinessIntelligence)
	assert.Equal(t, "ecommerce", a.BusinessIntelligence.IndustryCategory)

	saas, err := stub.Analyze(context.Background(), "https://tracker-app.io")
	require.NoError(t, err)
	assert.Equal(t, "b2b_saas", saas.BusinessIntelligence.IndustryCategory)
	assert.NotEmpty(t, saas.TechnicalRequirements.IntegrationOpportunities)
}
