package onboarding

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opsai/onboarding-backend/internal/auth"
	"github.com/opsai/onboarding-backend/internal/config"
)

func newTestRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc, _, _ := newTestService(t)
	authSvc := auth.NewService(nil, config.SecurityConfig{
		JWTSecret: "test-secret",
		TokenTTL:  time.Hour,
	}, zap.NewNop())

	r := gin.New()
	NewHandler(svc).RegisterRoutes(r, authSvc)
	return r, svc
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPatchCannotSetConnectionStatus(t *testing.T) {
	r, svc := newTestRouter(t)
	sess, err := svc.StartSession("https://acme.example")
	require.NoError(t, err)
	sess.Apply(Patch{Integrations: []Integration{
		{ID: "stripe", Name: "Stripe", ConnectionStatus: ConnectionNotConnected},
	}})

	body := `{"integrations":[{"id":"stripe","name":"Stripe","connection_status":"connected"}]}`
	w := doJSON(t, r, http.MethodPatch, fmt.Sprintf("/onboarding/sessions/%s", sess.ID), body)
	require.Equal(t, http.StatusOK, w.Code)

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.State.Integrations, 1)
	assert.Equal(t, ConnectionNotConnected, resp.State.Integrations[0].ConnectionStatus)
	assert.Equal(t, ConnectionNotConnected, sess.State().Integrations[0].ConnectionStatus)
}

func TestPatchCannotRevertConnectedStatus(t *testing.T) {
	r, svc := newTestRouter(t)
	sess, err := svc.StartSession("https://acme.example")
	require.NoError(t, err)
	sess.Apply(Patch{Integrations: []Integration{
		{ID: "stripe", Name: "Stripe", ConnectionStatus: ConnectionConnected},
	}})

	body := `{"integrations":[{"id":"stripe","name":"Stripe","connection_status":"not_connected"}]}`
	w := doJSON(t, r, http.MethodPatch, fmt.Sprintf("/onboarding/sessions/%s", sess.ID), body)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, ConnectionConnected, sess.State().Integrations[0].ConnectionStatus)
}

func TestSaveWithoutAccountReturnsSignupCode(t *testing.T) {
	r, svc := newTestRouter(t)
	sess, err := svc.StartSession("https://acme.example")
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/onboarding/sessions/%s/save", sess.ID), "{}")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "signup_required", resp["code"])
}
