package main

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passport/internal/passport/service"
	"passport/internal/passport/store/memory"
	"passport/internal/platform/actortoken"
	"passport/internal/platform/config"
	"passport/internal/platform/metrics"
	id "passport/pkg/domain"
	"passport/pkg/platform/middleware/request"
	"passport/pkg/testutil"
)

func testRouter(t *testing.T) (http.Handler, *actortoken.Service) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := actortoken.New("test-signing-key", "passport", "passport-api")
	svc := service.New(memory.New(), service.WithLogger(log))
	return newRouter(svc, tokens, metrics.New(prometheus.NewRegistry()), &infra{}, log), tokens
}

func TestRouterHealthAndMetrics(t *testing.T) {
	router, _ := testRouter(t)

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get(request.HeaderRequestID))

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouterRequiresBearerToken(t *testing.T) {
	router, tokens := testRouter(t)

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/passports", map[string]any{}))
	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")

	owner := id.UserID(uuid.New())
	token, err := tokens.Issue(owner, "owner", time.Minute)
	require.NoError(t, err)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/passports", map[string]any{
		"child":              map[string]any{"name": "Kit"},
		"default_visibility": map[string]any{"level": "private"},
	})
	req.Header.Set("Authorization", "Bearer "+token)
	rr = testutil.DoRequest(router, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Header().Get("Location"), "/passports/")
}

func TestWorkflowConfigCarriesSectionLimits(t *testing.T) {
	cfg := workflowConfig(config.Workflow{SuggestedMaxLoves: 7, SuggestedMaxNeeds: 2, CASAttempts: 4})
	assert.Len(t, cfg.SuggestedMax, 4)
	assert.Equal(t, 4, cfg.CASAttempts)
}
