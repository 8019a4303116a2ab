package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu     sync.Mutex
	health map[string]bool
}

func (o *recordingObserver) SetHealth(component string, up bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.health == nil {
		o.health = make(map[string]bool)
	}
	o.health[component] = up
}

func ok(name string) HealthChecker {
	return CheckFunc{Component: name, Fn: func(context.Context) error { return nil }}
}

func failing(name string) HealthChecker {
	return CheckFunc{Component: name, Fn: func(context.Context) error { return errors.New("connection refused") }}
}

func TestLiveness(t *testing.T) {
	h := NewHealthHandler("1.2.3", nil, failing("postgres"))
	w := httptest.NewRecorder()
	h.Liveness(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var body LivenessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "alive", body.Status)
	assert.Equal(t, "1.2.3", body.Version)
}

func TestReadiness_NoCheckers(t *testing.T) {
	w := httptest.NewRecorder()
	NewHealthHandler("dev", nil).Readiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadiness_AllHealthy(t *testing.T) {
	obs := &recordingObserver{}
	h := NewHealthHandler("dev", obs, ok("postgres"), ok("redis"))
	w := httptest.NewRecorder()
	h.Readiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var body ReadinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ready", body.Status)
	assert.Len(t, body.Components, 2)
	assert.Equal(t, map[string]bool{"postgres": true, "redis": true}, obs.health)
}

func TestReadiness_OneUnhealthy(t *testing.T) {
	obs := &recordingObserver{}
	h := NewHealthHandler("dev", obs, ok("postgres"), failing("minio"))
	w := httptest.NewRecorder()
	h.Readiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body ReadinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "not_ready", body.Status)
	assert.Equal(t, "unhealthy", body.Components["minio"].Status)
	assert.Equal(t, "connection refused", body.Components["minio"].Error)
	assert.False(t, obs.health["minio"])
}

//Personal.AI order the ending
