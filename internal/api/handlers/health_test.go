package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trendpulse/trendservice/internal/api/handlers"
	"github.com/trendpulse/trendservice/internal/api/models"
	"github.com/trendpulse/trendservice/internal/config"
	"github.com/trendpulse/trendservice/internal/gate"
)

func setupTestRouter(h *handlers.Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api/v1")
	api.GET("/health", h.Health)
	api.GET("/stats", h.Stats)
	return r
}

func TestHealth(t *testing.T) {
	cfg := &config.Config{}
	h := handlers.New(cfg, nil, nil, gate.New())
	r := setupTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.StatusResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
}

func TestStats(t *testing.T) {
	cfg := &config.Config{}
	h := handlers.New(cfg, nil, nil, gate.New())
	r := setupTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.ServerStatsResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Uptime)
	assert.GreaterOrEqual(t, resp.CPU.NumCPU, 1)
	assert.Equal(t, 0, resp.Engine.GateQueueDepth)
}
