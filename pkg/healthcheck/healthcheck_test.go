package healthcheck

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHealthCheck() *HealthCheck {
	return New("test", zap.NewNop())
}

func staticChecker(status Status, message string) Checker {
	return NewCustomChecker("static", func(ctx context.Context) (Status, string, interface{}) {
		return status, message, nil
	})
}

func TestCheckAggregatesWorstStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{
			name:     "all healthy",
			statuses: []Status{StatusHealthy, StatusHealthy},
			want:     StatusHealthy,
		},
		{
			name:     "degraded dominates healthy",
			statuses: []Status{StatusHealthy, StatusDegraded},
			want:     StatusDegraded,
		},
		{
			name:     "unhealthy dominates everything",
			statuses: []Status{StatusHealthy, StatusDegraded, StatusUnhealthy},
			want:     StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := newTestHealthCheck()
			hc.SetCacheTTL(0)
			for i, status := range tt.statuses {
				hc.Register(string(rune('a'+i)), staticChecker(status, ""))
			}

			response := hc.Check(context.Background())

			assert.Equal(t, tt.want, response.Status)
			assert.Len(t, response.Checks, len(tt.statuses))
		})
	}
}

func TestCheckCachesWithinTTL(t *testing.T) {
	var calls atomic.Int64
	hc := newTestHealthCheck()
	hc.Register("counted", NewCustomChecker("counted", func(ctx context.Context) (Status, string, interface{}) {
		calls.Add(1)
		return StatusHealthy, "", nil
	}))

	hc.Check(context.Background())
	hc.Check(context.Background())

	assert.Equal(t, int64(1), calls.Load(), "second check inside the TTL should serve the cache")

	hc.SetCacheTTL(0)
	hc.Check(context.Background())
	assert.Equal(t, int64(2), calls.Load())
}

func TestCheckNamesResultsAfterRegistration(t *testing.T) {
	hc := newTestHealthCheck()
	hc.SetCacheTTL(0)
	hc.Register("database", staticChecker(StatusHealthy, ""))

	response := hc.Check(context.Background())

	require.Len(t, response.Checks, 1)
	assert.Equal(t, "database", response.Checks[0].Name)
}

func TestCustomCheckerPassesThroughFields(t *testing.T) {
	checker := NewCustomChecker("config", func(ctx context.Context) (Status, string, interface{}) {
		return StatusDegraded, "stale snapshot", map[string]interface{}{"version": 3}
	})

	check := checker.Check(context.Background())

	assert.Equal(t, "config", check.Name)
	assert.Equal(t, StatusDegraded, check.Status)
	assert.Equal(t, "stale snapshot", check.Message)
	assert.NotNil(t, check.Metadata)
}

func TestLivenessHandlerAlwaysOK(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hc := newTestHealthCheck()
	hc.Register("broken", staticChecker(StatusUnhealthy, "down"))

	router := gin.New()
	router.GET("/health/live", hc.LivenessHandler())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadinessHandlerFailsWhenUnhealthy(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hc := newTestHealthCheck()
	hc.SetCacheTTL(0)
	hc.Register("database", staticChecker(StatusUnhealthy, "connection refused"))

	router := gin.New()
	router.GET("/health/ready", hc.ReadinessHandler())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReadinessHandlerOKWhenHealthy(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hc := newTestHealthCheck()
	hc.SetCacheTTL(0)
	hc.Register("database", staticChecker(StatusHealthy, ""))

	router := gin.New()
	router.GET("/health/ready", hc.ReadinessHandler())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestResponseMarshalsDurationsAsMilliseconds(t *testing.T) {
	response := Response{
		Status:        StatusHealthy,
		Version:       "test",
		Timestamp:     time.Now(),
		TotalDuration: 1500 * time.Millisecond,
		Checks: []Check{
			{Name: "database", Status: StatusHealthy, Duration: 250 * time.Millisecond},
		},
	}

	raw, err := json.Marshal(response)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, float64(1500), decoded["total_duration_ms"])
}
