package system

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"authservice/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixedStats struct {
	stats  repository.AccountStats
	err    error
	window time.Duration
}

func (f *fixedStats) AccountStats(_ context.Context, window time.Duration) (repository.AccountStats, error) {
	f.window = window
	return f.stats, f.err
}

func scrape(t *testing.T, h *MetricsHandler, guards ...gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.RegisterRoutes(r, guards...)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return w
}

func TestMetrics_ExportsAccountGauges(t *testing.T) {
	src := &fixedStats{stats: repository.AccountStats{TotalUsers: 7, ActiveUsers: 5, ActiveSessions: 3, RecentLogins: 4}}

	w := scrape(t, NewMetricsHandler(src, time.Second, zap.NewNop()))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 24*time.Hour, src.window)
	body := w.Body.String()
	assert.Contains(t, body, "auth_users 7\n")
	assert.Contains(t, body, "auth_users_active 5\n")
	assert.Contains(t, body, "auth_sessions_active 3\n")
	assert.Contains(t, body, "auth_recent_logins_24h 4\n")
}

func TestMetrics_StatsFailureStillServes(t *testing.T) {
	src := &fixedStats{err: errors.New("db down")}

	w := scrape(t, NewMetricsHandler(src, time.Second, zap.NewNop()))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "auth_users_active")
}

func TestMetrics_GuardsRunFirst(t *testing.T) {
	src := &fixedStats{}
	deny := func(c *gin.Context) { c.AbortWithStatus(http.StatusForbidden) }

	w := scrape(t, NewMetricsHandler(src, time.Second, zap.NewNop()), deny)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Zero(t, src.window)
}
