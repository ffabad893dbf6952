package system

import (
	"context"
	"net/http"
	"time"

	"authservice/internal/pkg/metrics"
	"authservice/internal/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const recentLoginWindow = 24 * time.Hour

// StatsSource supplies the account gauges; *repository.Store implements it.
type StatsSource interface {
	AccountStats(ctx context.Context, loginWindow time.Duration) (repository.AccountStats, error)
}

// MetricsHandler refreshes the account gauges before each scrape and then
// serves the default prometheus registry.
type MetricsHandler struct {
	stats   StatsSource
	timeout time.Duration
	log     *zap.Logger
	prom    http.Handler
}

func NewMetricsHandler(stats StatsSource, timeout time.Duration, log *zap.Logger) *MetricsHandler {
	return &MetricsHandler{stats: stats, timeout: timeout, log: log, prom: metrics.Handler()}
}

// RegisterRoutes mounts GET /metrics behind guards, which callers use to
// require an authenticated operator.
func (h *MetricsHandler) RegisterRoutes(r gin.IRoutes, guards ...gin.HandlerFunc) {
	handlers := append(append([]gin.HandlerFunc{}, guards...), h.Metrics)
	r.GET("/metrics", handlers...)
}

func (h *MetricsHandler) Metrics(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	st, err := h.stats.AccountStats(ctx, recentLoginWindow)
	cancel()

	// on error the previous gauge values are served
	if err != nil {
		h.log.Warn("account stats unavailable", zap.Error(err))
	} else {
		metrics.UsersTotal.Set(float64(st.TotalUsers))
		metrics.UsersActive.Set(float64(st.ActiveUsers))
		metrics.SessionsActive.Set(float64(st.ActiveSessions))
		metrics.RecentLogins.Set(float64(st.RecentLogins))
	}

	h.prom.ServeHTTP(c.Writer, c.Request)
}
