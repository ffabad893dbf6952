package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusError   = "error"
)

var (
	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_login_attempts_total",
		Help: "The total number of login attempts",
	}, []string{"status"})

	TokenRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_token_refresh_total",
		Help: "The total number of token refreshes",
	}, []string{"status"})

	RateLimitExceededTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_rate_limit_exceeded_total",
		Help: "Requests rejected by the rate limiter",
	})

	SessionsSweptTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_sessions_swept_total",
		Help: "Expired refresh token rows deleted by the sweeper",
	})

	UsersTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "auth_users",
		Help: "Registered users",
	})

	UsersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "auth_users_active",
		Help: "Users with an active account",
	})

	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "auth_sessions_active",
		Help: "Refresh tokens that are neither revoked nor expired",
	})

	RecentLogins = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "auth_recent_logins_24h",
		Help: "Users who logged in during the last 24 hours",
	})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "auth_http_request_duration_seconds",
		Help:    "The request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
