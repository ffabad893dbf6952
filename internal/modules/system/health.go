package system

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
)

// Pinger is one dependency the health check probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// RedisPinger probes a go-redis client.
func RedisPinger(client *redis.Client) Pinger {
	return PingFunc(func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}

type Component struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type HealthReport struct {
	Status        string      `json:"status"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	Components    []Component `json:"components"`
	Timestamp     time.Time   `json:"timestamp"`
}

type check struct {
	name   string
	pinger Pinger
}

type HealthHandler struct {
	checks  []check
	started time.Time
	timeout time.Duration
	log     *zap.Logger
}

func NewHealthHandler(timeout time.Duration, log *zap.Logger) *HealthHandler {
	return &HealthHandler{
		started: time.Now(),
		timeout: timeout,
		log:     log,
	}
}

// With adds a named dependency. Order is kept in the report.
func (h *HealthHandler) With(name string, p Pinger) *HealthHandler {
	h.checks = append(h.checks, check{name: name, pinger: p})
	return h
}

func (h *HealthHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/health", h.Health)
}

// Check probes every dependency and reports degraded if any fails.
func (h *HealthHandler) Check(ctx context.Context) HealthReport {
	report := HealthReport{
		Status:        StatusOK,
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Components:    make([]Component, 0, len(h.checks)),
		Timestamp:     time.Now().UTC(),
	}

	for _, c := range h.checks {
		pingCtx, cancel := context.WithTimeout(ctx, h.timeout)
		err := c.pinger.Ping(pingCtx)
		cancel()

		comp := Component{Name: c.name, Status: StatusOK}
		if err != nil {
			comp.Status = StatusDegraded
			comp.Error = err.Error()
			report.Status = StatusDegraded
			h.log.Warn("health check failed", zap.String("component", c.name), zap.Error(err))
		}
		report.Components = append(report.Components, comp)
	}
	return report
}

func (h *HealthHandler) Health(c *gin.Context) {
	report := h.Check(c.Request.Context())

	status := http.StatusOK
	if report.Status != StatusOK {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}
