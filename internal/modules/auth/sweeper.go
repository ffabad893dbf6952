package auth

import (
	"context"
	"time"

	"authservice/internal/pkg/metrics"

	"go.uber.org/zap"
)

type sweepLedger interface {
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper periodically deletes expired refresh token rows.
type Sweeper struct {
	ledger   sweepLedger
	interval time.Duration
	timeout  time.Duration
	log      *zap.Logger
	now      func() time.Time
}

func NewSweeper(ledger sweepLedger, interval, timeout time.Duration, log *zap.Logger) *Sweeper {
	return &Sweeper{
		ledger:   ledger,
		interval: interval,
		timeout:  timeout,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run sweeps once immediately and then every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.sweep(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.SweepOnce(sweepCtx); err != nil && ctx.Err() == nil {
		s.log.Error("session sweep failed", zap.Error(err))
	}
}

// SweepOnce deletes rows that expired before now and returns how many went.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	n, err := s.ledger.SweepExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.SessionsSweptTotal.Add(float64(n))
		s.log.Info("expired sessions swept", zap.Int64("count", n))
	}
	return n, nil
}
