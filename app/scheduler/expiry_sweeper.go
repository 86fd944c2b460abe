// Package scheduler runs periodic background jobs
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	businessflow "github.com/amirphl/Kusanagi/business_flow"
)

// CachePurger is implemented by caches that need explicit eviction of stale entries
type CachePurger interface {
	Purge() int
}

// ExpirySweeper periodically deactivates expired links and evicts stale in-process cache entries
type ExpirySweeper struct {
	flow     businessflow.ExpiryFlow
	purger   CachePurger
	logger   *zap.Logger
	interval time.Duration
	timeout  time.Duration
}

// NewExpirySweeper builds the sweeper. purger may be nil.
func NewExpirySweeper(flow businessflow.ExpiryFlow, purger CachePurger, logger *zap.Logger, interval time.Duration) *ExpirySweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := interval
	if timeout > 30*time.Second {
		timeout = 30 * time.Second
	}
	return &ExpirySweeper{
		flow:     flow,
		purger:   purger,
		logger:   logger.Named("expiry_sweeper"),
		interval: interval,
		timeout:  timeout,
	}
}

// Start launches the sweep loop in a background goroutine and returns a stop function.
// The returned function blocks until the loop exited.
func (s *ExpirySweeper) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.RunOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// RunOnce performs a single sweep
func (s *ExpirySweeper) RunOnce(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	if n, err := s.flow.SweepExpired(ctx); err != nil {
		if parent.Err() == nil {
			s.logger.Error("expiry sweep failed", zap.Int("deactivated", n), zap.Error(err))
		}
	}

	if s.purger != nil {
		if n := s.purger.Purge(); n > 0 {
			s.logger.Debug("stale cache entries evicted", zap.Int("count", n))
		}
	}
}
