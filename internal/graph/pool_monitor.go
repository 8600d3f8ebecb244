package graph

import (
	"context"
	"log/slog"
	"time"

	"github.com/rohankatakam/featurekg/internal/metrics"
)

// HealthChecker is anything that can probe its backend.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// WatchHealth runs periodic health checks until ctx is done and publishes
// the result as the graph_up gauge. onChange, if set, fires on transitions.
//
// Example usage:
//
//	go graph.WatchHealth(ctx, store, 30*time.Second, logger, nil)
func WatchHealth(ctx context.Context, checker HealthChecker, interval time.Duration, logger *slog.Logger, onChange func(healthy bool)) {
	if logger == nil {
		logger = slog.Default()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("starting graph health monitor", "interval", interval)
	healthy := true

	for {
		select {
		case <-ctx.Done():
			logger.Info("graph health monitor stopped")
			return
		case <-ticker.C:
			checkCtx, cancel := GetConfigForOperation(OpHealthCheck).Context(ctx)
			err := checker.HealthCheck(checkCtx)
			cancel()

			now := err == nil
			metrics.SetGraphUp(now)
			if err != nil {
				logger.Warn("graph health check failed", "error", err)
			} else {
				logger.Debug("graph health check passed")
			}
			if now != healthy && onChange != nil {
				onChange(now)
			}
			healthy = now
		}
	}
}
