package graph

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/rohankatakam/featurekg/internal/metrics"
)

// TimeoutMonitor tracks statement execution times and warns about approaching timeouts
type TimeoutMonitor struct {
	logger       *slog.Logger
	warningRatio float64 // Warn when execution reaches this share of the timeout
}

// NewTimeoutMonitor creates a monitor that warns at 80% of the timeout
func NewTimeoutMonitor(logger *slog.Logger) *TimeoutMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &TimeoutMonitor{
		logger:       logger.With("component", "timeout_monitor"),
		warningRatio: 0.8,
	}
}

// Monitor runs fn under the operation's timeout, records the duration and
// logs slow or failed statements.
func (tm *TimeoutMonitor) Monitor(ctx context.Context, operation string, fn func(context.Context) error) error {
	cfg := GetConfigForOperation(operation)
	opCtx, cancel := cfg.Context(ctx)
	defer cancel()

	start := time.Now()
	err := fn(opCtx)
	duration := time.Since(start)
	metrics.ObserveStatement(operation, duration, err)

	if err != nil {
		if stderrors.Is(opCtx.Err(), context.DeadlineExceeded) {
			tm.logger.Error("statement timed out",
				"operation", operation,
				"duration_seconds", duration.Seconds(),
				"timeout_seconds", cfg.Timeout.Seconds())
		} else {
			tm.logger.Debug("statement failed",
				"operation", operation,
				"duration_seconds", duration.Seconds(),
				"error", err)
		}
		return err
	}

	if cfg.Timeout > 0 && duration >= time.Duration(float64(cfg.Timeout)*tm.warningRatio) {
		tm.logger.Warn("statement approaching timeout",
			"operation", operation,
			"duration_seconds", duration.Seconds(),
			"timeout_seconds", cfg.Timeout.Seconds(),
			"percent_used", duration.Seconds()/cfg.Timeout.Seconds()*100)
	}
	return nil
}
