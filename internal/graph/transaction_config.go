package graph

import (
	"context"
	"time"
)

// Operation names used to pick statement timeouts and routing.
const (
	OpSnapshotScan = "snapshot_scan"
	OpExportQuery  = "export_query"
	OpImportWrite  = "import_write"
	OpCrudWrite    = "crud_write"
	OpLookup       = "lookup"
	OpHealthCheck  = "health_check"
)

// TransactionConfig defines timeout and metadata for one class of statement.
// The driver's ExecuteQuery API takes no per-statement config, so the
// timeout is applied through the context.
type TransactionConfig struct {
	Timeout  time.Duration
	Metadata map[string]any
}

// DefaultTransactionConfigs returns the config per operation type
func DefaultTransactionConfigs() map[string]TransactionConfig {
	return map[string]TransactionConfig{
		// Full node/relationship scans can be large
		OpSnapshotScan: {
			Timeout:  2 * time.Minute,
			Metadata: map[string]any{"operation": OpSnapshotScan, "type": "read"},
		},
		OpExportQuery: {
			Timeout:  60 * time.Second,
			Metadata: map[string]any{"operation": OpExportQuery, "type": "read"},
		},
		// One record of a bulk import
		OpImportWrite: {
			Timeout:  30 * time.Second,
			Metadata: map[string]any{"operation": OpImportWrite, "type": "write"},
		},
		OpCrudWrite: {
			Timeout:  30 * time.Second,
			Metadata: map[string]any{"operation": OpCrudWrite, "type": "write"},
		},
		OpLookup: {
			Timeout:  15 * time.Second,
			Metadata: map[string]any{"operation": OpLookup, "type": "read"},
		},
		// Health checks must be fast
		OpHealthCheck: {
			Timeout:  5 * time.Second,
			Metadata: map[string]any{"operation": OpHealthCheck, "type": "read"},
		},
	}
}

// GetConfigForOperation retrieves the config for an operation.
// Unknown operations get a 60s write config.
func GetConfigForOperation(operation string) TransactionConfig {
	if config, ok := DefaultTransactionConfigs()[operation]; ok {
		return config
	}
	return TransactionConfig{
		Timeout: 60 * time.Second,
		Metadata: map[string]any{
			"operation": operation,
			"type":      "write",
		},
	}
}

// IsRead reports whether statements of this class only read.
func (tc TransactionConfig) IsRead() bool {
	return tc.Metadata["type"] == "read"
}

// WithTimeout creates a config with a custom timeout
func (tc TransactionConfig) WithTimeout(timeout time.Duration) TransactionConfig {
	return TransactionConfig{
		Timeout:  timeout,
		Metadata: tc.Metadata,
	}
}

// Context derives a context bounded by the config timeout.
func (tc TransactionConfig) Context(ctx context.Context) (context.Context, context.CancelFunc) {
	if tc.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, tc.Timeout)
}
