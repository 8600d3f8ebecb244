package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/featurekg/internal/cache"
	"github.com/rohankatakam/featurekg/internal/config"
	"github.com/rohankatakam/featurekg/internal/errors"
	"github.com/rohankatakam/featurekg/internal/graph"
	"github.com/rohankatakam/featurekg/internal/interchange"
	"github.com/rohankatakam/featurekg/internal/journal"
)

// DialerFromConfig returns a Dialer for the configured backend. The memory
// backend hands out the same store on every dial so a reconnect keeps data.
func DialerFromConfig(cfg config.GraphConfig, logger *slog.Logger) Dialer {
	switch cfg.Backend {
	case config.BackendNeo4j:
		return func(ctx context.Context) (graph.Store, error) {
			client, err := graph.NewClient(ctx, graph.ClientConfig{
				URI:          cfg.URI,
				User:         cfg.User,
				Password:     cfg.Password,
				Database:     cfg.Database,
				MaxPoolSize:  cfg.MaxPoolSize,
				QueryTimeout: cfg.QueryTimeout,
			}, logger)
			if err != nil {
				return nil, err
			}
			return graph.NewNeo4jStore(client, logger), nil
		}
	case config.BackendBolt:
		return func(ctx context.Context) (graph.Store, error) {
			store, err := graph.OpenBoltStore(cfg.BoltPath)
			if err != nil {
				return nil, errors.ConnectionError(err, "failed to open graph file "+cfg.BoltPath)
			}
			return store, nil
		}
	case config.BackendMemory:
		var once sync.Once
		var mem *graph.MemoryStore
		return func(ctx context.Context) (graph.Store, error) {
			once.Do(func() { mem = graph.NewMemoryStore() })
			return mem, nil
		}
	default:
		return func(ctx context.Context) (graph.Store, error) {
			return nil, errors.ConfigErrorf("unknown graph backend %q", cfg.Backend)
		}
	}
}

// OpenJournal opens the configured run journal.
func OpenJournal(cfg config.JournalConfig, logger *logrus.Logger) (journal.Journal, error) {
	switch cfg.Driver {
	case config.JournalSQLite:
		return journal.OpenSQLite(cfg.Path, logger)
	case config.JournalPostgres, config.JournalPgx:
		return journal.OpenPostgres(cfg.Driver, cfg.DSN, logger)
	case config.JournalNone, "":
		return journal.Nop{}, nil
	default:
		return nil, errors.ConfigErrorf("unknown journal driver %q", cfg.Driver)
	}
}

// OpenCache returns the export cache: Redis when an address is configured,
// in-process otherwise. An unreachable Redis degrades to the in-process cache.
func OpenCache(ctx context.Context, cfg config.Config, logger *slog.Logger) cache.Store {
	if !cfg.Cache.Enabled {
		return cache.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Cache.RedisAddr != "" {
		client, err := cache.NewClient(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
			TTL:      cfg.Export.CacheTTL,
		}, logger)
		if err == nil {
			return client
		}
		logger.Warn("redis unavailable, using in-process export cache", "addr", cfg.Cache.RedisAddr, "error", err)
	}
	return cache.NewMemory(cfg.Export.CacheTTL)
}

// BatchConfigFrom maps import settings onto the importer's batch config.
func BatchConfigFrom(cfg config.ImportConfig) interchange.BatchConfig {
	bc := interchange.DefaultBatchConfig()
	if cfg.NodeProgress > 0 {
		bc.NodeProgressEvery = cfg.NodeProgress
	}
	if cfg.RelationshipProgress > 0 {
		bc.RelationshipProgressEvery = cfg.RelationshipProgress
	}
	bc.WritesPerSecond = cfg.WritesPerSecond
	return bc
}

// Open builds a Service from configuration. Only a journal that cannot be
// opened is fatal; an unreachable graph starts the service disconnected.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger, jlog *logrus.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if jlog == nil {
		jlog = logrus.StandardLogger()
	}

	j, err := OpenJournal(cfg.Journal, jlog)
	if err != nil {
		return nil, err
	}

	exportCache := OpenCache(ctx, *cfg, logger)
	// Generations restart with every process.
	if err := exportCache.Purge(ctx); err != nil {
		logger.Warn("export cache purge failed", "error", err)
	}

	return New(ctx, DialerFromConfig(cfg.Graph, logger), Options{
		Logger:  logger,
		Journal: j,
		Cache:   exportCache,
		Batch:   BatchConfigFrom(cfg.Import),
	}), nil
}
