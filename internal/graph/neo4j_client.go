package graph

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sony/gobreaker"

	"github.com/rohankatakam/featurekg/internal/errors"
	"github.com/rohankatakam/featurekg/internal/metrics"
)

// Runner executes parameterized statements and returns rows keyed by column.
type Runner interface {
	Run(ctx context.Context, statement string, params map[string]any) ([]map[string]any, error)
	HealthCheck(ctx context.Context) error
}

// ReadRunner is implemented by runners that can route read-only statements
// to cluster readers.
type ReadRunner interface {
	RunRead(ctx context.Context, statement string, params map[string]any) ([]map[string]any, error)
}

// RoutingMode defines read/write routing for cluster deployments.
// For local single-node deployments, routing has no effect.
type RoutingMode string

const (
	RoutingRead  RoutingMode = "read"
	RoutingWrite RoutingMode = "write"
)

// ClientConfig holds connection settings for the Neo4j driver
type ClientConfig struct {
	URI         string
	User        string
	Password    string
	Database    string
	MaxPoolSize int
	// QueryTimeout bounds statements whose context carries no deadline.
	QueryTimeout time.Duration
}

// Client wraps the Neo4j driver with a circuit breaker and implements Runner.
type Client struct {
	driver   neo4j.DriverWithContext
	logger   *slog.Logger
	database string
	poolSize int
	timeout  time.Duration
	breaker  *gobreaker.CircuitBreaker
}

// NewClient creates a Neo4j client and verifies connectivity.
// Security: credentials come from config/keychain, never from source.
func NewClient(ctx context.Context, cfg ClientConfig, logger *slog.Logger) (*Client, error) {
	if cfg.URI == "" || cfg.User == "" || cfg.Password == "" {
		return nil, errors.ConfigErrorf("neo4j credentials missing: uri=%s, user=%s", cfg.URI, cfg.User)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "neo4j")

	poolSize := cfg.MaxPoolSize
	if poolSize <= 0 {
		poolSize = 50
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI,
		neo4j.BasicAuth(cfg.User, cfg.Password, ""),
		func(config *neo4j.Config) {
			config.MaxConnectionPoolSize = poolSize
			config.ConnectionAcquisitionTimeout = 60 * time.Second
			config.MaxConnectionLifetime = time.Hour
			config.ConnectionLivenessCheckTimeout = 5 * time.Second
			config.SocketConnectTimeout = 5 * time.Second
			config.SocketKeepalive = true
		})
	if err != nil {
		return nil, errors.ConnectionError(err, "failed to create neo4j driver")
	}

	// Fail fast on startup
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, errors.ConnectionError(err, fmt.Sprintf("failed to connect to neo4j at %s", cfg.URI))
	}

	logger.Info("neo4j client connected",
		"uri", cfg.URI,
		"user", cfg.User,
		"database", cfg.Database,
		"max_pool_size", poolSize)

	return &Client{
		driver:   driver,
		logger:   logger,
		database: cfg.Database,
		poolSize: poolSize,
		timeout:  cfg.QueryTimeout,
		breaker:  newBreaker(logger),
	}, nil
}

func newBreaker(logger *slog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "neo4j",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		// Only connectivity failures count against the breaker; a bad
		// statement says nothing about the server's health.
		IsSuccessful: func(err error) bool {
			return err == nil || !neo4j.IsConnectivityError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
			metrics.SetBreakerState(name, int(to))
		},
	})
}

// Close closes the Neo4j driver connection
func (c *Client) Close(ctx context.Context) error {
	if err := c.driver.Close(ctx); err != nil {
		return fmt.Errorf("failed to close neo4j driver: %w", err)
	}
	c.logger.Info("neo4j client closed")
	return nil
}

// HealthCheck verifies Neo4j connectivity
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.driver.VerifyConnectivity(ctx); err != nil {
		return errors.ConnectionError(err, "neo4j health check failed")
	}
	return nil
}

// Run executes a statement routed to the cluster writer.
func (c *Client) Run(ctx context.Context, statement string, params map[string]any) ([]map[string]any, error) {
	return c.execute(ctx, statement, params, RoutingWrite)
}

// RunRead executes a read-only statement routed to cluster readers.
func (c *Client) RunRead(ctx context.Context, statement string, params map[string]any) ([]map[string]any, error) {
	return c.execute(ctx, statement, params, RoutingRead)
}

func (c *Client) execute(ctx context.Context, statement string, params map[string]any, mode RoutingMode) ([]map[string]any, error) {
	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return executeWithRouting(ctx, c.driver, statement, params, mode, c.database)
	})
	if err != nil {
		if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) || neo4j.IsConnectivityError(err) {
			return nil, errors.ConnectionError(err, "neo4j unreachable")
		}
		return nil, errors.DatabaseError(err, "statement failed")
	}

	result := out.(*neo4j.EagerResult)
	rows := make([]map[string]any, 0, len(result.Records))
	for _, record := range result.Records {
		rows = append(rows, record.AsMap())
	}

	c.logger.Debug("statement executed", "routing", string(mode), "record_count", len(rows))
	return rows, nil
}

func executeWithRouting(
	ctx context.Context,
	driver neo4j.DriverWithContext,
	statement string,
	params map[string]any,
	mode RoutingMode,
	database string,
) (*neo4j.EagerResult, error) {
	options := []neo4j.ExecuteQueryConfigurationOption{
		neo4j.ExecuteQueryWithDatabase(database),
	}
	switch mode {
	case RoutingRead:
		options = append(options, neo4j.ExecuteQueryWithReadersRouting())
	case RoutingWrite:
		options = append(options, neo4j.ExecuteQueryWithWritersRouting())
	}
	return neo4j.ExecuteQuery(ctx, driver, statement, params, neo4j.EagerResultTransformer, options...)
}

// Database returns the configured database name
func (c *Client) Database() string {
	return c.database
}

// PoolSize returns the configured maximum pool size
func (c *Client) PoolSize() int {
	return c.poolSize
}
