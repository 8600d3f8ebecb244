package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rohankatakam/featurekg/internal/errors"
)

// ValidationContext specifies what configuration is required
type ValidationContext string

const (
	// ValidationContextServe - the HTTP server needs a store, a listen address and CORS settings
	ValidationContextServe ValidationContext = "serve"
	// ValidationContextImport - imports need a store and the import throttle
	ValidationContextImport ValidationContext = "import"
	// ValidationContextExport - exports need a store and the export cache
	ValidationContextExport ValidationContext = "export"
	// ValidationContextAll - validate all configuration
	ValidationContextAll ValidationContext = "all"
)

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// AddError adds an error to the validation result
func (vr *ValidationResult) AddError(format string, args ...interface{}) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning to the validation result
func (vr *ValidationResult) AddWarning(format string, args ...interface{}) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any errors
func (vr *ValidationResult) HasErrors() bool {
	return !vr.Valid || len(vr.Errors) > 0
}

// Error returns a formatted error message
func (vr *ValidationResult) Error() string {
	if !vr.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Configuration validation failed:\n")
	for _, err := range vr.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err))
	}
	if len(vr.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, warn := range vr.Warnings {
			sb.WriteString(fmt.Sprintf("  - %s\n", warn))
		}
	}
	return sb.String()
}

// Err returns the result as a config error, or nil when valid.
func (vr *ValidationResult) Err() error {
	if !vr.HasErrors() {
		return nil
	}
	return errors.ConfigError(vr.Error())
}

// Validate validates configuration for the given context with auto-detected mode
func (c *Config) Validate(ctx ValidationContext) *ValidationResult {
	return c.ValidateWithMode(ctx, DetectMode())
}

// ValidateWithMode validates configuration for the given context and deployment mode
func (c *Config) ValidateWithMode(ctx ValidationContext, mode DeploymentMode) *ValidationResult {
	result := &ValidationResult{Valid: true}

	switch ctx {
	case ValidationContextServe:
		c.validateGraph(result, mode)
		c.validateServer(result)
		c.validateJournal(result, mode)
		c.validateCache(result)
	case ValidationContextImport:
		c.validateGraph(result, mode)
		c.validateImport(result)
		c.validateJournal(result, mode)
	case ValidationContextExport:
		c.validateGraph(result, mode)
		c.validateJournal(result, mode)
		c.validateCache(result)
	case ValidationContextAll:
		c.validateGraph(result, mode)
		c.validateServer(result)
		c.validateImport(result)
		c.validateJournal(result, mode)
		c.validateCache(result)
		c.validateLog(result)
	default:
		result.AddError("unknown validation context %q", ctx)
	}

	if mode.RequiresStrictValidation() {
		for _, w := range result.Warnings {
			result.AddError("%s", w)
		}
		result.Warnings = nil
	}
	return result
}

func (c *Config) validateGraph(result *ValidationResult, mode DeploymentMode) {
	switch c.Graph.Backend {
	case BackendNeo4j:
		c.validateNeo4j(result, mode)
	case BackendBolt:
		if c.Graph.BoltPath == "" {
			result.AddError("graph.bolt_path is required for the bolt backend")
		}
	case BackendMemory:
		result.AddWarning("graph backend is memory; nothing will be persisted")
	default:
		result.AddError("graph.backend must be one of neo4j, bolt, memory; got %q", c.Graph.Backend)
	}

	if c.Graph.QueryTimeout < 0 {
		result.AddError("graph.query_timeout must not be negative")
	}
}

func (c *Config) validateNeo4j(result *ValidationResult, mode DeploymentMode) {
	if c.Graph.URI == "" {
		result.AddError("NEO4J_URI is required but not set")
	} else if u, err := url.Parse(c.Graph.URI); err != nil {
		result.AddError("NEO4J_URI is invalid: %v", err)
	} else {
		switch u.Scheme {
		case "bolt", "bolt+s", "bolt+ssc", "neo4j", "neo4j+s", "neo4j+ssc":
		default:
			result.AddError("NEO4J_URI has unsupported scheme %q", u.Scheme)
		}
		if strings.Contains(u.Host, "localhost") && mode == ModePackaged {
			result.AddWarning("NEO4J_URI points at localhost")
		}
	}

	if c.Graph.User == "" {
		result.AddError("NEO4J_USER is required but not set")
	}

	if c.Graph.Password == "" {
		result.AddError("NEO4J_PASSWORD is required but not set. Run: featurekg configure")
	} else if mode.RequiresSecureCredentials() {
		for _, insecure := range []string{"password", "neo4j", "neo4j123"} {
			if c.Graph.Password == insecure {
				result.AddWarning("NEO4J_PASSWORD is set to a common default (%s)", insecure)
			}
		}
	}

	if c.Graph.Database == "" {
		result.AddWarning("NEO4J_DATABASE is not set, will use 'neo4j' as default")
	}
	if c.Graph.MaxPoolSize <= 0 {
		result.AddWarning("NEO4J_MAX_POOL_SIZE is invalid, will use driver default")
	}
}

func (c *Config) validateServer(result *ValidationResult) {
	if c.Server.Addr == "" {
		result.AddError("server.addr is required")
	}
	if len(c.Server.CORSOrigins) == 0 {
		result.AddWarning("server.cors_origins is empty; browsers on other origins will be refused")
	}
	if c.Server.MaxUploadMB <= 0 {
		result.AddError("server.max_upload_mb must be positive")
	}
}

func (c *Config) validateImport(result *ValidationResult) {
	if c.Import.WritesPerSecond < 0 {
		result.AddError("import.writes_per_second must not be negative")
	}
	if c.Import.NodeProgress <= 0 || c.Import.RelationshipProgress <= 0 {
		result.AddWarning("import progress intervals are not positive, will use defaults")
	}
}

func (c *Config) validateJournal(result *ValidationResult, mode DeploymentMode) {
	switch c.Journal.Driver {
	case JournalSQLite:
		if c.Journal.Path == "" {
			result.AddError("journal.path is required for the sqlite journal")
		}
	case JournalPostgres, JournalPgx:
		if c.Journal.DSN == "" {
			result.AddError("JOURNAL_DSN is required for the %s journal", c.Journal.Driver)
			return
		}
		if !strings.HasPrefix(c.Journal.DSN, "postgres://") && !strings.HasPrefix(c.Journal.DSN, "postgresql://") {
			result.AddError("JOURNAL_DSN must start with postgres:// or postgresql://")
		}
		if strings.Contains(c.Journal.DSN, "sslmode=disable") && mode.RequiresSecureCredentials() {
			result.AddWarning("JOURNAL_DSN has sslmode=disable")
		}
	case JournalNone:
	default:
		result.AddError("journal.driver must be one of sqlite, postgres, pgx, none; got %q", c.Journal.Driver)
	}
}

func (c *Config) validateCache(result *ValidationResult) {
	if !c.Cache.Enabled {
		return
	}
	if c.Export.CacheTTL <= 0 {
		result.AddWarning("export.cache_ttl is not positive, will use default")
	}
	if c.Cache.RedisAddr != "" && !strings.Contains(c.Cache.RedisAddr, ":") {
		result.AddError("REDIS_ADDR must be host:port")
	}
}

func (c *Config) validateLog(result *ValidationResult) {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		result.AddWarning("log.level %q is unknown, will use info", c.Log.Level)
	}
}
