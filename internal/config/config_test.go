package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"NEO4J_URI", "NEO4J_USER", "NEO4J_PASSWORD", "NEO4J_DATABASE", "NEO4J_MAX_POOL_SIZE",
		"FEATUREKG_STORE", "FEATUREKG_BOLT_PATH", "FEATUREKG_HTTP_ADDR", "FEATUREKG_CORS_ORIGINS",
		"FEATUREKG_WRITES_PER_SECOND", "JOURNAL_DRIVER", "JOURNAL_DSN", "JOURNAL_PATH",
		"REDIS_ADDR", "REDIS_PASSWORD", "FEATUREKG_CACHE_ENABLED", "FEATUREKG_LOG_LEVEL", "FEATUREKG_LOG_FILE",
	} {
		t.Setenv(key, "")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, BackendNeo4j, cfg.Graph.Backend)
	assert.Equal(t, "bolt://localhost:7687", cfg.Graph.URI)
	assert.Equal(t, JournalSQLite, cfg.Journal.Driver)
	assert.Equal(t, 10, cfg.Import.NodeProgress)
	assert.Equal(t, 50, cfg.Import.RelationshipProgress)
	assert.Equal(t, 15*time.Minute, cfg.Export.CacheTTL)
	assert.True(t, cfg.Cache.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
graph:
  backend: bolt
  bolt_path: /tmp/features.db
server:
  addr: ":9090"
  cors_origins: ["http://localhost:3000"]
export:
  cache_ttl: 45s
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendBolt, cfg.Graph.Backend)
	assert.Equal(t, "/tmp/features.db", cfg.Graph.BoltPath)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 45*time.Second, cfg.Export.CacheTTL)

	// Keys absent from the file keep their defaults.
	assert.Equal(t, "neo4j", cfg.Graph.User)
	assert.Equal(t, int64(64), cfg.Server.MaxUploadMB)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("NEO4J_URI", "neo4j://graph:7687")
	t.Setenv("NEO4J_PASSWORD", "pw")
	t.Setenv("FEATUREKG_STORE", "MEMORY")
	t.Setenv("FEATUREKG_CORS_ORIGINS", "http://a, http://b,")
	t.Setenv("FEATUREKG_WRITES_PER_SECOND", "250")
	t.Setenv("JOURNAL_DRIVER", "pgx")
	t.Setenv("JOURNAL_DSN", "postgres://u:p@db/featurekg")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("FEATUREKG_CACHE_ENABLED", "false")

	cfg := Default()
	applyEnvOverrides(cfg)

	assert.Equal(t, "neo4j://graph:7687", cfg.Graph.URI)
	assert.Equal(t, "pw", cfg.Graph.Password)
	assert.Equal(t, BackendMemory, cfg.Graph.Backend)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 250.0, cfg.Import.WritesPerSecond)
	assert.Equal(t, JournalPgx, cfg.Journal.Driver)
	assert.Equal(t, "cache:6379", cfg.Cache.RedisAddr)
	assert.False(t, cfg.Cache.Enabled)
}

func TestSaveOmitsPasswords(t *testing.T) {
	clearEnv(t)
	cfg := Default()
	cfg.Graph.Password = "top-secret"
	cfg.Cache.Password = "also-secret"
	cfg.Server.Addr = ":7070"

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "top-secret")
	assert.NotContains(t, string(data), "also-secret")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", loaded.Server.Addr)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Graph.Password = "a-real-password"
		cfg.Journal.Path = "/tmp/journal.db"
		return cfg
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		ctx       ValidationContext
		wantError bool
	}{
		{"valid neo4j", func(*Config) {}, ValidationContextAll, false},
		{"missing password", func(c *Config) { c.Graph.Password = "" }, ValidationContextImport, true},
		{"bad scheme", func(c *Config) { c.Graph.URI = "http://localhost:7474" }, ValidationContextExport, true},
		{"unknown backend", func(c *Config) { c.Graph.Backend = "sqlite" }, ValidationContextServe, true},
		{"memory needs no password", func(c *Config) { c.Graph.Backend = BackendMemory; c.Graph.Password = "" }, ValidationContextImport, false},
		{"bolt needs a path", func(c *Config) { c.Graph.Backend = BackendBolt; c.Graph.BoltPath = "" }, ValidationContextImport, true},
		{"postgres journal needs dsn", func(c *Config) { c.Journal.Driver = JournalPostgres }, ValidationContextImport, true},
		{"pgx journal dsn scheme", func(c *Config) { c.Journal.Driver = JournalPgx; c.Journal.DSN = "host=db" }, ValidationContextImport, true},
		{"no journal", func(c *Config) { c.Journal.Driver = JournalNone; c.Journal.Path = "" }, ValidationContextImport, false},
		{"negative throttle", func(c *Config) { c.Import.WritesPerSecond = -1 }, ValidationContextImport, true},
		{"no listen address", func(c *Config) { c.Server.Addr = "" }, ValidationContextServe, true},
		{"bad redis addr", func(c *Config) { c.Cache.RedisAddr = "redis" }, ValidationContextExport, true},
		{"unknown context", func(*Config) {}, ValidationContext("other"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			result := cfg.ValidateWithMode(tt.ctx, ModeDevelopment)
			assert.Equal(t, tt.wantError, result.HasErrors(), result.Error())
			if tt.wantError {
				assert.Error(t, result.Err())
			} else {
				assert.NoError(t, result.Err())
			}
		})
	}
}

func TestStrictModePromotesWarnings(t *testing.T) {
	cfg := Default()
	cfg.Graph.Backend = BackendMemory

	dev := cfg.ValidateWithMode(ValidationContextImport, ModeDevelopment)
	assert.False(t, dev.HasErrors())
	assert.NotEmpty(t, dev.Warnings)

	ci := cfg.ValidateWithMode(ValidationContextImport, ModeCI)
	assert.True(t, ci.HasErrors())
	assert.Empty(t, ci.Warnings)
}

func TestDetectModeOverride(t *testing.T) {
	t.Setenv("FEATUREKG_MODE", "ci")
	assert.Equal(t, ModeCI, DetectMode())
	t.Setenv("FEATUREKG_MODE", "prod")
	assert.Equal(t, ModePackaged, DetectMode())
	t.Setenv("FEATUREKG_MODE", "dev")
	assert.Equal(t, ModeDevelopment, DetectMode())
}
