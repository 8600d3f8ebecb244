package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Graph backends
const (
	BackendNeo4j  = "neo4j"
	BackendBolt   = "bolt"
	BackendMemory = "memory"
)

// Journal drivers
const (
	JournalSQLite   = "sqlite"
	JournalPostgres = "postgres"
	JournalPgx      = "pgx"
	JournalNone     = "none"
)

// Config holds all configuration settings
type Config struct {
	Graph   GraphConfig   `mapstructure:"graph" yaml:"graph"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Import  ImportConfig  `mapstructure:"import" yaml:"import"`
	Export  ExportConfig  `mapstructure:"export" yaml:"export"`
	Journal JournalConfig `mapstructure:"journal" yaml:"journal"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

type GraphConfig struct {
	Backend      string        `mapstructure:"backend" yaml:"backend"` // "neo4j", "bolt", "memory"
	URI          string        `mapstructure:"uri" yaml:"uri"`
	User         string        `mapstructure:"user" yaml:"user"`
	Password     string        `mapstructure:"password" yaml:"password"`
	Database     string        `mapstructure:"database" yaml:"database"`
	BoltPath     string        `mapstructure:"bolt_path" yaml:"bolt_path"`
	MaxPoolSize  int           `mapstructure:"max_pool_size" yaml:"max_pool_size"`
	QueryTimeout time.Duration `mapstructure:"query_timeout" yaml:"query_timeout"`
}

type ServerConfig struct {
	Addr         string        `mapstructure:"addr" yaml:"addr"`
	CORSOrigins  []string      `mapstructure:"cors_origins" yaml:"cors_origins"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	MaxUploadMB  int64         `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
}

type ImportConfig struct {
	WritesPerSecond      float64 `mapstructure:"writes_per_second" yaml:"writes_per_second"` // 0 = unthrottled
	NodeProgress         int     `mapstructure:"node_progress" yaml:"node_progress"`
	RelationshipProgress int     `mapstructure:"relationship_progress" yaml:"relationship_progress"`
}

type ExportConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

type JournalConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"` // "sqlite", "postgres", "pgx", "none"
	Path   string `mapstructure:"path" yaml:"path"`
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
}

type CacheConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	RedisAddr string `mapstructure:"redis_addr" yaml:"redis_addr"` // empty = in-process cache
	Password  string `mapstructure:"password" yaml:"password"`
	DB        int    `mapstructure:"db" yaml:"db"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	JSON  bool   `mapstructure:"json" yaml:"json"`
	File  string `mapstructure:"file" yaml:"file"`
}

// Default returns default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	base := filepath.Join(homeDir, ".featurekg")
	return &Config{
		Graph: GraphConfig{
			Backend:      BackendNeo4j,
			URI:          "bolt://localhost:7687",
			User:         "neo4j",
			Database:     "neo4j",
			BoltPath:     filepath.Join(base, "graph.db"),
			MaxPoolSize:  50,
			QueryTimeout: 30 * time.Second,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			CORSOrigins:  []string{"*"},
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 5 * time.Minute,
			MaxUploadMB:  64,
		},
		Import: ImportConfig{
			NodeProgress:         10,
			RelationshipProgress: 50,
		},
		Export: ExportConfig{
			CacheTTL: 15 * time.Minute,
		},
		Journal: JournalConfig{
			Driver: JournalSQLite,
			Path:   filepath.Join(base, "journal.db"),
		},
		Cache: CacheConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from file, .env files and the environment.
func Load(path string) (*Config, error) {
	// Load .env files first (in order of precedence)
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	v.SetEnvPrefix("FEATUREKG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".featurekg")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".featurekg"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	// Defaults are pre-populated; only keys present in the file overwrite them.
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// loadEnvFiles loads .env files in order of precedence. godotenv never
// overrides a variable that is already set, so earlier files win.
func loadEnvFiles() {
	envFiles := []string{
		".env.local",
		".env",
	}

	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}

	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".featurekg", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		godotenv.Load(homeEnvFile)
	}
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(cfg *Config) {
	// Graph connection
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		cfg.Graph.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		cfg.Graph.User = user
	}
	if password := os.Getenv("NEO4J_PASSWORD"); password != "" {
		cfg.Graph.Password = password
	}
	if database := os.Getenv("NEO4J_DATABASE"); database != "" {
		cfg.Graph.Database = database
	}
	if backend := os.Getenv("FEATUREKG_STORE"); backend != "" {
		cfg.Graph.Backend = strings.ToLower(backend)
	}
	if path := os.Getenv("FEATUREKG_BOLT_PATH"); path != "" {
		cfg.Graph.BoltPath = expandPath(path)
	}
	if size := os.Getenv("NEO4J_MAX_POOL_SIZE"); size != "" {
		if n, err := strconv.Atoi(size); err == nil {
			cfg.Graph.MaxPoolSize = n
		}
	}

	// Server
	if addr := os.Getenv("FEATUREKG_HTTP_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if origins := os.Getenv("FEATUREKG_CORS_ORIGINS"); origins != "" {
		cfg.Server.CORSOrigins = splitList(origins)
	}

	// Import throttle
	if rate := os.Getenv("FEATUREKG_WRITES_PER_SECOND"); rate != "" {
		if f, err := strconv.ParseFloat(rate, 64); err == nil {
			cfg.Import.WritesPerSecond = f
		}
	}

	// Journal
	if driver := os.Getenv("JOURNAL_DRIVER"); driver != "" {
		cfg.Journal.Driver = strings.ToLower(driver)
	}
	if dsn := os.Getenv("JOURNAL_DSN"); dsn != "" {
		cfg.Journal.DSN = dsn
	}
	if path := os.Getenv("JOURNAL_PATH"); path != "" {
		cfg.Journal.Path = expandPath(path)
	}

	// Export cache
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Cache.RedisAddr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Cache.Password = password
	}
	if enabled := os.Getenv("FEATUREKG_CACHE_ENABLED"); enabled != "" {
		cfg.Cache.Enabled = enabled == "true"
	}

	// Logging
	if level := os.Getenv("FEATUREKG_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if file := os.Getenv("FEATUREKG_LOG_FILE"); file != "" {
		cfg.Log.File = expandPath(file)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

// Save writes the configuration as YAML. The graph password is never
// written; it belongs in the keychain.
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	graphCfg := c.Graph
	graphCfg.Password = ""
	cacheCfg := c.Cache
	cacheCfg.Password = ""

	v.Set("graph", graphCfg)
	v.Set("server", c.Server)
	v.Set("import", c.Import)
	v.Set("export", c.Export)
	v.Set("journal", c.Journal)
	v.Set("cache", cacheCfg)
	v.Set("log", c.Log)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
