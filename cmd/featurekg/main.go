package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rohankatakam/featurekg/internal/config"
	"github.com/rohankatakam/featurekg/internal/errors"
	"github.com/rohankatakam/featurekg/internal/logging"
	"github.com/rohankatakam/featurekg/internal/service"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile string
	verbose bool
	logger  *logrus.Logger
	cfg     *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		reportError(os.Stderr, err, verbose)
		logging.Close()
		os.Exit(exitCode(err))
	}
	logging.Close()
}

// reportError prints err, with its type, cause and context when verbose.
func reportError(w io.Writer, err error, verbose bool) {
	var e *errors.Error
	if verbose && stderrors.As(err, &e) {
		fmt.Fprintf(w, "Error: %s", e.DetailedString())
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

// exitCode is 2 for critical errors (configuration, unreachable store) and
// 1 otherwise.
func exitCode(err error) int {
	if errors.IsFatal(err) {
		return 2
	}
	return 1
}

var rootCmd = &cobra.Command{
	Use:   "featurekg",
	Short: "featurekg - feature recognition rule repository on Neo4j",
	Long: `featurekg stores machining feature structures (steps, holes, slots,
pockets, passages) as a graph of structures, faces and face relationships.

It imports and exports StandardFeatureStructure XML and flat JSON documents,
serves an HTTP API for browsing and editing the graph, and keeps a journal
of every import and export run.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logger
		logger = logrus.New()
		logger.SetOutput(os.Stderr)
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		} else {
			logger.SetLevel(logrus.InfoLevel)
		}

		// Load configuration
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			logger.WithError(err).Warn("Failed to load config, using defaults")
			cfg = config.Default()
		}

		level := logging.ParseLevel(cfg.Log.Level)
		if verbose {
			level = logging.DEBUG
		} else if lvl, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
			logger.SetLevel(lvl)
		}
		if cfg.Log.JSON {
			logger.SetFormatter(&logrus.JSONFormatter{})
		}
		_, err = logging.Initialize(logging.Config{
			Level:      level,
			OutputFile: cfg.Log.File,
			JSONFormat: cfg.Log.JSON,
		})
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .featurekg/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.SetVersionTemplate(`featurekg {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(cleanseCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(labelsCmd)
	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(historyCmd)
}

// openService resolves secrets, validates the configuration for vctx and
// opens the service. Validation warnings are logged, errors returned.
func openService(ctx context.Context, vctx config.ValidationContext) (*service.Service, error) {
	if err := config.NewCredentialManager().ResolveSecrets(cfg); err != nil {
		return nil, err
	}

	result := cfg.Validate(vctx)
	for _, w := range result.Warnings {
		logger.Warn(w)
	}
	if err := result.Err(); err != nil {
		return nil, err
	}

	return service.Open(ctx, cfg, logging.Default(), logger)
}
