package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/featurekg/internal/config"
	"github.com/rohankatakam/featurekg/internal/journal"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and graph store status",
	Long:  `Display the active configuration, where the Neo4j password comes from, whether the graph store answers, and the latest interchange runs.`,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	p := newPrinter(os.Stdout)
	mode := config.DetectMode()
	cm := config.NewCredentialManager()

	p.Title("featurekg status")

	p.Section("Configuration")
	p.Field("Mode", mode.Description())
	p.Field("Backend", cfg.Graph.Backend)
	switch cfg.Graph.Backend {
	case config.BackendNeo4j:
		p.Field("URI", cfg.Graph.URI)
		p.Field("Database", cfg.Graph.Database)
		p.Field("User", cfg.Graph.User)
		source := config.NewKeyringManager().GetNeo4jPasswordSource(cm.GetConfigPath())
		p.Field("Password source", source.Source)
		if !source.Secure {
			p.Warn("%s", source.Recommended)
		}
	case config.BackendBolt:
		p.Field("Path", cfg.Graph.BoltPath)
	}
	p.Field("Journal", cfg.Journal.Driver)
	switch {
	case !cfg.Cache.Enabled:
		p.Field("Export cache", "disabled")
	case cfg.Cache.RedisAddr != "":
		p.Field("Export cache", "redis "+cfg.Cache.RedisAddr)
	default:
		p.Field("Export cache", "in-process")
	}

	p.Section("Graph store")
	svc, err := openService(ctx, config.ValidationContextExport)
	if err != nil {
		p.Fail("Cannot open service: %v", err)
		return nil
	}
	defer svc.Close(ctx)

	test := svc.TestConnection(ctx)
	if !test.Connected {
		p.Fail("Not connected: %s", test.Error)
		return nil
	}
	p.OK("Connected")
	p.Field("Version", test.Version)
	if test.Info != nil {
		p.Field("Server", fmt.Sprintf("%s (%s)", test.Info.Name, test.Info.Edition))
	}
	health := svc.Health()
	p.Field("Nodes", health.Nodes)
	p.Field("Relationships", health.Relationships)

	p.Section("Recent runs")
	runs, err := svc.History(ctx, 5)
	if err != nil {
		p.Warn("Journal unavailable: %v", err)
		return nil
	}
	if len(runs) == 0 {
		p.Muted("  none")
		return nil
	}
	for _, run := range runs {
		printRun(p, run)
	}
	return nil
}

func printRun(p *printer, run journal.Entry) {
	line := fmt.Sprintf("%s  %-20s nodes=%d rels=%d  %s",
		run.StartedAt.Local().Format("2006-01-02 15:04:05"), run.Kind,
		run.NodesCreated, run.RelationshipsCreated, formatDuration(run.Duration()))
	if run.Repository != "" {
		line += "  repo=" + run.Repository
	}
	if run.Error != "" {
		p.Fail("%s  error=%s", line, run.Error)
		return
	}
	if run.NodesFailed > 0 || run.RelationshipsSkipped > 0 {
		p.Warn("%s  failed=%d skipped=%d", line, run.NodesFailed, run.RelationshipsSkipped)
		return
	}
	p.OK("%s", line)
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}

func formatBeforeAfter(before, after int) string {
	if before == after {
		return fmt.Sprintf("%d (unchanged)", after)
	}
	return fmt.Sprintf("%d -> %d (-%d)", before, after, before-after)
}
