package main

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/featurekg/internal/config"
	"github.com/rohankatakam/featurekg/internal/service"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List import and export runs from the journal",
	Long: `List recent import and export runs, newest first, or show one run.

Examples:
  featurekg history -n 50
  featurekg history --kind import_flat,import_hierarchical
  featurekg history 6f1c2a0e-...`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "max runs to show")
	historyCmd.Flags().String("kind", "", "comma-separated run kinds to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	limit, _ := cmd.Flags().GetInt("limit")
	kinds, _ := cmd.Flags().GetString("kind")

	svc, err := openService(ctx, config.ValidationContextExport)
	if err != nil {
		return err
	}
	defer svc.Close(ctx)

	return printHistory(ctx, newPrinter(os.Stdout), svc, args, limit, splitCSV(kinds))
}

func printHistory(ctx context.Context, p *printer, svc *service.Service, args []string, limit int, kinds []string) error {
	if len(args) == 1 {
		run, err := svc.Run(ctx, args[0])
		if err != nil {
			return err
		}
		p.Title("Run " + run.ID)
		p.Field("Kind", run.Kind)
		p.Field("Started", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
		p.Field("Duration", formatDuration(run.Duration()))
		if run.Repository != "" {
			p.Field("Repository", run.Repository)
		}
		if run.Labels != "" {
			p.Field("Labels", run.Labels)
		}
		p.Field("Nodes created", run.NodesCreated)
		p.Field("Nodes failed", run.NodesFailed)
		p.Field("Rels created", run.RelationshipsCreated)
		p.Field("Rels skipped", run.RelationshipsSkipped)
		if run.Error != "" {
			p.Fail("%s", run.Error)
		}
		return nil
	}

	runs, err := svc.History(ctx, limit, kinds...)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		p.Muted("No runs recorded")
		return nil
	}
	for _, run := range runs {
		printRun(p, run)
	}
	return nil
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
