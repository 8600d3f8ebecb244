package main

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/featurekg/internal/config"
	"github.com/rohankatakam/featurekg/internal/labels"
)

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "List graph labels grouped by feature category",
	Long: `List every label in the graph, grouped into Step, Hole, Slot, Pocket,
Passage and Other. With --repository only the structure labels of that
repository are listed.`,
	RunE: runLabels,
}

func init() {
	labelsCmd.Flags().StringP("repository", "r", "", "repository node id")
	labelsCmd.Flags().Bool("json", false, "print JSON instead of text")
}

func runLabels(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	repository, _ := cmd.Flags().GetString("repository")
	asJSON, _ := cmd.Flags().GetBool("json")

	svc, err := openService(ctx, config.ValidationContextExport)
	if err != nil {
		return err
	}
	defer svc.Close(ctx)

	var cat labels.Categorized
	if repository != "" {
		cat, err = svc.RepositoryStructures(ctx, repository)
	} else {
		cat, err = svc.Labels(ctx)
	}
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(cat)
	}
	printCategorized(newPrinter(os.Stdout), cat)
	return nil
}

func printCategorized(p *printer, cat labels.Categorized) {
	empty := true
	for _, group := range cat {
		if len(group.Labels) == 0 {
			continue
		}
		empty = false
		p.Section(group.Name)
		p.Muted("  %s", strings.Join(group.Labels, ", "))
	}
	if empty {
		p.Muted("No labels")
	}
}
