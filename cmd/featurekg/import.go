package main

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/featurekg/internal/config"
	"github.com/rohankatakam/featurekg/internal/errors"
	"github.com/rohankatakam/featurekg/internal/interchange"
	"github.com/rohankatakam/featurekg/internal/remap"
	"github.com/rohankatakam/featurekg/internal/service"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a feature document into the graph",
	Long: `Import a document into the graph. The format follows the extension:

  .xml   StandardFeatureStructure document, attached to --repository
  .json  flat node/relationship document, optionally cleansed first

Examples:
  featurekg import steps.xml --repository "Milling rules"
  featurekg import backup.json --cleanse`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringP("repository", "r", "", "repository name for XML imports")
	importCmd.Flags().Bool("cleanse", false, "cleanse a JSON document before importing it")
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	repository, _ := cmd.Flags().GetString("repository")
	cleanse, _ := cmd.Flags().GetBool("cleanse")

	svc, err := openService(ctx, config.ValidationContextImport)
	if err != nil {
		return err
	}
	defer svc.Close(ctx)

	summary, err := importFile(ctx, svc, args[0], repository, cleanse)
	if err != nil {
		return err
	}
	printSummary(newPrinter(os.Stdout), summary)
	return nil
}

// importFile imports path by its extension.
func importFile(ctx context.Context, svc *service.Service, path, repository string, cleanse bool) (interchange.Summary, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".xml" && ext != ".json" {
		return interchange.Summary{}, errors.ValidationErrorf("unsupported file type %q: use .xml or .json", ext)
	}
	repository = strings.TrimSpace(repository)
	if ext == ".xml" && repository == "" {
		return interchange.Summary{}, errors.ValidationError("--repository is required for XML imports")
	}

	f, err := os.Open(path)
	if err != nil {
		return interchange.Summary{}, errors.FileSystemError(err, "failed to open "+path)
	}
	defer f.Close()

	if ext == ".xml" {
		return svc.ImportHierarchicalXML(ctx, f, repository)
	}
	return svc.ImportFlatJSON(ctx, f, cleanse)
}

func printSummary(p *printer, s interchange.Summary) {
	p.OK("Import completed: %d nodes, %d relationships", s.NodesCreated, s.RelationshipsCreated)
	p.Field("Run", s.RunID)
	if s.NodesFailed > 0 {
		p.Warn("%d nodes failed", s.NodesFailed)
	}
	if s.RelationshipsSkipped > 0 {
		p.Warn("%d relationships skipped", s.RelationshipsSkipped)
		reasons := make([]remap.SkipReason, 0, len(s.SkipReasons))
		for reason := range s.SkipReasons {
			reasons = append(reasons, reason)
		}
		sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })
		for _, reason := range reasons {
			p.Field(string(reason), s.SkipReasons[reason])
		}
	}
}
