package main

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/featurekg/internal/config"
	"github.com/rohankatakam/featurekg/internal/editor"
	"github.com/rohankatakam/featurekg/internal/errors"
	"github.com/rohankatakam/featurekg/internal/service"
)

// Export formats
const (
	formatFlat      = "flat"
	formatSelective = "selective"
	formatXML       = "xml"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the graph as flat JSON, selective JSON or feature XML",
	Long: `Export the graph. Output goes to stdout unless --output is given.

Formats:
  flat       every node and relationship as JSON
  selective  nodes carrying --labels plus their faces, as JSON
  xml        StandardFeatureStructure document; all labels when --labels is empty

Examples:
  featurekg export --format xml --labels Step,Hole -o features.xml
  featurekg export --format xml --repository 4:abc:12
  featurekg export --format flat > backup.json`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringP("format", "f", formatXML, "flat, selective or xml")
	exportCmd.Flags().StringP("labels", "l", "", "comma-separated labels to export")
	exportCmd.Flags().StringP("repository", "r", "", "repository node id to restrict an xml export to")
	exportCmd.Flags().StringP("output", "o", "", "output file (default stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	format, _ := cmd.Flags().GetString("format")
	labelsFlag, _ := cmd.Flags().GetString("labels")
	repository, _ := cmd.Flags().GetString("repository")
	output, _ := cmd.Flags().GetString("output")

	svc, err := openService(ctx, config.ValidationContextExport)
	if err != nil {
		return err
	}
	defer svc.Close(ctx)

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return errors.FileSystemError(err, "failed to create "+output)
		}
		defer f.Close()
		w = f
	}

	if err := exportTo(ctx, svc, w, format, editor.ParseLabels(labelsFlag), repository); err != nil {
		return err
	}
	if output != "" {
		newPrinter(os.Stderr).OK("Exported %s to %s", format, output)
	}
	return nil
}

// exportTo writes one export of the given format to w.
func exportTo(ctx context.Context, svc *service.Service, w io.Writer, format string, labels []string, repository string) error {
	switch strings.ToLower(format) {
	case formatFlat:
		return svc.ExportFlat().Encode(w)
	case formatSelective:
		if len(labels) == 0 {
			return errors.ValidationError("--labels is required for a selective export")
		}
		doc, err := svc.ExportSelective(ctx, labels)
		if err != nil {
			return err
		}
		return doc.Encode(w)
	case formatXML:
		data, err := svc.ExportHierarchicalXML(ctx, labels, repository)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		return errors.ValidationErrorf("unknown export format %q: use flat, selective or xml", format)
	}
}
