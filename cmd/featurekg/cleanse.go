package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/featurekg/internal/document"
	"github.com/rohankatakam/featurekg/internal/errors"
	"github.com/rohankatakam/featurekg/internal/interchange"
)

var cleanseCmd = &cobra.Command{
	Use:   "cleanse <input.json>",
	Short: "Repair a flat JSON document without touching the graph",
	Long: `Cleanse drops nodes without an id or with a repeated id, relationships
whose endpoints are missing, self-loops, duplicate relationships and blank
properties. The repaired document goes to stdout unless --output is given;
the before/after counts go to stderr.`,
	Args: cobra.ExactArgs(1),
	RunE: runCleanse,
}

func init() {
	cleanseCmd.Flags().StringP("output", "o", "", "output file (default stdout)")
}

func runCleanse(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return errors.FileSystemError(err, "failed to create "+output)
		}
		defer f.Close()
		w = f
	}

	report, err := cleanseFile(args[0], w)
	if err != nil {
		return err
	}

	p := newPrinter(os.Stderr)
	p.OK("Cleansed %s", args[0])
	p.Field("Nodes", formatBeforeAfter(report.NodesBefore, report.NodesAfter))
	p.Field("Relationships", formatBeforeAfter(report.RelationshipsBefore, report.RelationshipsAfter))
	return nil
}

// cleanseFile decodes the flat document at path, cleanses it and writes it to w.
func cleanseFile(path string, w io.Writer) (interchange.CleanseReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return interchange.CleanseReport{}, errors.FileSystemError(err, "failed to open "+path)
	}
	defer f.Close()

	doc, err := document.DecodeFlat(f)
	if err != nil {
		return interchange.CleanseReport{}, err
	}
	cleaned, report := interchange.CleanseWithReport(doc)
	if err := cleaned.Encode(w); err != nil {
		return interchange.CleanseReport{}, err
	}
	return report, nil
}
