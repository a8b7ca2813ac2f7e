package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/schemacanvas/schemacanvas/internal/spec"
)

var (
	exportProject string
	exportFormat  string
)

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write the project document",
	Long: `Export the current draft, or a saved project with --project, as a project
document. A .yaml or .yml file is written as YAML, any other file as JSON.
Without a file the document goes to stdout in --format.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		ps, err := currentSpec(ctx, exportProject)
		if err != nil {
			return err
		}

		if len(args) == 1 {
			if err := spec.WriteFile(args[0], ps); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Project written to %s\n", args[0])
			return nil
		}

		var data []byte
		switch exportFormat {
		case "json":
			data, err = spec.Encode(ps)
		case "yaml":
			data, err = spec.EncodeYAML(ps)
		default:
			return fmt.Errorf("unknown format %q (expected json or yaml)", exportFormat)
		}
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

// currentSpec returns the saved project with the given id, or the draft when
// id is empty.
func currentSpec(ctx context.Context, id string) (*spec.ProjectSpec, error) {
	eng, err := openEngine(ctx, id != "")
	if err != nil {
		return nil, err
	}
	defer eng.Close()

	if id == "" {
		return eng.Export(), nil
	}
	p, err := eng.GetProject(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading project %s: %w", id, err)
	}
	return spec.Decode(p.SchemaData)
}

// specArg reads the document named by args, falling back to the draft.
func specArg(ctx context.Context, args []string) (*spec.ProjectSpec, error) {
	if len(args) == 1 {
		return spec.ReadFile(args[0])
	}
	return currentSpec(ctx, "")
}

func init() {
	exportCmd.Flags().StringVar(&exportProject, "project", "", "export a saved project instead of the draft")
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "stdout format (json, yaml)")
	rootCmd.AddCommand(exportCmd)
}
