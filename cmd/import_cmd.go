package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/schemacanvas/schemacanvas/internal/engine"
	"github.com/schemacanvas/schemacanvas/internal/spec"
)

var (
	importSave bool
	importName string
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the draft with a project document",
	Long: `Load a JSON or YAML project document into the draft. The next "serve"
opens it on the canvas. With --save the draft is also written to the
project store as a new project.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ps, err := spec.ReadFile(args[0])
		if err != nil {
			return err
		}

		return exclusive(func() error {
			ctx := context.Background()
			eng, err := openEngine(ctx, importSave)
			if err != nil {
				return err
			}
			defer eng.Close()

			eng.Import(ps)
			fmt.Println(eng.Snapshot().Summary())

			if !importSave {
				return nil
			}
			p, err := eng.SaveAs(ctx, importName, "")
			if err != nil {
				var invalid *engine.InvalidError
				if errors.As(err, &invalid) {
					printReport(invalid.Report)
				}
				return err
			}
			fmt.Println(successStyle.Render(fmt.Sprintf("Saved project %q (%s)", p.Name, p.ID)))
			return nil
		})
	},
}

func init() {
	importCmd.Flags().BoolVar(&importSave, "save", false, "save the imported document as a new project")
	importCmd.Flags().StringVar(&importName, "name", "", "project name when saving (default: project.name)")
	rootCmd.AddCommand(importCmd)
}
