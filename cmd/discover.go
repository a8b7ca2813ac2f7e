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
	discoverOutput string
	discoverSave   bool
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Seed the draft from a live PostgreSQL database",
	Long: `Connect to the source database from the config, read its tables, keys
and enum types, and replace the draft with the resulting models. Foreign keys
become relationships on both sides; pure junction tables become association
tables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return exclusive(func() error {
			ctx := context.Background()
			eng, err := openEngine(ctx, discoverSave)
			if err != nil {
				return err
			}
			defer eng.Close()

			src := eng.Config.Source
			fmt.Printf("Connecting to %s:%d/%s...\n", src.Host, src.Port, src.Database)
			report, err := eng.Discover(ctx)
			if err != nil {
				return err
			}

			fmt.Println(eng.Snapshot().Summary())
			fmt.Printf("Attached %d foreign keys\n", report.ForeignKeys)
			for _, s := range report.Skipped {
				fmt.Println(warnStyle.Render("  skipped " + s))
			}

			if discoverOutput != "" {
				if err := spec.WriteFile(discoverOutput, eng.Export()); err != nil {
					return err
				}
				fmt.Printf("\nProject written to %s\n", discoverOutput)
			}

			if discoverSave {
				p, err := eng.SaveAs(ctx, "", "discovered from "+src.Database)
				if err != nil {
					var invalid *engine.InvalidError
					if errors.As(err, &invalid) {
						printReport(invalid.Report)
					}
					return err
				}
				fmt.Println(successStyle.Render(fmt.Sprintf("Saved project %q (%s)", p.Name, p.ID)))
			}
			return nil
		})
	},
}

func init() {
	discoverCmd.Flags().StringVarP(&discoverOutput, "output", "o", "", "also write the project document to this file")
	discoverCmd.Flags().BoolVar(&discoverSave, "save", false, "save the discovered project to the project store")
	rootCmd.AddCommand(discoverCmd)
}
