package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/schemacanvas/schemacanvas/internal/validation"
)

var validateJSON bool

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check a project document before saving",
	Long: `Run the pre-save checks on a project document, or on the draft when no
file is given: required fields, name and tablename patterns, uniqueness,
foreign key and relationship targets, and dependency cycles.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ps, err := specArg(context.Background(), args)
		if err != nil {
			return err
		}

		report := validation.New().ValidateProject(ps)
		if validateJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
		} else {
			printReport(report)
		}

		if !report.Valid() {
			return fmt.Errorf("%d validation error(s)", len(report.Errors))
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "print the report as JSON")
	rootCmd.AddCommand(validateCmd)
}
