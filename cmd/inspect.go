package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/schemacanvas/schemacanvas/internal/depgraph"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [file]",
	Short: "Summarize the foreign key structure of a project",
	Long: `Print entity counts, the table creation order, cycles, self references
and tables that look like many-to-many junctions for a project document, or
for the draft when no file is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ps, err := specArg(context.Background(), args)
		if err != nil {
			return err
		}
		s := &ps.Schema
		g := depgraph.New(s)

		name := ps.Settings().ProjectName()
		if name == "" {
			name = "draft"
		}
		fmt.Println(titleStyle.Render("Project " + name))
		fmt.Println()
		fmt.Println(s.Summary())
		fmt.Println()

		order, err := g.CreationOrder()
		fmt.Println(headingStyle.Render("Creation order"))
		for i, t := range order {
			fmt.Printf("  %2d. %s\n", i+1, t)
		}
		var cycleErr *depgraph.CycleError
		if errors.As(err, &cycleErr) {
			fmt.Println(errStyle.Render("  unordered: " + strings.Join(cycleErr.Tables, ", ")))
		}
		fmt.Println()

		if cycles := g.DetectCycles(); len(cycles) > 0 {
			fmt.Println(headingStyle.Render("Cycles"))
			for _, c := range cycles {
				fmt.Println(warnStyle.Render("  " + strings.Join(c, " -> ")))
			}
			fmt.Println()
		}

		if self := g.SelfReferences(); len(self) > 0 {
			fmt.Println(headingStyle.Render("Self references"))
			for _, e := range self {
				fmt.Printf("  %s.%s -> %s\n", e.ChildTable, e.ChildColumn, e.ParentColumn)
			}
			fmt.Println()
		}

		if junctions := g.Junctions(); len(junctions) > 0 {
			fmt.Println(headingStyle.Render("Junction candidates"))
			for _, j := range junctions {
				fmt.Printf("  %s %s\n", highlightStyle.Render(j.Model),
					dimStyle.Render(fmt.Sprintf("(%s.%s <-> %s.%s)", j.LeftTable, j.LeftColumn, j.RightTable, j.RightColumn)))
			}
			fmt.Println()
		}

		edges := g.Edges()
		fmt.Println(headingStyle.Render("Foreign keys"))
		if len(edges) == 0 {
			fmt.Println(dimStyle.Render("  none"))
		}
		for _, e := range edges {
			fmt.Printf("  %s.%s -> %s.%s\n", e.ChildTable, e.ChildColumn, e.ParentTable, e.ParentColumn)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
