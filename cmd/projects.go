package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Manage saved projects",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		eng, err := openEngine(ctx, true)
		if err != nil {
			return err
		}
		defer eng.Close()

		list, err := eng.ListProjects(ctx)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Println(dimStyle.Render("No saved projects."))
			return nil
		}

		current, _ := eng.Current()
		fmt.Printf("  %-36s  %-24s  %s\n", "ID", "NAME", "UPDATED")
		for _, p := range list {
			marker := " "
			if p.ID == current {
				marker = highlightStyle.Render("*")
			}
			fmt.Printf("%s %-36s  %-24s  %s\n", marker, p.ID, p.Name, p.UpdatedAt.Local().Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var projectsOpenCmd = &cobra.Command{
	Use:   "open <id>",
	Short: "Make a saved project the current draft",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return exclusive(func() error {
			ctx := context.Background()
			eng, err := openEngine(ctx, true)
			if err != nil {
				return err
			}
			defer eng.Close()

			if eng.Dirty() {
				fmt.Println(warnStyle.Render("Discarding unsaved draft changes."))
			}
			p, err := eng.Open(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Opened %q\n", p.Name)
			fmt.Println(eng.Snapshot().Summary())
			return nil
		})
	},
}

var projectsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return exclusive(func() error {
			ctx := context.Background()
			eng, err := openEngine(ctx, true)
			if err != nil {
				return err
			}
			defer eng.Close()

			if err := eng.DeleteProject(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted project %s\n", args[0])
			return nil
		})
	},
}

func init() {
	projectsCmd.AddCommand(projectsListCmd)
	projectsCmd.AddCommand(projectsOpenCmd)
	projectsCmd.AddCommand(projectsDeleteCmd)
	rootCmd.AddCommand(projectsCmd)
}
