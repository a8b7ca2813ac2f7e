package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/schemacanvas/schemacanvas/internal/lock"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the open project and draft state",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(context.Background(), false)
		if err != nil {
			return err
		}
		defer eng.Close()

		st := eng.State()
		fmt.Println(titleStyle.Render("SchemaCanvas status"))
		fmt.Println()

		if st.ProjectID != "" {
			fmt.Printf("  Project:   %s %s\n", highlightStyle.Render(st.ProjectName), dimStyle.Render("("+st.ProjectID+")"))
		} else {
			fmt.Printf("  Project:   %s\n", dimStyle.Render("unsaved"))
		}
		if !st.SavedAt.IsZero() {
			fmt.Printf("  Saved at:  %s\n", st.SavedAt.Local().Format("2006-01-02 15:04:05"))
		}
		if st.Dirty {
			fmt.Printf("  Draft:     %s %s\n", warnStyle.Render("unsaved changes"), dimStyle.Render(st.DraftPath))
		} else {
			fmt.Printf("  Draft:     %s\n", successStyle.Render("clean"))
		}
		fmt.Printf("  Storage:   %s\n", eng.Config.Storage.Driver)

		held, pid, err := lock.IsHeld("")
		if err != nil {
			return fmt.Errorf("checking lock: %w", err)
		}
		if held {
			fmt.Printf("  Server:    running (PID %d, port %d)\n", pid, eng.Config.Server.Port)
		} else {
			fmt.Printf("  Server:    %s\n", dimStyle.Render("stopped"))
		}

		fmt.Println()
		fmt.Println(eng.Snapshot().Summary())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
