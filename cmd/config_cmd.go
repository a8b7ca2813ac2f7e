package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/schemacanvas/schemacanvas/internal/typemap"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and validate the SchemaCanvas configuration and the discovery type map.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current config (secrets masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Println("Current configuration:")
		fmt.Println()
		fmt.Printf("  Server:\n")
		fmt.Printf("    Port:           %d\n", cfg.Server.Port)
		fmt.Printf("    Dev mode:       %t\n", cfg.Server.DevMode)
		fmt.Println()
		fmt.Printf("  Storage:\n")
		fmt.Printf("    Driver:         %s\n", cfg.Storage.Driver)
		fmt.Printf("    Directory:      %s\n", cfg.Storage.Directory)
		fmt.Printf("    Postgres URL:   %s\n", maskSecret(cfg.Storage.PostgresURL))
		fmt.Printf("    Mongo URI:      %s\n", maskSecret(cfg.Storage.MongoURI))
		fmt.Printf("    Mongo database: %s\n", cfg.Storage.MongoDatabase)
		fmt.Printf("    Remote URL:     %s\n", cfg.Storage.RemoteURL)
		fmt.Printf("    Remote token:   %s\n", maskSecret(cfg.Storage.RemoteToken))
		fmt.Printf("    Cache size:     %d\n", cfg.Storage.CacheSize)
		fmt.Println()
		fmt.Printf("  Editor:\n")
		fmt.Printf("    DB provider:    %s\n", cfg.Editor.DBProvider)
		fmt.Printf("    Auto FK:        %t\n", cfg.Editor.AutoForeignKeyDefault())
		fmt.Println()
		fmt.Printf("  Source:\n")
		fmt.Printf("    Host:           %s\n", cfg.Source.Host)
		fmt.Printf("    Port:           %d\n", cfg.Source.Port)
		fmt.Printf("    Database:       %s\n", cfg.Source.Database)
		fmt.Printf("    Schema:         %s\n", cfg.Source.Schema)
		fmt.Printf("    Username:       %s\n", cfg.Source.Username)
		fmt.Printf("    Password:       %s\n", maskSecret(cfg.Source.Password))
		fmt.Printf("    Type map:       %s\n", cfg.Source.TypeMap)
		fmt.Println()
		fmt.Printf("  Logging:\n")
		fmt.Printf("    Level:          %s\n", level(cfg))
		fmt.Printf("    Directory:      %s\n", cfg.Logging.Directory)
		fmt.Printf("    Retention days: %d\n", cfg.Logging.RetentionDays)

		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("config invalid: %w", err)
		}

		var errors []string
		if cfg.Source.Database != "" && cfg.Source.Host == "" {
			errors = append(errors, "source.host is required when source.database is set")
		}
		if cfg.Source.TypeMap != "" {
			if _, err := typemap.LoadOverrides(cfg.Source.TypeMap); err != nil {
				errors = append(errors, "source.type_map: "+err.Error())
			}
		}

		if len(errors) > 0 {
			fmt.Println("Validation errors:")
			for _, e := range errors {
				fmt.Printf("  - %s\n", e)
			}
			return fmt.Errorf("%d validation error(s)", len(errors))
		}

		fmt.Println("Configuration is valid.")
		return nil
	},
}

var typeMapOutput string

var configTypeMapCmd = &cobra.Command{
	Use:   "type-map",
	Short: "Show the discovery type map",
	Long: `Print how source column types map onto canvas column types, with the
overrides from source.type_map applied. With --write the map is saved as a
YAML file that can be edited and referenced from source.type_map.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		tm, err := typemap.LoadOverrides(cfg.Source.TypeMap)
		if err != nil {
			return err
		}

		if typeMapOutput != "" {
			if err := tm.WriteYAML(typeMapOutput); err != nil {
				return err
			}
			fmt.Printf("Type map written to %s\n", typeMapOutput)
			return nil
		}

		for _, src := range tm.SortedTypes() {
			line := fmt.Sprintf("  %-28s %s", src, tm.Resolve(src))
			if tm.IsOverridden(src) {
				line = highlightStyle.Render(line + " (override)")
			}
			fmt.Println(line)
		}
		return nil
	},
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

func init() {
	configTypeMapCmd.Flags().StringVar(&typeMapOutput, "write", "", "write the type map to this YAML file")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configTypeMapCmd)
	rootCmd.AddCommand(configCmd)
}
