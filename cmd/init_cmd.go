package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/schemacanvas/schemacanvas/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file interactively",
	Long:  `Walk through prompts to create a SchemaCanvas configuration file at ~/.schemacanvas/schemacanvas.yaml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reader := bufio.NewReader(os.Stdin)

		fmt.Println("SchemaCanvas Configuration Setup")
		fmt.Println("================================")
		fmt.Println()

		cfg := config.Default()

		fmt.Println("Project Storage")
		fmt.Println("---------------")
		driver := prompt(reader, "Driver (file/postgres/mongodb/remote)", config.DriverFile)
		cfg.Storage.Driver = driver
		switch driver {
		case config.DriverFile:
			cfg.Storage.Directory = prompt(reader, "Directory", config.DefaultDataDir+"/projects/")
		case config.DriverPostgres:
			cfg.Storage.PostgresURL = prompt(reader, "Connection URL (${ENV:...} allowed)", "postgres://localhost:5432/schemacanvas")
		case config.DriverMongo:
			cfg.Storage.MongoURI = prompt(reader, "Connection URI", "mongodb://localhost:27017")
			cfg.Storage.MongoDatabase = prompt(reader, "Database name", cfg.Storage.MongoDatabase)
		case config.DriverRemote:
			cfg.Storage.RemoteURL = prompt(reader, "Service URL", "")
			cfg.Storage.RemoteToken = prompt(reader, "Token (${ENV:...} allowed)", "")
		default:
			return fmt.Errorf("unknown storage driver %q", driver)
		}
		fmt.Println()

		fmt.Println("Editor")
		fmt.Println("------")
		cfg.Editor.DBProvider = prompt(reader, "Database provider (postgresql/mysql/sqlite)", cfg.Editor.DBProvider)
		portStr := prompt(reader, "Server port", strconv.Itoa(cfg.Server.Port))
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid port: %s", portStr)
		}
		cfg.Server.Port = port
		fmt.Println()

		if err := cfg.Validate(); err != nil {
			return err
		}

		cfgPath := config.ExpandHome(config.DefaultPath)
		if cfgFile != "" {
			cfgPath = cfgFile
		}

		if err := cfg.Save(cfgPath); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}

		fmt.Printf("Config written to %s\n", cfgPath)
		fmt.Println()
		fmt.Println("Next steps:")
		fmt.Println("  schemacanvas serve      Open the canvas editor")
		fmt.Println("  schemacanvas discover   Seed the draft from a live database")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func prompt(reader *bufio.Reader, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("  %s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("  %s: ", label)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal
	}
	return input
}
