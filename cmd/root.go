package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/schemacanvas/schemacanvas/internal/config"
	"github.com/schemacanvas/schemacanvas/internal/engine"
	"github.com/schemacanvas/schemacanvas/internal/lock"
	"github.com/schemacanvas/schemacanvas/internal/logging"
)

var (
	cfgFile  string
	logLevel string
	version  = "dev"
	commit   = "none"
	date     = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "schemacanvas",
	Short: "SchemaCanvas: a visual database schema editor",
	Long: `SchemaCanvas keeps an entity graph of models, columns, relationships,
enums and association tables consistent while it is edited on a canvas.

Run "schemacanvas serve" to open the editor in the browser. The other
commands work on the current draft or on saved projects.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		loadEnv()
	},
}

func Execute() {
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.schemacanvas/schemacanvas.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides logging.level")
}

// loadEnv reads the first .env file found so ${ENV:...} references in the
// config can be satisfied locally.
func loadEnv() {
	for _, p := range []string{".env", config.ExpandHome(config.DefaultDataDir + "/.env")} {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}
}

// loadConfig reads --config when given, otherwise the default path or the
// built-in defaults when no file exists.
func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return cfg, nil
	}
	cfg, err := config.LoadOrDefault("")
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func level(cfg *config.Config) string {
	if logLevel != "" {
		return logLevel
	}
	return cfg.Logging.Level
}

// cliLogger logs to stderr so command output on stdout stays clean.
func cliLogger(cfg *config.Config) *slog.Logger {
	return logging.New(os.Stderr, level(cfg))
}

// openEngine builds an engine over the saved editor state. With withStore
// the configured project store is opened too; callers must Close it.
func openEngine(ctx context.Context, withStore bool) (*engine.Engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	eng := engine.New(cfg, cliLogger(cfg))
	if withStore {
		if err := eng.OpenProjectStore(ctx); err != nil {
			return nil, err
		}
	}
	if _, err := eng.LoadState(); err != nil {
		eng.Close()
		return nil, fmt.Errorf("loading state: %w", err)
	}
	return eng, nil
}

// exclusive runs fn while holding the editor lock, so commands that rewrite
// the draft do not race a running server.
func exclusive(fn func() error) error {
	if err := lock.Acquire(""); err != nil {
		return err
	}
	defer lock.Release("")
	return fn()
}
