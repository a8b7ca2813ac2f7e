package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/schemacanvas/schemacanvas/internal/api"
	"github.com/schemacanvas/schemacanvas/internal/engine"
	"github.com/schemacanvas/schemacanvas/internal/lock"
	"github.com/schemacanvas/schemacanvas/internal/logging"
	"github.com/schemacanvas/schemacanvas/internal/ws"
	"github.com/schemacanvas/schemacanvas/web"
)

var servePort int
var serveDevMode bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the canvas editor server",
	Long: `Start the canvas editor on localhost. The browser client edits the
entity graph through the REST API and receives graph updates over a WebSocket.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := logging.Setup(level(cfg), cfg.Logging.Directory, cfg.Logging.RetentionDays)
		if err != nil {
			return fmt.Errorf("setting up logging: %w", err)
		}

		if err := lock.Acquire(""); err != nil {
			return err
		}
		defer lock.Release("")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		eng := engine.New(cfg, logger)
		if err := eng.OpenProjectStore(ctx); err != nil {
			return err
		}
		defer eng.Close()

		st, err := eng.LoadState()
		if err != nil {
			return fmt.Errorf("loading state: %w", err)
		}
		if st.ProjectID != "" {
			logger.Info("resuming project", "id", st.ProjectID, "name", st.ProjectName, "dirty", st.Dirty)
		}

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}
		devMode := cfg.Server.DevMode || serveDevMode

		hub := ws.NewHub(logger)
		hub.SetStateProvider(eng.FullState)
		hub.SetOriginPatterns(devMode)
		go hub.Run(ctx)
		eng.SetNotifier(hub)

		distFS, err := fs.Sub(web.DistFS, "dist")
		if err != nil {
			return fmt.Errorf("loading embedded canvas client: %w", err)
		}

		srv := api.New(eng, logger, port,
			api.WithStaticFS(distFS),
			api.WithHub(hub),
			api.WithDevMode(devMode),
		)

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		fmt.Fprintf(os.Stderr, "SchemaCanvas editor: http://localhost:%d\n", port)

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		case <-ctx.Done():
			logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown: %w", err)
			}
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8230, "port for the editor server (default from server.port)")
	serveCmd.Flags().BoolVar(&serveDevMode, "dev", false, "enable CORS and any WebSocket origin for development")
	rootCmd.AddCommand(serveCmd)
}
