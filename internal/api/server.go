package api

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/schemacanvas/schemacanvas/internal/engine"
	"github.com/schemacanvas/schemacanvas/internal/ws"
)

// Server is the REST API server for the canvas client.
type Server struct {
	engine   *engine.Engine
	hub      *ws.Hub
	logger   *slog.Logger
	port     int
	server   *http.Server
	staticFS fs.FS
	devMode  bool
}

// Option configures the API server.
type Option func(*Server)

// WithStaticFS sets the embedded filesystem for serving the canvas client.
func WithStaticFS(fsys fs.FS) Option {
	return func(s *Server) {
		s.staticFS = fsys
	}
}

// WithDevMode enables CORS for development.
func WithDevMode(dev bool) Option {
	return func(s *Server) {
		s.devMode = dev
	}
}

// WithHub sets the WebSocket hub.
func WithHub(hub *ws.Hub) Option {
	return func(s *Server) {
		s.hub = hub
	}
}

// New creates a new API server.
func New(eng *engine.Engine, logger *slog.Logger, port int, opts ...Option) *Server {
	s := &Server{
		engine: eng,
		logger: logger,
		port:   port,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler with logging and, in dev mode, CORS.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	var handler http.Handler = mux
	if s.devMode {
		handler = s.corsMiddleware(handler)
	}
	return requestLogger(s.logger, handler)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("starting canvas server", "port", s.port, "dev_mode", s.devMode)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/state", s.handleGetState)
	mux.HandleFunc("GET /api/schema", s.handleGetSchema)
	mux.HandleFunc("GET /api/layout", s.handleGetLayout)
	mux.HandleFunc("GET /api/stats", s.handleGetStats)

	// graph entities
	mux.HandleFunc("POST /api/models", s.handleAddModel)
	mux.HandleFunc("PATCH /api/models/{id}", s.handleUpdateModel)
	mux.HandleFunc("DELETE /api/models/{id}", s.handleDeleteModel)
	mux.HandleFunc("POST /api/models/{id}/columns", s.handleAddColumn)
	mux.HandleFunc("PATCH /api/models/{id}/columns/{columnID}", s.handleUpdateColumn)
	mux.HandleFunc("DELETE /api/models/{id}/columns/{columnID}", s.handleDeleteColumn)
	mux.HandleFunc("POST /api/models/{id}/relationships", s.handleAddRelationship)
	mux.HandleFunc("PATCH /api/models/{id}/relationships/{relID}", s.handleUpdateRelationship)
	mux.HandleFunc("DELETE /api/models/{id}/relationships/{relID}", s.handleDeleteRelationship)
	mux.HandleFunc("POST /api/enums", s.handleAddEnum)
	mux.HandleFunc("PATCH /api/enums/{id}", s.handleUpdateEnum)
	mux.HandleFunc("DELETE /api/enums/{id}", s.handleDeleteEnum)
	mux.HandleFunc("POST /api/association-tables", s.handleAddAssociationTable)
	mux.HandleFunc("PATCH /api/association-tables/{id}", s.handleUpdateAssociationTable)
	mux.HandleFunc("DELETE /api/association-tables/{id}", s.handleDeleteAssociationTable)
	mux.HandleFunc("PUT /api/positions/{id}", s.handleSetPosition)

	// canvas intents
	mux.HandleFunc("POST /api/intents/foreign-key", s.handleForeignKeyIntent)
	mux.HandleFunc("POST /api/intents/relationship", s.handleRelationshipIntent)

	// project document
	mux.HandleFunc("GET /api/export", s.handleExport)
	mux.HandleFunc("POST /api/import", s.handleImport)
	mux.HandleFunc("POST /api/validate", s.handleValidate)
	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /api/settings", s.handleSetSettings)
	mux.HandleFunc("POST /api/reset", s.handleReset)
	mux.HandleFunc("POST /api/discover", s.handleDiscover)

	// persistence
	mux.HandleFunc("GET /api/projects", s.handleListProjects)
	mux.HandleFunc("POST /api/projects", s.handleSaveProject)
	mux.HandleFunc("GET /api/projects/current", s.handleCurrentProject)
	mux.HandleFunc("GET /api/projects/{id}", s.handleGetProject)
	mux.HandleFunc("POST /api/projects/{id}/open", s.handleOpenProject)
	mux.HandleFunc("DELETE /api/projects/{id}", s.handleDeleteProject)

	// WebSocket
	if s.hub != nil {
		mux.HandleFunc("/api/ws", s.hub.HandleWebSocket)
	}

	// SPA static file serving
	if s.staticFS != nil {
		mux.Handle("/", s.spaHandler())
	}
}

// spaHandler serves the canvas client. For any non-API, non-asset request,
// it returns index.html so client-side routing works.
func (s *Server) spaHandler() http.Handler {
	fileServer := http.FileServer(http.FS(s.staticFS))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/" {
			path = "index.html"
		} else {
			path = strings.TrimPrefix(path, "/")
		}

		f, err := s.staticFS.Open(path)
		if err == nil {
			f.Close()
			fileServer.ServeHTTP(w, r)
			return
		}

		// unknown paths fall back to index.html
		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
