package api

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/schemacanvas/schemacanvas/internal/engine"
	"github.com/schemacanvas/schemacanvas/internal/graph"
	"github.com/schemacanvas/schemacanvas/internal/projectstore"
	"github.com/schemacanvas/schemacanvas/internal/synth"
)

// maxBodyBytes bounds request bodies; project documents are the largest payload.
const maxBodyBytes = 8 << 20

// jsonResponse writes a JSON response.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("writing json response", "error", err)
	}
}

// errorResponse writes an error JSON response.
func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// failure maps an engine error onto a status code and writes it. Validation
// failures carry their report.
func failure(w http.ResponseWriter, err error) {
	var invalid *engine.InvalidError
	if errors.As(err, &invalid) {
		jsonResponse(w, http.StatusUnprocessableEntity, ValidationFailure{Error: "project is invalid", Report: invalid.Report})
		return
	}
	errorResponse(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	var apiErr *projectstore.APIError
	switch {
	case errors.Is(err, graph.ErrNotFound), errors.Is(err, projectstore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, synth.ErrMalformedReference),
		errors.Is(err, synth.ErrTargetNotFound),
		errors.Is(err, synth.ErrTargetNotKey),
		errors.Is(err, synth.ErrNoPrimaryKey),
		errors.Is(err, synth.ErrPrimaryKeyLocked),
		errors.Is(err, synth.ErrInvalidKind):
		return http.StatusUnprocessableEntity
	case errors.Is(err, synth.ErrNameTaken):
		return http.StatusConflict
	case errors.Is(err, engine.ErrNameRequired):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrNoProjectStore):
		return http.StatusServiceUnavailable
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a JSON body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		errorResponse(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack passes the WebSocket upgrade through to the underlying writer.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// requestLogger is middleware that logs HTTP requests.
func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
