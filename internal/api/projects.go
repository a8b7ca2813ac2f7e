package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/schemacanvas/schemacanvas/internal/spec"
)

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ps := s.engine.Export()
	if r.URL.Query().Get("format") == "yaml" {
		data, err := spec.EncodeYAML(ps)
		if err != nil {
			failure(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.Write(data)
		return
	}
	data, err := spec.Encode(ps)
	if err != nil {
		failure(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// handleImport replaces the graph with a ProjectSpec posted as JSON, or as
// YAML when the content type says so.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "reading request body")
		return
	}
	var ps *spec.ProjectSpec
	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		ps, err = spec.DecodeYAML(data)
	} else {
		ps, err = spec.Decode(data)
	}
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	s.engine.Import(ps)
	snap := s.engine.Snapshot()
	jsonResponse(w, http.StatusOK, StatsResponse{Stats: snap.Stats(), Summary: snap.Summary()})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, s.engine.Validate())
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, s.engine.Settings())
}

func (s *Server) handleSetSettings(w http.ResponseWriter, r *http.Request) {
	var settings spec.Settings
	if !decodeJSON(w, r, &settings) {
		return
	}
	s.engine.SetSettings(settings)
	jsonResponse(w, http.StatusOK, settings)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.engine.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	report, err := s.engine.Discover(r.Context())
	if err != nil {
		s.logger.Error("discovery failed", "error", err)
		failure(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, report)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	list, err := s.engine.ListProjects(r.Context())
	if err != nil {
		failure(w, err)
		return
	}
	resp := make([]ProjectResponse, 0, len(list))
	for i := range list {
		resp = append(resp, projectResponse(&list[i]))
	}
	jsonResponse(w, http.StatusOK, resp)
}

// handleSaveProject validates the graph and writes it to the project store.
// The body is optional; without a name the open project's name is kept.
func (s *Server) handleSaveProject(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	save := s.engine.Save
	if req.AsNew {
		save = s.engine.SaveAs
	}
	p, err := save(r.Context(), req.Name, req.Description)
	if err != nil {
		s.logger.Warn("save failed", "error", err)
		failure(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, projectResponse(p))
}

func (s *Server) handleCurrentProject(w http.ResponseWriter, r *http.Request) {
	id, name := s.engine.Current()
	jsonResponse(w, http.StatusOK, CurrentResponse{ID: id, Name: name, Dirty: s.engine.Dirty()})
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.GetProject(r.Context(), r.PathValue("id"))
	if err != nil {
		failure(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, p)
}

func (s *Server) handleOpenProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.Open(r.Context(), r.PathValue("id"))
	if err != nil {
		failure(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, projectResponse(p))
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DeleteProject(r.Context(), r.PathValue("id")); err != nil {
		failure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
