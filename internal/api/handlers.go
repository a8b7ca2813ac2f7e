package api

import (
	"net/http"

	"github.com/schemacanvas/schemacanvas/internal/graph"
	"github.com/schemacanvas/schemacanvas/internal/schema"
	"github.com/schemacanvas/schemacanvas/internal/synth"
)

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	data, err := s.engine.FullState()
	if err != nil {
		failure(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handleGetLayout(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, s.engine.Layout())
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	snap := s.engine.Snapshot()
	jsonResponse(w, http.StatusOK, StatsResponse{Stats: snap.Stats(), Summary: snap.Summary()})
}

func (s *Server) handleAddModel(w http.ResponseWriter, r *http.Request) {
	var req ModelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		errorResponse(w, http.StatusBadRequest, "name is required")
		return
	}

	var id string
	s.engine.Edit(func(store *graph.Store, _ *synth.Synthesizer) error {
		id = store.AddModel(req.toModel())
		return nil
	})
	jsonResponse(w, http.StatusCreated, CreatedResponse{ID: id})
}

func (s *Server) handleUpdateModel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var patch graph.ModelPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	var m schema.Model
	err := s.engine.Edit(func(store *graph.Store, syn *synth.Synthesizer) error {
		if err := syn.RenameModel(id, patch); err != nil {
			return err
		}
		m, _ = store.Model(id)
		return nil
	})
	if err != nil {
		failure(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, m)
}

func (s *Server) handleDeleteModel(w http.ResponseWriter, r *http.Request) {
	err := s.engine.Edit(func(_ *graph.Store, syn *synth.Synthesizer) error {
		return syn.RemoveModel(r.PathValue("id"))
	})
	if err != nil {
		failure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAddColumn adds a column. A foreign key in the body is attached
// through the synthesizer in the same transaction, so the column mirrors the
// referenced type and a refused reference adds nothing.
func (s *Server) handleAddColumn(w http.ResponseWriter, r *http.Request) {
	modelID := r.PathValue("id")
	var c schema.Column
	if !decodeJSON(w, r, &c) {
		return
	}
	if c.Name == "" {
		errorResponse(w, http.StatusBadRequest, "name is required")
		return
	}
	ref := c.ForeignKey
	c.ForeignKey = ""

	var id string
	err := s.engine.Edit(func(store *graph.Store, _ *synth.Synthesizer) error {
		return store.Update(func(tx *graph.Tx) error {
			var err error
			if id, err = tx.AddColumn(modelID, c); err != nil || ref == "" {
				return err
			}
			_, err = synth.AttachForeignKeyTx(tx, synth.ForeignKeyIntent{ModelID: modelID, ColumnID: id, Reference: ref})
			return err
		})
	})
	if err != nil {
		failure(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, CreatedResponse{ID: id})
}

// handleUpdateColumn applies a column patch. Setting a foreign key goes
// through the synthesizer; clearing one is a plain edit. Both commit together.
func (s *Server) handleUpdateColumn(w http.ResponseWriter, r *http.Request) {
	modelID, columnID := r.PathValue("id"), r.PathValue("columnID")
	var patch graph.ColumnPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	var ref string
	if patch.ForeignKey != nil && *patch.ForeignKey != "" {
		ref = *patch.ForeignKey
		patch.ForeignKey = nil
	}

	var col *schema.Column
	err := s.engine.Edit(func(store *graph.Store, _ *synth.Synthesizer) error {
		return store.Update(func(tx *graph.Tx) error {
			if err := tx.UpdateColumn(modelID, columnID, patch); err != nil {
				return err
			}
			if ref != "" {
				in := synth.ForeignKeyIntent{ModelID: modelID, ColumnID: columnID, Reference: ref}
				if _, err := synth.AttachForeignKeyTx(tx, in); err != nil {
					return err
				}
			}
			if m, ok := tx.Model(modelID); ok {
				col = m.ColumnByID(columnID)
			}
			return nil
		})
	})
	if err != nil {
		failure(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, col)
}

func (s *Server) handleDeleteColumn(w http.ResponseWriter, r *http.Request) {
	err := s.engine.Edit(func(_ *graph.Store, syn *synth.Synthesizer) error {
		return syn.RemoveColumn(r.PathValue("id"), r.PathValue("columnID"))
	})
	if err != nil {
		failure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddRelationship(w http.ResponseWriter, r *http.Request) {
	var in synth.RelationshipIntent
	if !decodeJSON(w, r, &in) {
		return
	}
	in.ModelID = r.PathValue("id")
	in.RelationshipID = ""
	res, err := s.engine.DeclareRelationship(in)
	if err != nil {
		failure(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, res)
}

func (s *Server) handleUpdateRelationship(w http.ResponseWriter, r *http.Request) {
	var in synth.RelationshipIntent
	if !decodeJSON(w, r, &in) {
		return
	}
	in.ModelID = r.PathValue("id")
	in.RelationshipID = r.PathValue("relID")
	res, err := s.engine.DeclareRelationship(in)
	if err != nil {
		failure(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, res)
}

func (s *Server) handleDeleteRelationship(w http.ResponseWriter, r *http.Request) {
	err := s.engine.Edit(func(_ *graph.Store, syn *synth.Synthesizer) error {
		return syn.RemoveRelationship(r.PathValue("id"), r.PathValue("relID"))
	})
	if err != nil {
		failure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddEnum(w http.ResponseWriter, r *http.Request) {
	var e schema.EnumDefinition
	if !decodeJSON(w, r, &e) {
		return
	}
	if e.Name == "" {
		errorResponse(w, http.StatusBadRequest, "name is required")
		return
	}
	var id string
	s.engine.Edit(func(store *graph.Store, _ *synth.Synthesizer) error {
		id = store.AddEnum(e)
		return nil
	})
	jsonResponse(w, http.StatusCreated, CreatedResponse{ID: id})
}

func (s *Server) handleUpdateEnum(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var patch graph.EnumPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	var e schema.EnumDefinition
	err := s.engine.Edit(func(store *graph.Store, _ *synth.Synthesizer) error {
		if err := store.UpdateEnum(id, patch); err != nil {
			return err
		}
		e, _ = store.Enum(id)
		return nil
	})
	if err != nil {
		failure(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, e)
}

func (s *Server) handleDeleteEnum(w http.ResponseWriter, r *http.Request) {
	err := s.engine.Edit(func(_ *graph.Store, syn *synth.Synthesizer) error {
		return syn.RemoveEnum(r.PathValue("id"))
	})
	if err != nil {
		failure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddAssociationTable(w http.ResponseWriter, r *http.Request) {
	var a schema.AssociationTable
	if !decodeJSON(w, r, &a) {
		return
	}
	if a.Name == "" || a.Tablename == "" {
		errorResponse(w, http.StatusBadRequest, "name and tablename are required")
		return
	}
	var id string
	s.engine.Edit(func(store *graph.Store, _ *synth.Synthesizer) error {
		id = store.AddAssociationTable(a)
		return nil
	})
	jsonResponse(w, http.StatusCreated, CreatedResponse{ID: id})
}

func (s *Server) handleUpdateAssociationTable(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var patch graph.AssociationTablePatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	var a schema.AssociationTable
	err := s.engine.Edit(func(store *graph.Store, _ *synth.Synthesizer) error {
		if err := store.UpdateAssociationTable(id, patch); err != nil {
			return err
		}
		a, _ = store.AssociationTable(id)
		return nil
	})
	if err != nil {
		failure(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, a)
}

func (s *Server) handleDeleteAssociationTable(w http.ResponseWriter, r *http.Request) {
	err := s.engine.Edit(func(store *graph.Store, _ *synth.Synthesizer) error {
		return store.DeleteAssociationTable(r.PathValue("id"))
	})
	if err != nil {
		failure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSetPosition records a drag on the canvas.
func (s *Server) handleSetPosition(w http.ResponseWriter, r *http.Request) {
	var pos schema.Position
	if !decodeJSON(w, r, &pos) {
		return
	}
	err := s.engine.Edit(func(store *graph.Store, _ *synth.Synthesizer) error {
		return store.UpdatePosition(r.PathValue("id"), pos)
	})
	if err != nil {
		failure(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, pos)
}

// handleForeignKeyIntent handles a connection drawn from a column handle to
// another model's key column.
func (s *Server) handleForeignKeyIntent(w http.ResponseWriter, r *http.Request) {
	var in synth.ForeignKeyIntent
	if !decodeJSON(w, r, &in) {
		return
	}
	res, err := s.engine.AttachForeignKey(in)
	if err != nil {
		failure(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, res)
}

// handleRelationshipIntent handles a connection drawn between two models.
func (s *Server) handleRelationshipIntent(w http.ResponseWriter, r *http.Request) {
	var in synth.RelationshipIntent
	if !decodeJSON(w, r, &in) {
		return
	}
	res, err := s.engine.DeclareRelationship(in)
	if err != nil {
		failure(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, res)
}
