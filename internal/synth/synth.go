package synth

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/schemacanvas/schemacanvas/internal/graph"
	"github.com/schemacanvas/schemacanvas/internal/schema"
)

// Synthesizer plans intents against the current graph and commits them.
type Synthesizer struct {
	store  *graph.Store
	logger *slog.Logger
}

// New creates a Synthesizer bound to store.
func New(store *graph.Store, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{store: store, logger: logger}
}

// AttachForeignKey points a column at another table's key column, mirrors its
// type and optionally declares the forward and reciprocal relationships.
func (s *Synthesizer) AttachForeignKey(in ForeignKeyIntent) (Result, error) {
	var res Result
	err := s.store.Update(func(tx *graph.Tx) error {
		var err error
		res, err = AttachForeignKeyTx(tx, in)
		return err
	})
	if err != nil {
		s.logger.Debug("foreign key refused", "model", in.ModelID, "reference", in.Reference, "error", err)
		return Result{}, err
	}
	s.logger.Debug("foreign key attached", "model", in.ModelID, "reference", in.Reference,
		"relationship", res.Relationship != nil, "reverse", res.Reverse != nil)
	return res, nil
}

// DeclareRelationship adds or edits a relationship, synthesizing the foreign
// key column and reciprocal relationship as needed.
func (s *Synthesizer) DeclareRelationship(in RelationshipIntent) (Result, error) {
	res, err := PlanRelationship(s.store.Snapshot(), in)
	if err != nil {
		s.logger.Debug("relationship refused", "model", in.ModelID, "target", in.Target, "error", err)
		return Result{}, err
	}
	res, err = Apply(s.store, res)
	if err != nil {
		return Result{}, err
	}
	s.logger.Debug("relationship declared", "model", in.ModelID, "target", in.Target, "kind", in.Kind,
		"column", res.Column != nil, "reverse", res.Reverse != nil, "retract", res.Retract != nil)
	return res, nil
}

// RemoveModel deletes a model and retracts everything that points at it:
// foreign keys into its table are cleared and relationships targeting it are
// deleted.
func (s *Synthesizer) RemoveModel(id string) error {
	return s.store.Update(func(tx *graph.Tx) error {
		snap := tx.Snapshot()
		m := snap.Model(id)
		if m == nil {
			return fmt.Errorf("model %s: %w", id, graph.ErrNotFound)
		}
		prefix := m.Tablename + "."
		for _, other := range snap.Models {
			if other.ID == id {
				continue
			}
			if err := clearForeignKeys(tx, other, func(fk string) bool { return strings.HasPrefix(fk, prefix) }); err != nil {
				return err
			}
			for _, r := range other.Relationships {
				if r.Target != m.Name {
					continue
				}
				if err := tx.DeleteRelationship(other.ID, r.ID); err != nil {
					return err
				}
			}
		}
		return tx.DeleteModel(id)
	})
}

// RemoveColumn deletes a column and clears foreign keys that referenced it.
func (s *Synthesizer) RemoveColumn(modelID, columnID string) error {
	return s.store.Update(func(tx *graph.Tx) error {
		snap := tx.Snapshot()
		m := snap.Model(modelID)
		if m == nil {
			return fmt.Errorf("model %s: %w", modelID, graph.ErrNotFound)
		}
		c := m.ColumnByID(columnID)
		if c == nil {
			return fmt.Errorf("column %s: %w", columnID, graph.ErrNotFound)
		}
		ref := schema.ForeignKeyRef{Table: m.Tablename, Column: c.Name}.String()
		for _, other := range snap.Models {
			if err := clearForeignKeys(tx, other, func(fk string) bool { return fk == ref }); err != nil {
				return err
			}
		}
		return tx.DeleteColumn(modelID, columnID)
	})
}

// RemoveRelationship deletes a relationship together with its reciprocal on
// the target model.
func (s *Synthesizer) RemoveRelationship(modelID, relID string) error {
	return s.store.Update(func(tx *graph.Tx) error {
		snap := tx.Snapshot()
		m := snap.Model(modelID)
		if m == nil {
			return fmt.Errorf("model %s: %w", modelID, graph.ErrNotFound)
		}
		r := m.RelationshipByID(relID)
		if r == nil {
			return fmt.Errorf("relationship %s: %w", relID, graph.ErrNotFound)
		}
		if err := tx.DeleteRelationship(modelID, relID); err != nil {
			return err
		}
		if r.BackPopulates == "" {
			return nil
		}
		target := snap.ModelByName(r.Target)
		if target == nil {
			return nil
		}
		back := target.Relationship(r.BackPopulates)
		if back == nil || back.ID == relID || back.BackPopulates != r.Name || back.Target != m.Name {
			return nil
		}
		return tx.DeleteRelationship(target.ID, back.ID)
	})
}

// RemoveEnum deletes an enum. Columns typed with it fall back to string.
func (s *Synthesizer) RemoveEnum(id string) error {
	return s.store.Update(func(tx *graph.Tx) error {
		snap := tx.Snapshot()
		var name string
		for _, e := range snap.Enums {
			if e.ID == id {
				name = e.Name
			}
		}
		if name == "" {
			return fmt.Errorf("enum %s: %w", id, graph.ErrNotFound)
		}
		fallback := schema.ColumnType{Name: schema.TypeString}
		for _, m := range snap.Models {
			for _, c := range m.Columns {
				if c.Type.EnumClass != name {
					continue
				}
				if err := tx.UpdateColumn(m.ID, c.ID, graph.ColumnPatch{Type: &fallback}); err != nil {
					return err
				}
			}
		}
		return tx.DeleteEnum(id)
	})
}

// RenameModel applies p to a model and propagates a new name to relationship
// targets and a new tablename to foreign key references.
func (s *Synthesizer) RenameModel(id string, p graph.ModelPatch) error {
	return s.store.Update(func(tx *graph.Tx) error {
		snap := tx.Snapshot()
		m := snap.Model(id)
		if m == nil {
			return fmt.Errorf("model %s: %w", id, graph.ErrNotFound)
		}
		if err := tx.UpdateModel(id, p); err != nil {
			return err
		}
		for _, other := range snap.Models {
			if p.Name != nil && *p.Name != m.Name {
				for _, r := range other.Relationships {
					if r.Target != m.Name {
						continue
					}
					if err := tx.UpdateRelationship(other.ID, r.ID, graph.RelationshipPatch{Target: p.Name}); err != nil {
						return err
					}
				}
			}
			if p.Tablename != nil && *p.Tablename != m.Tablename {
				for _, c := range other.Columns {
					ref, err := schema.ParseForeignKey(c.ForeignKey)
					if err != nil || ref.Table != m.Tablename {
						continue
					}
					fk := schema.ForeignKeyRef{Table: *p.Tablename, Column: ref.Column}.String()
					if err := tx.UpdateColumn(other.ID, c.ID, graph.ColumnPatch{ForeignKey: &fk}); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
}

func clearForeignKeys(tx *graph.Tx, m schema.Model, match func(string) bool) error {
	empty := ""
	for _, c := range m.Columns {
		if c.ForeignKey == "" || !match(c.ForeignKey) {
			continue
		}
		if err := tx.UpdateColumn(m.ID, c.ID, graph.ColumnPatch{ForeignKey: &empty}); err != nil {
			return err
		}
	}
	return nil
}
