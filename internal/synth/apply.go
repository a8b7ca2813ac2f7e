package synth

import (
	"github.com/schemacanvas/schemacanvas/internal/graph"
	"github.com/schemacanvas/schemacanvas/internal/schema"
)

// Apply writes res to the store in a single transaction and returns it with
// the ids of newly created entities filled in.
func Apply(store *graph.Store, res Result) (Result, error) {
	out := res
	err := store.Update(func(tx *graph.Tx) error {
		var err error
		out, err = applyTx(tx, res)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	return out, nil
}

// AttachForeignKeyTx plans a foreign key against the staged graph of tx and
// writes it there. A refusal leaves tx untouched, so the caller's transaction
// commits either all of its edits or none.
func AttachForeignKeyTx(tx *graph.Tx, in ForeignKeyIntent) (Result, error) {
	res, err := PlanForeignKey(tx.Snapshot(), in)
	if err != nil {
		return Result{}, err
	}
	return applyTx(tx, res)
}

func applyTx(tx *graph.Tx, res Result) (Result, error) {
	if res.Retract != nil {
		if err := tx.DeleteRelationship(res.Retract.ModelID, res.Retract.Relationship.ID); err != nil {
			return Result{}, err
		}
	}
	if res.Column != nil {
		c, err := writeColumn(tx, *res.Column)
		if err != nil {
			return Result{}, err
		}
		res.Column = &c
	}
	if res.Relationship != nil {
		r, err := writeRelationship(tx, *res.Relationship)
		if err != nil {
			return Result{}, err
		}
		res.Relationship = &r
	}
	if res.Reverse != nil && res.Reverse.Relationship.ID != "" {
		r, err := writeRelationship(tx, *res.Reverse)
		if err != nil {
			return Result{}, err
		}
		res.Reverse = &r
	} else if res.Reverse != nil {
		m, ok := tx.Model(res.Reverse.ModelID)
		if !ok {
			return Result{}, graph.ErrNotFound
		}
		// The forward write may have created a same-named relationship on a
		// self-referencing model.
		if m.Relationship(res.Reverse.Relationship.Name) != nil {
			res.Reverse = nil
		} else {
			r := *res.Reverse
			id, err := tx.AddRelationship(r.ModelID, r.Relationship)
			if err != nil {
				return Result{}, err
			}
			r.Relationship.ID = id
			res.Reverse = &r
		}
	}
	return res, nil
}

func writeColumn(tx *graph.Tx, ch ColumnChange) (ColumnChange, error) {
	if ch.Column.ID == "" {
		id, err := tx.AddColumn(ch.ModelID, ch.Column)
		if err != nil {
			return ColumnChange{}, err
		}
		ch.Column.ID = id
		return ch, nil
	}
	c := ch.Column
	typ := c.Type
	err := tx.UpdateColumn(ch.ModelID, c.ID, graph.ColumnPatch{
		Type:       &typ,
		ForeignKey: &c.ForeignKey,
	})
	return ch, err
}

func writeRelationship(tx *graph.Tx, ch RelationshipChange) (RelationshipChange, error) {
	r := ch.Relationship
	if r.ID == "" {
		id, err := tx.AddRelationship(ch.ModelID, r)
		if err != nil {
			return RelationshipChange{}, err
		}
		ch.Relationship.ID = id
		return ch, nil
	}
	kind := schema.KindOf(r.Uselist)
	cascade := r.Cascade
	err := tx.UpdateRelationship(ch.ModelID, r.ID, graph.RelationshipPatch{
		Name:          &r.Name,
		Target:        &r.Target,
		BackPopulates: &r.BackPopulates,
		Kind:          &kind,
		Cascade:       &cascade,
	})
	return ch, err
}
