// Package synth turns a single editor gesture into a consistent set of graph
// edits: foreign-key columns, forward relationships and their reciprocals.
//
// Planning is a pure function of a graph snapshot. The resulting Result is
// applied to the store in one transaction.
package synth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/schemacanvas/schemacanvas/internal/graph"
	"github.com/schemacanvas/schemacanvas/internal/schema"
)

var (
	ErrMalformedReference = errors.New("malformed foreign key reference")
	ErrTargetNotFound     = errors.New("target not found")
	ErrTargetNotKey       = errors.New("target column is neither primary key nor unique")
	ErrNoPrimaryKey       = errors.New("referenced model has no primary key")
	ErrPrimaryKeyLocked   = errors.New("primary key column cannot be retyped")
	ErrInvalidKind        = errors.New("invalid relationship kind")
	ErrNameTaken          = errors.New("relationship name already used on this model")
)

// ForeignKeyIntent attaches a foreign key to an existing column.
type ForeignKeyIntent struct {
	ModelID   string `json:"model_id"`
	ColumnID  string `json:"column_id"`
	Reference string `json:"reference"`

	// CreateRelationship also declares a relationship on the owning model.
	CreateRelationship bool `json:"create_relationship"`
	// Kind is many-to-one (default) or one-to-one.
	Kind             schema.RelationKind `json:"kind,omitempty"`
	RelationshipName string              `json:"relationship_name,omitempty"`
	BackPopulates    string              `json:"back_populates,omitempty"`
	Cascade          []schema.Cascade    `json:"cascade,omitempty"`
}

// RelationshipIntent declares (or edits) a relationship before any foreign key exists.
type RelationshipIntent struct {
	ModelID string `json:"model_id"`
	// RelationshipID is set when editing an existing relationship.
	RelationshipID string              `json:"relationship_id,omitempty"`
	Target         string              `json:"target"`
	Kind           schema.RelationKind `json:"kind"`
	Name           string              `json:"name,omitempty"`
	BackPopulates  string              `json:"back_populates,omitempty"`
	Cascade        []schema.Cascade    `json:"cascade,omitempty"`
	// AutoForeignKey defaults to true for new relationships and is ignored for edits.
	AutoForeignKey *bool `json:"auto_foreign_key,omitempty"`
}

// ColumnChange is a column to add (empty ID) or overwrite on a model.
type ColumnChange struct {
	ModelID string        `json:"model_id"`
	Column  schema.Column `json:"column"`
}

// RelationshipChange is a relationship to add (empty ID) or overwrite on a model.
type RelationshipChange struct {
	ModelID      string              `json:"model_id"`
	Relationship schema.Relationship `json:"relationship"`
}

// Result is everything one intent derives. Nil parts are not written.
// Retract is a reciprocal left behind by an edit; it is deleted.
type Result struct {
	Column       *ColumnChange       `json:"column,omitempty"`
	Relationship *RelationshipChange `json:"relationship,omitempty"`
	Reverse      *RelationshipChange `json:"reverse,omitempty"`
	Retract      *RelationshipChange `json:"retract,omitempty"`
}

// Empty reports whether the result writes nothing.
func (r Result) Empty() bool {
	return r.Column == nil && r.Relationship == nil && r.Reverse == nil && r.Retract == nil
}

// DefaultRelationshipName is the lowercased target name, pluralized with a
// trailing "s" for one-to-many.
func DefaultRelationshipName(target string, kind schema.RelationKind) string {
	name := strings.ToLower(target)
	if kind == schema.OneToMany {
		name += "s"
	}
	return name
}

// ForeignKeyColumnName is the column synthesized on the owning side, e.g. "user_id".
func ForeignKeyColumnName(referenced string) string {
	return strings.ToLower(referenced) + "_id"
}

// PlanForeignKey resolves a foreign key intent against snap.
func PlanForeignKey(snap *schema.Schema, in ForeignKeyIntent) (Result, error) {
	owner := snap.Model(in.ModelID)
	if owner == nil {
		return Result{}, fmt.Errorf("model %s: %w", in.ModelID, graph.ErrNotFound)
	}
	col := owner.ColumnByID(in.ColumnID)
	if col == nil {
		return Result{}, fmt.Errorf("column %s: %w", in.ColumnID, graph.ErrNotFound)
	}
	ref, err := schema.ParseForeignKey(in.Reference)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %q", ErrMalformedReference, in.Reference)
	}
	target := snap.ModelByTablename(ref.Table)
	if target == nil {
		return Result{}, fmt.Errorf("table %q: %w", ref.Table, ErrTargetNotFound)
	}
	tcol := target.Column(ref.Column)
	if tcol == nil {
		return Result{}, fmt.Errorf("column %q: %w", ref.String(), ErrTargetNotFound)
	}
	if !tcol.IsKey() {
		return Result{}, fmt.Errorf("column %q: %w", ref.String(), ErrTargetNotKey)
	}
	if col.PrimaryKey && !col.Type.Mirrors(tcol.Type) {
		return Result{}, fmt.Errorf("column %q: %w", col.Name, ErrPrimaryKeyLocked)
	}

	kind := in.Kind
	if kind == "" {
		kind = schema.ManyToOne
	}
	if kind != schema.ManyToOne && kind != schema.OneToOne {
		return Result{}, fmt.Errorf("%w for foreign key side: %s", ErrInvalidKind, kind)
	}

	c := col.Clone()
	c.ForeignKey = ref.String()
	c.Type = tcol.Type.Clone()
	res := Result{Column: &ColumnChange{ModelID: owner.ID, Column: c}}

	if !in.CreateRelationship {
		return res, nil
	}
	name := in.RelationshipName
	if name == "" {
		name = DefaultRelationshipName(target.Name, kind)
	}
	rel := forward(owner, name, target.Name, in.BackPopulates, in.Cascade, kind)
	res.Relationship = &RelationshipChange{ModelID: owner.ID, Relationship: rel}
	res.Reverse, res.Retract = reciprocal(snap, owner, target, rel, kind)
	return res, nil
}

// PlanRelationship resolves a relationship intent against snap.
func PlanRelationship(snap *schema.Schema, in RelationshipIntent) (Result, error) {
	owner := snap.Model(in.ModelID)
	if owner == nil {
		return Result{}, fmt.Errorf("model %s: %w", in.ModelID, graph.ErrNotFound)
	}
	if !in.Kind.Valid() {
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidKind, in.Kind)
	}
	target := snap.ModelByName(in.Target)
	if target == nil {
		return Result{}, fmt.Errorf("model %q: %w", in.Target, ErrTargetNotFound)
	}

	name := in.Name
	if name == "" {
		name = DefaultRelationshipName(target.Name, in.Kind)
	}
	rel := forward(owner, name, target.Name, in.BackPopulates, in.Cascade, in.Kind)

	editing := in.RelationshipID != ""
	if editing {
		existing := owner.RelationshipByID(in.RelationshipID)
		if existing == nil {
			return Result{}, fmt.Errorf("relationship %s: %w", in.RelationshipID, graph.ErrNotFound)
		}
		if rel.ID != "" && rel.ID != existing.ID {
			return Result{}, fmt.Errorf("%w: %q on %s", ErrNameTaken, name, owner.Name)
		}
		rel.ID = existing.ID
	}
	res := Result{Relationship: &RelationshipChange{ModelID: owner.ID, Relationship: rel}}

	auto := !editing && (in.AutoForeignKey == nil || *in.AutoForeignKey)
	if auto {
		fkOwner, referenced := owner, target
		if in.Kind == schema.OneToMany {
			fkOwner, referenced = target, owner
		}
		c, err := foreignKeyColumn(fkOwner, referenced)
		if err != nil {
			return Result{}, err
		}
		res.Column = &ColumnChange{ModelID: fkOwner.ID, Column: c}
	}

	res.Reverse, res.Retract = reciprocal(snap, owner, target, rel, in.Kind)
	return res, nil
}

// forward builds the owner-side relationship, reusing the id of a same-named
// relationship so that re-application overwrites instead of duplicating.
func forward(owner *schema.Model, name, target, backPopulates string, cascade []schema.Cascade, kind schema.RelationKind) schema.Relationship {
	rel := schema.Relationship{
		Name:          name,
		Target:        target,
		BackPopulates: backPopulates,
		Cascade:       schema.CascadeSet(cascade),
		Uselist:       kind.Uselist(),
	}
	if existing := owner.Relationship(name); existing != nil {
		rel.ID = existing.ID
	}
	return rel
}

// reverse builds the reciprocal on the target. It returns nil when no
// back_populates was requested or the target already has a relationship of
// that name. Cascade is not copied.
func reverse(owner, target *schema.Model, rel schema.Relationship, kind schema.RelationKind) *RelationshipChange {
	if rel.BackPopulates == "" {
		return nil
	}
	if target.Relationship(rel.BackPopulates) != nil {
		return nil
	}
	if target.ID == owner.ID && rel.BackPopulates == rel.Name {
		return nil
	}
	return &RelationshipChange{
		ModelID: target.ID,
		Relationship: schema.Relationship{
			Name:          rel.BackPopulates,
			Target:        owner.Name,
			BackPopulates: rel.Name,
			Uselist:       kind.Inverse().Uselist(),
		},
	}
}

// reciprocal plans the target side of rel. When rel overwrites an existing
// relationship whose reciprocal still pairs with it, that reciprocal is
// realigned in place if it sits where the new one belongs, and retracted
// otherwise.
func reciprocal(snap *schema.Schema, owner, target *schema.Model, rel schema.Relationship, kind schema.RelationKind) (rev, retract *RelationshipChange) {
	rev = reverse(owner, target, rel, kind)
	if rel.ID == "" {
		return rev, nil
	}
	prev := owner.RelationshipByID(rel.ID)
	if prev == nil {
		return rev, nil
	}
	prevTarget := snap.ModelByName(prev.Target)
	back := pairedWith(owner, prevTarget, prev)
	if back == nil {
		return rev, nil
	}

	if prevTarget.ID == target.ID && back.Name == rel.BackPopulates {
		want := kind.Inverse()
		if back.BackPopulates == rel.Name && back.Kind() == want {
			return nil, nil
		}
		b := back.Clone()
		b.BackPopulates = rel.Name
		b.Uselist = want.Uselist()
		return &RelationshipChange{ModelID: target.ID, Relationship: b}, nil
	}
	return rev, &RelationshipChange{ModelID: prevTarget.ID, Relationship: back.Clone()}
}

// pairedWith returns the relationship on t that back-populates r, or nil.
func pairedWith(owner, t *schema.Model, r *schema.Relationship) *schema.Relationship {
	if t == nil || r.BackPopulates == "" {
		return nil
	}
	back := t.Relationship(r.BackPopulates)
	if back == nil || back.ID == r.ID || back.Target != owner.Name || back.BackPopulates != r.Name {
		return nil
	}
	return back
}

func foreignKeyColumn(fkOwner, referenced *schema.Model) (schema.Column, error) {
	pk := referenced.PrimaryKey()
	if pk == nil {
		return schema.Column{}, fmt.Errorf("model %q: %w", referenced.Name, ErrNoPrimaryKey)
	}
	name := ForeignKeyColumnName(referenced.Name)
	var c schema.Column
	if existing := fkOwner.Column(name); existing != nil {
		if existing.PrimaryKey && !existing.Type.Mirrors(pk.Type) {
			return schema.Column{}, fmt.Errorf("column %q: %w", name, ErrPrimaryKeyLocked)
		}
		c = existing.Clone()
	} else {
		c = schema.Column{Name: name, Nullable: true}
	}
	c.Type = pk.Type.Clone()
	c.ForeignKey = schema.ForeignKeyRef{Table: referenced.Tablename, Column: pk.Name}.String()
	return c, nil
}
