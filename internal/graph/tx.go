package graph

import (
	"fmt"
	"slices"

	"github.com/schemacanvas/schemacanvas/internal/schema"
)

// ModelPatch holds field-level edits to a model. Nil fields are left alone.
type ModelPatch struct {
	Name      *string `json:"name,omitempty"`
	Tablename *string `json:"tablename,omitempty"`
}

// ColumnPatch holds field-level edits to a column. Nil fields are left alone.
// An empty ForeignKey or Default string clears the value.
type ColumnPatch struct {
	Name          *string            `json:"name,omitempty"`
	Type          *schema.ColumnType `json:"type,omitempty"`
	PrimaryKey    *bool              `json:"primary_key,omitempty"`
	Nullable      *bool              `json:"nullable,omitempty"`
	Unique        *bool              `json:"unique,omitempty"`
	Index         *bool              `json:"index,omitempty"`
	Autoincrement *bool              `json:"autoincrement,omitempty"`
	Default       *string            `json:"default,omitempty"`
	ForeignKey    *string            `json:"foreign_key,omitempty"`
}

// RelationshipPatch holds field-level edits to a relationship. Nil fields are left alone.
type RelationshipPatch struct {
	Name          *string              `json:"name,omitempty"`
	Target        *string              `json:"target,omitempty"`
	BackPopulates *string              `json:"back_populates,omitempty"`
	Kind          *schema.RelationKind `json:"kind,omitempty"`
	Cascade       *[]schema.Cascade    `json:"cascade,omitempty"`
}

// EnumPatch holds edits to an enum. A nil Values slice keeps the current values.
type EnumPatch struct {
	Name   *string  `json:"name,omitempty"`
	Values []string `json:"values,omitempty"`
}

// AssociationTablePatch holds edits to an association table.
type AssociationTablePatch struct {
	Name      *string          `json:"name,omitempty"`
	Tablename *string          `json:"tablename,omitempty"`
	Columns   *[]schema.Column `json:"columns,omitempty"`
}

// Tx is a staged set of mutations. It is only valid inside Store.Update.
type Tx struct {
	st      *state
	newID   func() string
	changed bool
}

// Snapshot returns a deep copy of the staged graph.
func (tx *Tx) Snapshot() *schema.Schema {
	return tx.st.snapshot()
}

// Model returns a copy of the staged model with the given id.
func (tx *Tx) Model(id string) (schema.Model, bool) {
	m, ok := tx.st.models[id]
	if !ok {
		return schema.Model{}, false
	}
	return m.Clone(), true
}

func (tx *Tx) id(existing string) string {
	if existing != "" {
		return existing
	}
	return tx.newID()
}

// AddModel adds a model. Missing ids, tablename and position are filled in.
func (tx *Tx) AddModel(m schema.Model) string {
	m = m.Clone()
	m.ID = tx.id(m.ID)
	if _, exists := tx.st.models[m.ID]; exists {
		m.ID = tx.newID()
	}
	if m.Tablename == "" {
		m.Tablename = SuggestTablename(m.Name)
	}
	if m.Position == nil {
		p := schema.DefaultPosition
		m.Position = &p
	}
	for i := range m.Columns {
		m.Columns[i].ID = tx.id(m.Columns[i].ID)
	}
	for i := range m.Relationships {
		m.Relationships[i].ID = tx.id(m.Relationships[i].ID)
		m.Relationships[i].Cascade = schema.CascadeSet(m.Relationships[i].Cascade)
	}
	tx.st.models[m.ID] = &m
	tx.st.modelOrder = append(tx.st.modelOrder, m.ID)
	tx.changed = true
	return m.ID
}

// UpdateModel applies a patch to a model.
func (tx *Tx) UpdateModel(id string, p ModelPatch) error {
	m, ok := tx.st.models[id]
	if !ok {
		return fmt.Errorf("model %s: %w", id, ErrNotFound)
	}
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.Tablename != nil {
		m.Tablename = *p.Tablename
	}
	tx.changed = true
	return nil
}

// DeleteModel removes a model without touching references to it.
func (tx *Tx) DeleteModel(id string) error {
	if _, ok := tx.st.models[id]; !ok {
		return fmt.Errorf("model %s: %w", id, ErrNotFound)
	}
	delete(tx.st.models, id)
	tx.st.modelOrder = removeID(tx.st.modelOrder, id)
	tx.changed = true
	return nil
}

// AddColumn appends a column to a model.
func (tx *Tx) AddColumn(modelID string, c schema.Column) (string, error) {
	m, ok := tx.st.models[modelID]
	if !ok {
		return "", fmt.Errorf("model %s: %w", modelID, ErrNotFound)
	}
	c = c.Clone()
	c.ID = tx.id(c.ID)
	m.Columns = append(m.Columns, c)
	tx.changed = true
	return c.ID, nil
}

// UpdateColumn applies a patch to a column. On a primary-key column the
// name, type, primary_key and autoincrement fields are locked and ignored.
func (tx *Tx) UpdateColumn(modelID, columnID string, p ColumnPatch) error {
	m, ok := tx.st.models[modelID]
	if !ok {
		return fmt.Errorf("model %s: %w", modelID, ErrNotFound)
	}
	c := m.ColumnByID(columnID)
	if c == nil {
		return fmt.Errorf("column %s: %w", columnID, ErrNotFound)
	}
	applyColumnPatch(c, p)
	tx.changed = true
	return nil
}

func applyColumnPatch(c *schema.Column, p ColumnPatch) {
	if !c.PrimaryKey {
		if p.Name != nil {
			c.Name = *p.Name
		}
		if p.Type != nil {
			c.Type = p.Type.Clone()
		}
		if p.PrimaryKey != nil {
			c.PrimaryKey = *p.PrimaryKey
		}
		if p.Autoincrement != nil {
			c.Autoincrement = *p.Autoincrement
		}
	}
	if p.Nullable != nil {
		c.Nullable = *p.Nullable
	}
	if p.Unique != nil {
		c.Unique = *p.Unique
	}
	if p.Index != nil {
		c.Index = *p.Index
	}
	if p.Default != nil {
		if *p.Default == "" {
			c.Default = nil
		} else {
			d := *p.Default
			c.Default = &d
		}
	}
	if p.ForeignKey != nil {
		c.ForeignKey = *p.ForeignKey
	}
}

// DeleteColumn removes a column from a model.
func (tx *Tx) DeleteColumn(modelID, columnID string) error {
	m, ok := tx.st.models[modelID]
	if !ok {
		return fmt.Errorf("model %s: %w", modelID, ErrNotFound)
	}
	idx := slices.IndexFunc(m.Columns, func(c schema.Column) bool { return c.ID == columnID })
	if idx < 0 {
		return fmt.Errorf("column %s: %w", columnID, ErrNotFound)
	}
	m.Columns = slices.Delete(m.Columns, idx, idx+1)
	tx.changed = true
	return nil
}

// AddRelationship appends a relationship to a model.
func (tx *Tx) AddRelationship(modelID string, r schema.Relationship) (string, error) {
	m, ok := tx.st.models[modelID]
	if !ok {
		return "", fmt.Errorf("model %s: %w", modelID, ErrNotFound)
	}
	r = r.Clone()
	r.ID = tx.id(r.ID)
	r.Cascade = schema.CascadeSet(r.Cascade)
	m.Relationships = append(m.Relationships, r)
	tx.changed = true
	return r.ID, nil
}

// UpdateRelationship applies a patch to a relationship.
func (tx *Tx) UpdateRelationship(modelID, relID string, p RelationshipPatch) error {
	m, ok := tx.st.models[modelID]
	if !ok {
		return fmt.Errorf("model %s: %w", modelID, ErrNotFound)
	}
	r := m.RelationshipByID(relID)
	if r == nil {
		return fmt.Errorf("relationship %s: %w", relID, ErrNotFound)
	}
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Target != nil {
		r.Target = *p.Target
	}
	if p.BackPopulates != nil {
		r.BackPopulates = *p.BackPopulates
	}
	if p.Kind != nil {
		r.Uselist = p.Kind.Uselist()
	}
	if p.Cascade != nil {
		r.Cascade = schema.CascadeSet(*p.Cascade)
	}
	tx.changed = true
	return nil
}

// DeleteRelationship removes a relationship from a model.
func (tx *Tx) DeleteRelationship(modelID, relID string) error {
	m, ok := tx.st.models[modelID]
	if !ok {
		return fmt.Errorf("model %s: %w", modelID, ErrNotFound)
	}
	idx := slices.IndexFunc(m.Relationships, func(r schema.Relationship) bool { return r.ID == relID })
	if idx < 0 {
		return fmt.Errorf("relationship %s: %w", relID, ErrNotFound)
	}
	m.Relationships = slices.Delete(m.Relationships, idx, idx+1)
	tx.changed = true
	return nil
}

// AddEnum adds an enum.
func (tx *Tx) AddEnum(e schema.EnumDefinition) string {
	e = e.Clone()
	e.ID = tx.id(e.ID)
	if _, exists := tx.st.enums[e.ID]; exists {
		e.ID = tx.newID()
	}
	if e.Position == nil {
		p := schema.DefaultPosition
		e.Position = &p
	}
	tx.st.enums[e.ID] = &e
	tx.st.enumOrder = append(tx.st.enumOrder, e.ID)
	tx.changed = true
	return e.ID
}

// UpdateEnum applies a patch to an enum.
func (tx *Tx) UpdateEnum(id string, p EnumPatch) error {
	e, ok := tx.st.enums[id]
	if !ok {
		return fmt.Errorf("enum %s: %w", id, ErrNotFound)
	}
	if p.Name != nil {
		e.Name = *p.Name
	}
	if p.Values != nil {
		e.Values = slices.Clone(p.Values)
	}
	tx.changed = true
	return nil
}

// DeleteEnum removes an enum.
func (tx *Tx) DeleteEnum(id string) error {
	if _, ok := tx.st.enums[id]; !ok {
		return fmt.Errorf("enum %s: %w", id, ErrNotFound)
	}
	delete(tx.st.enums, id)
	tx.st.enumOrder = removeID(tx.st.enumOrder, id)
	tx.changed = true
	return nil
}

// AddAssociationTable adds an association table.
func (tx *Tx) AddAssociationTable(a schema.AssociationTable) string {
	a = a.Clone()
	a.ID = tx.id(a.ID)
	if _, exists := tx.st.tables[a.ID]; exists {
		a.ID = tx.newID()
	}
	for i := range a.Columns {
		a.Columns[i].ID = tx.id(a.Columns[i].ID)
	}
	tx.st.tables[a.ID] = &a
	tx.st.tableOrder = append(tx.st.tableOrder, a.ID)
	tx.changed = true
	return a.ID
}

// UpdateAssociationTable applies a patch to an association table.
func (tx *Tx) UpdateAssociationTable(id string, p AssociationTablePatch) error {
	a, ok := tx.st.tables[id]
	if !ok {
		return fmt.Errorf("association table %s: %w", id, ErrNotFound)
	}
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Tablename != nil {
		a.Tablename = *p.Tablename
	}
	if p.Columns != nil {
		cols := make([]schema.Column, len(*p.Columns))
		for i, c := range *p.Columns {
			cols[i] = c.Clone()
			cols[i].ID = tx.id(cols[i].ID)
		}
		a.Columns = cols
	}
	tx.changed = true
	return nil
}

// DeleteAssociationTable removes an association table.
func (tx *Tx) DeleteAssociationTable(id string) error {
	if _, ok := tx.st.tables[id]; !ok {
		return fmt.Errorf("association table %s: %w", id, ErrNotFound)
	}
	delete(tx.st.tables, id)
	tx.st.tableOrder = removeID(tx.st.tableOrder, id)
	tx.changed = true
	return nil
}

// UpdatePosition moves a model or an enum.
func (tx *Tx) UpdatePosition(id string, pos schema.Position) error {
	if m, ok := tx.st.models[id]; ok {
		m.Position = &pos
		tx.changed = true
		return nil
	}
	if e, ok := tx.st.enums[id]; ok {
		e.Position = &pos
		tx.changed = true
		return nil
	}
	return fmt.Errorf("entity %s: %w", id, ErrNotFound)
}
