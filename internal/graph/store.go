// Package graph holds the canonical entity graph of a schema design.
//
// Entities live in flat id-indexed arenas. Every mutation runs inside a
// transaction against a staged copy and is committed all at once, so
// subscribers only ever observe complete states.
package graph

import (
	"errors"

	"github.com/google/uuid"

	"github.com/schemacanvas/schemacanvas/internal/schema"
)

// ErrNotFound is returned by mutators addressing an id that does not exist.
var ErrNotFound = errors.New("not found")

// EventKind identifies what happened to the graph.
type EventKind string

const (
	EventChanged EventKind = "changed"
	EventLoaded  EventKind = "loaded"
	EventCleared EventKind = "cleared"
	EventSaved   EventKind = "saved"
)

// Event is delivered to subscribers once per committed unit of work.
type Event struct {
	Kind  EventKind
	Dirty bool
}

// Listener receives graph events.
type Listener func(Event)

// Store is the single source of truth for one schema design.
//
// Store is not safe for concurrent use; callers serialize access.
type Store struct {
	st        *state
	dirty     bool
	newID     func() string
	listeners map[int]Listener
	nextSub   int
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces the UUID generator, mainly for deterministic tests.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		s.newID = fn
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		st:        newState(),
		newID:     uuid.NewString,
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers a listener and returns a function that removes it.
func (s *Store) Subscribe(l Listener) func() {
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = l
	return func() {
		delete(s.listeners, id)
	}
}

func (s *Store) emit(kind EventKind) {
	ev := Event{Kind: kind, Dirty: s.dirty}
	for _, l := range s.listeners {
		l(ev)
	}
}

// Update runs fn against a staged copy of the graph. If fn returns an error
// nothing is committed; otherwise every change becomes visible at once and
// subscribers receive a single EventChanged.
func (s *Store) Update(fn func(tx *Tx) error) error {
	tx := &Tx{st: s.st.clone(), newID: s.newID}
	if err := fn(tx); err != nil {
		return err
	}
	if !tx.changed {
		return nil
	}
	s.st = tx.st
	s.dirty = true
	s.emit(EventChanged)
	return nil
}

// Dirty reports whether the graph changed since it was loaded or last saved.
func (s *Store) Dirty() bool {
	return s.dirty
}

// MarkSaved clears the dirty flag.
func (s *Store) MarkSaved() {
	s.dirty = false
	s.emit(EventSaved)
}

// MarkDirty flags the graph as changed without editing it, for content that
// arrived from outside the project store.
func (s *Store) MarkDirty() {
	s.dirty = true
	s.emit(EventChanged)
}

// LoadGraph replaces the whole graph. Entities without ids receive fresh ones.
func (s *Store) LoadGraph(models []schema.Model, enums []schema.EnumDefinition, tables []schema.AssociationTable) {
	tx := &Tx{st: newState(), newID: s.newID}
	for _, m := range models {
		tx.AddModel(m)
	}
	for _, e := range enums {
		tx.AddEnum(e)
	}
	for _, a := range tables {
		tx.AddAssociationTable(a)
	}
	s.st = tx.st
	s.dirty = false
	s.emit(EventLoaded)
}

// Clear empties the graph.
func (s *Store) Clear() {
	s.st = newState()
	s.dirty = false
	s.emit(EventCleared)
}

// Snapshot returns a deep copy of the graph in insertion order.
func (s *Store) Snapshot() *schema.Schema {
	return s.st.snapshot()
}

// Model returns a copy of the model with the given id.
func (s *Store) Model(id string) (schema.Model, bool) {
	m, ok := s.st.models[id]
	if !ok {
		return schema.Model{}, false
	}
	return m.Clone(), true
}

// ModelByName returns a copy of the model with the given class name.
func (s *Store) ModelByName(name string) (schema.Model, bool) {
	for _, id := range s.st.modelOrder {
		if m := s.st.models[id]; m.Name == name {
			return m.Clone(), true
		}
	}
	return schema.Model{}, false
}

// ModelByTablename returns a copy of the model mapped onto the given table.
func (s *Store) ModelByTablename(tablename string) (schema.Model, bool) {
	for _, id := range s.st.modelOrder {
		if m := s.st.models[id]; m.Tablename == tablename {
			return m.Clone(), true
		}
	}
	return schema.Model{}, false
}

// Enum returns a copy of the enum with the given id.
func (s *Store) Enum(id string) (schema.EnumDefinition, bool) {
	e, ok := s.st.enums[id]
	if !ok {
		return schema.EnumDefinition{}, false
	}
	return e.Clone(), true
}

// AssociationTable returns a copy of the association table with the given id.
func (s *Store) AssociationTable(id string) (schema.AssociationTable, bool) {
	a, ok := s.st.tables[id]
	if !ok {
		return schema.AssociationTable{}, false
	}
	return a.Clone(), true
}

// AddModel adds a model and returns its id.
func (s *Store) AddModel(m schema.Model) string {
	var id string
	_ = s.Update(func(tx *Tx) error {
		id = tx.AddModel(m)
		return nil
	})
	return id
}

// UpdateModel applies a patch to a model.
func (s *Store) UpdateModel(id string, p ModelPatch) error {
	return s.Update(func(tx *Tx) error { return tx.UpdateModel(id, p) })
}

// DeleteModel removes a model. References to it are left in place.
func (s *Store) DeleteModel(id string) error {
	return s.Update(func(tx *Tx) error { return tx.DeleteModel(id) })
}

// AddColumn appends a column to a model and returns its id.
func (s *Store) AddColumn(modelID string, c schema.Column) (string, error) {
	var id string
	err := s.Update(func(tx *Tx) error {
		var err error
		id, err = tx.AddColumn(modelID, c)
		return err
	})
	return id, err
}

// UpdateColumn applies a patch to a column.
func (s *Store) UpdateColumn(modelID, columnID string, p ColumnPatch) error {
	return s.Update(func(tx *Tx) error { return tx.UpdateColumn(modelID, columnID, p) })
}

// DeleteColumn removes a column from a model.
func (s *Store) DeleteColumn(modelID, columnID string) error {
	return s.Update(func(tx *Tx) error { return tx.DeleteColumn(modelID, columnID) })
}

// AddRelationship appends a relationship to a model and returns its id.
func (s *Store) AddRelationship(modelID string, r schema.Relationship) (string, error) {
	var id string
	err := s.Update(func(tx *Tx) error {
		var err error
		id, err = tx.AddRelationship(modelID, r)
		return err
	})
	return id, err
}

// UpdateRelationship applies a patch to a relationship.
func (s *Store) UpdateRelationship(modelID, relID string, p RelationshipPatch) error {
	return s.Update(func(tx *Tx) error { return tx.UpdateRelationship(modelID, relID, p) })
}

// DeleteRelationship removes a relationship from a model.
func (s *Store) DeleteRelationship(modelID, relID string) error {
	return s.Update(func(tx *Tx) error { return tx.DeleteRelationship(modelID, relID) })
}

// AddEnum adds an enum and returns its id.
func (s *Store) AddEnum(e schema.EnumDefinition) string {
	var id string
	_ = s.Update(func(tx *Tx) error {
		id = tx.AddEnum(e)
		return nil
	})
	return id
}

// UpdateEnum applies a patch to an enum.
func (s *Store) UpdateEnum(id string, p EnumPatch) error {
	return s.Update(func(tx *Tx) error { return tx.UpdateEnum(id, p) })
}

// DeleteEnum removes an enum. Columns using it keep their enum_class.
func (s *Store) DeleteEnum(id string) error {
	return s.Update(func(tx *Tx) error { return tx.DeleteEnum(id) })
}

// AddAssociationTable adds an association table and returns its id.
func (s *Store) AddAssociationTable(a schema.AssociationTable) string {
	var id string
	_ = s.Update(func(tx *Tx) error {
		id = tx.AddAssociationTable(a)
		return nil
	})
	return id
}

// UpdateAssociationTable applies a patch to an association table.
func (s *Store) UpdateAssociationTable(id string, p AssociationTablePatch) error {
	return s.Update(func(tx *Tx) error { return tx.UpdateAssociationTable(id, p) })
}

// DeleteAssociationTable removes an association table.
func (s *Store) DeleteAssociationTable(id string) error {
	return s.Update(func(tx *Tx) error { return tx.DeleteAssociationTable(id) })
}

// UpdatePosition moves a model or enum on the canvas.
func (s *Store) UpdatePosition(id string, pos schema.Position) error {
	return s.Update(func(tx *Tx) error { return tx.UpdatePosition(id, pos) })
}
