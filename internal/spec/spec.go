// Package spec converts between the entity graph and the ProjectSpec wire
// format consumed by code generators.
//
// The semantic schema never carries ids or positions. Layout lives in a
// separate _ui_metadata block keyed by entity name, so it survives the fresh
// ids assigned on every import.
package spec

import (
	"encoding/json"

	"github.com/schemacanvas/schemacanvas/internal/graph"
	"github.com/schemacanvas/schemacanvas/internal/schema"
)

// ProjectSpec is the persisted project document.
type ProjectSpec struct {
	Project    json.RawMessage `json:"project,omitempty"`
	Git        json.RawMessage `json:"git,omitempty"`
	Database   json.RawMessage `json:"database,omitempty"`
	Security   json.RawMessage `json:"security,omitempty"`
	Token      json.RawMessage `json:"token,omitempty"`
	Schema     schema.Schema   `json:"schema"`
	UIMetadata *UIMetadata     `json:"_ui_metadata,omitempty"`
}

// UIMetadata holds canvas positions keyed by entity name.
type UIMetadata struct {
	Models []PositionEntry `json:"models"`
	Enums  []PositionEntry `json:"enums,omitempty"`
}

// PositionEntry is one entity's position.
type PositionEntry struct {
	Name     string          `json:"name"`
	Position schema.Position `json:"position"`
}

// Settings are the configuration sections passed through verbatim.
type Settings struct {
	Project  json.RawMessage `json:"project,omitempty"`
	Git      json.RawMessage `json:"git,omitempty"`
	Database json.RawMessage `json:"database,omitempty"`
	Security json.RawMessage `json:"security,omitempty"`
	Token    json.RawMessage `json:"token,omitempty"`
}

// DBProvider returns database.db_provider, or "" when absent or unreadable.
func (s Settings) DBProvider() string {
	if len(s.Database) == 0 {
		return ""
	}
	var db struct {
		Provider string `json:"db_provider"`
	}
	if err := json.Unmarshal(s.Database, &db); err != nil {
		return ""
	}
	return db.Provider
}

// ProjectName returns project.name, or "" when absent.
func (s Settings) ProjectName() string {
	if len(s.Project) == 0 {
		return ""
	}
	var p struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(s.Project, &p); err != nil {
		return ""
	}
	return p.Name
}

// Settings returns the pass-through sections of ps.
func (ps *ProjectSpec) Settings() Settings {
	return Settings{
		Project:  ps.Project,
		Git:      ps.Git,
		Database: ps.Database,
		Security: ps.Security,
		Token:    ps.Token,
	}
}

// Export flattens a graph snapshot and settings into a ProjectSpec.
func Export(snap *schema.Schema, settings Settings) *ProjectSpec {
	sem := snap.Clone()
	ui := &UIMetadata{Models: make([]PositionEntry, 0, len(sem.Models))}

	for i := range sem.Models {
		m := &sem.Models[i]
		ui.Models = append(ui.Models, PositionEntry{Name: m.Name, Position: positionOf(m.Position)})
		m.ID = ""
		m.Position = nil
		stripColumns(m.Columns)
		for j := range m.Relationships {
			m.Relationships[j].ID = ""
		}
	}
	for i := range sem.Enums {
		e := &sem.Enums[i]
		ui.Enums = append(ui.Enums, PositionEntry{Name: e.Name, Position: positionOf(e.Position)})
		e.ID = ""
		e.Position = nil
	}
	for i := range sem.AssociationTables {
		a := &sem.AssociationTables[i]
		a.ID = ""
		stripColumns(a.Columns)
	}
	if len(sem.Enums) == 0 {
		sem.Enums = nil
	}
	if len(sem.AssociationTables) == 0 {
		sem.AssociationTables = nil
	}
	if sem.Models == nil {
		sem.Models = []schema.Model{}
	}

	return &ProjectSpec{
		Project:    settings.Project,
		Git:        settings.Git,
		Database:   settings.Database,
		Security:   settings.Security,
		Token:      settings.Token,
		Schema:     *sem,
		UIMetadata: ui,
	}
}

// Imported is a ProjectSpec rebuilt into graph entities.
type Imported struct {
	Models            []schema.Model
	Enums             []schema.EnumDefinition
	AssociationTables []schema.AssociationTable
	Settings          Settings
}

// Import rebuilds graph entities from ps. Ids are cleared so the store
// assigns fresh ones; positions come from _ui_metadata by name, falling back
// to the default position.
func Import(ps *ProjectSpec) Imported {
	sem := ps.Schema.Clone()
	modelPos := map[string]schema.Position{}
	enumPos := map[string]schema.Position{}
	if ps.UIMetadata != nil {
		for _, e := range ps.UIMetadata.Models {
			modelPos[e.Name] = e.Position
		}
		for _, e := range ps.UIMetadata.Enums {
			enumPos[e.Name] = e.Position
		}
	}

	for i := range sem.Models {
		m := &sem.Models[i]
		m.ID = ""
		m.Position = lookup(modelPos, m.Name)
		stripColumns(m.Columns)
		for j := range m.Relationships {
			m.Relationships[j].ID = ""
		}
	}
	for i := range sem.Enums {
		e := &sem.Enums[i]
		e.ID = ""
		e.Position = lookup(enumPos, e.Name)
	}
	for i := range sem.AssociationTables {
		sem.AssociationTables[i].ID = ""
		stripColumns(sem.AssociationTables[i].Columns)
	}

	return Imported{
		Models:            sem.Models,
		Enums:             sem.Enums,
		AssociationTables: sem.AssociationTables,
		Settings:          ps.Settings(),
	}
}

// Load replaces the contents of store with the imported graph.
func (im Imported) Load(store *graph.Store) {
	store.LoadGraph(im.Models, im.Enums, im.AssociationTables)
}

func stripColumns(cols []schema.Column) {
	for i := range cols {
		cols[i].ID = ""
	}
}

func lookup(positions map[string]schema.Position, name string) *schema.Position {
	p, ok := positions[name]
	if !ok {
		p = schema.DefaultPosition
	}
	return &p
}

func positionOf(p *schema.Position) schema.Position {
	if p == nil {
		return schema.DefaultPosition
	}
	return *p
}
