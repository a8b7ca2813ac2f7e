package graph

import (
	"slices"

	"github.com/schemacanvas/schemacanvas/internal/schema"
)

// state is the id arena. The order slices keep insertion order for stable output.
type state struct {
	models     map[string]*schema.Model
	modelOrder []string
	enums      map[string]*schema.EnumDefinition
	enumOrder  []string
	tables     map[string]*schema.AssociationTable
	tableOrder []string
}

func newState() *state {
	return &state{
		models: make(map[string]*schema.Model),
		enums:  make(map[string]*schema.EnumDefinition),
		tables: make(map[string]*schema.AssociationTable),
	}
}

func (s *state) clone() *state {
	out := &state{
		models:     make(map[string]*schema.Model, len(s.models)),
		modelOrder: slices.Clone(s.modelOrder),
		enums:      make(map[string]*schema.EnumDefinition, len(s.enums)),
		enumOrder:  slices.Clone(s.enumOrder),
		tables:     make(map[string]*schema.AssociationTable, len(s.tables)),
		tableOrder: slices.Clone(s.tableOrder),
	}
	for id, m := range s.models {
		c := m.Clone()
		out.models[id] = &c
	}
	for id, e := range s.enums {
		c := e.Clone()
		out.enums[id] = &c
	}
	for id, a := range s.tables {
		c := a.Clone()
		out.tables[id] = &c
	}
	return out
}

func (s *state) snapshot() *schema.Schema {
	out := &schema.Schema{
		Models: make([]schema.Model, 0, len(s.modelOrder)),
	}
	for _, id := range s.modelOrder {
		out.Models = append(out.Models, s.models[id].Clone())
	}
	for _, id := range s.enumOrder {
		out.Enums = append(out.Enums, s.enums[id].Clone())
	}
	for _, id := range s.tableOrder {
		out.AssociationTables = append(out.AssociationTables, s.tables[id].Clone())
	}
	return out
}

func removeID(order []string, id string) []string {
	return slices.DeleteFunc(order, func(v string) bool { return v == id })
}
