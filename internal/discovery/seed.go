package discovery

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/go-openapi/inflect"

	"github.com/schemacanvas/schemacanvas/internal/depgraph"
	"github.com/schemacanvas/schemacanvas/internal/graph"
	"github.com/schemacanvas/schemacanvas/internal/schema"
	"github.com/schemacanvas/schemacanvas/internal/synth"
	"github.com/schemacanvas/schemacanvas/internal/typemap"
)

// grid placement of seeded entities
const (
	gridColumns = 4
	gridX       = 320.0
	gridY       = 260.0
)

// Report summarizes a Seed run.
type Report struct {
	Models            int      `json:"models"`
	Enums             int      `json:"enums"`
	AssociationTables int      `json:"association_tables"`
	ForeignKeys       int      `json:"foreign_keys"`
	Skipped           []string `json:"skipped,omitempty"`
}

// Seeder turns a Catalog into graph entities.
type Seeder struct {
	store  *graph.Store
	synth  *synth.Synthesizer
	types  *typemap.TypeMap
	logger *slog.Logger
}

// NewSeeder creates a Seeder writing to store through syn.
func NewSeeder(store *graph.Store, syn *synth.Synthesizer, types *typemap.TypeMap, logger *slog.Logger) *Seeder {
	if types == nil {
		types = typemap.Defaults()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{store: store, synth: syn, types: types, logger: logger}
}

// Seed replaces the graph with the catalog's tables and enums, then attaches
// every single-column foreign key through the synthesizer so relationships and
// reciprocals exist on both sides. Pure junction tables become association tables.
func (s *Seeder) Seed(cat *Catalog) (*Report, error) {
	report := &Report{}

	enums, enumNames := s.enums(cat)
	junctions := make(map[string]bool)
	var models []schema.Model
	var tables []schema.AssociationTable
	used := make(map[string]bool)

	for _, t := range cat.Tables {
		if isJunction(cat, &t) {
			junctions[t.Name] = true
			tables = append(tables, s.associationTable(cat, &t, enumNames, used))
			continue
		}
		models = append(models, s.model(&t, enumNames, used))
	}
	place(models, cat)
	for i := range enums {
		enums[i].Position = &schema.Position{X: 100 + float64(i)*gridX, Y: 100 + gridY*float64(rows(len(models)))}
	}

	s.store.LoadGraph(models, enums, tables)
	report.Models = len(models)
	report.Enums = len(enums)
	report.AssociationTables = len(tables)

	for _, t := range cat.Tables {
		if junctions[t.Name] {
			continue
		}
		for _, fk := range t.ForeignKeys {
			if len(fk.Columns) != 1 || len(fk.ReferencedColumns) != 1 {
				report.Skipped = append(report.Skipped, fmt.Sprintf("%s.%s: composite foreign key", t.Name, fk.Name))
				continue
			}
			if err := s.attach(cat, &t, fk); err != nil {
				report.Skipped = append(report.Skipped, fmt.Sprintf("%s.%s: %v", t.Name, fk.Name, err))
				s.logger.Warn("foreign key not attached", "table", t.Name, "constraint", fk.Name, "error", err)
				continue
			}
			report.ForeignKeys++
		}
	}

	s.logger.Info("seeded graph from catalog", "models", report.Models, "enums", report.Enums,
		"association_tables", report.AssociationTables, "foreign_keys", report.ForeignKeys, "skipped", len(report.Skipped))
	return report, nil
}

func (s *Seeder) enums(cat *Catalog) ([]schema.EnumDefinition, map[string]string) {
	names := make(map[string]string, len(cat.Enums))
	out := make([]schema.EnumDefinition, 0, len(cat.Enums))
	for _, e := range cat.Enums {
		name := inflect.Camelize(e.Name)
		names[e.Name] = name
		out = append(out, schema.EnumDefinition{Name: name, Values: append([]string(nil), e.Values...)})
	}
	return out, names
}

func (s *Seeder) model(t *Table, enumNames map[string]string, used map[string]bool) schema.Model {
	pk := make(map[string]bool, len(t.PrimaryKey))
	for _, c := range t.PrimaryKey {
		pk[c] = true
	}
	m := schema.Model{
		Name:      uniqueName(graph.SuggestModelName(t.Name), used),
		Tablename: t.Name,
	}
	for _, c := range t.Columns {
		m.Columns = append(m.Columns, s.column(c, pk[c.Name], enumNames))
	}
	return m
}

func (s *Seeder) associationTable(cat *Catalog, t *Table, enumNames map[string]string, used map[string]bool) schema.AssociationTable {
	a := schema.AssociationTable{
		Name:      uniqueName(inflect.Camelize(t.Name), used),
		Tablename: t.Name,
	}
	refs := make(map[string]string)
	for _, fk := range t.ForeignKeys {
		refs[fk.Columns[0]] = fk.ReferencedTable + "." + fk.ReferencedColumns[0]
	}
	for _, c := range t.Columns {
		col := s.column(c, false, enumNames)
		col.PrimaryKey = slices.Contains(t.PrimaryKey, c.Name)
		if ref, ok := refs[c.Name]; ok {
			col.ForeignKey = ref
			// association columns mirror their target directly
			if parent := cat.Table(strings.Split(ref, ".")[0]); parent != nil {
				if pc := parent.Column(strings.Split(ref, ".")[1]); pc != nil {
					col.Type = s.types.Column(pc.DataType, pc.MaxLength, pc.Precision, pc.Scale)
				}
			}
		}
		a.Columns = append(a.Columns, col)
	}
	return a
}

func (s *Seeder) column(c Column, primaryKey bool, enumNames map[string]string) schema.Column {
	col := schema.Column{
		Name:          c.Name,
		Type:          s.types.Column(c.DataType, c.MaxLength, c.Precision, c.Scale),
		PrimaryKey:    primaryKey,
		Nullable:      c.Nullable && !primaryKey,
		Unique:        c.Unique,
		Index:         c.Indexed,
		Autoincrement: primaryKey && c.Sequence,
	}
	if enum, ok := enumNames[c.UDTName]; ok && c.DataType == "USER-DEFINED" {
		col.Type = schema.ColumnType{Name: schema.TypeEnum, EnumClass: enum}
	}
	if c.Default != nil && !c.Sequence {
		d := *c.Default
		col.Default = &d
	}
	return col
}

func (s *Seeder) attach(cat *Catalog, t *Table, fk ForeignKey) error {
	owner, ok := s.store.ModelByTablename(t.Name)
	if !ok {
		return fmt.Errorf("table %s: %w", t.Name, graph.ErrNotFound)
	}
	col := owner.Column(fk.Columns[0])
	if col == nil {
		return fmt.Errorf("column %s: %w", fk.Columns[0], graph.ErrNotFound)
	}
	target, ok := s.store.ModelByTablename(fk.ReferencedTable)
	if !ok {
		return fmt.Errorf("table %s: %w", fk.ReferencedTable, synth.ErrTargetNotFound)
	}

	kind := schema.ManyToOne
	if col.Unique {
		kind = schema.OneToOne
	}
	name := relationshipName(col.Name, target.Name, kind, &owner)
	back := inflect.Pluralize(inflect.Underscore(owner.Name))
	if kind == schema.OneToOne {
		back = inflect.Underscore(owner.Name)
	}
	if fksTo(t, fk.ReferencedTable) > 1 {
		back = name + "_" + back
	}

	_, err := s.synth.AttachForeignKey(synth.ForeignKeyIntent{
		ModelID:            owner.ID,
		ColumnID:           col.ID,
		Reference:          fk.ReferencedTable + "." + fk.ReferencedColumns[0],
		CreateRelationship: true,
		Kind:               kind,
		RelationshipName:   name,
		BackPopulates:      back,
	})
	return err
}

// relationshipName derives "author" from "author_id", falling back to the
// default name when that would shadow a column.
func relationshipName(column, target string, kind schema.RelationKind, owner *schema.Model) string {
	name := strings.TrimSuffix(column, "_id")
	if name == column || name == "" || owner.Column(name) != nil || owner.Relationship(name) != nil {
		name = synth.DefaultRelationshipName(target, kind)
	}
	if owner.Column(name) != nil {
		name += "_ref"
	}
	return name
}

func fksTo(t *Table, table string) int {
	n := 0
	for _, fk := range t.ForeignKeys {
		if fk.ReferencedTable == table {
			n++
		}
	}
	return n
}

// isJunction reports whether t only links two other tables: exactly two
// single-column foreign keys, no other columns and no table referencing it.
func isJunction(cat *Catalog, t *Table) bool {
	if len(t.ForeignKeys) != 2 || len(t.Columns) != 2 {
		return false
	}
	for _, fk := range t.ForeignKeys {
		if len(fk.Columns) != 1 || fk.ReferencedTable == t.Name {
			return false
		}
	}
	for _, other := range cat.Tables {
		for _, fk := range other.ForeignKeys {
			if fk.ReferencedTable == t.Name {
				return false
			}
		}
	}
	return true
}

// place lays models out on a grid, parents before children.
func place(models []schema.Model, cat *Catalog) {
	probe := &schema.Schema{}
	index := make(map[string]int, len(models))
	for i, m := range models {
		index[m.Tablename] = i
		pm := schema.Model{Name: m.Name, Tablename: m.Tablename}
		if t := cat.Table(m.Tablename); t != nil {
			for _, fk := range t.ForeignKeys {
				if len(fk.Columns) == 1 && len(fk.ReferencedColumns) == 1 {
					pm.Columns = append(pm.Columns, schema.Column{Name: fk.Columns[0], ForeignKey: fk.ReferencedTable + "." + fk.ReferencedColumns[0]})
				}
			}
		}
		probe.Models = append(probe.Models, pm)
	}

	// tables stuck in a cycle keep their catalog order after the rest
	order, _ := depgraph.New(probe).CreationOrder()
	placed := make(map[string]bool, len(order))
	for _, m := range models {
		if !slices.Contains(order, m.Tablename) {
			order = append(order, m.Tablename)
		}
	}
	slot := 0
	for _, table := range order {
		i, ok := index[table]
		if !ok || placed[table] {
			continue
		}
		placed[table] = true
		models[i].Position = &schema.Position{
			X: 100 + gridX*float64(slot%gridColumns),
			Y: 100 + gridY*float64(slot/gridColumns),
		}
		slot++
	}
}

func rows(n int) int {
	return (n + gridColumns - 1) / gridColumns
}

func uniqueName(name string, used map[string]bool) string {
	if name == "" {
		name = "Table"
	}
	candidate := name
	for i := 2; used[candidate]; i++ {
		candidate = name + strconv.Itoa(i)
	}
	used[candidate] = true
	return candidate
}
