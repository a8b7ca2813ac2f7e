package schema

// Schema is the semantic part of a project: everything a code generator consumes.
type Schema struct {
	Models            []Model            `json:"models" validate:"dive"`
	Enums             []EnumDefinition   `json:"enums,omitempty" validate:"dive"`
	AssociationTables []AssociationTable `json:"association_tables,omitempty" validate:"dive"`
}

// Position is a canvas coordinate. It carries no semantic meaning.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DefaultPosition is where entities without a stored position are placed.
var DefaultPosition = Position{X: 100, Y: 100}

// Model represents a table and the ORM class mapped onto it.
type Model struct {
	ID            string         `json:"id,omitempty"`
	Name          string         `json:"name" validate:"required,identifier"`
	Tablename     string         `json:"tablename" validate:"required,sqlname"`
	Columns       []Column       `json:"columns" validate:"dive"`
	Relationships []Relationship `json:"relationships,omitempty" validate:"dive"`
	Position      *Position      `json:"position,omitempty"`
}

// Column represents a table column.
type Column struct {
	ID            string     `json:"id,omitempty"`
	Name          string     `json:"name" validate:"required,sqlname"`
	Type          ColumnType `json:"type"`
	PrimaryKey    bool       `json:"primary_key"`
	Nullable      bool       `json:"nullable"`
	Unique        bool       `json:"unique,omitempty"`
	Index         bool       `json:"index,omitempty"`
	Autoincrement bool       `json:"autoincrement,omitempty"`
	Default       *string    `json:"default,omitempty"`
	ForeignKey    string     `json:"foreign_key,omitempty" validate:"omitempty,fkref"`
}

// ColumnType is a column's storage type drawn from the fixed TypeName set.
type ColumnType struct {
	Name      TypeName `json:"name" validate:"required,coltype"`
	Length    *int     `json:"length,omitempty" validate:"omitempty,gt=0"`
	Precision *int     `json:"precision,omitempty" validate:"omitempty,gt=0"`
	Scale     *int     `json:"scale,omitempty" validate:"omitempty,gte=0"`
	EnumClass string   `json:"enum_class,omitempty" validate:"omitempty,identifier"`
}

// Relationship is a navigable property from one model to another.
// Uselist is tri-state: true is one-to-many, false is many-to-one, nil is one-to-one.
type Relationship struct {
	ID            string    `json:"id,omitempty"`
	Name          string    `json:"name" validate:"required,identifier"`
	Target        string    `json:"target" validate:"required,identifier"`
	BackPopulates string    `json:"back_populates,omitempty" validate:"omitempty,identifier"`
	Cascade       []Cascade `json:"cascade,omitempty" validate:"dive,cascade"`
	Uselist       *bool     `json:"uselist,omitempty"`
}

// EnumDefinition is a named, ordered set of distinct string values.
type EnumDefinition struct {
	ID       string    `json:"id,omitempty"`
	Name     string    `json:"name" validate:"required,identifier"`
	Values   []string  `json:"values" validate:"required,min=1,unique,dive,required"`
	Position *Position `json:"position,omitempty"`
}

// AssociationTable is a plain junction table. It never takes part in synthesis.
type AssociationTable struct {
	ID        string   `json:"id,omitempty"`
	Name      string   `json:"name" validate:"required,identifier"`
	Tablename string   `json:"tablename" validate:"required,sqlname"`
	Columns   []Column `json:"columns" validate:"dive"`
}

// PrimaryKey returns the model's first primary-key column, or nil.
func (m *Model) PrimaryKey() *Column {
	for i := range m.Columns {
		if m.Columns[i].PrimaryKey {
			return &m.Columns[i]
		}
	}
	return nil
}

// Column returns the column with the given name, or nil.
func (m *Model) Column(name string) *Column {
	for i := range m.Columns {
		if m.Columns[i].Name == name {
			return &m.Columns[i]
		}
	}
	return nil
}

// ColumnByID returns the column with the given id, or nil.
func (m *Model) ColumnByID(id string) *Column {
	for i := range m.Columns {
		if m.Columns[i].ID == id {
			return &m.Columns[i]
		}
	}
	return nil
}

// Relationship returns the relationship with the given name, or nil.
func (m *Model) Relationship(name string) *Relationship {
	for i := range m.Relationships {
		if m.Relationships[i].Name == name {
			return &m.Relationships[i]
		}
	}
	return nil
}

// RelationshipByID returns the relationship with the given id, or nil.
func (m *Model) RelationshipByID(id string) *Relationship {
	for i := range m.Relationships {
		if m.Relationships[i].ID == id {
			return &m.Relationships[i]
		}
	}
	return nil
}

// IsKey reports whether a foreign key may point at the column.
func (c *Column) IsKey() bool {
	return c.PrimaryKey || c.Unique
}

// Kind returns the relationship cardinality derived from Uselist.
func (r *Relationship) Kind() RelationKind {
	return KindOf(r.Uselist)
}

// Model returns the model with the given id, or nil.
func (s *Schema) Model(id string) *Model {
	for i := range s.Models {
		if s.Models[i].ID == id {
			return &s.Models[i]
		}
	}
	return nil
}

// ModelByName returns the model with the given class name, or nil.
func (s *Schema) ModelByName(name string) *Model {
	for i := range s.Models {
		if s.Models[i].Name == name {
			return &s.Models[i]
		}
	}
	return nil
}

// ModelByTablename returns the model mapped onto the given table, or nil.
func (s *Schema) ModelByTablename(tablename string) *Model {
	for i := range s.Models {
		if s.Models[i].Tablename == tablename {
			return &s.Models[i]
		}
	}
	return nil
}

// EnumByName returns the enum with the given name, or nil.
func (s *Schema) EnumByName(name string) *EnumDefinition {
	for i := range s.Enums {
		if s.Enums[i].Name == name {
			return &s.Enums[i]
		}
	}
	return nil
}
