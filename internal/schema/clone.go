package schema

// Clone returns a deep copy of the schema.
func (s *Schema) Clone() *Schema {
	out := &Schema{}
	if s.Models != nil {
		out.Models = make([]Model, len(s.Models))
		for i := range s.Models {
			out.Models[i] = s.Models[i].Clone()
		}
	}
	if s.Enums != nil {
		out.Enums = make([]EnumDefinition, len(s.Enums))
		for i := range s.Enums {
			out.Enums[i] = s.Enums[i].Clone()
		}
	}
	if s.AssociationTables != nil {
		out.AssociationTables = make([]AssociationTable, len(s.AssociationTables))
		for i := range s.AssociationTables {
			out.AssociationTables[i] = s.AssociationTables[i].Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the model.
func (m Model) Clone() Model {
	out := m
	out.Columns = cloneColumns(m.Columns)
	if m.Relationships != nil {
		out.Relationships = make([]Relationship, len(m.Relationships))
		for i := range m.Relationships {
			out.Relationships[i] = m.Relationships[i].Clone()
		}
	}
	out.Position = m.Position.Clone()
	return out
}

// Clone returns a deep copy of the column.
func (c Column) Clone() Column {
	out := c
	out.Type = c.Type.Clone()
	if c.Default != nil {
		d := *c.Default
		out.Default = &d
	}
	return out
}

// Clone returns a deep copy of the column type.
func (t ColumnType) Clone() ColumnType {
	out := t
	out.Length = cloneInt(t.Length)
	out.Precision = cloneInt(t.Precision)
	out.Scale = cloneInt(t.Scale)
	return out
}

// Clone returns a deep copy of the relationship.
func (r Relationship) Clone() Relationship {
	out := r
	if r.Cascade != nil {
		out.Cascade = append([]Cascade(nil), r.Cascade...)
	}
	if r.Uselist != nil {
		u := *r.Uselist
		out.Uselist = &u
	}
	return out
}

// Clone returns a deep copy of the enum.
func (e EnumDefinition) Clone() EnumDefinition {
	out := e
	if e.Values != nil {
		out.Values = append([]string(nil), e.Values...)
	}
	out.Position = e.Position.Clone()
	return out
}

// Clone returns a deep copy of the association table.
func (a AssociationTable) Clone() AssociationTable {
	out := a
	out.Columns = cloneColumns(a.Columns)
	return out
}

// Clone returns a copy of the position, or nil.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

func cloneColumns(in []Column) []Column {
	if in == nil {
		return nil
	}
	out := make([]Column, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
