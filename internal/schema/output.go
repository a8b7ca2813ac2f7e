package schema

import "fmt"

// Stats counts the entities in a schema.
type Stats struct {
	Models            int `json:"models"`
	Columns           int `json:"columns"`
	ForeignKeys       int `json:"foreign_keys"`
	Relationships     int `json:"relationships"`
	Enums             int `json:"enums"`
	AssociationTables int `json:"association_tables"`
}

// Stats returns entity counts for the schema.
func (s *Schema) Stats() Stats {
	st := Stats{
		Models:            len(s.Models),
		Enums:             len(s.Enums),
		AssociationTables: len(s.AssociationTables),
	}
	for _, m := range s.Models {
		st.Columns += len(m.Columns)
		st.Relationships += len(m.Relationships)
		for _, c := range m.Columns {
			if c.ForeignKey != "" {
				st.ForeignKeys++
			}
		}
	}
	return st
}

// Summary returns a human-readable summary of the schema.
func (s *Schema) Summary() string {
	st := s.Stats()
	return fmt.Sprintf(
		"Found %d models, %d columns, %d foreign keys, %d relationships\n%d enums, %d association tables",
		st.Models, st.Columns, st.ForeignKeys, st.Relationships, st.Enums, st.AssociationTables,
	)
}
