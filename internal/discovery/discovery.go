// Package discovery introspects an existing database and seeds the entity
// graph from it. Foreign keys are replayed through the synthesizer so the
// seeded graph carries the same relationships an editor would have drawn.
package discovery

import (
	"context"

	"github.com/schemacanvas/schemacanvas/internal/config"
)

// Discoverer reads the catalog of a source database.
type Discoverer interface {
	// Connect establishes a read-only connection to the source database.
	Connect(ctx context.Context) error

	// Discover extracts the catalog from the source database.
	Discover(ctx context.Context) (*Catalog, error)

	// Close closes the database connection.
	Close() error
}

// New creates a Discoverer for the given source configuration.
func New(cfg *config.SourceConfig) (Discoverer, error) {
	return NewPostgres(cfg)
}

// Catalog is the raw structure of a source database.
type Catalog struct {
	Database   string  `json:"database"`
	SchemaName string  `json:"schema_name"`
	Tables     []Table `json:"tables"`
	Enums      []Enum  `json:"enums,omitempty"`
}

// Table is one base table.
type Table struct {
	Name        string       `json:"name"`
	Columns     []Column     `json:"columns"`
	PrimaryKey  []string     `json:"primary_key,omitempty"`
	ForeignKeys []ForeignKey `json:"foreign_keys,omitempty"`
}

// Column is one table column as reported by information_schema.
type Column struct {
	Name      string  `json:"name"`
	DataType  string  `json:"data_type"`
	UDTName   string  `json:"udt_name,omitempty"`
	Nullable  bool    `json:"nullable"`
	Default   *string `json:"default,omitempty"`
	MaxLength *int    `json:"max_length,omitempty"`
	Precision *int    `json:"precision,omitempty"`
	Scale     *int    `json:"scale,omitempty"`
	Sequence  bool    `json:"sequence,omitempty"` // serial or identity
	Unique    bool    `json:"unique,omitempty"`   // single-column unique index
	Indexed   bool    `json:"indexed,omitempty"`  // single-column non-unique index
}

// ForeignKey is a foreign key constraint, possibly spanning several columns.
type ForeignKey struct {
	Name              string   `json:"name"`
	Columns           []string `json:"columns"`
	ReferencedTable   string   `json:"referenced_table"`
	ReferencedColumns []string `json:"referenced_columns"`
}

// Enum is a user-defined enum type.
type Enum struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Table returns the table with the given name, or nil.
func (c *Catalog) Table(name string) *Table {
	for i := range c.Tables {
		if c.Tables[i].Name == name {
			return &c.Tables[i]
		}
	}
	return nil
}

// Column returns the column with the given name, or nil.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}
