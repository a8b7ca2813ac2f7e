// Package typemap maps source database column types onto the fixed set of
// canvas column types. Users may override single entries through a YAML file.
package typemap

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/schemacanvas/schemacanvas/internal/schema"
)

// TypeMap holds the mapping from source types to column types.
type TypeMap struct {
	Mappings  map[string]schema.TypeName `yaml:"mappings"`
	Overrides map[string]schema.TypeName `yaml:"overrides,omitempty"`
	defaults  map[string]schema.TypeName // not serialized; populated by ForDatabase
}

// DefaultPostgres returns the default type mapping for PostgreSQL, keyed by
// information_schema.columns.data_type.
func DefaultPostgres() *TypeMap {
	m := map[string]schema.TypeName{
		"integer":                     schema.TypeInteger,
		"smallint":                    schema.TypeInteger,
		"serial":                      schema.TypeInteger,
		"bigint":                      schema.TypeBigInteger,
		"bigserial":                   schema.TypeBigInteger,
		"numeric":                     schema.TypeNumeric,
		"decimal":                     schema.TypeNumeric,
		"money":                       schema.TypeNumeric,
		"real":                        schema.TypeFloat,
		"double precision":            schema.TypeFloat,
		"character varying":           schema.TypeVarchar,
		"varchar":                     schema.TypeVarchar,
		"character":                   schema.TypeChar,
		"char":                        schema.TypeChar,
		"text":                        schema.TypeText,
		"citext":                      schema.TypeText,
		"boolean":                     schema.TypeBoolean,
		"date":                        schema.TypeDate,
		"time":                        schema.TypeTime,
		"time without time zone":      schema.TypeTime,
		"time with time zone":         schema.TypeTime,
		"timestamp":                   schema.TypeDateTime,
		"timestamp with time zone":    schema.TypeDateTime,
		"timestamp without time zone": schema.TypeDateTime,
		"interval":                    schema.TypeInterval,
		"bytea":                       schema.TypeLargeBinary,
		"uuid":                        schema.TypeUUID,
		"json":                        schema.TypeJSON,
		"jsonb":                       schema.TypeJSON,
		"ARRAY":                       schema.TypeJSON,
		"USER-DEFINED":                schema.TypeString,
	}
	return &TypeMap{Mappings: m}
}

// Defaults returns the PostgreSQL mapping with override tracking enabled.
func Defaults() *TypeMap {
	tm := DefaultPostgres()
	tm.defaults = make(map[string]schema.TypeName, len(tm.Mappings))
	for k, v := range tm.Mappings {
		tm.defaults[k] = v
	}
	tm.Overrides = make(map[string]schema.TypeName)
	return tm
}

// Resolve returns the column type name for the given source type.
func (tm *TypeMap) Resolve(sourceType string) schema.TypeName {
	if t, ok := tm.Mappings[sourceType]; ok {
		return t
	}
	if t, ok := tm.Mappings[strings.ToLower(sourceType)]; ok {
		return t
	}
	return schema.TypeString // fallback
}

// Column builds a full ColumnType for a source column. Length applies to
// char and varchar, precision and scale to numeric; varchar without a
// length degrades to string.
func (tm *TypeMap) Column(sourceType string, length, precision, scale *int) schema.ColumnType {
	ct := schema.ColumnType{Name: tm.Resolve(sourceType)}
	switch ct.Name {
	case schema.TypeVarchar, schema.TypeChar:
		if length == nil || *length <= 0 {
			if ct.Name == schema.TypeVarchar {
				ct.Name = schema.TypeString
			}
			return ct
		}
		ct.Length = intp(*length)
	case schema.TypeNumeric:
		if precision != nil && *precision > 0 {
			ct.Precision = intp(*precision)
			if scale != nil && *scale >= 0 {
				ct.Scale = intp(*scale)
			}
		}
	}
	return ct
}

func intp(v int) *int { return &v }

// Override applies a user override for a source type.
func (tm *TypeMap) Override(sourceType string, t schema.TypeName) error {
	if !t.Valid() {
		return fmt.Errorf("unknown column type %q", t)
	}
	tm.Mappings[sourceType] = t
	if tm.Overrides == nil {
		tm.Overrides = make(map[string]schema.TypeName)
	}
	// Track override only if different from default
	if tm.defaults != nil {
		if def, ok := tm.defaults[sourceType]; ok && def == t {
			delete(tm.Overrides, sourceType)
			return nil
		}
	}
	tm.Overrides[sourceType] = t
	return nil
}

// RestoreDefault restores the default mapping for a source type.
func (tm *TypeMap) RestoreDefault(sourceType string) {
	if tm.defaults != nil {
		if def, ok := tm.defaults[sourceType]; ok {
			tm.Mappings[sourceType] = def
			delete(tm.Overrides, sourceType)
		}
	}
}

// IsOverridden returns true if the source type has been overridden from its default.
func (tm *TypeMap) IsOverridden(sourceType string) bool {
	_, ok := tm.Overrides[sourceType]
	return ok
}

// SortedTypes returns the source type names sorted alphabetically.
func (tm *TypeMap) SortedTypes() []string {
	types := make([]string, 0, len(tm.Mappings))
	for k := range tm.Mappings {
		types = append(types, k)
	}
	sort.Strings(types)
	return types
}

// WriteYAML writes the overrides to a YAML file.
func (tm *TypeMap) WriteYAML(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	data, err := yaml.Marshal(tm)
	if err != nil {
		return fmt.Errorf("marshaling type map: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// LoadOverrides returns the defaults with the overrides from the YAML file at
// path applied. An empty path returns the defaults.
func LoadOverrides(path string) (*TypeMap, error) {
	tm := Defaults()
	if path == "" {
		return tm, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading type map file: %w", err)
	}
	var file TypeMap
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing type map: %w", err)
	}
	// entries under mappings and overrides are both treated as overrides
	for _, m := range []map[string]schema.TypeName{file.Mappings, file.Overrides} {
		for _, k := range sortedKeys(m) {
			if err := tm.Override(k, m[k]); err != nil {
				return nil, fmt.Errorf("type map %s: %w", k, err)
			}
		}
	}
	return tm, nil
}

func sortedKeys(m map[string]schema.TypeName) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
