package schema

import (
	"fmt"
	"regexp"
	"strings"
)

// TypeName is one of the fixed column storage types.
type TypeName string

const (
	TypeInteger     TypeName = "integer"
	TypeString      TypeName = "string"
	TypeBoolean     TypeName = "boolean"
	TypeFloat       TypeName = "float"
	TypeNumeric     TypeName = "numeric"
	TypeText        TypeName = "text"
	TypeDateTime    TypeName = "date-time"
	TypeDate        TypeName = "date"
	TypeTime        TypeName = "time"
	TypeJSON        TypeName = "json"
	TypeEnum        TypeName = "enum"
	TypeLargeBinary TypeName = "large-binary"
	TypeInterval    TypeName = "interval"
	TypeBigInteger  TypeName = "big-integer"
	TypeUUID        TypeName = "uuid"
	TypeChar        TypeName = "char"
	TypeVarchar     TypeName = "varchar"
)

// AllTypeNames lists every supported column type in display order.
var AllTypeNames = []TypeName{
	TypeInteger,
	TypeString,
	TypeBoolean,
	TypeFloat,
	TypeNumeric,
	TypeText,
	TypeDateTime,
	TypeDate,
	TypeTime,
	TypeJSON,
	TypeEnum,
	TypeLargeBinary,
	TypeInterval,
	TypeBigInteger,
	TypeUUID,
	TypeChar,
	TypeVarchar,
}

// typeAliases maps older underscore and run-together spellings onto the
// canonical hyphenated names.
var typeAliases = map[string]TypeName{
	"datetime":     TypeDateTime,
	"date_time":    TypeDateTime,
	"largebinary":  TypeLargeBinary,
	"large_binary": TypeLargeBinary,
	"biginteger":   TypeBigInteger,
	"big_integer":  TypeBigInteger,
}

// ParseTypeName returns the canonical type for s. Unknown names are returned
// unchanged so validation can report them.
func ParseTypeName(s string) TypeName {
	if t := TypeName(s); t.Valid() {
		return t
	}
	if t, ok := typeAliases[strings.ToLower(s)]; ok {
		return t
	}
	return TypeName(s)
}

// UnmarshalText normalizes aliases while decoding JSON and YAML documents.
func (t *TypeName) UnmarshalText(b []byte) error {
	*t = ParseTypeName(string(b))
	return nil
}

// Valid reports whether t is part of the fixed type set.
func (t TypeName) Valid() bool {
	for _, n := range AllTypeNames {
		if n == t {
			return true
		}
	}
	return false
}

// Cascade is a relationship cascade behavior.
type Cascade string

const (
	CascadeSaveUpdate    Cascade = "save-update"
	CascadeMerge         Cascade = "merge"
	CascadeExpunge       Cascade = "expunge"
	CascadeDelete        Cascade = "delete"
	CascadeDeleteOrphan  Cascade = "delete-orphan"
	CascadeRefreshExpire Cascade = "refresh-expire"
	CascadeAll           Cascade = "all"
)

// AllCascades lists the accepted cascade values.
var AllCascades = []Cascade{
	CascadeSaveUpdate,
	CascadeMerge,
	CascadeExpunge,
	CascadeDelete,
	CascadeDeleteOrphan,
	CascadeRefreshExpire,
	CascadeAll,
}

// Valid reports whether c is an accepted cascade value.
func (c Cascade) Valid() bool {
	for _, v := range AllCascades {
		if v == c {
			return true
		}
	}
	return false
}

// CascadeSet removes duplicates while keeping first-seen order. A nil or empty input yields nil.
func CascadeSet(in []Cascade) []Cascade {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[Cascade]bool, len(in))
	out := make([]Cascade, 0, len(in))
	for _, c := range in {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// RelationKind is the cardinality of a relationship as seen from its owner.
type RelationKind string

const (
	OneToOne  RelationKind = "one-to-one"
	OneToMany RelationKind = "one-to-many"
	ManyToOne RelationKind = "many-to-one"
)

// Valid reports whether k is a known cardinality.
func (k RelationKind) Valid() bool {
	return k == OneToOne || k == OneToMany || k == ManyToOne
}

// Uselist returns the tri-state uselist value for the kind.
func (k RelationKind) Uselist() *bool {
	switch k {
	case OneToMany:
		v := true
		return &v
	case ManyToOne:
		v := false
		return &v
	default:
		return nil
	}
}

// Inverse returns the cardinality seen from the other end.
func (k RelationKind) Inverse() RelationKind {
	switch k {
	case OneToMany:
		return ManyToOne
	case ManyToOne:
		return OneToMany
	default:
		return OneToOne
	}
}

// KindOf maps a tri-state uselist value to its cardinality.
func KindOf(uselist *bool) RelationKind {
	switch {
	case uselist == nil:
		return OneToOne
	case *uselist:
		return OneToMany
	default:
		return ManyToOne
	}
}

// Mirrors reports whether t has the same storage shape as other
// (name, length, precision and scale).
func (t ColumnType) Mirrors(other ColumnType) bool {
	return t.Name == other.Name &&
		intPtrEqual(t.Length, other.Length) &&
		intPtrEqual(t.Precision, other.Precision) &&
		intPtrEqual(t.Scale, other.Scale)
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

var (
	IdentifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	SQLNamePattern    = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	ForeignKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_]+\.[A-Za-z0-9_]+$`)
)

// ForeignKeyRef is a parsed "<tablename>.<column>" reference.
type ForeignKeyRef struct {
	Table  string
	Column string
}

// ParseForeignKey splits a foreign key reference into table and column.
func ParseForeignKey(ref string) (ForeignKeyRef, error) {
	if !ForeignKeyPattern.MatchString(ref) {
		return ForeignKeyRef{}, fmt.Errorf("malformed foreign key %q: expected <tablename>.<column>", ref)
	}
	table, column, _ := strings.Cut(ref, ".")
	return ForeignKeyRef{Table: table, Column: column}, nil
}

func (r ForeignKeyRef) String() string {
	return r.Table + "." + r.Column
}
