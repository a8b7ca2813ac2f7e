// Package validation checks a project before it is persisted. Problems are
// collected per field into a Report; nothing here touches the graph.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/schemacanvas/schemacanvas/internal/depgraph"
	"github.com/schemacanvas/schemacanvas/internal/schema"
	"github.com/schemacanvas/schemacanvas/internal/spec"
)

// Providers lists the accepted database.db_provider values.
var Providers = []string{"postgresql", "mysql", "sqlite"}

// FieldError is one problem located by a JSON-style path such as
// "schema.models[0].columns[2].foreign_key".
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (e FieldError) String() string {
	return e.Path + ": " + e.Message
}

// Report holds the outcome of a validation pass.
type Report struct {
	Status   string       `json:"status"` // PASS, FAIL
	Errors   []FieldError `json:"errors"`
	Warnings []FieldError `json:"warnings"`
}

// Valid reports whether the pass found no errors. Warnings do not count.
func (r *Report) Valid() bool {
	return len(r.Errors) == 0
}

func (r *Report) errorf(path, format string, args ...any) {
	r.Errors = append(r.Errors, FieldError{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (r *Report) warnf(path, format string, args ...any) {
	r.Warnings = append(r.Warnings, FieldError{Path: path, Message: fmt.Sprintf(format, args...)})
}

// Validator runs structural and referential checks.
type Validator struct {
	v *validator.Validate
}

// New creates a Validator with the schema-specific struct tags registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "identifier", patternFunc(schema.IdentifierPattern.MatchString))
	mustRegister(v, "sqlname", patternFunc(schema.SQLNamePattern.MatchString))
	mustRegister(v, "fkref", patternFunc(schema.ForeignKeyPattern.MatchString))
	mustRegister(v, "coltype", func(fl validator.FieldLevel) bool {
		return schema.ParseTypeName(fl.Field().String()).Valid()
	})
	mustRegister(v, "cascade", func(fl validator.FieldLevel) bool {
		return schema.Cascade(fl.Field().String()).Valid()
	})
	return &Validator{v: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("registering %s validator: %v", tag, err))
	}
}

func patternFunc(match func(string) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return match(fl.Field().String())
	}
}

// ValidateProject validates the schema and the database provider of ps.
func (val *Validator) ValidateProject(ps *spec.ProjectSpec) *Report {
	r := val.ValidateSchema(&ps.Schema)
	if p := ps.Settings().DBProvider(); p != "" && !validProvider(p) {
		r.errorf("database.db_provider", "must be one of %s, got %q", strings.Join(Providers, ", "), p)
	}
	r.Status = status(r)
	return r
}

// ValidateSchema validates field shapes, uniqueness and references of s.
func (val *Validator) ValidateSchema(s *schema.Schema) *Report {
	r := &Report{Errors: []FieldError{}, Warnings: []FieldError{}}
	val.structural(s, r)
	uniqueness(s, r)
	references(s, r)
	dependencies(s, r)
	r.Status = status(r)
	return r
}

func status(r *Report) string {
	if r.Valid() {
		return "PASS"
	}
	return "FAIL"
}

func validProvider(p string) bool {
	for _, v := range Providers {
		if v == p {
			return true
		}
	}
	return false
}

func (val *Validator) structural(s *schema.Schema, r *Report) {
	err := val.v.Struct(s)
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		r.errorf("schema", "%v", err)
		return
	}
	for _, fe := range verrs {
		path := fe.Namespace()
		if _, rest, ok := strings.Cut(path, "."); ok {
			path = "schema." + rest
		}
		r.errorf(path, "%s", message(fe))
	}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "identifier":
		return fmt.Sprintf("must match %s", schema.IdentifierPattern)
	case "sqlname":
		return fmt.Sprintf("must match %s", schema.SQLNamePattern)
	case "fkref":
		return "must be <tablename>.<column>"
	case "coltype":
		return fmt.Sprintf("unknown column type %q", fe.Value())
	case "cascade":
		return fmt.Sprintf("unknown cascade %q", fe.Value())
	case "unique":
		return "must not contain duplicates"
	case "min":
		return fmt.Sprintf("must have at least %s entries", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func uniqueness(s *schema.Schema, r *Report) {
	names := make(map[string]string)
	tables := make(map[string]string)
	for i, m := range s.Models {
		path := fmt.Sprintf("schema.models[%d]", i)
		if prev, ok := names[m.Name]; ok && m.Name != "" {
			r.errorf(path+".name", "duplicate model name %q (also %s)", m.Name, prev)
		} else {
			names[m.Name] = path
		}
		if prev, ok := tables[m.Tablename]; ok && m.Tablename != "" {
			r.errorf(path+".tablename", "duplicate tablename %q (also %s)", m.Tablename, prev)
		} else {
			tables[m.Tablename] = path
		}

		cols := make(map[string]bool)
		for j, c := range m.Columns {
			if cols[c.Name] {
				r.errorf(fmt.Sprintf("%s.columns[%d].name", path, j), "duplicate column %q", c.Name)
			}
			cols[c.Name] = true
		}
		rels := make(map[string]bool)
		for j, rel := range m.Relationships {
			if rels[rel.Name] {
				r.errorf(fmt.Sprintf("%s.relationships[%d].name", path, j), "duplicate relationship %q", rel.Name)
			}
			if cols[rel.Name] {
				r.warnf(fmt.Sprintf("%s.relationships[%d].name", path, j), "relationship %q shadows a column", rel.Name)
			}
			rels[rel.Name] = true
		}
	}

	enums := make(map[string]bool)
	for i, e := range s.Enums {
		if enums[e.Name] {
			r.errorf(fmt.Sprintf("schema.enums[%d].name", i), "duplicate enum name %q", e.Name)
		}
		enums[e.Name] = true
	}

	for i, a := range s.AssociationTables {
		if prev, ok := tables[a.Tablename]; ok && a.Tablename != "" {
			r.errorf(fmt.Sprintf("schema.association_tables[%d].tablename", i), "duplicate tablename %q (also %s)", a.Tablename, prev)
		} else {
			tables[a.Tablename] = fmt.Sprintf("schema.association_tables[%d]", i)
		}
	}
}

func references(s *schema.Schema, r *Report) {
	for i, m := range s.Models {
		path := fmt.Sprintf("schema.models[%d]", i)
		if m.PrimaryKey() == nil {
			r.warnf(path, "model %q has no primary key", m.Name)
		}
		for j, c := range m.Columns {
			columnReferences(s, c, fmt.Sprintf("%s.columns[%d]", path, j), r)
		}
		for j, rel := range m.Relationships {
			relationshipReferences(s, &m, rel, fmt.Sprintf("%s.relationships[%d]", path, j), r)
		}
	}
	for i, a := range s.AssociationTables {
		for j, c := range a.Columns {
			columnReferences(s, c, fmt.Sprintf("schema.association_tables[%d].columns[%d]", i, j), r)
		}
	}
}

func columnReferences(s *schema.Schema, c schema.Column, path string, r *Report) {
	if c.Type.Name == schema.TypeEnum {
		switch {
		case c.Type.EnumClass == "":
			r.errorf(path+".type.enum_class", "is required for enum columns")
		case s.EnumByName(c.Type.EnumClass) == nil:
			r.errorf(path+".type.enum_class", "unknown enum %q", c.Type.EnumClass)
		}
	} else if c.Type.EnumClass != "" {
		r.warnf(path+".type.enum_class", "ignored for %s columns", c.Type.Name)
	}

	if c.ForeignKey == "" {
		return
	}
	ref, err := schema.ParseForeignKey(c.ForeignKey)
	if err != nil {
		// reported by the structural pass
		return
	}
	target := s.ModelByTablename(ref.Table)
	if target == nil {
		r.errorf(path+".foreign_key", "unknown table %q", ref.Table)
		return
	}
	tcol := target.Column(ref.Column)
	switch {
	case tcol == nil:
		r.errorf(path+".foreign_key", "unknown column %q", ref.String())
	case !tcol.IsKey():
		r.errorf(path+".foreign_key", "%q is neither primary key nor unique", ref.String())
	case !c.Type.Mirrors(tcol.Type):
		r.errorf(path+".type", "must match the type of %q", ref.String())
	}
}

func relationshipReferences(s *schema.Schema, owner *schema.Model, rel schema.Relationship, path string, r *Report) {
	target := s.ModelByName(rel.Target)
	if target == nil {
		r.errorf(path+".target", "unknown model %q", rel.Target)
		return
	}
	if rel.BackPopulates == "" {
		return
	}
	back := target.Relationship(rel.BackPopulates)
	switch {
	case back == nil:
		r.errorf(path+".back_populates", "%s has no relationship %q", target.Name, rel.BackPopulates)
	case back.BackPopulates != rel.Name:
		r.errorf(path+".back_populates", "%s.%s does not point back to %q", target.Name, back.Name, rel.Name)
	case back.Target != owner.Name:
		r.errorf(path+".back_populates", "%s.%s targets %q, not %q", target.Name, back.Name, back.Target, owner.Name)
	case back.Kind() != rel.Kind().Inverse():
		r.errorf(path+".uselist", "%s is not the inverse of %s.%s (%s)", rel.Kind(), target.Name, back.Name, back.Kind())
	}
}

func dependencies(s *schema.Schema, r *Report) {
	g := depgraph.New(s)
	for _, cycle := range g.DetectCycles() {
		r.warnf("schema.models", "foreign key cycle: %s", strings.Join(cycle, " -> "))
	}
	for _, j := range g.Junctions() {
		r.warnf("schema.models", "model %q looks like a join table between %s and %s; consider an association table",
			j.Model, j.LeftTable, j.RightTable)
	}
}
