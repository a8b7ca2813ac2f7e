package schema

import (
	"strings"
	"testing"
)

func intp(v int) *int { return &v }

func testSchema() *Schema {
	def := "now()"
	return &Schema{
		Models: []Model{
			{
				ID:        "m1",
				Name:      "User",
				Tablename: "users",
				Columns: []Column{
					{ID: "c1", Name: "id", Type: ColumnType{Name: TypeInteger}, PrimaryKey: true, Autoincrement: true},
					{ID: "c2", Name: "email", Type: ColumnType{Name: TypeVarchar, Length: intp(255)}, Unique: true},
					{ID: "c3", Name: "created_at", Type: ColumnType{Name: TypeDateTime}, Default: &def},
				},
				Relationships: []Relationship{
					{ID: "r1", Name: "posts", Target: "Post", BackPopulates: "user", Uselist: OneToMany.Uselist(), Cascade: []Cascade{CascadeAll}},
				},
				Position: &Position{X: 10, Y: 20},
			},
			{
				ID:        "m2",
				Name:      "Post",
				Tablename: "posts",
				Columns: []Column{
					{ID: "c4", Name: "id", Type: ColumnType{Name: TypeInteger}, PrimaryKey: true},
					{ID: "c5", Name: "user_id", Type: ColumnType{Name: TypeInteger}, Nullable: true, ForeignKey: "users.id"},
				},
			},
		},
		Enums: []EnumDefinition{
			{ID: "e1", Name: "Status", Values: []string{"draft", "published"}},
		},
	}
}

func TestLookups(t *testing.T) {
	s := testSchema()

	if m := s.ModelByName("User"); m == nil || m.ID != "m1" {
		t.Fatalf("ModelByName(User) = %+v", m)
	}
	if m := s.ModelByTablename("posts"); m == nil || m.Name != "Post" {
		t.Fatalf("ModelByTablename(posts) = %+v", m)
	}
	if m := s.Model("missing"); m != nil {
		t.Errorf("expected nil for unknown id, got %+v", m)
	}
	if e := s.EnumByName("Status"); e == nil || len(e.Values) != 2 {
		t.Errorf("EnumByName(Status) = %+v", e)
	}

	user := s.ModelByName("User")
	if pk := user.PrimaryKey(); pk == nil || pk.Name != "id" {
		t.Errorf("PrimaryKey() = %+v", pk)
	}
	if c := user.Column("email"); c == nil || !c.IsKey() {
		t.Errorf("email should be a key column, got %+v", c)
	}
	if c := user.ColumnByID("c3"); c == nil || c.IsKey() {
		t.Errorf("created_at should not be a key column, got %+v", c)
	}
	if r := user.Relationship("posts"); r == nil || r.Kind() != OneToMany {
		t.Errorf("posts relationship kind = %+v", r)
	}
	if r := user.RelationshipByID("r1"); r == nil {
		t.Error("RelationshipByID(r1) returned nil")
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := testSchema()
	c := s.Clone()

	c.Models[0].Columns[1].Type.Length = intp(10)
	*c.Models[0].Columns[2].Default = "changed"
	c.Models[0].Relationships[0].Cascade[0] = CascadeMerge
	*c.Models[0].Relationships[0].Uselist = false
	c.Models[0].Position.X = 999
	c.Enums[0].Values[0] = "other"

	orig := s.Models[0]
	if *orig.Columns[1].Type.Length != 255 {
		t.Error("clone shares column type length")
	}
	if *orig.Columns[2].Default != "now()" {
		t.Error("clone shares column default")
	}
	if orig.Relationships[0].Cascade[0] != CascadeAll {
		t.Error("clone shares cascade slice")
	}
	if !*orig.Relationships[0].Uselist {
		t.Error("clone shares uselist pointer")
	}
	if orig.Position.X != 10 {
		t.Error("clone shares position")
	}
	if s.Enums[0].Values[0] != "draft" {
		t.Error("clone shares enum values")
	}
}

func TestRelationKind(t *testing.T) {
	tests := []struct {
		kind    RelationKind
		inverse RelationKind
	}{
		{OneToMany, ManyToOne},
		{ManyToOne, OneToMany},
		{OneToOne, OneToOne},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := tt.kind.Inverse(); got != tt.inverse {
				t.Errorf("Inverse() = %s, want %s", got, tt.inverse)
			}
			if got := KindOf(tt.kind.Uselist()); got != tt.kind {
				t.Errorf("KindOf(Uselist()) = %s, want %s", got, tt.kind)
			}
		})
	}
	if OneToOne.Uselist() != nil {
		t.Error("one-to-one must have no uselist")
	}
}

func TestMirrors(t *testing.T) {
	a := ColumnType{Name: TypeNumeric, Precision: intp(10), Scale: intp(2)}
	if !a.Mirrors(a.Clone()) {
		t.Error("type should mirror its clone")
	}
	b := ColumnType{Name: TypeNumeric, Precision: intp(10)}
	if a.Mirrors(b) {
		t.Error("types with different scale should not mirror")
	}
	if (ColumnType{Name: TypeInteger}).Mirrors(ColumnType{Name: TypeBigInteger}) {
		t.Error("different type names should not mirror")
	}
}

func TestParseForeignKey(t *testing.T) {
	ref, err := ParseForeignKey("users.id")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.Table != "users" || ref.Column != "id" {
		t.Errorf("got %+v", ref)
	}
	if ref.String() != "users.id" {
		t.Errorf("String() = %q", ref.String())
	}

	for _, bad := range []string{"", "users", "users.", ".id", "a.b.c", "users.i-d"} {
		if _, err := ParseForeignKey(bad); err == nil {
			t.Errorf("ParseForeignKey(%q) expected error", bad)
		}
	}
}

func TestCascadeSet(t *testing.T) {
	got := CascadeSet([]Cascade{CascadeDelete, CascadeAll, CascadeDelete})
	if len(got) != 2 || got[0] != CascadeDelete || got[1] != CascadeAll {
		t.Errorf("CascadeSet = %v", got)
	}
	if CascadeSet(nil) != nil {
		t.Error("CascadeSet(nil) should be nil")
	}
	if !CascadeDeleteOrphan.Valid() || Cascade("sideways").Valid() {
		t.Error("Cascade.Valid mismatch")
	}
	if !TypeLargeBinary.Valid() || TypeName("blob").Valid() {
		t.Error("TypeName.Valid mismatch")
	}
}

func TestSummary(t *testing.T) {
	s := testSchema()
	st := s.Stats()
	if st.Models != 2 || st.Columns != 5 || st.ForeignKeys != 1 || st.Relationships != 1 || st.Enums != 1 {
		t.Errorf("Stats() = %+v", st)
	}
	if !strings.Contains(s.Summary(), "2 models") {
		t.Errorf("Summary() = %q", s.Summary())
	}
}
