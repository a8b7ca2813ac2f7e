package depgraph

import (
	"errors"
	"testing"

	"github.com/schemacanvas/schemacanvas/internal/schema"
)

func col(name, fk string) schema.Column {
	return schema.Column{Name: name, Type: schema.ColumnType{Name: schema.TypeInteger}, ForeignKey: fk}
}

func testSchema() *schema.Schema {
	return &schema.Schema{
		Models: []schema.Model{
			{Name: "Customer", Tablename: "customers", Columns: []schema.Column{col("id", ""), col("name", "")}},
			{Name: "Order", Tablename: "orders", Columns: []schema.Column{col("id", ""), col("customer_id", "customers.id")}},
			{Name: "OrderItem", Tablename: "order_items", Columns: []schema.Column{
				col("id", ""), col("order_id", "orders.id"), col("product_id", "products.id"),
			}},
			{Name: "Product", Tablename: "products", Columns: []schema.Column{col("id", ""), col("name", "")}},
		},
	}
}

func TestNew(t *testing.T) {
	g := New(testSchema())
	if len(g.Edges()) != 3 {
		t.Fatalf("expected 3 edges, got %d", len(g.Edges()))
	}
	if len(g.Parents("order_items")) != 2 {
		t.Errorf("order_items parents = %+v", g.Parents("order_items"))
	}
	if len(g.Children("orders")) != 1 {
		t.Errorf("orders children = %+v", g.Children("orders"))
	}
}

func TestDanglingReferencesIgnored(t *testing.T) {
	s := &schema.Schema{Models: []schema.Model{
		{Name: "A", Tablename: "a", Columns: []schema.Column{col("b_id", "b.id"), col("bad", "nonsense")}},
	}}
	if n := len(New(s).Edges()); n != 0 {
		t.Errorf("expected no edges, got %d", n)
	}
}

func TestSelfReferences(t *testing.T) {
	s := &schema.Schema{Models: []schema.Model{
		{Name: "Employee", Tablename: "employees", Columns: []schema.Column{col("id", ""), col("manager_id", "employees.id")}},
	}}
	g := New(s)
	refs := g.SelfReferences()
	if len(refs) != 1 || refs[0].ChildColumn != "manager_id" {
		t.Fatalf("SelfReferences() = %+v", refs)
	}
	if cycles := g.DetectCycles(); len(cycles) != 0 {
		t.Errorf("self references are not cycles, got %v", cycles)
	}
}

func TestDetectCycles(t *testing.T) {
	s := &schema.Schema{Models: []schema.Model{
		{Name: "A", Tablename: "a", Columns: []schema.Column{col("id", ""), col("b_id", "b.id")}},
		{Name: "B", Tablename: "b", Columns: []schema.Column{col("id", ""), col("a_id", "a.id")}},
	}}
	cycles := New(s).DetectCycles()
	if len(cycles) != 1 || len(cycles[0]) != 2 {
		t.Fatalf("DetectCycles() = %v", cycles)
	}
}

func TestJunctions(t *testing.T) {
	s := testSchema()
	s.AssociationTables = []schema.AssociationTable{{
		Name: "ProductTags", Tablename: "product_tags",
		Columns: []schema.Column{col("product_id", "products.id"), col("tag_id", "products.id")},
	}}
	j := New(s).Junctions()
	if len(j) != 1 {
		t.Fatalf("expected 1 junction, got %+v", j)
	}
	if j[0].Table != "order_items" || j[0].Model != "OrderItem" {
		t.Errorf("junction = %+v", j[0])
	}
}

func TestCreationOrder(t *testing.T) {
	order, err := New(testSchema()).CreationOrder()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pos := make(map[string]int)
	for i, name := range order {
		pos[name] = i
	}
	if len(order) != 4 {
		t.Fatalf("order = %v", order)
	}
	if pos["customers"] > pos["orders"] || pos["orders"] > pos["order_items"] || pos["products"] > pos["order_items"] {
		t.Errorf("parents must come before children: %v", order)
	}
}

func TestCreationOrderCycle(t *testing.T) {
	s := &schema.Schema{Models: []schema.Model{
		{Name: "A", Tablename: "a", Columns: []schema.Column{col("b_id", "b.id")}},
		{Name: "B", Tablename: "b", Columns: []schema.Column{col("a_id", "a.id")}},
		{Name: "C", Tablename: "c"},
	}}
	order, err := New(s).CreationOrder()
	var ce *CycleError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CycleError, got %v", err)
	}
	if len(ce.Tables) != 2 {
		t.Errorf("stuck tables = %v", ce.Tables)
	}
	if len(order) != 1 || order[0] != "c" {
		t.Errorf("partial order = %v", order)
	}
}
