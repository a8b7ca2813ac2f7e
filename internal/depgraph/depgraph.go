// Package depgraph analyzes the foreign key dependencies between the tables of
// a schema: self references, cycles, junction-like models and a creation order.
package depgraph

import (
	"sort"

	"github.com/schemacanvas/schemacanvas/internal/schema"
)

// Edge is one foreign key column pointing from a child table at a parent table.
type Edge struct {
	ChildTable   string `json:"child_table"`
	ChildColumn  string `json:"child_column"`
	ParentTable  string `json:"parent_table"`
	ParentColumn string `json:"parent_column"`
}

// JunctionInfo describes a model that looks like a many-to-many join table.
type JunctionInfo struct {
	Table       string `json:"table"`
	Model       string `json:"model"`
	LeftTable   string `json:"left_table"`
	LeftColumn  string `json:"left_column"`
	RightTable  string `json:"right_table"`
	RightColumn string `json:"right_column"`
}

type node struct {
	model   string
	columns []schema.Column
	// association tables are never reported as junction candidates
	association bool
}

// Graph holds the foreign key edges between tables.
type Graph struct {
	nodes map[string]node
	names []string
	edges []Edge
	// adjacency: parent -> children
	children map[string][]Edge
	// adjacency: child -> parents
	parents map[string][]Edge
}

// New builds the dependency graph of s. References to tables that do not
// exist and malformed references are ignored.
func New(s *schema.Schema) *Graph {
	g := &Graph{
		nodes:    make(map[string]node),
		children: make(map[string][]Edge),
		parents:  make(map[string][]Edge),
	}
	for _, m := range s.Models {
		g.nodes[m.Tablename] = node{model: m.Name, columns: m.Columns}
	}
	for _, a := range s.AssociationTables {
		g.nodes[a.Tablename] = node{model: a.Name, columns: a.Columns, association: true}
	}
	for name := range g.nodes {
		g.names = append(g.names, name)
	}
	sort.Strings(g.names)

	for _, name := range g.names {
		for _, c := range g.nodes[name].columns {
			if c.ForeignKey == "" {
				continue
			}
			ref, err := schema.ParseForeignKey(c.ForeignKey)
			if err != nil {
				continue
			}
			if _, ok := g.nodes[ref.Table]; !ok {
				continue
			}
			e := Edge{ChildTable: name, ChildColumn: c.Name, ParentTable: ref.Table, ParentColumn: ref.Column}
			g.edges = append(g.edges, e)
			g.children[ref.Table] = append(g.children[ref.Table], e)
			g.parents[name] = append(g.parents[name], e)
		}
	}
	return g
}

// Edges returns all foreign key edges.
func (g *Graph) Edges() []Edge {
	return g.edges
}

// Parents returns the edges leaving table.
func (g *Graph) Parents(table string) []Edge {
	return g.parents[table]
}

// Children returns the edges pointing at table.
func (g *Graph) Children(table string) []Edge {
	return g.children[table]
}

// SelfReferences returns all edges where a table references itself.
func (g *Graph) SelfReferences() []Edge {
	var result []Edge
	for _, e := range g.edges {
		if e.ChildTable == e.ParentTable {
			result = append(result, e)
		}
	}
	return result
}

// DetectCycles finds cycles between distinct tables using DFS.
// Each cycle is returned as the list of table names along it.
func (g *Graph) DetectCycles() [][]string {
	var cycles [][]string
	visited := make(map[string]bool)
	inStack := make(map[string]bool)

	// child -> parent, in FK direction
	adj := make(map[string][]string)
	for _, e := range g.edges {
		if e.ChildTable == e.ParentTable {
			continue
		}
		adj[e.ChildTable] = append(adj[e.ChildTable], e.ParentTable)
	}

	var path []string
	var dfs func(n string)
	dfs = func(n string) {
		visited[n] = true
		inStack[n] = true
		path = append(path, n)

		for _, next := range adj[n] {
			if !visited[next] {
				dfs(next)
			} else if inStack[next] {
				for i, p := range path {
					if p == next {
						cycle := make([]string, len(path)-i)
						copy(cycle, path[i:])
						cycles = append(cycles, cycle)
						break
					}
				}
			}
		}

		path = path[:len(path)-1]
		inStack[n] = false
	}

	for _, name := range g.names {
		if !visited[name] {
			dfs(name)
		}
	}
	return cycles
}

// Junctions reports models that look like many-to-many join tables:
// exactly two foreign keys, no table references them and at most two other columns.
// Declared association tables are skipped.
func (g *Graph) Junctions() []JunctionInfo {
	var result []JunctionInfo

	referenced := make(map[string]bool)
	for _, e := range g.edges {
		if e.ChildTable != e.ParentTable {
			referenced[e.ParentTable] = true
		}
	}

	for _, name := range g.names {
		n := g.nodes[name]
		if n.association || referenced[name] {
			continue
		}
		fks := g.parents[name]
		if len(fks) != 2 {
			continue
		}
		other := 0
		for _, c := range n.columns {
			if c.Name != fks[0].ChildColumn && c.Name != fks[1].ChildColumn {
				other++
			}
		}
		if other > 2 {
			continue
		}
		result = append(result, JunctionInfo{
			Table:       name,
			Model:       n.model,
			LeftTable:   fks[0].ParentTable,
			LeftColumn:  fks[0].ChildColumn,
			RightTable:  fks[1].ParentTable,
			RightColumn: fks[1].ChildColumn,
		})
	}
	return result
}

// CreationOrder returns table names so that every table follows the tables it
// references. Self references are ignored. When tables form a cycle the
// partial order is returned along with a *CycleError.
func (g *Graph) CreationOrder() ([]string, error) {
	inDegree := make(map[string]int, len(g.names))
	for _, name := range g.names {
		inDegree[name] = 0
	}
	seen := make(map[Edge]bool)
	dependents := make(map[string][]string)
	for _, e := range g.edges {
		if e.ChildTable == e.ParentTable {
			continue
		}
		key := Edge{ChildTable: e.ChildTable, ParentTable: e.ParentTable}
		if seen[key] {
			continue
		}
		seen[key] = true
		inDegree[e.ChildTable]++
		dependents[e.ParentTable] = append(dependents[e.ParentTable], e.ChildTable)
	}

	// Kahn's algorithm, with a sorted queue for a stable result
	var queue []string
	for _, name := range g.names {
		if inDegree[name] == 0 {
			queue = append(queue, name)
		}
	}

	var sorted []string
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		sorted = append(sorted, n)

		var ready []string
		for _, child := range dependents[n] {
			inDegree[child]--
			if inDegree[child] == 0 {
				ready = append(ready, child)
			}
		}
		sort.Strings(ready)
		queue = append(queue, ready...)
	}

	if len(sorted) != len(g.names) {
		var stuck []string
		for _, name := range g.names {
			if inDegree[name] > 0 {
				stuck = append(stuck, name)
			}
		}
		return sorted, &CycleError{Tables: stuck}
	}
	return sorted, nil
}

// CycleError indicates tables that could not be ordered because they reference each other.
type CycleError struct {
	Tables []string
}

func (e *CycleError) Error() string {
	return "cycle detected in foreign key graph"
}
