// Package layout projects the entity graph onto renderable nodes and edges.
//
// Everything here is a pure function of its inputs.
package layout

import (
	"math"

	"github.com/schemacanvas/schemacanvas/internal/schema"
)

// NodeType tags what a node renders.
type NodeType string

const (
	NodeModel NodeType = "model"
	NodeEnum  NodeType = "enum"
)

// EdgeType tags what an edge represents.
type EdgeType string

const (
	EdgeRelationship EdgeType = "relationship"
	EdgeEnum         EdgeType = "enum"
)

// Handle is the side of a node box a connector attaches to.
type Handle string

const (
	HandleTop    Handle = "top"
	HandleBottom Handle = "bottom"
	HandleLeft   Handle = "left"
	HandleRight  Handle = "right"
)

// Node is one box on the canvas. Data carries the full model or enum.
type Node struct {
	ID       string          `json:"id"`
	Type     NodeType        `json:"type"`
	Position schema.Position `json:"position"`
	Data     any             `json:"data"`
}

// Edge connects two nodes.
type Edge struct {
	ID           string   `json:"id"`
	Type         EdgeType `json:"type"`
	Source       string   `json:"source"`
	Target       string   `json:"target"`
	SourceHandle Handle   `json:"sourceHandle"`
	TargetHandle Handle   `json:"targetHandle"`
	Label        string   `json:"label,omitempty"`
}

// View is the complete projection of a graph.
type View struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Project builds the view for a snapshot.
func Project(s *schema.Schema) View {
	return View{
		Nodes: ToNodes(s.Models, s.Enums),
		Edges: ToEdges(s.Models, s.Enums),
	}
}

// ToNodes emits one node per model followed by one per enum.
func ToNodes(models []schema.Model, enums []schema.EnumDefinition) []Node {
	nodes := make([]Node, 0, len(models)+len(enums))
	for _, m := range models {
		nodes = append(nodes, Node{ID: m.ID, Type: NodeModel, Position: positionOf(m.Position), Data: m})
	}
	for _, e := range enums {
		nodes = append(nodes, Node{ID: e.ID, Type: NodeEnum, Position: positionOf(e.Position), Data: e})
	}
	return nodes
}

// ToEdges emits one edge per relationship whose target model exists and one
// per column whose enum_class names an existing enum. Anything that does not
// resolve is skipped.
func ToEdges(models []schema.Model, enums []schema.EnumDefinition) []Edge {
	byName := make(map[string]*schema.Model, len(models))
	for i := range models {
		byName[models[i].Name] = &models[i]
	}
	enumByName := make(map[string]*schema.EnumDefinition, len(enums))
	for i := range enums {
		enumByName[enums[i].Name] = &enums[i]
	}

	edges := make([]Edge, 0)
	for _, m := range models {
		src := positionOf(m.Position)
		for _, r := range m.Relationships {
			target, ok := byName[r.Target]
			if !ok {
				continue
			}
			sh, th := SelectHandles(src, positionOf(target.Position))
			edges = append(edges, Edge{
				ID:           "rel-" + m.ID + "-" + r.ID,
				Type:         EdgeRelationship,
				Source:       m.ID,
				Target:       target.ID,
				SourceHandle: sh,
				TargetHandle: th,
				Label:        r.Name,
			})
		}
		for _, c := range m.Columns {
			if c.Type.EnumClass == "" {
				continue
			}
			e, ok := enumByName[c.Type.EnumClass]
			if !ok {
				continue
			}
			sh, th := SelectHandles(src, positionOf(e.Position))
			edges = append(edges, Edge{
				ID:           "enum-" + m.ID + "-" + c.ID,
				Type:         EdgeEnum,
				Source:       m.ID,
				Target:       e.ID,
				SourceHandle: sh,
				TargetHandle: th,
				Label:        c.Name,
			})
		}
	}
	return edges
}

// SelectHandles picks the attachment sides for an edge between two positions.
// The dominant axis of the offset wins; equal offsets route horizontally.
func SelectHandles(src, dst schema.Position) (source, target Handle) {
	dx := dst.X - src.X
	dy := dst.Y - src.Y
	if math.Abs(dx) >= math.Abs(dy) {
		if dx > 0 {
			return HandleRight, HandleLeft
		}
		return HandleLeft, HandleRight
	}
	if dy > 0 {
		return HandleBottom, HandleTop
	}
	return HandleTop, HandleBottom
}

func positionOf(p *schema.Position) schema.Position {
	if p == nil {
		return schema.DefaultPosition
	}
	return *p
}
