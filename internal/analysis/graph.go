package analysis

import "fmt"

// GraphNode is an entity placed on the relationship canvas.
type GraphNode struct {
	ID      string
	Label   string
	Tooltip string
	X, Y    int
}

// GraphEdge connects two placed nodes.
type GraphEdge struct {
	Source string
	Target string
	Label  string
}

// Graph is the renderable entity-relationship view of a report.
type Graph struct {
	Nodes []GraphNode
	Edges []GraphEdge
}

// BuildGraph lays report entities out on a single row and keeps only the
// relationships whose endpoints both resolved to a node. Entities without an
// id are keyed by display name.
func BuildGraph(r *Report) *Graph {
	if r == nil {
		return &Graph{Nodes: []GraphNode{}, Edges: []GraphEdge{}}
	}
	g := &Graph{Nodes: []GraphNode{}, Edges: []GraphEdge{}}
	known := make(map[string]struct{})
	for i, e := range r.Entities {
		id := e.ID
		if id == "" {
			id = EntityLabel(e)
		}
		if _, dup := known[id]; dup {
			continue
		}
		known[id] = struct{}{}
		g.Nodes = append(g.Nodes, GraphNode{
			ID:      id,
			Label:   EntityLabel(e),
			Tooltip: entityTooltip(e),
			X:       100 + 120*i,
			Y:       100,
		})
	}
	for _, rel := range r.Relationships {
		if rel.Source == "" || rel.Target == "" {
			continue
		}
		if _, ok := known[rel.Source]; !ok {
			continue
		}
		if _, ok := known[rel.Target]; !ok {
			continue
		}
		label := rel.Label
		if label == "" {
			label = rel.Type
		}
		g.Edges = append(g.Edges, GraphEdge{Source: rel.Source, Target: rel.Target, Label: label})
	}
	return g
}

func entityTooltip(e Entity) string {
	tip := EntityLabel(e)
	if e.Role != "" {
		tip = fmt.Sprintf("%s - %s", tip, e.Role)
	}
	if e.Context != "" {
		tip = fmt.Sprintf("%s: %s", tip, e.Context)
	}
	return tip
}
