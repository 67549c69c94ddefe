// Package graph holds an in-memory lineage graph and runs bounded
// impact traversals over it.
package graph

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/lineagraph/lineagraph/pkg/core"
)

type halfEdge struct {
	edgeID   uuid.UUID
	neighbor uuid.UUID
}

// Graph is a directed multigraph of data objects and lineage edges.
// It is not safe for concurrent mutation.
type Graph struct {
	objects map[uuid.UUID]core.DataObject
	out     map[uuid.UUID][]halfEdge
	in      map[uuid.UUID][]halfEdge
	edges   int
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		objects: make(map[uuid.UUID]core.DataObject),
		out:     make(map[uuid.UUID][]halfEdge),
		in:      make(map[uuid.UUID][]halfEdge),
	}
}

// FromResult builds a graph from one extraction result. Edges whose
// endpoints are missing from the result are rejected.
func FromResult(result *core.ExtractionResult) (*Graph, error) {
	g := New()
	for _, obj := range result.Objects {
		g.AddObject(obj)
	}
	for _, edge := range result.Edges {
		if err := g.AddEdge(edge); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// AddObject inserts or replaces an object node.
func (g *Graph) AddObject(obj core.DataObject) {
	g.objects[obj.ID] = obj
}

// AddEdge inserts a lineage edge. Both endpoints must already be
// present and must differ.
func (g *Graph) AddEdge(edge core.Lineage) error {
	if edge.SourceObjectID == edge.TargetObjectID {
		return fmt.Errorf("edge %s: self-loop on object %s", edge.ID, edge.SourceObjectID)
	}
	if _, ok := g.objects[edge.SourceObjectID]; !ok {
		return fmt.Errorf("edge %s: unknown source object %s", edge.ID, edge.SourceObjectID)
	}
	if _, ok := g.objects[edge.TargetObjectID]; !ok {
		return fmt.Errorf("edge %s: unknown target object %s", edge.ID, edge.TargetObjectID)
	}
	g.out[edge.SourceObjectID] = append(g.out[edge.SourceObjectID], halfEdge{edge.ID, edge.TargetObjectID})
	g.in[edge.TargetObjectID] = append(g.in[edge.TargetObjectID], halfEdge{edge.ID, edge.SourceObjectID})
	g.edges++
	return nil
}

// ObjectCount returns the number of nodes.
func (g *Graph) ObjectCount() int { return len(g.objects) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return g.edges }

// Object looks up a node by id.
func (g *Graph) Object(id uuid.UUID) (core.DataObject, bool) {
	obj, ok := g.objects[id]
	return obj, ok
}

// pathState is one frontier entry of the traversal: the node a path
// has reached and the edges it used to get there.
type pathState struct {
	node uuid.UUID
	used map[uuid.UUID]struct{}
}

// Traverse enumerates every distinct path from start, up to maxDepth
// edges long, in the given direction. An edge is never reused within
// one path, but an object reached over several distinct paths is
// reported once per path. Results come back in ascending depth order.
func (g *Graph) Traverse(start uuid.UUID, dir core.Direction, maxDepth int) ([]core.ImpactRow, error) {
	if err := core.ValidateDirection(dir); err != nil {
		return nil, err
	}
	if err := core.ValidateDepth(maxDepth); err != nil {
		return nil, err
	}
	if _, ok := g.objects[start]; !ok {
		return nil, fmt.Errorf("object %s not in graph", start)
	}

	adjacency := g.out
	if dir == core.Upstream {
		adjacency = g.in
	}

	var results []core.ImpactRow
	frontier := []pathState{{node: start}}
	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []pathState
		for _, state := range frontier {
			for _, he := range adjacency[state.node] {
				if _, reused := state.used[he.edgeID]; reused {
					continue
				}
				results = append(results, core.ImpactRow{
					Object: g.objects[he.neighbor],
					Depth:  depth,
					EdgeID: he.edgeID,
				})
				used := make(map[uuid.UUID]struct{}, len(state.used)+1)
				for id := range state.used {
					used[id] = struct{}{}
				}
				used[he.edgeID] = struct{}{}
				next = append(next, pathState{node: he.neighbor, used: used})
			}
		}
		frontier = next
	}
	return results, nil
}
