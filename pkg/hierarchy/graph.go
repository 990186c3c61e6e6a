// Package hierarchy models class inheritance as explicit data and computes
// base sub-object addresses over it.
//
// A class is a node, a base edge goes from the derived class to the base
// class and carries the byte offset of the base sub-object inside the derived
// class. For a virtual edge the offset points at the storage the derived class
// uses for the shared base when it is itself the most-derived object; inside a
// larger object the shared base is located through the most-derived class.
package hierarchy

import (
	"fmt"
	"sync"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/multi"
	"gonum.org/v1/gonum/graph/topo"
)

type ClassId = int64

// Edge from a derived class to one of its direct bases.
type Edge struct {
	Derived ClassId
	Base    ClassId
	Offset  uintptr
	Virtual bool
}

func (e Edge) String() string {
	if e.Virtual {
		return fmt.Sprintf("%d -> virtual %d (+%d)", e.Derived, e.Base, e.Offset)
	}
	return fmt.Sprintf("%d -> %d (+%d)", e.Derived, e.Base, e.Offset)
}

type Graph struct {
	mu     sync.RWMutex
	graph  *multi.DirectedGraph
	bases  map[ClassId][]Edge
	routes map[pair]routeResult
	voffs  map[pair]voffResult
}

type pair struct {
	from, to ClassId
}

type routeResult struct {
	route Route
	err   error
}

type voffResult struct {
	offset uintptr
	ok     bool
}

func New() *Graph {
	return &Graph{
		graph:  multi.NewDirectedGraph(),
		bases:  make(map[ClassId][]Edge),
		routes: make(map[pair]routeResult),
		voffs:  make(map[pair]voffResult),
	}
}

func (g *Graph) AddClass(id ClassId) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.addNode(id)
}

func (g *Graph) addNode(id ClassId) graph.Node {
	if node := g.graph.Node(id); node != nil {
		return node
	}
	node := multi.Node(id)
	g.graph.AddNode(node)
	return node
}

func (g *Graph) HasClass(id ClassId) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.graph.Node(id) != nil
}

// AddBase registers a direct base edge. Edges that would make a class its own
// base and repeated direct bases are rejected.
func (g *Graph) AddBase(edge Edge) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if edge.Derived == edge.Base {
		return fmt.Errorf("%w: %d", ErrCycle, edge.Derived)
	}

	for _, it := range g.bases[edge.Derived] {
		if it.Base == edge.Base {
			return fmt.Errorf("%w: %d in %d", ErrDuplicateBase, edge.Base, edge.Derived)
		}
	}

	derived := g.addNode(edge.Derived)
	base := g.addNode(edge.Base)
	if topo.PathExistsIn(g.graph, base, derived) {
		return fmt.Errorf("%w: %d and %d", ErrCycle, edge.Derived, edge.Base)
	}

	g.graph.SetLine(g.graph.NewLine(derived, base))
	g.bases[edge.Derived] = append(g.bases[edge.Derived], edge)

	// any cached answer may now have more paths
	g.routes = make(map[pair]routeResult)
	g.voffs = make(map[pair]voffResult)
	return nil
}

// Bases returns the direct base edges of a class in registration order.
func (g *Graph) Bases(id ClassId) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.bases[id])
}

// IsBaseOf reports whether base is a direct or indirect base of derived.
func (g *Graph) IsBaseOf(base, derived ClassId) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if base == derived {
		return false
	}
	from, to := g.graph.Node(derived), g.graph.Node(base)
	if from == nil || to == nil {
		return false
	}
	return topo.PathExistsIn(g.graph, from, to)
}

// IsVirtualBaseOf reports whether some path from derived to base goes through
// a virtual edge.
func (g *Graph) IsVirtualBaseOf(base, derived ClassId) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.isVirtualBaseOf(base, derived)
}

func (g *Graph) isVirtualBaseOf(base, derived ClassId) bool {
	for _, path := range g.paths(derived, base) {
		if path.IsVirtual() {
			return true
		}
	}
	return false
}

// Order returns every class such that derived classes come before their bases.
// Unrelated classes are ordered by id.
func (g *Graph) Order() ([]ClassId, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	sorted, err := topo.SortStabilized(g.graph, func(nodes []graph.Node) {
		slices.SortFunc(nodes, func(a, b graph.Node) bool {
			return a.ID() < b.ID()
		})
	})
	if err != nil {
		return nil, err
	}

	out := make([]ClassId, len(sorted))
	for i, it := range sorted {
		out[i] = it.ID()
	}
	return out, nil
}
