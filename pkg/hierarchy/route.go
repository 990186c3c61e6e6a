package hierarchy

import (
	"fmt"
	"strings"
	"unsafe"
)

// Path is a chain of base edges starting at the source class.
type Path []Edge

func (p Path) IsVirtual() bool {
	return p.lastVirtual() >= 0
}

func (p Path) lastVirtual() int {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i].Virtual {
			return i
		}
	}
	return -1
}

// Sub-object identity of the path end. Every virtual occurrence of a class is
// the same sub-object, so a path through a virtual edge is identified by its
// last virtual base and the non-virtual suffix after it.
func (p Path) subobject() string {
	key := strings.Builder{}
	start := 0
	if k := p.lastVirtual(); k >= 0 {
		fmt.Fprintf(&key, "v%d", p[k].Base)
		start = k + 1
	} else if len(p) > 0 {
		fmt.Fprintf(&key, "n%d", p[0].Derived)
	}
	for _, it := range p[start:] {
		fmt.Fprintf(&key, "/%d", it.Base)
	}
	return key.String()
}

func (p Path) String() string {
	if len(p) == 0 {
		return "()"
	}
	out := strings.Builder{}
	fmt.Fprintf(&out, "%d", p[0].Derived)
	for _, it := range p {
		if it.Virtual {
			fmt.Fprintf(&out, " =v=> %d", it.Base)
		} else {
			fmt.Fprintf(&out, " => %d", it.Base)
		}
	}
	return out.String()
}

// Route is the resolved way from a class to one of its bases.
//
// For a non-virtual route Offset is added to the source address. For a virtual
// route Offset is added to the address of the VBase sub-object, which depends on
// the most-derived object.
type Route struct {
	Offset  uintptr
	Virtual bool
	VBase   ClassId
}

// Paths lists every distinct base-edge path from derived to base, in
// depth-first declaration order.
func (g *Graph) Paths(derived, base ClassId) []Path {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.paths(derived, base)
}

func (g *Graph) paths(derived, base ClassId) (out []Path) {
	var walk func(cur ClassId, prefix Path)
	walk = func(cur ClassId, prefix Path) {
		for _, edge := range g.bases[cur] {
			path := append(prefix[:len(prefix):len(prefix)], edge)
			if edge.Base == base {
				out = append(out, path)
			}
			walk(edge.Base, path)
		}
	}
	walk(derived, nil)
	return out
}

// Route resolves the unique base sub-object of type base within derived.
func (g *Graph) Route(derived, base ClassId) (Route, error) {
	if derived == base {
		return Route{}, nil
	}

	key := pair{derived, base}
	g.mu.RLock()
	res, ok := g.routes[key]
	if !ok {
		res = g.route(derived, base)
	}
	g.mu.RUnlock()

	if !ok {
		g.mu.Lock()
		g.routes[key] = res
		g.mu.Unlock()
	}
	return res.route, res.err
}

func (g *Graph) route(derived, base ClassId) routeResult {
	paths := g.paths(derived, base)
	if len(paths) == 0 {
		return routeResult{err: fmt.Errorf("%w: %d from %d", ErrNotBase, base, derived)}
	}

	first := paths[0]
	identity := first.subobject()
	for _, it := range paths[1:] {
		if it.subobject() != identity {
			return routeResult{err: fmt.Errorf("%w: %d from %d via `%s` and `%s`", ErrAmbiguous, base, derived, first, it)}
		}
	}

	out := Route{}
	start := 0
	if k := first.lastVirtual(); k >= 0 {
		out.Virtual = true
		out.VBase = first[k].Base
		start = k + 1
	}
	for _, it := range first[start:] {
		out.Offset += it.Offset
	}
	return routeResult{route: out}
}

// VirtualOffset returns the offset of the shared vbase sub-object within a
// complete object of class mostDerived.
//
// The storage is the most-derived class' own field when it declares vbase as a
// direct virtual base, otherwise the first storage found walking the bases in
// declaration order.
func (g *Graph) VirtualOffset(mostDerived, vbase ClassId) (uintptr, error) {
	key := pair{mostDerived, vbase}
	g.mu.RLock()
	res, cached := g.voffs[key]
	if !cached {
		res.offset, res.ok = g.virtualOffset(mostDerived, vbase)
	}
	g.mu.RUnlock()

	if !cached {
		g.mu.Lock()
		g.voffs[key] = res
		g.mu.Unlock()
	}

	if !res.ok {
		return 0, fmt.Errorf("%w: %d in %d", ErrNoStorage, vbase, mostDerived)
	}
	return res.offset, nil
}

func (g *Graph) virtualOffset(mostDerived, vbase ClassId) (uintptr, bool) {
	for _, edge := range g.bases[mostDerived] {
		if edge.Virtual && edge.Base == vbase {
			return edge.Offset, true
		}
	}

	for _, edge := range g.bases[mostDerived] {
		if !g.isVirtualBaseOf(vbase, edge.Base) {
			continue
		}

		inner, ok := g.virtualOffset(edge.Base, vbase)
		if !ok {
			continue
		}

		if !edge.Virtual {
			return edge.Offset + inner, true
		}

		outer, ok := g.virtualOffset(mostDerived, edge.Base)
		if ok {
			return outer + inner, true
		}
	}

	return 0, false
}

// VirtualBases lists the virtual bases of a class in depth-first, left to right
// order of first appearance.
func (g *Graph) VirtualBases(id ClassId) []ClassId {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.virtualBases(id)
}

func (g *Graph) virtualBases(id ClassId) (out []ClassId) {
	seen := make(map[ClassId]bool)
	var walk func(cur ClassId)
	walk = func(cur ClassId) {
		for _, edge := range g.bases[cur] {
			if edge.Virtual && !seen[edge.Base] {
				seen[edge.Base] = true
				out = append(out, edge.Base)
			}
			walk(edge.Base)
		}
	}
	walk(id)
	return out
}

// Subobject of a complete object.
type Subobject struct {
	Class   ClassId
	Offset  uintptr
	Virtual bool
}

// Subobjects lists every distinct sub-object of a complete object of class id,
// starting with the object itself. Shared virtual bases appear once.
func (g *Graph) Subobjects(id ClassId) ([]Subobject, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := []Subobject{{Class: id}}
	var walk func(cur ClassId, offset uintptr, virtual bool)
	walk = func(cur ClassId, offset uintptr, virtual bool) {
		for _, edge := range g.bases[cur] {
			if edge.Virtual {
				continue
			}
			sub := Subobject{Class: edge.Base, Offset: offset + edge.Offset, Virtual: virtual}
			out = append(out, sub)
			walk(sub.Class, sub.Offset, virtual)
		}
	}

	walk(id, 0, false)
	for _, vbase := range g.virtualBases(id) {
		offset, ok := g.virtualOffset(id, vbase)
		if !ok {
			return nil, fmt.Errorf("%w: %d in %d", ErrNoStorage, vbase, id)
		}
		out = append(out, Subobject{Class: vbase, Offset: offset, Virtual: true})
		walk(vbase, offset, true)
	}
	return out, nil
}

// Cast adjusts addr, the address of a from sub-object, to the address of its
// to base sub-object. Virtual routes are resolved through the complete object
// of class mostDerived located at complete.
func (g *Graph) Cast(addr unsafe.Pointer, from, to ClassId, mostDerived ClassId, complete unsafe.Pointer) (unsafe.Pointer, error) {
	route, err := g.Route(from, to)
	if err != nil {
		return nil, err
	}
	if !route.Virtual {
		return unsafe.Add(addr, route.Offset), nil
	}

	if complete == nil {
		mostDerived, complete = from, addr
	}
	offset, err := g.VirtualOffset(mostDerived, route.VBase)
	if err != nil {
		return nil, err
	}
	return unsafe.Add(complete, offset+route.Offset), nil
}
