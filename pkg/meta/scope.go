package meta

import (
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type scopeData struct {
	name string
	src  *TypeMap

	rw        sync.RWMutex
	functions []*functionData
	variables []*variableData
	typedefs  []typedefData
}

// Scope is a named namespace of functions, variables, and typedefs.
type Scope struct {
	data *scopeData
}

// ResolveScope returns the scope bound with the name in the process-wide map,
// or an invalid handle.
func ResolveScope(name string) Scope {
	return Types().ResolveScope(name)
}

func (m *TypeMap) ResolveScope(name string) Scope {
	m.scopesRw.RLock()
	defer m.scopesRw.RUnlock()
	return Scope{m.scopes[name]}
}

// Scopes returns the names of every bound scope, sorted.
func (m *TypeMap) Scopes() []string {
	m.scopesRw.RLock()
	out := maps.Keys(m.scopes)
	m.scopesRw.RUnlock()
	slices.Sort(out)
	return out
}

func (s Scope) IsValid() bool {
	return s.data != nil
}

func (s Scope) valid() *scopeData {
	if s.data == nil {
		panic(ErrInvalidHandle)
	}
	return s.data
}

func (s Scope) Name() string {
	return s.valid().name
}

func (s Scope) functionList() []*functionData {
	data := s.valid()
	data.rw.RLock()
	defer data.rw.RUnlock()
	return slices.Clone(data.functions)
}

func (s Scope) Functions() []Function {
	return wrapFunctions(s.functionList())
}

func (s Scope) Variables() []Variable {
	data := s.valid()
	data.rw.RLock()
	defer data.rw.RUnlock()
	out := make([]Variable, len(data.variables))
	for i, it := range data.variables {
		out[i] = Variable{it}
	}
	return out
}

func (s Scope) Typedefs() []Typedef {
	data := s.valid()
	data.rw.RLock()
	defer data.rw.RUnlock()
	out := make([]Typedef, len(data.typedefs))
	for i, it := range data.typedefs {
		out[i] = Typedef{Name: it.name, Type: AnyType{typeHandle{it.data}}}
	}
	return out
}

// GetFunction returns the first function registered with the name.
func (s Scope) GetFunction(name string) Function {
	if s.data == nil {
		return Function{}
	}
	return findFunction(s.functionList(), name, nil, false)
}

// GetFunctionWith returns the function with the name and exactly the given
// argument types.
func (s Scope) GetFunctionWith(name string, types ...AnyType) Function {
	if s.data == nil {
		return Function{}
	}
	return findFunction(s.functionList(), name, types, true)
}

func (s Scope) GetVariable(name string) Variable {
	if s.data == nil {
		return Variable{}
	}
	s.data.rw.RLock()
	defer s.data.rw.RUnlock()
	return findVariable(s.data.variables, name)
}

func (s Scope) GetTypedef(name string) AnyType {
	if s.data == nil {
		return AnyType{}
	}
	s.data.rw.RLock()
	defer s.data.rw.RUnlock()
	for _, it := range s.data.typedefs {
		if it.name == name {
			return AnyType{typeHandle{it.data}}
		}
	}
	return AnyType{}
}

// Invoke calls the overload of name that accepts args.
func (s Scope) Invoke(name string, args ...any) Value {
	return must(s.TryInvoke(name, args...))
}

func (s Scope) TryInvoke(name string, args ...any) (Value, error) {
	if s.data == nil {
		return Value{}, ErrInvalidHandle
	}
	return invokeByName(s.data.src, s.functionList(), name, args)
}
