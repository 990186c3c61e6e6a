package meta

import (
	"crypto/sha256"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"axlab.dev/meta/internal/util"
	"axlab.dev/meta/pkg/hierarchy"
)

// Unique sequential identifier of a type within a TypeMap.
type TypeId uint64

// Map of every type descriptor, class hierarchy, and scope known to the
// engine. The zero value is ready to use.
//
// Descriptors are created on first resolution and live as long as the map.
// Resolution is safe for concurrent use.
type TypeMap struct {
	typesRw sync.RWMutex
	types   map[typeKey]*typeData
	byType  map[reflect.Type]*typeData
	byId    map[TypeId]*typeData
	nextId  TypeId

	graphOnce sync.Once
	graph     *hierarchy.Graph

	scopesRw sync.RWMutex
	scopes   map[string]*scopeData
}

var defaultMap atomic.Pointer[TypeMap]

func init() {
	defaultMap.Store(&TypeMap{})
}

// Types returns the process-wide type map used by the package functions.
func Types() *TypeMap {
	return defaultMap.Load()
}

// Reset replaces the process-wide type map with an empty one. Handles from the
// previous map stay valid but are unrelated to anything resolved afterwards.
func Reset() {
	defaultMap.Store(&TypeMap{})
}

// ResolveType returns the descriptor for T in the process-wide map.
//
// Const and Volatile wrappers around T are folded away.
func ResolveType[T any]() AnyType {
	return AnyType{typeHandle{Types().resolve(typeOf[T]())}}
}

func ResolveClass[T any]() ClassType {
	return ResolveType[T]().AsClass()
}

func ResolveEnum[T any]() EnumType {
	return ResolveType[T]().AsEnum()
}

func ResolvePointer[T any]() PointerType {
	return ResolveType[T]().AsPointer()
}

func ResolveReflect(rt reflect.Type) AnyType {
	return Types().Resolve(rt)
}

// ResolveTypeOf returns the type of a value. For a pointer to a polymorphic
// object and for a Value, this is the most-derived type.
func ResolveTypeOf(x any) AnyType {
	return Types().ResolveOf(x)
}

func (m *TypeMap) Resolve(rt reflect.Type) AnyType {
	return AnyType{typeHandle{m.resolve(rt)}}
}

func (m *TypeMap) ResolveOf(x any) AnyType {
	switch x := x.(type) {
	case nil:
		return AnyType{typeHandle{m.nullptr()}}
	case Value:
		return x.Type()
	case *Value:
		return x.Type()
	case Arg:
		return AnyType{typeHandle{x.data}}
	}

	data := m.resolve(reflect.TypeOf(x))
	if data.kind == KindPointer && data.elem.kind == KindClass {
		rv := reflect.ValueOf(x)
		if !rv.IsNil() {
			if most, _ := data.elem.dynamicOf(rv.UnsafePointer()); most != data.elem {
				return AnyType{typeHandle{m.pointerTo(most, data.flags&uint32(PointerIsReadonly) != 0)}}
			}
		}
	}
	return AnyType{typeHandle{data}}
}

// Get returns the type registered with the given id.
func (m *TypeMap) Get(id TypeId) AnyType {
	m.typesRw.RLock()
	defer m.typesRw.RUnlock()
	return AnyType{typeHandle{m.byId[id]}}
}

func (m *TypeMap) Len() int {
	m.typesRw.RLock()
	defer m.typesRw.RUnlock()
	return len(m.byId)
}

// All returns every type in id order.
func (m *TypeMap) All() []AnyType {
	m.typesRw.RLock()
	defer m.typesRw.RUnlock()
	out := make([]AnyType, 0, len(m.byId))
	for id := TypeId(1); id <= m.nextId; id++ {
		if data := m.byId[id]; data != nil {
			out = append(out, AnyType{typeHandle{data}})
		}
	}
	return out
}

func (m *TypeMap) hierarchy() *hierarchy.Graph {
	m.graphOnce.Do(func() {
		m.graph = hierarchy.New()
	})
	return m.graph
}

// Structural identity of a type. Types with the same key are the same type.
type typeKey struct {
	kind   TypeKind
	rtype  reflect.Type
	elem   TypeId
	owner  TypeId
	flags  uint32
	extent int
}

type typeData struct {
	src   *TypeMap
	key   typeKey
	id    TypeId
	hash  string
	kind  TypeKind
	repr  string
	rtype reflect.Type
	flags uint32

	elem   *typeData
	owner  *typeData
	extent int

	sig   *signature
	class *classInfo
	enum  *enumInfo
}

func (m *TypeMap) resolve(rt reflect.Type) *typeData {
	util.Assert(rt != nil, util.Msg("cannot resolve a nil type"))

	m.typesRw.RLock()
	data := m.byType[rt]
	m.typesRw.RUnlock()
	if data != nil {
		return data
	}

	data = m.describe(rt)

	m.typesRw.Lock()
	if m.byType == nil {
		m.byType = make(map[reflect.Type]*typeData)
	}
	m.byType[rt] = data
	m.typesRw.Unlock()
	return data
}

// Interns a candidate descriptor. When another goroutine won the race the
// published descriptor is returned and the candidate is dropped.
func (m *TypeMap) intern(key typeKey, build func() *typeData) *typeData {
	m.typesRw.RLock()
	data := m.types[key]
	m.typesRw.RUnlock()
	if data != nil {
		return data
	}

	cand := build()
	cand.src = m
	cand.key = key
	cand.kind = key.kind
	if cand.rtype == nil {
		cand.rtype = key.rtype
	}
	if cand.repr == "" && cand.rtype != nil {
		cand.repr = cand.rtype.String()
	}
	util.Assert(cand.repr != "", util.Msg("type with empty representation -- `%+v`", key))

	hasher := sha256.New()
	hasher.Write([]byte(cand.kind.String()))
	hasher.Write([]byte(cand.repr))
	if rt := key.rtype; rt != nil {
		hasher.Write([]byte(rt.PkgPath()))
	}
	cand.hash = fmt.Sprintf("%x", hasher.Sum(nil))

	m.typesRw.Lock()
	if data := m.types[key]; data != nil {
		m.typesRw.Unlock()
		return data
	}
	if m.types == nil {
		m.types = make(map[typeKey]*typeData)
		m.byId = make(map[TypeId]*typeData)
	}
	m.nextId++
	cand.id = m.nextId
	m.types[key] = cand
	m.byId[cand.id] = cand
	m.typesRw.Unlock()

	if cand.kind == KindClass {
		m.hierarchy().AddClass(hierarchy.ClassId(cand.id))
	}
	return cand
}

func (m *TypeMap) describe(rt reflect.Type) *typeData {
	rt, _ = stripCV(rt)
	if inner, kind := unwrapMarker(rt); kind != 0 {
		referent, readonly := stripCV(inner)
		flags := ReferenceIsLvalue
		if kind == markRRef || kind == markCRRef {
			flags = ReferenceIsRvalue
		}
		if readonly || kind == markCLRef || kind == markCRRef {
			flags |= ReferenceIsReadonly
		}
		return m.referenceTo(m.resolve(referent), flags)
	}

	switch {
	case rt == voidType:
		return m.void()
	case rt == nullptrType:
		return m.nullptr()
	case rt == voidPtrType:
		return m.pointerTo(m.void(), false)
	case rt == cvoidPtrType:
		return m.pointerTo(m.void(), true)
	}

	switch rt.Kind() {
	case reflect.Pointer:
		elem, readonly := stripCV(rt.Elem())
		return m.pointerTo(m.resolve(elem), readonly)
	case reflect.Array:
		elem, readonly := stripCV(rt.Elem())
		return m.arrayOf(m.resolve(elem), rt.Len(), true, readonly)
	case reflect.Slice:
		elem, readonly := stripCV(rt.Elem())
		return m.arrayOf(m.resolve(elem), 0, false, readonly)
	case reflect.Func:
		return m.function(rt, 0)
	case reflect.Bool, reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128, reflect.Uintptr:
		return m.number(rt)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if rt.PkgPath() != "" {
			return m.enum(rt)
		}
		return m.number(rt)
	default:
		return m.class(rt)
	}
}

func (m *TypeMap) void() *typeData {
	return m.intern(typeKey{kind: KindVoid}, func() *typeData {
		return &typeData{repr: "void", rtype: voidType}
	})
}

func (m *TypeMap) nullptr() *typeData {
	return m.intern(typeKey{kind: KindNullptr}, func() *typeData {
		return &typeData{repr: "nullptr", rtype: nullptrType}
	})
}

func (m *TypeMap) number(rt reflect.Type) *typeData {
	return m.intern(typeKey{kind: KindNumber, rtype: rt}, func() *typeData {
		var flags NumberFlags
		switch rt.Kind() {
		case reflect.Bool:
			flags = NumberIsBool | NumberIsIntegral | NumberIsUnsigned
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			flags = NumberIsIntegral | NumberIsSigned
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			flags = NumberIsIntegral | NumberIsUnsigned
		case reflect.Float32, reflect.Float64:
			flags = NumberIsFloatingPoint | NumberIsSigned
		case reflect.Complex64, reflect.Complex128:
			flags = NumberIsComplex
		}
		return &typeData{flags: uint32(flags)}
	})
}

func (m *TypeMap) pointerTo(elem *typeData, readonly bool) *typeData {
	var flags PointerFlags
	if readonly {
		flags |= PointerIsReadonly
	}
	if elem.kind == KindVoid {
		flags |= PointerIsVoid
	}
	key := typeKey{kind: KindPointer, elem: elem.id, flags: uint32(flags)}
	return m.intern(key, func() *typeData {
		out := &typeData{elem: elem, flags: uint32(flags)}
		switch {
		case elem.kind == KindVoid && readonly:
			out.rtype, out.repr = cvoidPtrType, "*const void"
		case elem.kind == KindVoid:
			out.rtype, out.repr = voidPtrType, "*void"
		case readonly:
			out.rtype, out.repr = reflect.PointerTo(elem.rtype), "*const "+elem.repr
		default:
			out.rtype, out.repr = reflect.PointerTo(elem.rtype), "*"+elem.repr
		}
		return out
	})
}

func (m *TypeMap) referenceTo(elem *typeData, flags ReferenceFlags) *typeData {
	key := typeKey{kind: KindReference, elem: elem.id, flags: uint32(flags)}
	return m.intern(key, func() *typeData {
		repr := "&"
		if flags&ReferenceIsRvalue != 0 {
			repr = "&&"
		}
		if flags&ReferenceIsReadonly != 0 {
			repr += "const "
		}
		return &typeData{
			elem:  elem,
			flags: uint32(flags),
			rtype: reflect.PointerTo(elem.rtype),
			repr:  repr + elem.repr,
		}
	})
}

func (m *TypeMap) arrayOf(elem *typeData, extent int, bounded, readonly bool) *typeData {
	util.Assert(elem.kind != KindVoid && elem.kind != KindReference, util.Msg("invalid array element `%s`", elem.repr))

	flags := ArrayIsUnbounded
	if bounded {
		flags = ArrayIsBounded
	}
	if readonly {
		flags |= ArrayIsReadonly
	}
	key := typeKey{kind: KindArray, elem: elem.id, flags: uint32(flags), extent: extent}
	return m.intern(key, func() *typeData {
		out := &typeData{elem: elem, flags: uint32(flags), extent: extent}
		prefix := "[]"
		if bounded {
			prefix = fmt.Sprintf("[%d]", extent)
			out.rtype = reflect.ArrayOf(extent, elem.rtype)
		} else {
			out.rtype = reflect.SliceOf(elem.rtype)
		}
		if readonly {
			prefix += "const "
		}
		out.repr = prefix + elem.repr
		return out
	})
}

func (m *TypeMap) enum(rt reflect.Type) *typeData {
	return m.intern(typeKey{kind: KindEnum, rtype: rt}, func() *typeData {
		return &typeData{
			elem: m.number(underlyingInt(rt)),
			enum: &enumInfo{},
		}
	})
}

func (m *TypeMap) class(rt reflect.Type) *typeData {
	return m.intern(typeKey{kind: KindClass, rtype: rt}, func() *typeData {
		return &typeData{class: newClassInfo(rt)}
	})
}

func (m *TypeMap) function(rt reflect.Type, flags FunctionFlags) *typeData {
	sig := m.signatureOf(rt, 0)
	return m.intern(typeKey{kind: KindFunction, rtype: rt, flags: uint32(flags)}, func() *typeData {
		repr := rt.String()
		if flags&FunctionIsNoexcept != 0 {
			repr += " noexcept"
		}
		if sig.variadic {
			flags |= FunctionIsVariadic
		}
		if sig.returnsError {
			flags |= FunctionReturnsError
		}
		return &typeData{sig: sig, flags: uint32(flags), repr: repr}
	})
}

func underlyingInt(rt reflect.Type) reflect.Type {
	switch rt.Kind() {
	case reflect.Int:
		return typeOf[int]()
	case reflect.Int8:
		return typeOf[int8]()
	case reflect.Int16:
		return typeOf[int16]()
	case reflect.Int32:
		return typeOf[int32]()
	case reflect.Int64:
		return typeOf[int64]()
	case reflect.Uint:
		return typeOf[uint]()
	case reflect.Uint8:
		return typeOf[uint8]()
	case reflect.Uint16:
		return typeOf[uint16]()
	case reflect.Uint32:
		return typeOf[uint32]()
	default:
		return typeOf[uint64]()
	}
}
