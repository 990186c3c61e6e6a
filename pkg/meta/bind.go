package meta

import (
	"fmt"
	"reflect"
	"unsafe"

	"axlab.dev/meta/pkg/hierarchy"
)

// ClassBind registers reflection data for the class T. Every method returns
// the builder for chaining. Invalid registrations panic.
//
//	meta.BindClass[ivec2]().
//		Constructor(newIvec2).
//		Field("x", "X").
//		Field("y", "Y").
//		Method("length2", ivec2.Length2)
type ClassBind[T any] struct {
	data *typeData
}

func BindClass[T any]() ClassBind[T] {
	return BindClassIn[T](Types())
}

func BindClassIn[T any](m *TypeMap) ClassBind[T] {
	rt, _ := stripCV(typeOf[T]())
	data := m.resolve(rt)
	if data.kind != KindClass {
		panic(fmt.Sprintf("cannot bind `%s` as a class", data.repr))
	}
	return ClassBind[T]{data}
}

func (b ClassBind[T]) Type() ClassType {
	return ClassType{typeHandle{b.data}}
}

// Base registers a direct base class. The base sub-object is either the
// struct field with the given name or the field returned by an accessor
// `func(*T) *B`.
func (b ClassBind[T]) Base(field any) ClassBind[T] {
	b.addBase(field, false)
	return b
}

// VirtualBase registers a virtual base. The field is the storage of the shared
// base when T is the most-derived class.
func (b ClassBind[T]) VirtualBase(field any) ClassBind[T] {
	b.addBase(field, true)
	return b
}

func (b ClassBind[T]) addBase(field any, virtual bool) {
	d := b.data
	m := d.src

	rt, offset, err := baseField(d.rtype, field)
	if err != nil {
		panic(fmt.Sprintf("base of `%s`: %v", d.repr, err))
	}
	rt, _ = stripCV(rt)
	base := m.resolve(rt)
	if base.kind != KindClass {
		panic(fmt.Sprintf("base of `%s`: `%s` is not a class", d.repr, base.repr))
	}

	edge := hierarchy.Edge{Derived: d.classId(), Base: base.classId(), Offset: offset, Virtual: virtual}
	if err := m.hierarchy().AddBase(edge); err != nil {
		panic(fmt.Sprintf("base `%s` of `%s`: %v", base.repr, d.repr, err))
	}

	d.class.rw.Lock()
	d.class.bases = append(d.class.bases, baseInfo{data: base, offset: offset, virtual: virtual})
	d.class.rw.Unlock()
}

func baseField(rt reflect.Type, field any) (reflect.Type, uintptr, error) {
	if name, ok := field.(string); ok {
		return fieldOf(rt, name)
	}

	fn := reflect.ValueOf(field)
	ft := reflect.TypeOf(field)
	if ft == nil || ft.Kind() != reflect.Func || ft.NumIn() != 1 || ft.NumOut() != 1 ||
		ft.In(0) != reflect.PointerTo(rt) || ft.Out(0).Kind() != reflect.Pointer {
		return nil, 0, fmt.Errorf("expected a field name or `func(*%s) *B`, got `%T`", rt, field)
	}

	obj := reflect.New(rt)
	addr := fn.Call([]reflect.Value{obj})[0].UnsafePointer()
	start := obj.UnsafePointer()
	offset := uintptr(addr) - uintptr(start)
	if uintptr(addr) < uintptr(start) || offset+ft.Out(0).Elem().Size() > rt.Size() {
		return nil, 0, fmt.Errorf("accessor `%T` does not return a field of `%s`", field, rt)
	}
	return ft.Out(0).Elem(), offset, nil
}

// Constructor registers a Go func returning T or (T, error).
func (b ClassBind[T]) Constructor(fn any, opts ...Option) ClassBind[T] {
	d := b.data
	ctor := d.src.newConstructor(d, fn, opts)
	d.class.rw.Lock()
	d.class.ctors = append(d.class.ctors, ctor)
	d.class.rw.Unlock()
	return b
}

// Destructor registers the function run when an object of the class is
// destroyed, before the destructors of its bases.
func (b ClassBind[T]) Destructor(fn func(*T)) ClassBind[T] {
	d := b.data
	dtor := &destructorData{
		owner: d,
		typ:   d.src.destructorType(d),
		fn: func(p unsafe.Pointer) {
			fn((*T)(p))
		},
	}
	d.class.rw.Lock()
	d.class.dtor = dtor
	d.class.rw.Unlock()
	return b
}

// Copy replaces the default copy, a Go assignment.
func (b ClassBind[T]) Copy(fn func(dst, src *T)) ClassBind[T] {
	b.data.class.rw.Lock()
	defer b.data.class.rw.Unlock()
	b.data.class.copyFn = func(dst, src unsafe.Pointer) {
		fn((*T)(dst), (*T)(src))
	}
	b.data.class.noCopy = false
	return b
}

// Move replaces the default move, a Go assignment that zeroes the source.
func (b ClassBind[T]) Move(fn func(dst, src *T)) ClassBind[T] {
	b.data.class.rw.Lock()
	defer b.data.class.rw.Unlock()
	b.data.class.moveFn = func(dst, src unsafe.Pointer) {
		fn((*T)(dst), (*T)(src))
	}
	b.data.class.noMove = false
	return b
}

func (b ClassBind[T]) NonCopyable() ClassBind[T] {
	b.data.class.rw.Lock()
	defer b.data.class.rw.Unlock()
	b.data.class.noCopy = true
	b.data.class.copyFn = nil
	return b
}

// NonMovable deletes the move. Moves then copy, unless the class is also
// non-copyable.
func (b ClassBind[T]) NonMovable() ClassBind[T] {
	b.data.class.rw.Lock()
	defer b.data.class.rw.Unlock()
	b.data.class.noMove = true
	b.data.class.moveFn = nil
	return b
}

// Member registers a member through an accessor `func(*T) *V`.
func (b ClassBind[T]) Member(name string, accessor any, opts ...Option) ClassBind[T] {
	b.addMember(b.data.src.newMember(b.data, name, accessor, opts))
	return b
}

// Field registers the struct field with the Go name field as a member.
func (b ClassBind[T]) Field(name, field string, opts ...Option) ClassBind[T] {
	b.addMember(b.data.src.newField(b.data, name, field, opts))
	return b
}

func (b ClassBind[T]) addMember(md *memberData) {
	b.data.class.rw.Lock()
	defer b.data.class.rw.Unlock()
	b.data.class.members = append(b.data.class.members, md)
}

// Method registers a method expression such as `T.Name` or `(*T).Name`, or
// any func whose first parameter is a receiver of T.
func (b ClassBind[T]) Method(name string, fn any, opts ...Option) ClassBind[T] {
	md := b.data.src.newMethod(b.data, name, fn, opts)
	b.data.class.rw.Lock()
	defer b.data.class.rw.Unlock()
	b.data.class.methods = append(b.data.class.methods, md)
	return b
}

// Function registers a static function of the class.
func (b ClassBind[T]) Function(name string, fn any, opts ...Option) ClassBind[T] {
	fd := b.data.src.newFunction(name, fn, opts)
	b.data.class.rw.Lock()
	defer b.data.class.rw.Unlock()
	b.data.class.functions = append(b.data.class.functions, fd)
	return b
}

// Variable registers a static variable of the class.
func (b ClassBind[T]) Variable(name string, ptr any, opts ...Option) ClassBind[T] {
	vd := b.data.src.newVariable(name, ptr, opts)
	b.data.class.rw.Lock()
	defer b.data.class.rw.Unlock()
	b.data.class.variables = append(b.data.class.variables, vd)
	return b
}

func (b ClassBind[T]) Typedef(name string, t AnyType) ClassBind[T] {
	data := t.valid()
	b.data.class.rw.Lock()
	defer b.data.class.rw.Unlock()
	b.data.class.typedefs = append(b.data.class.typedefs, typedefData{name: name, data: data})
	return b
}

// EnumBind registers the evalues of the enum T.
type EnumBind[T any] struct {
	data *typeData
}

func BindEnum[T any]() EnumBind[T] {
	return BindEnumIn[T](Types())
}

func BindEnumIn[T any](m *TypeMap) EnumBind[T] {
	data := m.resolve(typeOf[T]())
	if data.kind != KindEnum {
		panic(fmt.Sprintf("cannot bind `%s` as an enum", data.repr))
	}
	return EnumBind[T]{data}
}

func (b EnumBind[T]) Type() EnumType {
	return EnumType{typeHandle{b.data}}
}

// Evalue registers a named constant. Names and values may repeat; lookups
// return the first match.
func (b EnumBind[T]) Evalue(name string, v T) EnumBind[T] {
	ev := &evalueData{name: name, owner: b.data, value: reflect.ValueOf(v)}
	b.data.enum.rw.Lock()
	defer b.data.enum.rw.Unlock()
	b.data.enum.evalues = append(b.data.enum.evalues, ev)
	return b
}

// ScopeBind registers functions, variables, and typedefs in a named scope.
type ScopeBind struct {
	data *scopeData
}

func BindScope(name string) ScopeBind {
	return Types().BindScope(name)
}

func (m *TypeMap) BindScope(name string) ScopeBind {
	m.scopesRw.Lock()
	defer m.scopesRw.Unlock()
	if m.scopes == nil {
		m.scopes = make(map[string]*scopeData)
	}
	data := m.scopes[name]
	if data == nil {
		data = &scopeData{name: name, src: m}
		m.scopes[name] = data
	}
	return ScopeBind{data}
}

func (b ScopeBind) Scope() Scope {
	return Scope{b.data}
}

func (b ScopeBind) Function(name string, fn any, opts ...Option) ScopeBind {
	fd := b.data.src.newFunction(name, fn, opts)
	b.data.rw.Lock()
	defer b.data.rw.Unlock()
	b.data.functions = append(b.data.functions, fd)
	return b
}

func (b ScopeBind) Variable(name string, ptr any, opts ...Option) ScopeBind {
	vd := b.data.src.newVariable(name, ptr, opts)
	b.data.rw.Lock()
	defer b.data.rw.Unlock()
	b.data.variables = append(b.data.variables, vd)
	return b
}

func (b ScopeBind) Typedef(name string, t AnyType) ScopeBind {
	data := t.valid()
	b.data.rw.Lock()
	defer b.data.rw.Unlock()
	b.data.typedefs = append(b.data.typedefs, typedefData{name: name, data: data})
	return b
}
