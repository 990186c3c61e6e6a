package meta

import (
	"fmt"
	"reflect"
	"sync/atomic"
	"unsafe"
)

type holding uint8

const (
	holdNone holding = iota
	holdOwned
	holdRef
	holdConstRef
)

// Value holds one value of any type, owned or as a reference to an object
// stored elsewhere. A value holding a pointer owns the pointer, not the
// pointee. The zero Value is empty.
//
// Value is a handle: copying the struct shares the storage. Use Copy for a
// deep copy. Owned storage is destroyed by Reset, Assign, or Emplace on any of
// the handles sharing it, and only once.
type Value struct {
	data *typeData
	ptr  unsafe.Pointer
	hold holding
	own  *ownership
	orig *pointee
}

// Shared by every handle to one owned storage.
type ownership struct {
	destroyed atomic.Bool
}

// Pointer exactly as it was given, for a pointer value retyped to the
// most-derived class.
type pointee struct {
	data *typeData
	addr unsafe.Pointer
}

// NewValue stores a copy of x.
func NewValue[T any](x T) Value {
	return Types().box(typeOf[T](), unsafe.Pointer(&x))
}

// MoveValue move-constructs a value from *p, leaving *p moved-from.
func MoveValue[T any](p *T) Value {
	return must(TryValueOf(RValue(p)))
}

// NewRef makes a reference to *p. For a polymorphic object the value refers
// to the complete object and has its most-derived type.
func NewRef[T any](p *T) Value {
	return Types().reference(typeOf[T](), unsafe.Pointer(p), false)
}

func NewConstRef[T any](p *T) Value {
	return Types().reference(typeOf[T](), unsafe.Pointer(p), true)
}

// ValueOf converts x to a value. An Arg is copied or moved according to its
// category; a Value is copied; nil is the null pointer constant.
func ValueOf(x any) Value {
	return must(TryValueOf(x))
}

func TryValueOf(x any) (Value, error) {
	m := Types()
	switch x := x.(type) {
	case Value:
		return x.TryCopy()
	case Arg:
		return m.fromArg(x)
	case nil:
		return m.nullptr().newOwned(), nil
	}
	rv := reflect.ValueOf(x)
	cell := reflect.New(rv.Type())
	cell.Elem().Set(rv)
	return m.box(rv.Type(), cell.UnsafePointer()), nil
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// Stores the object at src, of Go type rt, without copy hooks.
func (m *TypeMap) box(rt reflect.Type, src unsafe.Pointer) Value {
	data := m.resolve(rt)
	switch data.kind {
	case KindVoid:
		return Value{}
	case KindReference:
		return m.refValue(data.elem, word(src), data.flags&uint32(ReferenceIsReadonly) != 0)
	}
	out := data.newOwned()
	rawCopy(data.rtype, out.ptr, src)
	out.settle()
	return out
}

func (m *TypeMap) reference(rt reflect.Type, p unsafe.Pointer, readonly bool) Value {
	rt, ro := stripCV(rt)
	return m.refValue(m.resolve(rt), p, readonly || ro)
}

func (m *TypeMap) refValue(data *typeData, p unsafe.Pointer, readonly bool) Value {
	if p == nil {
		panic(ErrNullPointer)
	}
	hold := holdRef
	if readonly {
		hold = holdConstRef
	}
	if data.kind == KindClass {
		data, p = data.dynamicOf(p)
	}
	return Value{data: data, ptr: p, hold: hold}
}

func (m *TypeMap) fromArg(arg Arg) (Value, error) {
	if arg.data == nil {
		return Value{}, ErrEmptyValue
	}
	out := arg.data.newOwned()
	var err error
	if arg.cat == CategoryRValue || arg.cat == CategoryPRValue {
		err = arg.data.moveTo(out.ptr, arg.ptr)
	} else {
		err = arg.data.copyTo(out.ptr, arg.ptr)
	}
	if err != nil {
		return Value{}, err
	}
	out.settle()
	return out, nil
}

func (d *typeData) newOwned() Value {
	if d.kind == KindVoid || d.kind == KindReference {
		panic(fmt.Sprintf("cannot store a value of type `%s`", d.repr))
	}
	return Value{data: d, ptr: reflect.New(d.rtype).UnsafePointer(), hold: holdOwned, own: &ownership{}}
}

// Finishes an owned value: classes get their tags, pointers to polymorphic
// objects are retyped to the most-derived class. The pointer as given is kept
// and casts try it first.
func (v *Value) settle() {
	switch v.data.kind {
	case KindClass:
		v.data.installTags(v.ptr)
	case KindPointer:
		elem := v.data.elem
		if elem.kind != KindClass {
			return
		}
		most, complete := elem.dynamicOf(word(v.ptr))
		if most != elem {
			v.orig = &pointee{elem, word(v.ptr)}
			*(*unsafe.Pointer)(v.ptr) = complete
			v.data = v.data.src.pointerTo(most, v.data.flags&uint32(PointerIsReadonly) != 0)
		}
	}
}

func (v Value) IsValid() bool {
	return v.data != nil
}

// Type of the held value. For references, the type of the referent.
func (v Value) Type() AnyType {
	return AnyType{typeHandle{v.data}}
}

func (v Value) IsPointer() bool {
	return v.data != nil && v.data.kind == KindPointer
}

func (v Value) IsReference() bool {
	return v.hold == holdRef || v.hold == holdConstRef
}

// IsConst reports whether the held object can only be read.
func (v Value) IsConst() bool {
	return v.hold == holdConstRef
}

// Data is the address of the held object, or of the referent for references.
func (v Value) Data() unsafe.Pointer {
	return v.ptr
}

// Interface returns a Go copy of the held object.
func (v Value) Interface() any {
	if v.data == nil {
		return nil
	}
	return reflect.NewAt(v.data.rtype, v.ptr).Elem().Interface()
}

func (v Value) arg() Arg {
	switch v.hold {
	case holdNone:
		return Arg{}
	case holdConstRef:
		return Arg{ArgType{v.data, CategoryConstLValue}, v.ptr}
	default:
		return Arg{ArgType{v.data, CategoryLValue}, v.ptr}
	}
}

// Reset empties the value, destroying owned storage. The value is empty before
// the destructor runs, so a panicking destructor cannot run twice.
func (v *Value) Reset() {
	data, ptr, hold, own := v.data, v.ptr, v.hold, v.own
	*v = Value{}
	if hold == holdOwned && own.destroyed.CompareAndSwap(false, true) {
		data.destroy(ptr)
	}
}

// IsDestroyed reports whether the owned storage was destroyed through another
// handle sharing it.
func (v Value) IsDestroyed() bool {
	return v.own != nil && v.own.destroyed.Load()
}

// Move transfers the content to a new value, leaving v empty.
func (v *Value) Move() Value {
	out := *v
	*v = Value{}
	return out
}

func (v *Value) Swap(other *Value) {
	*v, *other = *other, *v
}

// Assign replaces the content with the conversion of x, as ValueOf.
func (v *Value) Assign(x any) error {
	next, err := TryValueOf(x)
	if err != nil {
		return err
	}
	v.Reset()
	*v = next
	return nil
}

// Copy returns a copy of the held object. References are copied as
// references.
func (v Value) Copy() Value {
	return must(v.TryCopy())
}

func (v Value) TryCopy() (Value, error) {
	if v.hold != holdOwned {
		return v, nil
	}
	out := v.data.newOwned()
	if err := v.data.copyTo(out.ptr, v.ptr); err != nil {
		return Value{}, err
	}
	out.settle()
	out.orig = v.orig
	return out, nil
}

// Deref returns a copy of the object a pointer value points to.
func (v Value) Deref() Value {
	return must(v.TryDeref())
}

func (v Value) TryDeref() (Value, error) {
	if v.data == nil {
		return Value{}, ErrEmptyValue
	}
	if v.data.kind != KindPointer || v.data.elem.kind == KindVoid {
		return Value{}, fmt.Errorf("%w: cannot dereference `%s`", ErrBadCast, v.data.repr)
	}
	p := word(v.ptr)
	if p == nil {
		return Value{}, ErrNullPointer
	}
	return v.data.elem.copyOut(p)
}

// Index returns a copy of element i of an array value, or of the array a
// pointer value points into.
func (v Value) Index(i int) Value {
	return must(v.TryIndex(i))
}

func (v Value) TryIndex(i int) (Value, error) {
	if v.data == nil {
		return Value{}, ErrEmptyValue
	}
	if i < 0 {
		return Value{}, fmt.Errorf("%w: %d", ErrOutOfRange, i)
	}

	elem := v.data.elem
	var base unsafe.Pointer
	switch v.data.kind {
	case KindPointer:
		if elem.kind == KindVoid {
			return Value{}, fmt.Errorf("%w: cannot index `%s`", ErrBadCast, v.data.repr)
		}
		if base = word(v.ptr); base == nil {
			return Value{}, ErrNullPointer
		}
	case KindArray:
		if i >= v.Len() {
			return Value{}, fmt.Errorf("%w: %d of %d", ErrOutOfRange, i, v.Len())
		}
		base = v.elements()
	default:
		return Value{}, fmt.Errorf("%w: cannot index `%s`", ErrBadCast, v.data.repr)
	}
	return elem.copyOut(unsafe.Add(base, uintptr(i)*elem.rtype.Size()))
}

// Len is the element count of an array value and zero for anything else.
func (v Value) Len() int {
	if v.data == nil || v.data.kind != KindArray {
		return 0
	}
	if v.data.flags&uint32(ArrayIsBounded) != 0 {
		return v.data.extent
	}
	return reflect.NewAt(v.data.rtype, v.ptr).Elem().Len()
}

func (v Value) elements() unsafe.Pointer {
	if v.data.flags&uint32(ArrayIsBounded) != 0 {
		return v.ptr
	}
	return word(v.ptr)
}

func (d *typeData) copyOut(p unsafe.Pointer) (Value, error) {
	out := d.newOwned()
	if err := d.copyTo(out.ptr, p); err != nil {
		return Value{}, err
	}
	out.settle()
	return out, nil
}

// Addr returns a pointer value to the held object.
func (v Value) Addr() Value {
	if v.data == nil {
		panic(ErrEmptyValue)
	}
	out := v.data.src.pointerTo(v.data, v.hold == holdConstRef).newOwned()
	*(*unsafe.Pointer)(out.ptr) = v.ptr
	return out
}

// Ref returns a reference to the held object, const if the value is.
func (v Value) Ref() Value {
	if v.data == nil {
		return Value{}
	}
	if v.hold == holdOwned {
		return Value{data: v.data, ptr: v.ptr, hold: holdRef, orig: v.orig}
	}
	return v
}

func (v Value) String() string {
	if v.data == nil {
		return "(none)"
	}
	if v.data.kind == KindNullptr {
		return "<nullptr>(nil)"
	}
	if v.data.kind == KindEnum {
		if ev := (EnumType{typeHandle{v.data}}).ValueToEvalue(v); ev.IsValid() {
			return fmt.Sprintf("<%s>(%s)", v.data.repr, ev.Name())
		}
	}
	return fmt.Sprintf("<%s>(%+v)", v.data.repr, v.Interface())
}

// Emplace replaces the content of v with a T constructed from args. The old
// content is destroyed first; if construction fails v is left empty.
func Emplace[T any](v *Value, args ...any) *T {
	return must(TryEmplace[T](v, args...))
}

func TryEmplace[T any](v *Value, args ...any) (*T, error) {
	data := Types().resolve(typeOf[T]())
	v.Reset()
	out, err := data.src.construct(data, args)
	if err != nil {
		return nil, err
	}
	*v = out
	return (*T)(out.ptr), nil
}

// Make constructs a value of the given type from args. Classes with
// registered constructors use them; otherwise zero arguments give the zero
// value and a single argument is converted as for a by-value parameter.
func Make(t AnyType, args ...any) Value {
	return must(TryMake(t, args...))
}

func TryMake(t AnyType, args ...any) (Value, error) {
	data := t.data
	if data == nil {
		return Value{}, ErrInvalidHandle
	}
	return data.src.construct(data, args)
}

func (m *TypeMap) construct(data *typeData, xs []any) (Value, error) {
	if data.kind == KindClass && len(data.ctorList()) > 0 {
		return ClassType{typeHandle{data}}.TryCreate(xs...)
	}

	switch len(xs) {
	case 0:
		out := data.newOwned()
		out.settle()
		return out, nil
	case 1:
		arg := m.argOf(xs[0])
		if reason := m.checkArg(arg.ArgType, data); reason != 0 {
			return Value{}, &BindError{Reason: reason, Param: AnyType{typeHandle{data}}, Arg: arg.ArgType}
		}
		out := data.newOwned()
		if err := m.valueInto(out.ptr, arg, data); err != nil {
			return Value{}, err
		}
		out.settle()
		return out, nil
	}
	return Value{}, fmt.Errorf("%w: `%s` from %d arguments", ErrNotConstructible, data.repr, len(xs))
}
