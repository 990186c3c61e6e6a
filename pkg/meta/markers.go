package meta

import (
	"reflect"
	"unsafe"
)

// Const marks T as const. It has the same layout as T, so a `*Const[T]` is a
// read-only view of a T and a `Const[T]` parameter is a const by-value T.
type Const[T any] struct {
	v T
}

func ConstOf[T any](v T) Const[T] {
	return Const[T]{v}
}

func (c Const[T]) Get() T {
	return c.v
}

// Volatile marks T as volatile. Volatility is folded away like const.
type Volatile[T any] struct {
	v T
}

func (c Volatile[T]) Get() T {
	return c.v
}

// LRef is an lvalue reference `T&`.
type LRef[T any] struct {
	p *T
}

func LRefOf[T any](p *T) LRef[T] {
	return LRef[T]{p}
}

func (r LRef[T]) Ptr() *T {
	return r.p
}

func (r LRef[T]) Get() T {
	return *r.p
}

func (r LRef[T]) Set(v T) {
	*r.p = v
}

// CLRef is a const lvalue reference `const T&`.
type CLRef[T any] struct {
	p *T
}

func CLRefOf[T any](p *T) CLRef[T] {
	return CLRef[T]{p}
}

func (r CLRef[T]) Get() T {
	return *r.p
}

// RRef is an rvalue reference `T&&`.
type RRef[T any] struct {
	p *T
}

// RRefOf is `std::move(*p)` as a reference.
func RRefOf[T any](p *T) RRef[T] {
	return RRef[T]{p}
}

func (r RRef[T]) Ptr() *T {
	return r.p
}

func (r RRef[T]) Get() T {
	return *r.p
}

// CRRef is a const rvalue reference `const T&&`.
type CRRef[T any] struct {
	p *T
}

func CRRefOf[T any](p *T) CRRef[T] {
	return CRRef[T]{p}
}

func (r CRRef[T]) Get() T {
	return *r.p
}

// Void is the type of functions that return nothing.
type Void struct{}

// Nullptr is the type of the null pointer constant Null.
type Nullptr struct{}

var Null = Nullptr{}

// ConstVoidPtr is `const void*`; unsafe.Pointer is `void*`.
type ConstVoidPtr unsafe.Pointer

type markerKind uint8

const (
	markConst markerKind = iota + 1
	markVolatile
	markLRef
	markCLRef
	markRRef
	markCRRef
)

type marker interface {
	metaMarker() (reflect.Type, markerKind)
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func (Const[T]) metaMarker() (reflect.Type, markerKind)    { return typeOf[T](), markConst }
func (Volatile[T]) metaMarker() (reflect.Type, markerKind) { return typeOf[T](), markVolatile }
func (LRef[T]) metaMarker() (reflect.Type, markerKind)     { return typeOf[T](), markLRef }
func (CLRef[T]) metaMarker() (reflect.Type, markerKind)    { return typeOf[T](), markCLRef }
func (RRef[T]) metaMarker() (reflect.Type, markerKind)     { return typeOf[T](), markRRef }
func (CRRef[T]) metaMarker() (reflect.Type, markerKind)    { return typeOf[T](), markCRRef }

var (
	markerType   = typeOf[marker]()
	voidType     = typeOf[Void]()
	nullptrType  = typeOf[Nullptr]()
	voidPtrType  = typeOf[unsafe.Pointer]()
	cvoidPtrType = typeOf[ConstVoidPtr]()
	errorType    = typeOf[error]()
	dynamicType  = typeOf[Dynamic]()
)

func unwrapMarker(rt reflect.Type) (reflect.Type, markerKind) {
	// types embedding a marker are not markers themselves
	if rt.Kind() != reflect.Struct || rt.PkgPath() != markerType.PkgPath() || !rt.Implements(markerType) {
		return rt, 0
	}
	return reflect.Zero(rt).Interface().(marker).metaMarker()
}

// Strips every const/volatile wrapper, reporting whether const was seen.
func stripCV(rt reflect.Type) (out reflect.Type, readonly bool) {
	for {
		inner, kind := unwrapMarker(rt)
		switch kind {
		case markConst:
			readonly = true
		case markVolatile:
		default:
			return rt, readonly
		}
		rt = inner
	}
}

// word reads the pointer-shaped value stored at p.
func word(p unsafe.Pointer) unsafe.Pointer {
	return *(*unsafe.Pointer)(p)
}

// pointerAs views a pointer word as a value of the pointer-shaped Go type rt.
func pointerAs(rt reflect.Type, w unsafe.Pointer) reflect.Value {
	cell := new(unsafe.Pointer)
	*cell = w
	return reflect.NewAt(rt, unsafe.Pointer(cell)).Elem()
}
