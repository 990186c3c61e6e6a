package meta

import (
	"fmt"
	"reflect"
	"unsafe"
)

// Value category of an argument.
type Category uint8

const (
	CategoryPRValue Category = iota
	CategoryLValue
	CategoryConstLValue
	CategoryRValue
	CategoryConstRValue
)

func (c Category) IsConst() bool {
	return c == CategoryConstLValue || c == CategoryConstRValue
}

func (c Category) IsLValue() bool {
	return c == CategoryLValue || c == CategoryConstLValue
}

func (c Category) IsRValue() bool {
	return !c.IsLValue()
}

func (c Category) String() string {
	switch c {
	case CategoryLValue:
		return "lvalue"
	case CategoryConstLValue:
		return "const lvalue"
	case CategoryRValue:
		return "rvalue"
	case CategoryConstRValue:
		return "const rvalue"
	default:
		return "prvalue"
	}
}

// Type and value category of an argument, without the argument itself.
type ArgType struct {
	data *typeData
	cat  Category
}

func (a ArgType) Type() AnyType {
	return AnyType{typeHandle{a.data}}
}

func (a ArgType) Category() Category {
	return a.cat
}

func (a ArgType) String() string {
	return fmt.Sprintf("%s %s", a.cat, a.Type())
}

func ArgTypeOf(t AnyType, cat Category) ArgType {
	return ArgType{t.valid(), cat}
}

// TypeArg describes an argument by its static type. Reference markers select
// the category and any other type is a prvalue:
//
//	TypeArg[LRef[int]]()   // lvalue int
//	TypeArg[CLRef[int]]()  // const lvalue int
//	TypeArg[int]()         // prvalue int
func TypeArg[T any]() ArgType {
	data := Types().resolve(typeOf[T]())
	if data.kind != KindReference {
		if _, readonly := stripCV(typeOf[T]()); readonly {
			return ArgType{data, CategoryConstRValue}
		}
		return ArgType{data, CategoryPRValue}
	}
	return ArgType{data.elem, referenceCategory(ReferenceFlags(data.flags))}
}

func referenceCategory(flags ReferenceFlags) Category {
	readonly := flags&ReferenceIsReadonly != 0
	switch {
	case flags&ReferenceIsRvalue != 0 && readonly:
		return CategoryConstRValue
	case flags&ReferenceIsRvalue != 0:
		return CategoryRValue
	case readonly:
		return CategoryConstLValue
	default:
		return CategoryLValue
	}
}

// Arg is an argument for a dynamic call: the address of an object, its type,
// and its value category.
type Arg struct {
	ArgType
	ptr unsafe.Pointer
}

func (a Arg) Data() unsafe.Pointer {
	return a.ptr
}

func newArg[T any](p *T, cat Category) Arg {
	rt := typeOf[T]()
	if _, readonly := stripCV(rt); readonly {
		switch cat {
		case CategoryLValue:
			cat = CategoryConstLValue
		case CategoryRValue, CategoryPRValue:
			cat = CategoryConstRValue
		}
	}
	return Types().argAt(rt, unsafe.Pointer(p), cat)
}

func LValue[T any](p *T) Arg {
	return newArg(p, CategoryLValue)
}

func CLValue[T any](p *T) Arg {
	return newArg(p, CategoryConstLValue)
}

func RValue[T any](p *T) Arg {
	return newArg(p, CategoryRValue)
}

func CRValue[T any](p *T) Arg {
	return newArg(p, CategoryConstRValue)
}

// MoveArg is RValue, reading as `std::move(x)` at call sites.
func MoveArg[T any](p *T) Arg {
	return RValue(p)
}

func PRValue[T any](x T) Arg {
	return newArg(&x, CategoryPRValue)
}

// ValueArg passes the content of a value with an explicit category. A const
// reference value is never passed as non-const.
func ValueArg(v Value, cat Category) Arg {
	arg := v.arg()
	if arg.cat.IsConst() && !cat.IsConst() {
		if cat.IsLValue() {
			cat = CategoryConstLValue
		} else {
			cat = CategoryConstRValue
		}
	}
	arg.cat = cat
	return arg
}

// Arg at p of static Go type rt. A reference marker stored at p yields its
// referent instead.
func (m *TypeMap) argAt(rt reflect.Type, p unsafe.Pointer, cat Category) Arg {
	data := m.resolve(rt)
	if data.kind == KindReference {
		return Arg{ArgType{data.elem, referenceCategory(ReferenceFlags(data.flags))}, word(p)}
	}
	return Arg{ArgType{data, cat}, p}
}

// Converts a call argument. Arg and Value pass through; nil is the null
// pointer constant; anything else is a prvalue copy of x.
func (m *TypeMap) argOf(x any) Arg {
	switch x := x.(type) {
	case nil:
		return Arg{ArgType{m.nullptr(), CategoryPRValue}, unsafe.Pointer(new(Nullptr))}
	case Arg:
		return x
	case Value:
		return x.arg()
	case *Value:
		return x.arg()
	}

	rv := reflect.ValueOf(x)
	cell := reflect.New(rv.Type())
	cell.Elem().Set(rv)
	return m.argAt(rv.Type(), cell.UnsafePointer(), CategoryPRValue)
}

func (m *TypeMap) argsOf(xs []any) []Arg {
	out := make([]Arg, len(xs))
	for i, it := range xs {
		out[i] = m.argOf(it)
	}
	return out
}

// Like argOf, but also accepts ArgType and AnyType (a prvalue of the type).
func (m *TypeMap) argTypeOf(x any) ArgType {
	switch x := x.(type) {
	case ArgType:
		return x
	case AnyType:
		return ArgType{x.valid(), CategoryPRValue}
	}
	return m.argOf(x).ArgType
}

func (m *TypeMap) argTypesOf(xs []any) []ArgType {
	out := make([]ArgType, len(xs))
	for i, it := range xs {
		out[i] = m.argTypeOf(it)
	}
	return out
}
