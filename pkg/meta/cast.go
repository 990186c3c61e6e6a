package meta

import (
	"fmt"
	"unsafe"
)

// As returns the held object as T. T may be the held type, a base class of it,
// a pointer type the held pointer converts to, or a reference marker bound to
// the held object. Panics on mismatch.
func As[T any](v Value) T {
	return must(TryAs[T](v))
}

func TryAs[T any](v Value) (T, error) {
	var out T
	target := v.types().resolve(typeOf[T]())
	err := v.castTo(target, unsafe.Pointer(&out))
	return out, err
}

// Is reports whether As[T] would succeed.
func Is[T any](v Value) bool {
	target := v.types().resolve(typeOf[T]())
	return v.castTo(target, nil) == nil
}

// AsPtr returns a pointer to the held object viewed as T. Mutable access to a
// const value fails; use a Const[T] target for read-only access.
func AsPtr[T any](v Value) *T {
	return must(TryAsPtr[T](v))
}

func TryAsPtr[T any](v Value) (*T, error) {
	rt, readonly := stripCV(typeOf[T]())
	p, err := v.objectAs(v.types().resolve(rt), !readonly)
	return (*T)(p), err
}

// Map that owns the held type. Targets are resolved there so that values from
// a private map, or from before a Reset, can still be read.
func (v Value) types() *TypeMap {
	if v.data != nil {
		return v.data.src
	}
	return Types()
}

func (v Value) castTo(target *typeData, dst unsafe.Pointer) error {
	if v.data == nil {
		return ErrEmptyValue
	}

	switch target.kind {
	case KindPointer:
		w, err := v.pointerAs(target)
		if err == nil && dst != nil {
			*(*unsafe.Pointer)(dst) = w
		}
		return err

	case KindReference:
		writable := target.flags&uint32(ReferenceIsReadonly) == 0
		p, err := v.objectAs(target.elem, writable)
		if err == nil && dst != nil {
			*(*unsafe.Pointer)(dst) = p
		}
		return err
	}

	p, err := v.objectAs(target, false)
	if err == nil && dst != nil {
		rawCopy(target.rtype, dst, p)
	}
	return err
}

// Address of the held object viewed as target.
func (v Value) objectAs(target *typeData, writable bool) (unsafe.Pointer, error) {
	if v.data == nil {
		return nil, ErrEmptyValue
	}
	if writable && v.hold == holdConstRef {
		return nil, fmt.Errorf("%w: `%s` is const", ErrConstViolation, v.data.repr)
	}
	if v.data == target {
		return v.ptr, nil
	}
	if v.data.kind == KindClass && target.kind == KindClass {
		p, err := v.data.src.upcast(v.ptr, v.data, target)
		if err != nil {
			return nil, fmt.Errorf("%w: `%s` as `%s`: %w", ErrBadCast, v.data.repr, target.repr, err)
		}
		return p, nil
	}
	return nil, fmt.Errorf("%w: `%s` as `%s`", ErrBadCast, v.data.repr, target.repr)
}

// Pointer held by v (or decayed from a held array) converted to target.
func (v Value) pointerAs(target *typeData) (unsafe.Pointer, error) {
	src := v.data
	readonly := target.flags&uint32(PointerIsReadonly) != 0

	var from *typeData
	var w unsafe.Pointer
	switch src.kind {
	case KindNullptr:
		return nil, nil
	case KindPointer:
		if !readonly && src.flags&uint32(PointerIsReadonly) != 0 {
			return nil, fmt.Errorf("%w: `%s` as `%s`", ErrConstViolation, src.repr, target.repr)
		}
		from, w = src.elem, word(v.ptr)
		if v.orig != nil {
			from, w = v.orig.data, v.orig.addr
		}
	case KindArray:
		if !readonly && (src.flags&uint32(ArrayIsReadonly) != 0 || v.hold == holdConstRef) {
			return nil, fmt.Errorf("%w: `%s` as `%s`", ErrConstViolation, src.repr, target.repr)
		}
		from, w = src.elem, v.elements()
	default:
		return nil, fmt.Errorf("%w: `%s` as `%s`", ErrBadCast, src.repr, target.repr)
	}

	to := target.elem
	if to.kind == KindVoid || from == to {
		return w, nil
	}
	if from.kind == KindClass && to.kind == KindClass {
		p, err := src.src.upcast(w, from, to)
		if err != nil {
			return nil, fmt.Errorf("%w: `%s` as `%s`: %w", ErrBadCast, src.repr, target.repr, err)
		}
		return p, nil
	}
	return nil, fmt.Errorf("%w: `%s` as `%s`", ErrBadCast, src.repr, target.repr)
}

// Upcast converts a pointer to a pointer to one of its bases, or nil when To
// is not an unambiguous base of the object.
//
// When To is not a static base of From, the most-derived type recorded in the
// object's Dynamic tag is used instead, so a pointer obtained from an earlier
// upcast can reach the other bases of the complete object.
func Upcast[To, From any](p *From) *To {
	out, _ := TryUpcast[To](p)
	return out
}

func TryUpcast[To, From any](p *From) (*To, error) {
	m := Types()
	from, _ := stripCV(typeOf[From]())
	to, _ := stripCV(typeOf[To]())
	out, err := m.upcast(unsafe.Pointer(p), m.resolve(from), m.resolve(to))
	return (*To)(out), err
}

// UpcastPointer is Upcast for dynamically typed pointers.
func UpcastPointer(p unsafe.Pointer, from, to ClassType) (unsafe.Pointer, error) {
	if !from.IsValid() || !to.IsValid() {
		return nil, ErrInvalidHandle
	}
	return from.data.src.upcast(p, from.data, to.data)
}
