package meta

import (
	"errors"
	"fmt"
	"reflect"
	"unsafe"
)

type BindReason uint8

const (
	ReasonKind BindReason = iota + 1
	ReasonCategory
	ReasonConst
	ReasonNoBase
	ReasonAmbiguousBase
	ReasonNotCopyable
	ReasonArity
	ReasonNull
)

func (r BindReason) String() string {
	switch r {
	case ReasonKind:
		return "type mismatch"
	case ReasonCategory:
		return "value category mismatch"
	case ReasonConst:
		return "const violation"
	case ReasonNoBase:
		return "no base path"
	case ReasonAmbiguousBase:
		return "ambiguous base path"
	case ReasonNotCopyable:
		return "not copyable"
	case ReasonArity:
		return "wrong number of arguments"
	case ReasonNull:
		return "null instance"
	default:
		return "unknown"
	}
}

func (r BindReason) sentinel() error {
	switch r {
	case ReasonConst:
		return ErrConstViolation
	case ReasonNoBase:
		return ErrNotBase
	case ReasonAmbiguousBase:
		return ErrAmbiguousBase
	case ReasonNotCopyable:
		return ErrNotCopyable
	case ReasonArity:
		return ErrArityMismatch
	case ReasonNull:
		return ErrNullPointer
	}
	return nil
}

// Instance is the Index of a BindError about the instance of a method or
// member access.
const Instance = -1

// BindError reports why an argument could not bind to a parameter. For arity
// errors only Want and Got are set.
type BindError struct {
	Index  int
	Reason BindReason
	Param  AnyType
	Arg    ArgType

	Want, Got int
}

func (e *BindError) Error() string {
	switch {
	case e.Reason == ReasonArity:
		return fmt.Sprintf("expected %d arguments, got %d", e.Want, e.Got)
	case e.Index == Instance:
		return fmt.Sprintf("instance: cannot bind `%s` to `%s`: %s", e.Arg, e.Param, e.Reason)
	default:
		return fmt.Sprintf("argument %d: cannot bind `%s` to `%s`: %s", e.Index, e.Arg, e.Param, e.Reason)
	}
}

func (e *BindError) Unwrap() []error {
	if e.Reason == ReasonArity {
		return []error{ErrArityMismatch}
	}
	if err := e.Reason.sentinel(); err != nil {
		return []error{ErrArgumentMismatch, err}
	}
	return []error{ErrArgumentMismatch}
}

func arityError(want, got int) *BindError {
	return &BindError{Reason: ReasonArity, Want: want, Got: got}
}

func routeReason(err error) BindReason {
	if errors.Is(err, ErrNotCopyable) || errors.Is(err, ErrNotMovable) {
		return ReasonNotCopyable
	}
	if errors.Is(err, ErrAmbiguousBase) {
		return ReasonAmbiguousBase
	}
	if errors.Is(err, ErrNotBase) {
		return ReasonNoBase
	}
	return ReasonKind
}

func isInterface(data *typeData) bool {
	return data.kind == KindClass && data.rtype.Kind() == reflect.Interface
}

// Checks whether an argument of the given type and category can bind to a
// parameter of type p.
func (m *TypeMap) checkArg(at ArgType, p *typeData) BindReason {
	a := at.data
	if a == nil {
		return ReasonKind
	}

	switch p.kind {
	case KindReference:
		flags := ReferenceFlags(p.flags)
		readonly := flags&ReferenceIsReadonly != 0
		rvalue := flags&ReferenceIsRvalue != 0
		switch {
		case !rvalue && !readonly && at.cat != CategoryLValue:
			if at.cat.IsConst() {
				return ReasonConst
			}
			return ReasonCategory
		case rvalue && at.cat.IsLValue():
			return ReasonCategory
		case rvalue && !readonly && at.cat.IsConst():
			return ReasonConst
		}
		return m.checkReferent(a, p.elem, readonly || rvalue)

	case KindPointer:
		return m.checkPointer(a, at.cat, p)

	case KindClass:
		if a != p {
			if isInterface(p) && a.kind != KindNullptr && a.rtype.Implements(p.rtype) {
				return 0
			}
			if err := m.canUpcast(a, p); err != nil {
				if a.kind == KindClass {
					return routeReason(err)
				}
				return ReasonKind
			}
		}
		if at.cat == CategoryRValue || at.cat == CategoryPRValue {
			if !p.isMovable() {
				return ReasonNotCopyable
			}
		} else if !p.isCopyable() {
			return ReasonNotCopyable
		}
		return 0

	case KindFunction:
		if a == p || a.kind == KindNullptr {
			return 0
		}
		return ReasonKind

	default:
		if a != p {
			return ReasonKind
		}
		if !p.isCopyable() {
			return ReasonNotCopyable
		}
		return 0
	}
}

func (m *TypeMap) checkReferent(a, r *typeData, temporary bool) BindReason {
	if a == r {
		return 0
	}
	if r.kind == KindClass {
		if a.kind != KindClass {
			return ReasonKind
		}
		if err := m.canUpcast(a, r); err != nil {
			return routeReason(err)
		}
		return 0
	}
	if temporary {
		return m.checkArg(ArgType{a, CategoryPRValue}, r)
	}
	return ReasonKind
}

func (m *TypeMap) checkPointer(a *typeData, cat Category, p *typeData) BindReason {
	target := p.elem
	writable := p.flags&uint32(PointerIsReadonly) == 0

	var elem *typeData
	switch a.kind {
	case KindNullptr:
		return 0
	case KindPointer:
		if writable && a.flags&uint32(PointerIsReadonly) != 0 {
			return ReasonConst
		}
		elem = a.elem
	case KindArray:
		if writable && (a.flags&uint32(ArrayIsReadonly) != 0 || cat.IsConst()) {
			return ReasonConst
		}
		elem = a.elem
	default:
		return ReasonKind
	}

	if target.kind == KindVoid || elem == target {
		return 0
	}
	if elem.kind == KindClass && target.kind == KindClass {
		if err := m.canUpcast(elem, target); err != nil {
			return routeReason(err)
		}
		return 0
	}
	return ReasonKind
}

// Binds an argument to a parameter, producing the Go value to pass. The check
// must have passed.
func (m *TypeMap) bindArg(arg Arg, p param) (reflect.Value, error) {
	switch p.data.kind {
	case KindReference:
		addr, err := m.referentOf(arg, p.data.elem)
		if err != nil {
			return reflect.Value{}, err
		}
		return pointerAs(p.rtype, addr), nil

	case KindPointer:
		w, err := m.pointerOf(arg, p.data)
		if err != nil {
			return reflect.Value{}, err
		}
		return pointerAs(p.rtype, w), nil
	}

	out := reflect.New(p.rtype)
	if err := m.valueInto(out.UnsafePointer(), arg, p.data); err != nil {
		return reflect.Value{}, err
	}
	return out.Elem(), nil
}

// Address to bind a reference to r. Non-class referents of another type are
// materialized as a temporary.
func (m *TypeMap) referentOf(arg Arg, r *typeData) (unsafe.Pointer, error) {
	if arg.data == r {
		return arg.ptr, nil
	}
	if r.kind == KindClass {
		return m.upcast(arg.ptr, arg.data, r)
	}

	tmp := reflect.New(r.rtype).UnsafePointer()
	if err := m.valueInto(tmp, Arg{ArgType{arg.data, CategoryPRValue}, arg.ptr}, r); err != nil {
		return nil, err
	}
	return tmp, nil
}

func (m *TypeMap) pointerOf(arg Arg, p *typeData) (unsafe.Pointer, error) {
	var w unsafe.Pointer
	switch arg.data.kind {
	case KindNullptr:
		return nil, nil
	case KindPointer:
		w = word(arg.ptr)
	case KindArray:
		if arg.data.flags&uint32(ArrayIsBounded) != 0 {
			w = arg.ptr
		} else {
			w = word(arg.ptr)
		}
	default:
		return nil, fmt.Errorf("%w: `%s` to `%s`", ErrArgumentMismatch, arg.data.repr, p.repr)
	}

	from, to := arg.data.elem, p.elem
	if to.kind == KindVoid || from == to {
		return w, nil
	}
	return m.upcast(w, from, to)
}

// Copy- or move-constructs the by-value parameter of type p at dst.
func (m *TypeMap) valueInto(dst unsafe.Pointer, arg Arg, p *typeData) error {
	a := arg.data
	move := arg.cat == CategoryRValue || arg.cat == CategoryPRValue

	switch {
	case a == p:
		if move {
			return p.moveTo(dst, arg.ptr)
		}
		return p.copyTo(dst, arg.ptr)

	case isInterface(p):
		src := reflect.NewAt(a.rtype, arg.ptr).Elem()
		reflect.NewAt(p.rtype, dst).Elem().Set(src)
		return nil

	case p.kind == KindPointer:
		w, err := m.pointerOf(arg, p)
		if err != nil {
			return err
		}
		*(*unsafe.Pointer)(dst) = w
		return nil

	case p.kind == KindFunction && a.kind == KindNullptr:
		return nil

	case p.kind == KindClass && a.kind == KindClass:
		src, err := m.upcast(arg.ptr, a, p)
		if err != nil {
			return err
		}
		if move {
			return p.moveTo(dst, src)
		}
		return p.copyTo(dst, src)
	}

	return fmt.Errorf("%w: `%s` to `%s`", ErrArgumentMismatch, a.repr, p.repr)
}

// Binds every argument of a call.
func (m *TypeMap) bindArgs(sig *signature, args []Arg) ([]reflect.Value, error) {
	if err := m.checkArgs(sig, argTypes(args)); err != nil {
		return nil, err
	}

	in := make([]reflect.Value, len(args))
	for i, it := range args {
		v, err := m.bindArg(it, sig.params[i])
		if err != nil {
			return nil, &BindError{Index: i, Reason: routeReason(err), Param: AnyType{typeHandle{sig.params[i].data}}, Arg: it.ArgType}
		}
		in[i] = v
	}
	return in, nil
}

func (m *TypeMap) checkArgs(sig *signature, args []ArgType) error {
	if sig.err != nil {
		return sig.err
	}
	if len(args) != len(sig.params) {
		return arityError(len(sig.params), len(args))
	}
	for i, it := range args {
		if reason := m.checkArg(it, sig.params[i].data); reason != 0 {
			return &BindError{Index: i, Reason: reason, Param: AnyType{typeHandle{sig.params[i].data}}, Arg: it}
		}
	}
	return nil
}

func argTypes(args []Arg) []ArgType {
	out := make([]ArgType, len(args))
	for i, it := range args {
		out[i] = it.ArgType
	}
	return out
}

// Exact match of argument types against parameter types, looking through
// references.
func exactArgs(sig *signature, args []ArgType) bool {
	if len(args) != len(sig.params) {
		return false
	}
	for i, it := range sig.params {
		want := it.data
		if want.kind == KindReference {
			want = want.elem
		}
		if args[i].data != want {
			return false
		}
	}
	return true
}
