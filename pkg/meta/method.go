package meta

import (
	"fmt"
	"reflect"
	"unsafe"
)

type receiverKind uint8

const (
	recvPointer receiverKind = iota
	recvConstPointer
	recvValue
	recvLRef
	recvCLRef
	recvRRef
	recvCRRef
)

// Classifies the receiver parameter of a method of owner. Reports false when
// rt is not a receiver of owner.
func receiverOf(owner *typeData, rt reflect.Type) (receiverKind, bool) {
	base, readonly := stripCV(rt)
	if inner, kind := unwrapMarker(base); kind != 0 {
		referent, ro := stripCV(inner)
		if referent != owner.rtype {
			return 0, false
		}
		ro = ro || readonly
		switch kind {
		case markLRef:
			if ro {
				return recvCLRef, true
			}
			return recvLRef, true
		case markCLRef:
			return recvCLRef, true
		case markRRef:
			if ro {
				return recvCRRef, true
			}
			return recvRRef, true
		case markCRRef:
			return recvCRRef, true
		}
	}

	if base == owner.rtype {
		return recvValue, true
	}
	if base.Kind() == reflect.Pointer {
		elem, ro := stripCV(base.Elem())
		if elem == owner.rtype {
			if ro {
				return recvConstPointer, true
			}
			return recvPointer, true
		}
	}
	return 0, false
}

func (k receiverKind) flags() MethodFlags {
	switch k {
	case recvConstPointer, recvValue:
		return MethodIsConst
	case recvLRef:
		return MethodIsLvalueQualified
	case recvCLRef:
		return MethodIsConst | MethodIsLvalueQualified
	case recvRRef:
		return MethodIsRvalueQualified
	case recvCRRef:
		return MethodIsConst | MethodIsRvalueQualified
	}
	return 0
}

// Normalizes an instance argument: pointers are dereferenced to lvalues of
// their pointee.
func instanceOf(arg ArgType) (ArgType, BindReason) {
	switch {
	case arg.data == nil:
		return arg, ReasonKind
	case arg.data.kind == KindNullptr:
		return arg, ReasonNull
	case arg.data.kind == KindPointer:
		if arg.data.elem.kind != KindClass {
			return arg, ReasonKind
		}
		if arg.data.flags&uint32(PointerIsReadonly) != 0 {
			return ArgType{arg.data.elem, CategoryConstLValue}, 0
		}
		return ArgType{arg.data.elem, CategoryLValue}, 0
	case arg.data.kind != KindClass:
		return arg, ReasonKind
	}
	return arg, 0
}

func (m *TypeMap) checkInstance(owner *typeData, kind receiverKind, arg ArgType) *BindError {
	inst, reason := instanceOf(arg)
	if reason == 0 {
		reason = checkQualifiers(kind, inst.cat)
	}
	if reason == 0 && inst.data != owner {
		if err := m.canUpcast(inst.data, owner); err != nil {
			reason = routeReason(err)
		}
	}
	if reason != 0 {
		return &BindError{Index: Instance, Reason: reason, Param: AnyType{typeHandle{owner}}, Arg: arg}
	}
	return nil
}

func checkQualifiers(kind receiverKind, cat Category) BindReason {
	switch kind {
	case recvPointer:
		if cat.IsConst() {
			return ReasonConst
		}
	case recvLRef:
		if cat.IsConst() {
			return ReasonConst
		}
		if !cat.IsLValue() {
			return ReasonCategory
		}
	case recvRRef:
		if cat.IsLValue() {
			return ReasonCategory
		}
		if cat.IsConst() {
			return ReasonConst
		}
	case recvCRRef:
		if cat.IsLValue() {
			return ReasonCategory
		}
	}
	return 0
}

// Address of the owner sub-object of an instance argument that passed
// checkInstance.
func (m *TypeMap) instanceAddr(owner *typeData, arg Arg) (unsafe.Pointer, error) {
	data, p := arg.data, arg.ptr
	if data.kind == KindPointer {
		data, p = data.elem, word(p)
		if p == nil {
			return nil, ErrNullPointer
		}
	}
	return m.upcast(p, data, owner)
}

func bindReceiver(kind receiverKind, rt reflect.Type, p unsafe.Pointer) reflect.Value {
	if kind == recvValue {
		// receivers are copied like Go does, without copy hooks
		out := reflect.New(rt)
		rawCopy(rt, out.UnsafePointer(), p)
		return out.Elem()
	}
	return pointerAs(rt, p)
}

type methodData struct {
	name   string
	owner  *typeData
	typ    *typeData
	fn     reflect.Value
	recv   receiverKind
	recvRt reflect.Type
	opts   options
}

func (m *TypeMap) newMethod(owner *typeData, name string, fn any, opts []Option) *methodData {
	rv := reflect.ValueOf(fn)
	if !rv.IsValid() || rv.Kind() != reflect.Func || rv.IsNil() || rv.Type().NumIn() == 0 {
		panic(fmt.Sprintf("method `%s.%s`: expected a func with a receiver, got `%T`", owner.repr, name, fn))
	}

	rt := rv.Type()
	kind, ok := receiverOf(owner, rt.In(0))
	if !ok {
		panic(fmt.Sprintf("method `%s.%s`: invalid receiver `%s`", owner.repr, name, rt.In(0)))
	}

	o := newOptions(opts)
	sig := m.signatureOf(rt, 1)
	if sig.err != nil {
		panic(fmt.Sprintf("method `%s.%s`: %v", owner.repr, name, sig.err))
	}

	flags := kind.flags()
	if o.noexcept {
		flags |= MethodIsNoexcept
	}
	if sig.returnsError {
		flags |= MethodReturnsError
	}
	return &methodData{
		name:   name,
		owner:  owner,
		typ:    m.methodType(owner, rt, sig, flags),
		fn:     rv,
		recv:   kind,
		recvRt: rt.In(0),
		opts:   o,
	}
}

func (md *methodData) sig() *signature {
	return md.typ.sig
}

func (md *methodData) checkCall(inst ArgType, args []ArgType) error {
	m := md.typ.src
	if err := m.checkInstance(md.owner, md.recv, inst); err != nil {
		return err
	}
	return m.checkArgs(md.sig(), args)
}

func (md *methodData) invoke(inst Arg, args []Arg) (Value, error) {
	m := md.typ.src
	if err := md.checkCall(inst.ArgType, argTypes(args)); err != nil {
		return Value{}, fmt.Errorf("method `%s.%s`: %w", md.owner.repr, md.name, err)
	}

	p, err := m.instanceAddr(md.owner, inst)
	if err != nil {
		return Value{}, fmt.Errorf("method `%s.%s`: %w", md.owner.repr, md.name, err)
	}
	in, err := m.bindArgs(md.sig(), args)
	if err != nil {
		return Value{}, fmt.Errorf("method `%s.%s`: %w", md.owner.repr, md.name, err)
	}

	in = append([]reflect.Value{bindReceiver(md.recv, md.recvRt, p)}, in...)
	return m.call(md.fn, md.sig(), in, md.opts.policy)
}

// Method of a registered class.
type Method struct {
	data *methodData
}

func (mt Method) IsValid() bool {
	return mt.data != nil
}

func (mt Method) valid() *methodData {
	if mt.data == nil {
		panic(ErrInvalidHandle)
	}
	return mt.data
}

func (mt Method) Name() string {
	return mt.valid().name
}

func (mt Method) Type() MethodType {
	return MethodType{typeHandle{mt.valid().typ}}
}

func (mt Method) Arguments() []Argument {
	data := mt.valid()
	return data.opts.arguments(data.sig())
}

// Invoke calls the method on instance, which is a pointer to the object, an
// Arg, or a Value holding the object or a pointer to it.
func (mt Method) Invoke(instance any, args ...any) Value {
	return must(mt.TryInvoke(instance, args...))
}

func (mt Method) TryInvoke(instance any, args ...any) (Value, error) {
	if mt.data == nil {
		return Value{}, ErrInvalidHandle
	}
	m := mt.data.typ.src
	return mt.data.invoke(m.argOf(instance), m.argsOf(args))
}

func (mt Method) IsInvocableWith(instance any, args ...any) bool {
	return mt.CheckInvocable(instance, args...) == nil
}

func (mt Method) CheckInvocable(instance any, args ...any) error {
	if mt.data == nil {
		return ErrInvalidHandle
	}
	m := mt.data.typ.src
	return mt.data.checkCall(m.argTypeOf(instance), m.argTypesOf(args))
}

type methodCandidate struct {
	*methodData
	inst ArgType
}

func (c methodCandidate) check(args []ArgType) error {
	return c.checkCall(c.inst, args)
}

func (c methodCandidate) exact(args []ArgType) bool {
	return exactArgs(c.sig(), args)
}
