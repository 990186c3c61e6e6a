package meta

import (
	"fmt"
	"reflect"
	"unsafe"
)

type memberData struct {
	name  string
	owner *typeData
	typ   *typeData
	value *typeData
	at    func(owner unsafe.Pointer) unsafe.Pointer
	opts  options
}

// Member from an accessor `func(*T) *V`; `func(*T) *Const[V]` makes it
// readonly.
func (m *TypeMap) newMember(owner *typeData, name string, accessor any, opts []Option) *memberData {
	rv := reflect.ValueOf(accessor)
	rt := reflect.TypeOf(accessor)
	if rt == nil || rt.Kind() != reflect.Func || rt.NumIn() != 1 || rt.NumOut() != 1 || rt.Out(0).Kind() != reflect.Pointer {
		panic(fmt.Sprintf("member `%s.%s`: expected `func(*%s) *V`, got `%T`", owner.repr, name, owner.repr, accessor))
	}
	if kind, ok := receiverOf(owner, rt.In(0)); !ok || kind != recvPointer {
		panic(fmt.Sprintf("member `%s.%s`: accessor must take `*%s`", owner.repr, name, owner.repr))
	}

	value, readonly := stripCV(rt.Out(0).Elem())
	recvRt := rt.In(0)
	at := func(p unsafe.Pointer) unsafe.Pointer {
		return rv.Call([]reflect.Value{pointerAs(recvRt, p)})[0].UnsafePointer()
	}
	return m.memberOf(owner, name, m.resolve(value), readonly, at, opts)
}

// Member from the struct field with the given Go name.
func (m *TypeMap) newField(owner *typeData, name, field string, opts []Option) *memberData {
	rt, offset, err := fieldOf(owner.rtype, field)
	if err != nil {
		panic(fmt.Sprintf("member `%s.%s`: %v", owner.repr, name, err))
	}

	value, readonly := stripCV(rt)
	at := func(p unsafe.Pointer) unsafe.Pointer {
		return unsafe.Add(p, offset)
	}
	return m.memberOf(owner, name, m.resolve(value), readonly, at, opts)
}

// Type and byte offset of a field of a struct, following promoted fields that
// are stored inline.
func fieldOf(rt reflect.Type, name string) (reflect.Type, uintptr, error) {
	if rt.Kind() != reflect.Struct {
		return nil, 0, fmt.Errorf("`%s` is not a struct", rt)
	}
	info, ok := rt.FieldByName(name)
	if !ok {
		return nil, 0, fmt.Errorf("no field `%s` in `%s`", name, rt)
	}

	offset := uintptr(0)
	cur := rt
	for _, index := range info.Index {
		if cur.Kind() != reflect.Struct {
			return nil, 0, fmt.Errorf("field `%s` of `%s` is behind a pointer", name, rt)
		}
		it := cur.Field(index)
		offset += it.Offset
		cur = it.Type
	}
	return info.Type, offset, nil
}

func (m *TypeMap) memberOf(owner *typeData, name string, value *typeData, readonly bool, at func(unsafe.Pointer) unsafe.Pointer, opts []Option) *memberData {
	o := newOptions(opts)
	var flags MemberFlags
	if readonly || o.readonly {
		flags |= MemberIsReadonly
	}
	return &memberData{
		name:  name,
		owner: owner,
		typ:   m.memberType(owner, value, flags),
		value: value,
		at:    at,
		opts:  o,
	}
}

func (md *memberData) readonly() bool {
	return md.typ.flags&uint32(MemberIsReadonly) != 0
}

func (md *memberData) checkGet(inst ArgType) error {
	if err := md.typ.src.checkInstance(md.owner, recvValue, inst); err != nil {
		return err
	}
	return nil
}

func (md *memberData) checkSet(inst, value ArgType) error {
	if md.readonly() {
		return fmt.Errorf("%w: member `%s.%s` is readonly", ErrNotSettable, md.owner.repr, md.name)
	}
	m := md.typ.src
	if err := m.checkInstance(md.owner, recvPointer, inst); err != nil {
		return err
	}
	if reason := m.checkArg(value, md.value); reason != 0 {
		return &BindError{Index: 0, Reason: reason, Param: AnyType{typeHandle{md.value}}, Arg: value}
	}
	return nil
}

// Const-ness of the instance after pointer dereference.
func instanceIsConst(arg ArgType) bool {
	inst, _ := instanceOf(arg)
	return inst.cat.IsConst()
}

func (md *memberData) get(inst Arg) (Value, error) {
	if err := md.checkGet(inst.ArgType); err != nil {
		return Value{}, fmt.Errorf("member `%s.%s`: %w", md.owner.repr, md.name, err)
	}
	m := md.typ.src
	p, err := m.instanceAddr(md.owner, inst)
	if err != nil {
		return Value{}, err
	}
	readonly := md.readonly() || instanceIsConst(inst.ArgType)
	return m.access(md.value, md.at(p), readonly, md.opts.policy)
}

func (md *memberData) set(inst, value Arg) error {
	if err := md.checkSet(inst.ArgType, value.ArgType); err != nil {
		return fmt.Errorf("member `%s.%s`: %w", md.owner.repr, md.name, err)
	}
	m := md.typ.src
	p, err := m.instanceAddr(md.owner, inst)
	if err != nil {
		return err
	}
	return m.assign(md.value, md.at(p), value)
}

// Converts value as a by-value parameter of type data, then moves the result
// over the object at dst.
func (m *TypeMap) assign(data *typeData, dst unsafe.Pointer, value Arg) error {
	tmp := reflect.New(data.rtype).UnsafePointer()
	if err := m.valueInto(tmp, value, data); err != nil {
		return err
	}
	rawCopy(data.rtype, dst, tmp)
	if data.kind == KindClass {
		data.installTags(dst)
	}
	return nil
}

// Member of a registered class.
type Member struct {
	data *memberData
}

func (mb Member) IsValid() bool {
	return mb.data != nil
}

func (mb Member) valid() *memberData {
	if mb.data == nil {
		panic(ErrInvalidHandle)
	}
	return mb.data
}

func (mb Member) Name() string {
	return mb.valid().name
}

func (mb Member) Type() MemberType {
	return MemberType{typeHandle{mb.valid().typ}}
}

// Get reads the member of instance following the member's result policy.
func (mb Member) Get(instance any) Value {
	return must(mb.TryGet(instance))
}

func (mb Member) TryGet(instance any) (Value, error) {
	if mb.data == nil {
		return Value{}, ErrInvalidHandle
	}
	return mb.data.get(mb.data.typ.src.argOf(instance))
}

func (mb Member) Set(instance, value any) {
	if err := mb.TrySet(instance, value); err != nil {
		panic(err)
	}
}

func (mb Member) TrySet(instance, value any) error {
	if mb.data == nil {
		return ErrInvalidHandle
	}
	m := mb.data.typ.src
	return mb.data.set(m.argOf(instance), m.argOf(value))
}

func (mb Member) IsGettableWith(instance any) bool {
	return mb.data != nil && mb.data.checkGet(mb.data.typ.src.argTypeOf(instance)) == nil
}

func (mb Member) IsSettableWith(instance, value any) bool {
	if mb.data == nil {
		return false
	}
	m := mb.data.typ.src
	return mb.data.checkSet(m.argTypeOf(instance), m.argTypeOf(value)) == nil
}

type variableData struct {
	name     string
	data     *typeData
	ptr      unsafe.Pointer
	readonly bool
	opts     options
}

// Variable from a pointer `*V`; `*Const[V]` makes it readonly.
func (m *TypeMap) newVariable(name string, ptr any, opts []Option) *variableData {
	rt := reflect.TypeOf(ptr)
	if rt == nil || rt.Kind() != reflect.Pointer || reflect.ValueOf(ptr).IsNil() {
		panic(fmt.Sprintf("variable `%s`: expected a non-nil pointer, got `%T`", name, ptr))
	}
	value, readonly := stripCV(rt.Elem())
	o := newOptions(opts)
	return &variableData{
		name:     name,
		data:     m.resolve(value),
		ptr:      reflect.ValueOf(ptr).UnsafePointer(),
		readonly: readonly || o.readonly,
		opts:     o,
	}
}

func (vd *variableData) checkSet(value ArgType) error {
	if vd.readonly {
		return fmt.Errorf("%w: variable `%s` is readonly", ErrNotSettable, vd.name)
	}
	if reason := vd.data.src.checkArg(value, vd.data); reason != 0 {
		return &BindError{Index: 0, Reason: reason, Param: AnyType{typeHandle{vd.data}}, Arg: value}
	}
	return nil
}

// Variable registered in a scope or class.
type Variable struct {
	data *variableData
}

func (vr Variable) IsValid() bool {
	return vr.data != nil
}

func (vr Variable) valid() *variableData {
	if vr.data == nil {
		panic(ErrInvalidHandle)
	}
	return vr.data
}

func (vr Variable) Name() string {
	return vr.valid().name
}

func (vr Variable) Type() AnyType {
	return AnyType{typeHandle{vr.valid().data}}
}

func (vr Variable) IsReadonly() bool {
	return vr.valid().readonly
}

func (vr Variable) Get() Value {
	return must(vr.TryGet())
}

func (vr Variable) TryGet() (Value, error) {
	if vr.data == nil {
		return Value{}, ErrInvalidHandle
	}
	vd := vr.data
	return vd.data.src.access(vd.data, vd.ptr, vd.readonly, vd.opts.policy)
}

func (vr Variable) Set(value any) {
	if err := vr.TrySet(value); err != nil {
		panic(err)
	}
}

func (vr Variable) TrySet(value any) error {
	if vr.data == nil {
		return ErrInvalidHandle
	}
	vd := vr.data
	m := vd.data.src
	arg := m.argOf(value)
	if err := vd.checkSet(arg.ArgType); err != nil {
		return fmt.Errorf("variable `%s`: %w", vd.name, err)
	}
	return m.assign(vd.data, vd.ptr, arg)
}

func (vr Variable) IsSettableWith(value any) bool {
	if vr.data == nil {
		return false
	}
	return vr.data.checkSet(vr.data.data.src.argTypeOf(value)) == nil
}

func findVariable(list []*variableData, name string) Variable {
	for _, it := range list {
		if it.name == name {
			return Variable{it}
		}
	}
	return Variable{}
}
