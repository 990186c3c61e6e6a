package meta

import (
	"unsafe"

	"golang.org/x/exp/slices"
)

type ClassType struct {
	typeHandle
}

// Base class edge of a class, in declaration order.
type BaseClass struct {
	Type    ClassType
	Offset  uintptr
	Virtual bool
}

// Typedef is a type alias registered in a class or scope.
type Typedef struct {
	Name string
	Type AnyType
}

func (t ClassType) Name() string {
	return t.valid().rtype.Name()
}

func (t ClassType) Flags() ClassFlags {
	data := t.valid()
	var out ClassFlags
	if data.rtype.Size() == 0 {
		out |= ClassIsEmpty
	}
	if data.isPolymorphic() {
		out |= ClassIsPolymorphic
	}
	if data.isCopyable() {
		out |= ClassIsCopyable
	}
	if data.isMovable() {
		out |= ClassIsMovable
	}
	return out
}

func (t ClassType) Size() uintptr {
	return t.valid().rtype.Size()
}

func (t ClassType) Align() uintptr {
	return uintptr(t.valid().rtype.Align())
}

func (t ClassType) BaseClasses() []BaseClass {
	bases := t.valid().baseList()
	out := make([]BaseClass, len(bases))
	for i, it := range bases {
		out[i] = BaseClass{Type: ClassType{typeHandle{it.data}}, Offset: it.offset, Virtual: it.virtual}
	}
	return out
}

// IsBaseOf reports whether t is a direct or indirect base of derived.
func (t ClassType) IsBaseOf(derived ClassType) bool {
	return t.data != nil && derived.data != nil && t.data.isBaseOf(derived.data)
}

func (t ClassType) IsDerivedFrom(base ClassType) bool {
	return base.IsBaseOf(t)
}

// IsVirtualBaseOf reports whether t is reached from derived through a
// virtual base edge.
func (t ClassType) IsVirtualBaseOf(derived ClassType) bool {
	if t.data == nil || derived.data == nil || t.data.src != derived.data.src {
		return false
	}
	return t.data.src.hierarchy().IsVirtualBaseOf(t.data.classId(), derived.data.classId())
}

// Nil for an invalid handle.
func classList[E any](d *typeData, get func(*classInfo) []E) []E {
	if d == nil {
		return nil
	}
	d.class.rw.RLock()
	defer d.class.rw.RUnlock()
	return slices.Clone(get(d.class))
}

func (d *typeData) ctorList() []*constructorData {
	return classList(d, func(c *classInfo) []*constructorData { return c.ctors })
}

// The class followed by its bases, depth-first in declaration order, each
// class once.
func (d *typeData) lookupOrder() []*typeData {
	var out []*typeData
	var walk func(cur *typeData)
	walk = func(cur *typeData) {
		if slices.Contains(out, cur) {
			return
		}
		out = append(out, cur)
		for _, it := range cur.baseList() {
			walk(it.data)
		}
	}
	walk(d)
	return out
}

// First class in lookup order with a match. A name declared in a class hides
// the same name in its bases.
func lookup[E any](d *typeData, get func(*classInfo) []E, match func(E) bool) (out E, ok bool) {
	for _, cls := range d.lookupOrder() {
		for _, it := range classList(cls, get) {
			if match(it) {
				return it, true
			}
		}
	}
	return out, false
}

func (t ClassType) Constructors() []Constructor {
	list := t.data.ctorList()
	out := make([]Constructor, len(list))
	for i, it := range list {
		out[i] = Constructor{it}
	}
	return out
}

func (t ClassType) Destructor() Destructor {
	data := t.data
	if data == nil {
		return Destructor{}
	}
	data.class.rw.RLock()
	defer data.class.rw.RUnlock()
	return Destructor{data.class.dtor}
}

// Members declared by the class itself. Use GetMember to include bases.
func (t ClassType) Members() []Member {
	list := classList(t.data, func(c *classInfo) []*memberData { return c.members })
	out := make([]Member, len(list))
	for i, it := range list {
		out[i] = Member{it}
	}
	return out
}

func (t ClassType) Methods() []Method {
	list := classList(t.data, func(c *classInfo) []*methodData { return c.methods })
	out := make([]Method, len(list))
	for i, it := range list {
		out[i] = Method{it}
	}
	return out
}

func (t ClassType) Functions() []Function {
	return wrapFunctions(classList(t.data, func(c *classInfo) []*functionData { return c.functions }))
}

func (t ClassType) Variables() []Variable {
	list := classList(t.data, func(c *classInfo) []*variableData { return c.variables })
	out := make([]Variable, len(list))
	for i, it := range list {
		out[i] = Variable{it}
	}
	return out
}

func (t ClassType) Typedefs() []Typedef {
	list := classList(t.data, func(c *classInfo) []typedefData { return c.typedefs })
	out := make([]Typedef, len(list))
	for i, it := range list {
		out[i] = Typedef{Name: it.name, Type: AnyType{typeHandle{it.data}}}
	}
	return out
}

func (t ClassType) GetMember(name string) Member {
	if t.data == nil {
		return Member{}
	}
	out, _ := lookup(t.data, func(c *classInfo) []*memberData { return c.members }, func(it *memberData) bool {
		return it.name == name
	})
	return Member{out}
}

// GetMethod returns the first method named name, searching bases too.
func (t ClassType) GetMethod(name string) Method {
	if t.data == nil {
		return Method{}
	}
	out, _ := lookup(t.data, func(c *classInfo) []*methodData { return c.methods }, func(it *methodData) bool {
		return it.name == name
	})
	return Method{out}
}

// GetMethodWith returns the method named name whose argument types are
// exactly types.
func (t ClassType) GetMethodWith(name string, types ...AnyType) Method {
	if t.data == nil {
		return Method{}
	}
	out, _ := lookup(t.data, func(c *classInfo) []*methodData { return c.methods }, func(it *methodData) bool {
		return it.name == name && it.sig().matches(types)
	})
	return Method{out}
}

func (t ClassType) GetFunction(name string) Function {
	if t.data == nil {
		return Function{}
	}
	out, _ := lookup(t.data, func(c *classInfo) []*functionData { return c.functions }, func(it *functionData) bool {
		return it.name == name
	})
	return Function{out}
}

func (t ClassType) GetFunctionWith(name string, types ...AnyType) Function {
	if t.data == nil {
		return Function{}
	}
	out, _ := lookup(t.data, func(c *classInfo) []*functionData { return c.functions }, func(it *functionData) bool {
		return it.name == name && it.typ.sig.matches(types)
	})
	return Function{out}
}

func (t ClassType) GetVariable(name string) Variable {
	if t.data == nil {
		return Variable{}
	}
	out, _ := lookup(t.data, func(c *classInfo) []*variableData { return c.variables }, func(it *variableData) bool {
		return it.name == name
	})
	return Variable{out}
}

func (t ClassType) GetTypedef(name string) AnyType {
	if t.data == nil {
		return AnyType{}
	}
	out, ok := lookup(t.data, func(c *classInfo) []typedefData { return c.typedefs }, func(it typedefData) bool {
		return it.name == name
	})
	if !ok {
		return AnyType{}
	}
	return AnyType{typeHandle{out.data}}
}

func (t ClassType) GetConstructorWith(types ...AnyType) Constructor {
	for _, it := range t.data.ctorList() {
		if it.typ.sig.matches(types) {
			return Constructor{it}
		}
	}
	return Constructor{}
}

// Create constructs a new owned object, selecting among the registered
// constructors. A class without constructors is default constructed from no
// arguments or copied from one.
func (t ClassType) Create(args ...any) Value {
	return must(t.TryCreate(args...))
}

func (t ClassType) TryCreate(args ...any) (Value, error) {
	if t.data == nil {
		return Value{}, ErrInvalidHandle
	}
	data := t.data
	ctors := data.ctorList()
	if len(ctors) == 0 {
		return data.src.construct(data, args)
	}

	argv := data.src.argsOf(args)
	ctor, err := selectOverload(data.repr, ctors, argTypes(argv))
	if err != nil {
		return Value{}, err
	}
	return ctor.create(argv)
}

// CreateAt constructs an object in place. See Constructor.CreateAt.
func (t ClassType) CreateAt(mem unsafe.Pointer, args ...any) Value {
	return must(t.TryCreateAt(mem, args...))
}

func (t ClassType) TryCreateAt(mem unsafe.Pointer, args ...any) (Value, error) {
	if t.data == nil {
		return Value{}, ErrInvalidHandle
	}
	if mem == nil {
		return Value{}, ErrNullPointer
	}
	data := t.data
	m := data.src
	argv := m.argsOf(args)
	ctor, err := selectOverload(data.repr, data.ctorList(), argTypes(argv))
	if err != nil {
		return Value{}, err
	}
	if err := ctor.construct(mem, argv); err != nil {
		return Value{}, err
	}
	return m.access(data, mem, false, AsPointer)
}

// DestroyAt destroys the complete object of the class at p.
func (t ClassType) DestroyAt(p unsafe.Pointer) bool {
	if t.data == nil || p == nil {
		return false
	}
	t.data.destroy(p)
	return true
}

// InvokeFunction calls the overload of the static function name that accepts
// args.
func (t ClassType) InvokeFunction(name string, args ...any) Value {
	return must(t.TryInvokeFunction(name, args...))
}

func (t ClassType) TryInvokeFunction(name string, args ...any) (Value, error) {
	if t.data == nil {
		return Value{}, ErrInvalidHandle
	}
	for _, cls := range t.data.lookupOrder() {
		list := classList(cls, func(c *classInfo) []*functionData { return c.functions })
		if findFunction(list, name, nil, false).IsValid() {
			return invokeByName(t.data.src, list, name, args)
		}
	}
	return invokeByName(t.data.src, nil, name, args)
}

// InvokeMethod calls the method named name on instance, selecting among the
// overloads declared by the first class in lookup order that has the name.
func (t ClassType) InvokeMethod(name string, instance any, args ...any) Value {
	return must(t.TryInvokeMethod(name, instance, args...))
}

func (t ClassType) TryInvokeMethod(name string, instance any, args ...any) (Value, error) {
	if t.data == nil {
		return Value{}, ErrInvalidHandle
	}
	m := t.data.src
	inst := m.argOf(instance)
	argv := m.argsOf(args)

	var cands []methodCandidate
	for _, cls := range t.data.lookupOrder() {
		for _, it := range classList(cls, func(c *classInfo) []*methodData { return c.methods }) {
			if it.name == name {
				cands = append(cands, methodCandidate{it, inst.ArgType})
			}
		}
		if len(cands) > 0 {
			break
		}
	}

	c, err := selectOverload(t.data.repr+"::"+name, cands, argTypes(argv))
	if err != nil {
		return Value{}, err
	}
	return c.invoke(inst, argv)
}
