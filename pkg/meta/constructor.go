package meta

import (
	"fmt"
	"reflect"
	"unsafe"
)

type constructorData struct {
	owner *typeData
	typ   *typeData
	fn    reflect.Value
	opts  options
}

func (m *TypeMap) newConstructor(owner *typeData, fn any, opts []Option) *constructorData {
	rv := reflect.ValueOf(fn)
	if !rv.IsValid() || rv.Kind() != reflect.Func || rv.IsNil() {
		panic(fmt.Sprintf("constructor of `%s`: expected a func, got `%T`", owner.repr, fn))
	}

	rt := rv.Type()
	sig := m.signatureOf(rt, 0)
	if sig.err != nil || sig.resultType == nil || sig.result != owner {
		panic(fmt.Sprintf("constructor of `%s`: `%s` must return `%s` or `(%s, error)`", owner.repr, rt, owner.repr, owner.repr))
	}

	o := newOptions(opts)
	var flags ConstructorFlags
	if o.noexcept {
		flags |= ConstructorIsNoexcept
	}
	if sig.returnsError {
		flags |= ConstructorReturnsError
	}
	return &constructorData{owner: owner, typ: m.constructorType(owner, rt, sig, flags), fn: rv, opts: o}
}

func (c *constructorData) check(args []ArgType) error {
	return c.typ.src.checkArgs(c.typ.sig, args)
}

func (c *constructorData) exact(args []ArgType) bool {
	return exactArgs(c.typ.sig, args)
}

// Runs the constructor and move-constructs the result at dst.
func (c *constructorData) construct(dst unsafe.Pointer, args []Arg) error {
	m := c.typ.src
	in, err := m.bindArgs(c.typ.sig, args)
	if err != nil {
		return fmt.Errorf("constructor of `%s`: %w", c.owner.repr, err)
	}

	out := c.fn.Call(in)
	if c.typ.sig.returnsError && !out[1].IsNil() {
		return out[1].Interface().(error)
	}

	cell := reflect.New(out[0].Type())
	cell.Elem().Set(out[0])
	rawCopy(c.owner.rtype, dst, cell.UnsafePointer())
	c.owner.installTags(dst)
	return nil
}

func (c *constructorData) create(args []Arg) (Value, error) {
	out := c.owner.newOwned()
	if err := c.construct(out.ptr, args); err != nil {
		return Value{}, err
	}
	return out, nil
}

// Constructor of a registered class.
type Constructor struct {
	data *constructorData
}

func (c Constructor) IsValid() bool {
	return c.data != nil
}

func (c Constructor) valid() *constructorData {
	if c.data == nil {
		panic(ErrInvalidHandle)
	}
	return c.data
}

func (c Constructor) Type() ConstructorType {
	return ConstructorType{typeHandle{c.valid().typ}}
}

func (c Constructor) Arguments() []Argument {
	data := c.valid()
	return data.opts.arguments(data.typ.sig)
}

// Create returns a new owned object.
func (c Constructor) Create(args ...any) Value {
	return must(c.TryCreate(args...))
}

func (c Constructor) TryCreate(args ...any) (Value, error) {
	if c.data == nil {
		return Value{}, ErrInvalidHandle
	}
	return c.data.create(c.data.typ.src.argsOf(args))
}

// CreateAt constructs the object in the memory at mem, which must be large
// enough and typed compatibly for the garbage collector. Returns a pointer
// value to the new object.
func (c Constructor) CreateAt(mem unsafe.Pointer, args ...any) Value {
	return must(c.TryCreateAt(mem, args...))
}

func (c Constructor) TryCreateAt(mem unsafe.Pointer, args ...any) (Value, error) {
	if c.data == nil {
		return Value{}, ErrInvalidHandle
	}
	if mem == nil {
		return Value{}, ErrNullPointer
	}
	m := c.data.typ.src
	if err := c.data.construct(mem, m.argsOf(args)); err != nil {
		return Value{}, err
	}
	return m.access(c.data.owner, mem, false, AsPointer)
}

func (c Constructor) IsInvocableWith(args ...any) bool {
	return c.CheckInvocable(args...) == nil
}

func (c Constructor) CheckInvocable(args ...any) error {
	if c.data == nil {
		return ErrInvalidHandle
	}
	return c.data.check(c.data.typ.src.argTypesOf(args))
}

type destructorData struct {
	owner *typeData
	typ   *typeData
	fn    func(p unsafe.Pointer)
}

// Destructor of a registered class. Destroying an object runs the class
// destructor and then those of its bases.
type Destructor struct {
	data *destructorData
}

func (d Destructor) IsValid() bool {
	return d.data != nil
}

func (d Destructor) Type() DestructorType {
	if d.data == nil {
		panic(ErrInvalidHandle)
	}
	return DestructorType{typeHandle{d.data.typ}}
}

// DestroyAt destroys the complete object at p. Returns false for an invalid
// handle or a nil pointer.
func (d Destructor) DestroyAt(p unsafe.Pointer) bool {
	if d.data == nil || p == nil {
		return false
	}
	d.data.owner.destroy(p)
	return true
}
