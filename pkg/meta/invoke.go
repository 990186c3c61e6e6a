package meta

import (
	"fmt"
	"reflect"
	"strings"
	"unsafe"
)

// Calls fn with bound arguments and converts its result.
func (m *TypeMap) call(fn reflect.Value, sig *signature, in []reflect.Value, policy ResultPolicy) (Value, error) {
	var out []reflect.Value
	if sig.variadic {
		out = fn.CallSlice(in)
	} else {
		out = fn.Call(in)
	}

	if sig.returnsError {
		last := out[len(out)-1]
		if !last.IsNil() {
			return Value{}, last.Interface().(error)
		}
		out = out[:len(out)-1]
	}

	if len(out) == 0 || policy == DiscardReturn {
		return Value{}, nil
	}
	return m.result(out[0], policy)
}

func (m *TypeMap) result(rv reflect.Value, policy ResultPolicy) (Value, error) {
	cell := reflect.New(rv.Type())
	cell.Elem().Set(rv)

	data := m.resolve(rv.Type())
	if data.kind != KindReference {
		return m.box(rv.Type(), cell.UnsafePointer()), nil
	}

	p := word(cell.UnsafePointer())
	readonly := data.flags&uint32(ReferenceIsReadonly) != 0
	return m.access(data.elem, p, readonly, policy)
}

// Returns the object at p following a result policy.
func (m *TypeMap) access(data *typeData, p unsafe.Pointer, readonly bool, policy ResultPolicy) (Value, error) {
	switch policy {
	case AsPointer:
		out := m.pointerTo(data, readonly).newOwned()
		*(*unsafe.Pointer)(out.ptr) = p
		out.settle()
		return out, nil
	case AsReferenceWrapper:
		return m.refValue(data, p, readonly), nil
	case DiscardReturn:
		return Value{}, nil
	}
	if p == nil {
		return Value{}, ErrNullPointer
	}
	return data.copyOut(p)
}

type candidate interface {
	check(args []ArgType) error
	exact(args []ArgType) bool
}

// OverloadError is returned when no candidate or more than one candidate
// accepts the arguments of a call by name.
type OverloadError struct {
	Name      string
	Args      []ArgType
	Ambiguous bool
	// Errors holds the binding error of each candidate, nil when viable.
	Errors []error
}

func (e *OverloadError) Error() string {
	out := strings.Builder{}
	if e.Ambiguous {
		out.WriteString("ambiguous call to `")
	} else {
		out.WriteString("no viable overload for `")
	}
	out.WriteString(e.Name)
	out.WriteString("(")
	for i, it := range e.Args {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(it.String())
	}
	out.WriteString(")`")

	if len(e.Errors) == 0 && !e.Ambiguous {
		out.WriteString(": no candidates")
	}
	for i, it := range e.Errors {
		if it != nil {
			fmt.Fprintf(&out, "\n\tcandidate %d: %v", i, it)
		} else if e.Ambiguous {
			fmt.Fprintf(&out, "\n\tcandidate %d: viable", i)
		}
	}
	return out.String()
}

func (e *OverloadError) Unwrap() error {
	if e.Ambiguous {
		return ErrAmbiguousCall
	}
	return ErrNoViableOverload
}

// Picks the candidate for a call. A single viable candidate wins; among
// several, the one whose parameter types equal the argument types.
func selectOverload[C candidate](name string, cands []C, args []ArgType) (C, error) {
	var zero C
	errs := make([]error, len(cands))
	var viable []C
	for i, it := range cands {
		if errs[i] = it.check(args); errs[i] == nil {
			viable = append(viable, it)
		}
	}

	switch len(viable) {
	case 1:
		return viable[0], nil
	case 0:
		return zero, &OverloadError{Name: name, Args: args, Errors: errs}
	}

	var exact []C
	for _, it := range viable {
		if it.exact(args) {
			exact = append(exact, it)
		}
	}
	if len(exact) == 1 {
		return exact[0], nil
	}
	return zero, &OverloadError{Name: name, Args: args, Ambiguous: true, Errors: errs}
}

type functionData struct {
	name string
	typ  *typeData
	fn   reflect.Value
	opts options
}

func (m *TypeMap) newFunction(name string, fn any, opts []Option) *functionData {
	rv := reflect.ValueOf(fn)
	if !rv.IsValid() || rv.Kind() != reflect.Func || rv.IsNil() {
		panic(fmt.Sprintf("function `%s`: expected a func, got `%T`", name, fn))
	}

	o := newOptions(opts)
	var flags FunctionFlags
	if o.noexcept {
		flags |= FunctionIsNoexcept
	}
	typ := m.function(rv.Type(), flags)
	if typ.sig.err != nil {
		panic(fmt.Sprintf("function `%s`: %v", name, typ.sig.err))
	}
	return &functionData{name: name, typ: typ, fn: rv, opts: o}
}

func (f *functionData) check(args []ArgType) error {
	return f.typ.src.checkArgs(f.typ.sig, args)
}

func (f *functionData) exact(args []ArgType) bool {
	return exactArgs(f.typ.sig, args)
}

func (f *functionData) invoke(args []Arg) (Value, error) {
	m := f.typ.src
	in, err := m.bindArgs(f.typ.sig, args)
	if err != nil {
		return Value{}, fmt.Errorf("function `%s`: %w", f.name, err)
	}
	return m.call(f.fn, f.typ.sig, in, f.opts.policy)
}

// Function registered in a scope or class.
type Function struct {
	data *functionData
}

func (f Function) IsValid() bool {
	return f.data != nil
}

func (f Function) valid() *functionData {
	if f.data == nil {
		panic(ErrInvalidHandle)
	}
	return f.data
}

func (f Function) Name() string {
	return f.valid().name
}

func (f Function) Type() FunctionType {
	return FunctionType{typeHandle{f.valid().typ}}
}

func (f Function) Arguments() []Argument {
	data := f.valid()
	return data.opts.arguments(data.typ.sig)
}

func (f Function) Policy() ResultPolicy {
	return f.valid().opts.policy
}

// Invoke calls the function, panicking with the error on failure. Arguments
// are Go values (prvalues), Arg, or Value.
func (f Function) Invoke(args ...any) Value {
	return must(f.TryInvoke(args...))
}

func (f Function) TryInvoke(args ...any) (Value, error) {
	if f.data == nil {
		return Value{}, ErrInvalidHandle
	}
	return f.data.invoke(f.data.typ.src.argsOf(args))
}

// IsInvocableWith reports whether the arguments bind. Arguments may also be
// ArgType or AnyType values.
func (f Function) IsInvocableWith(args ...any) bool {
	return f.CheckInvocable(args...) == nil
}

// CheckInvocable returns the binding error for the arguments, if any.
func (f Function) CheckInvocable(args ...any) error {
	if f.data == nil {
		return ErrInvalidHandle
	}
	return f.data.check(f.data.typ.src.argTypesOf(args))
}

func wrapFunctions(list []*functionData) []Function {
	out := make([]Function, len(list))
	for i, it := range list {
		out[i] = Function{it}
	}
	return out
}

// Finds the first function named name, or with the exact argument types when
// types are given.
func findFunction(list []*functionData, name string, types []AnyType, typed bool) Function {
	for _, it := range list {
		if it.name == name && (!typed || it.typ.sig.matches(types)) {
			return Function{it}
		}
	}
	return Function{}
}

func invokeByName(m *TypeMap, list []*functionData, name string, args []any) (Value, error) {
	var named []*functionData
	for _, it := range list {
		if it.name == name {
			named = append(named, it)
		}
	}
	argv := m.argsOf(args)
	fn, err := selectOverload(name, named, argTypes(argv))
	if err != nil {
		return Value{}, err
	}
	return fn.invoke(argv)
}
