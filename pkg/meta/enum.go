package meta

import (
	"reflect"
	"sync"
)

type enumInfo struct {
	rw      sync.RWMutex
	evalues []*evalueData
}

type evalueData struct {
	name  string
	owner *typeData
	value reflect.Value
}

func (ev *evalueData) bits() uint64 {
	bits, _ := integerBits(ev.value)
	return bits
}

// Integer value of rv as raw bits, for any integer kind.
func integerBits(rv reflect.Value) (uint64, bool) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return uint64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint(), true
	}
	return 0, false
}

type EnumType struct {
	typeHandle
}

func (t EnumType) Name() string {
	return t.valid().rtype.Name()
}

func (t EnumType) Size() uintptr {
	return t.valid().rtype.Size()
}

func (t EnumType) UnderlyingType() NumberType {
	return NumberType{typeHandle{t.valid().elem}}
}

// Nil for an invalid handle.
func (t EnumType) list() []*evalueData {
	data := t.data
	if data == nil {
		return nil
	}
	data.enum.rw.RLock()
	defer data.enum.rw.RUnlock()
	return data.enum.evalues
}

// Evalues in registration order.
func (t EnumType) Evalues() []Evalue {
	list := t.list()
	out := make([]Evalue, len(list))
	for i, it := range list {
		out[i] = Evalue{it}
	}
	return out
}

func (t EnumType) EvalueNames() []string {
	list := t.list()
	out := make([]string, len(list))
	for i, it := range list {
		out[i] = it.name
	}
	return out
}

// NameToEvalue returns the first evalue with the name.
func (t EnumType) NameToEvalue(name string) Evalue {
	for _, it := range t.list() {
		if it.name == name {
			return Evalue{it}
		}
	}
	return Evalue{}
}

// ValueToEvalue returns the first evalue equal to x, which is a Value, a Go
// value of the enum type, or any integer.
func (t EnumType) ValueToEvalue(x any) Evalue {
	if v, ok := x.(Value); ok {
		if !v.IsValid() {
			return Evalue{}
		}
		x = v.Interface()
	}
	if x == nil {
		return Evalue{}
	}
	bits, ok := integerBits(reflect.ValueOf(x))
	if !ok {
		return Evalue{}
	}
	for _, it := range t.list() {
		if it.bits() == bits {
			return Evalue{it}
		}
	}
	return Evalue{}
}

// Named constant of an enum.
type Evalue struct {
	data *evalueData
}

func (e Evalue) IsValid() bool {
	return e.data != nil
}

func (e Evalue) valid() *evalueData {
	if e.data == nil {
		panic(ErrInvalidHandle)
	}
	return e.data
}

func (e Evalue) Name() string {
	return e.valid().name
}

func (e Evalue) Type() EnumType {
	return EnumType{typeHandle{e.valid().owner}}
}

// Value returns the constant as a value of the enum type.
func (e Evalue) Value() Value {
	data := e.valid()
	cell := reflect.New(data.value.Type())
	cell.Elem().Set(data.value)
	return data.owner.src.box(data.value.Type(), cell.UnsafePointer())
}

// UnderlyingValue returns the constant as a value of the underlying number
// type.
func (e Evalue) UnderlyingValue() Value {
	data := e.valid()
	under := data.owner.elem
	cell := reflect.New(under.rtype)
	cell.Elem().Set(data.value.Convert(under.rtype))
	return data.owner.src.box(under.rtype, cell.UnsafePointer())
}

func (e Evalue) String() string {
	if e.data == nil {
		return "(invalid)"
	}
	return e.data.owner.repr + "::" + e.data.name
}
