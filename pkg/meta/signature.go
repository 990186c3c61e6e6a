package meta

import (
	"fmt"
	"reflect"
)

type param struct {
	data  *typeData
	rtype reflect.Type
}

// Parameters and result of a Go func backing a callable.
type signature struct {
	params       []param
	result       *typeData
	resultType   reflect.Type
	returnsError bool
	variadic     bool
	err          error
}

// Skips the first skip parameters, which belong to the receiver.
func (m *TypeMap) signatureOf(rt reflect.Type, skip int) *signature {
	sig := &signature{variadic: rt.IsVariadic()}
	for i := skip; i < rt.NumIn(); i++ {
		in := rt.In(i)
		sig.params = append(sig.params, param{data: m.resolve(in), rtype: in})
	}

	switch rt.NumOut() {
	case 0:
	case 1:
		if rt.Out(0) == errorType {
			sig.returnsError = true
		} else {
			sig.resultType = rt.Out(0)
		}
	case 2:
		if rt.Out(1) == errorType {
			sig.returnsError = true
			sig.resultType = rt.Out(0)
			break
		}
		fallthrough
	default:
		sig.err = fmt.Errorf("unsupported results in `%s`: expected `T`, `error`, or `(T, error)`", rt)
	}

	if sig.resultType != nil {
		sig.result = m.resolve(sig.resultType)
	} else {
		sig.result = m.void()
	}
	return sig
}

func (sig *signature) argumentType(i int) AnyType {
	if i < 0 || i >= len(sig.params) {
		return AnyType{}
	}
	return AnyType{typeHandle{sig.params[i].data}}
}

func (sig *signature) argumentTypes() []AnyType {
	out := make([]AnyType, len(sig.params))
	for i, it := range sig.params {
		out[i] = AnyType{typeHandle{it.data}}
	}
	return out
}

// Exact signature equality against a list of argument types.
func (sig *signature) matches(types []AnyType) bool {
	if len(types) != len(sig.params) {
		return false
	}
	for i, it := range sig.params {
		if types[i].data != it.data {
			return false
		}
	}
	return true
}
