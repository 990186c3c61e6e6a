package meta_test

import (
	"reflect"
	"sync"
	"testing"
	"unsafe"

	"axlab.dev/meta/pkg/meta"
	"github.com/stretchr/testify/require"
)

func TestTypeIdentity(t *testing.T) {
	test := require.New(t)
	setup()

	i32 := meta.ResolveType[int32]()
	test.True(i32 == meta.ResolveType[int32]())
	test.True(i32 != meta.ResolveType[int64]())
	test.True(i32.IsNumber())
	test.Equal("int32", i32.String())

	test.True(i32 == meta.ResolveType[meta.Const[int32]]())
	test.True(i32 == meta.ResolveType[meta.Volatile[int32]]())
	test.True(i32 == meta.ResolveType[meta.Const[meta.Volatile[int32]]]())

	vec := meta.ResolveType[ivec2]()
	test.True(vec.IsClass())
	test.True(vec == meta.ResolveType[meta.Const[ivec2]]())
	test.True(vec == meta.ResolveType[meta.Volatile[ivec2]]())
	test.True(vec == meta.ResolveType[meta.Const[meta.Volatile[ivec2]]]())

	enum := meta.ResolveType[align]()
	test.True(enum.IsEnum())
	test.True(enum == meta.ResolveType[meta.Const[align]]())

	test.True(vec == meta.ResolveReflect(reflect.TypeOf(ivec2{})))
	test.True(vec == meta.ResolveTypeOf(ivec2{}))
	test.True(vec == meta.Types().Get(vec.Id()))
	test.False(meta.Types().Get(0).IsValid())
}

func TestTypeKinds(t *testing.T) {
	test := require.New(t)
	setup()

	check := func(kind meta.TypeKind, repr string, typ meta.AnyType) {
		test.Equal(kind, typ.Kind(), repr)
		test.Equal(repr, typ.String())
	}

	check(meta.KindVoid, "void", meta.ResolveType[meta.Void]())
	check(meta.KindNullptr, "nullptr", meta.ResolveType[meta.Nullptr]())
	check(meta.KindNumber, "bool", meta.ResolveType[bool]())
	check(meta.KindPointer, "*int", meta.ResolveType[*int]())
	check(meta.KindPointer, "*const int", meta.ResolveType[*meta.Const[int]]())
	check(meta.KindPointer, "*void", meta.ResolveType[unsafe.Pointer]())
	check(meta.KindPointer, "*const void", meta.ResolveType[meta.ConstVoidPtr]())
	check(meta.KindArray, "[3]int", meta.ResolveType[[3]int]())
	check(meta.KindArray, "[]const int", meta.ResolveType[[]meta.Const[int]]())
	check(meta.KindReference, "&int", meta.ResolveType[meta.LRef[int]]())
	check(meta.KindReference, "&const int", meta.ResolveType[meta.CLRef[int]]())
	check(meta.KindReference, "&const int", meta.ResolveType[meta.LRef[meta.Const[int]]]())
	check(meta.KindReference, "&&int", meta.ResolveType[meta.RRef[int]]())
	check(meta.KindReference, "&&const int", meta.ResolveType[meta.CRRef[int]]())
	check(meta.KindFunction, "func(int, int) int", meta.ResolveType[func(int, int) int]())
	check(meta.KindEnum, "meta_test.align", meta.ResolveType[align]())
	check(meta.KindClass, "meta_test.ivec2", meta.ResolveType[ivec2]())

	test.Equal(meta.NumberIsBool|meta.NumberIsIntegral|meta.NumberIsUnsigned, meta.ResolveType[bool]().AsNumber().Flags())
	test.Equal(meta.NumberIsFloatingPoint|meta.NumberIsSigned, meta.ResolveType[float64]().AsNumber().Flags())
	test.Equal(meta.NumberIsIntegral|meta.NumberIsUnsigned, meta.ResolveType[uint8]().AsNumber().Flags())
	test.Equal(uintptr(2), meta.ResolveType[int16]().AsNumber().Size())

	ptr := meta.ResolvePointer[*meta.Const[int]]()
	test.Equal(meta.PointerIsReadonly, ptr.Flags())
	test.True(ptr.DataType() == meta.ResolveType[int]())
	test.Equal(meta.PointerIsVoid, meta.ResolvePointer[unsafe.Pointer]().Flags())

	arr := meta.ResolveType[[3]int]().AsArray()
	test.Equal(meta.ArrayIsBounded, arr.Flags())
	test.Equal(3, arr.Extent())
	test.Equal(meta.ArrayIsUnbounded, meta.ResolveType[[]int]().AsArray().Flags())

	ref := meta.ResolveType[meta.CRRef[ivec2]]().AsReference()
	test.Equal(meta.ReferenceIsRvalue|meta.ReferenceIsReadonly, ref.Flags())
	test.True(ref.DataType() == meta.ResolveType[ivec2]().Any())

	fn := meta.ResolveType[func(meta.CLRef[ivec2], ...int) (int, error)]().AsFunction()
	test.Equal(meta.FunctionIsVariadic|meta.FunctionReturnsError, fn.Flags())
	test.Equal(2, fn.Arity())
	test.True(fn.ArgumentType(0) == meta.ResolveType[meta.CLRef[ivec2]]())
	test.True(fn.ArgumentType(1) == meta.ResolveType[[]int]())
	test.False(fn.ArgumentType(2).IsValid())
	test.True(fn.ReturnType() == meta.ResolveType[int]())

	test.False(meta.ResolveType[int]().AsClass().IsValid())
	test.Equal(meta.KindNone, meta.AnyType{}.Kind())
	test.Equal("(invalid)", meta.AnyType{}.String())
}

func TestTypeHash(t *testing.T) {
	test := require.New(t)
	setup()

	other := &meta.TypeMap{}
	for _, it := range []reflect.Type{
		reflect.TypeOf(0),
		reflect.TypeOf(ivec2{}),
		reflect.TypeOf(&ivec2{}),
		reflect.TypeOf([]meta.Const[int]{}),
		reflect.TypeOf(meta.CLRef[align]{}),
	} {
		a, b := meta.ResolveReflect(it), other.Resolve(it)
		test.NotEmpty(a.Hash())
		test.Equal(a.Hash(), b.Hash(), it.String())
	}
	test.NotEqual(meta.ResolveType[int]().Hash(), meta.ResolveType[int64]().Hash())
	test.NotEqual(meta.ResolveType[*int]().Hash(), meta.ResolveType[*meta.Const[int]]().Hash())
}

func TestTypeMapListing(t *testing.T) {
	test := require.New(t)

	types := &meta.TypeMap{}
	test.Equal(0, types.Len())

	i := types.Resolve(reflect.TypeOf(0))
	p := types.Resolve(reflect.TypeOf(new(int)))
	test.Equal(2, types.Len())
	test.Equal([]meta.AnyType{i, p}, types.All())
	test.Equal(meta.TypeId(1), i.Id())
	test.True(types == p.Map())
}

func TestConcurrentResolve(t *testing.T) {
	test := require.New(t)

	types := &meta.TypeMap{}
	input := []reflect.Type{
		reflect.TypeOf(0),
		reflect.TypeOf(""),
		reflect.TypeOf(ivec2{}),
		reflect.TypeOf([]*ivec2{}),
		reflect.TypeOf(meta.LRef[[4]int]{}),
		reflect.TypeOf(func(int, string) ivec2 { return ivec2{} }),
	}

	const workers = 16
	ids := make([][]meta.TypeId, workers)
	wg := sync.WaitGroup{}
	for n := 0; n < workers; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for i := range input {
				it := input[(i+n)%len(input)]
				ids[n] = append(ids[n], types.Resolve(it).Id())
			}
		}(n)
	}
	wg.Wait()

	want := make(map[reflect.Type]meta.TypeId)
	for _, it := range input {
		want[it] = types.Resolve(it).Id()
	}
	for n := range ids {
		for i, id := range ids[n] {
			test.Equal(want[input[(i+n)%len(input)]], id)
		}
	}
}

func TestReset(t *testing.T) {
	test := require.New(t)
	setup()

	before := meta.Types()
	vec := meta.ResolveType[ivec2]()
	test.True(meta.ResolveClass[ivec2]().GetMethod("length2").IsValid())

	meta.Reset()
	test.False(before == meta.Types())
	test.True(vec.IsValid())
	test.True(vec.Map() == before)
	test.False(vec == meta.ResolveType[ivec2]())
	test.False(meta.ResolveClass[ivec2]().GetMethod("length2").IsValid())

	setup()
	test.True(meta.ResolveClass[ivec2]().GetMethod("length2").IsValid())
}
