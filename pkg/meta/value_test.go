package meta_test

import (
	"testing"
	"unsafe"

	"axlab.dev/meta/pkg/meta"
	"github.com/stretchr/testify/require"
)

func TestValueBasics(t *testing.T) {
	test := require.New(t)
	setup()

	v := meta.NewValue(42)
	test.True(v.IsValid())
	test.False(v.IsReference())
	test.True(v.Type() == meta.ResolveType[int]())
	test.Equal(42, meta.As[int](v))
	test.Equal(42, v.Interface())
	test.Equal("<int>(42)", v.String())

	test.True(meta.Is[int](v))
	test.True(meta.Is[meta.Const[int]](v))
	test.False(meta.Is[string](v))
	_, err := meta.TryAs[string](v)
	test.ErrorIs(err, meta.ErrBadCast)
	test.Panics(func() { meta.As[int64](v) })

	*meta.AsPtr[int](v) = 43
	test.Equal(43, meta.As[int](v))

	ref := meta.As[meta.LRef[int]](v)
	ref.Set(44)
	test.Equal(44, meta.As[int](v))
	test.Equal(44, meta.As[meta.CLRef[int]](v).Get())

	var empty meta.Value
	test.False(empty.IsValid())
	test.Equal("(none)", empty.String())
	_, err = meta.TryAs[int](empty)
	test.ErrorIs(err, meta.ErrEmptyValue)
	test.Nil(empty.Interface())
}

func TestValueCopyMove(t *testing.T) {
	test := require.New(t)
	setup()

	v := meta.NewValue(ivec2{1, 2})
	c := v.Copy()
	meta.AsPtr[ivec2](c).X = 10
	test.Equal(ivec2{1, 2}, meta.As[ivec2](v))
	test.Equal(ivec2{10, 2}, meta.As[ivec2](c))

	m := c.Move()
	test.False(c.IsValid())
	test.Equal(ivec2{10, 2}, meta.As[ivec2](m))

	v.Swap(&m)
	test.Equal(ivec2{10, 2}, meta.As[ivec2](v))
	test.Equal(ivec2{1, 2}, meta.As[ivec2](m))

	test.NoError(m.Assign(7))
	test.Equal(7, meta.As[int](m))

	m.Reset()
	test.False(m.IsValid())

	n := meta.ValueOf(nil)
	test.True(n.Type().IsNullptr())
	test.Equal("<nullptr>(nil)", n.String())
	test.Nil(meta.As[*int](n))
}

func TestValueReferences(t *testing.T) {
	test := require.New(t)
	setup()

	x := 5
	r := meta.NewRef(&x)
	test.True(r.IsReference())
	test.False(r.IsConst())
	*meta.AsPtr[int](r) = 6
	test.Equal(6, x)

	// copies of a reference are references
	c := r.Copy()
	*meta.AsPtr[int](c) = 7
	test.Equal(7, x)

	cr := meta.NewConstRef(&x)
	test.True(cr.IsConst())
	_, err := meta.TryAsPtr[int](cr)
	test.ErrorIs(err, meta.ErrConstViolation)
	test.Equal(7, meta.AsPtr[meta.Const[int]](cr).Get())
	_, err = meta.TryAs[meta.LRef[int]](cr)
	test.ErrorIs(err, meta.ErrConstViolation)
	test.Equal(7, meta.As[meta.CLRef[int]](cr).Get())

	p := cr.Addr()
	test.True(p.Type() == meta.ResolveType[*meta.Const[int]]())
	_, err = meta.TryAs[*int](p)
	test.ErrorIs(err, meta.ErrConstViolation)
	test.True(meta.As[*meta.Const[int]](p) == (*meta.Const[int])(unsafe.Pointer(&x)))

	owned := meta.NewValue(1)
	ref := owned.Ref()
	test.True(ref.IsReference())
	*meta.AsPtr[int](ref) = 2
	test.Equal(2, meta.As[int](owned))
}

func TestValuePointers(t *testing.T) {
	test := require.New(t)
	setup()

	x := 5
	p := meta.NewValue(&x)
	test.True(p.IsPointer())
	test.Equal(5, meta.As[int](p.Deref()))
	test.True(meta.As[*int](p) == &x)
	test.Equal(5, meta.As[int](p.Index(0)))

	var null *int
	_, err := meta.NewValue(null).TryDeref()
	test.ErrorIs(err, meta.ErrNullPointer)

	_, err = meta.NewValue(1).TryDeref()
	test.ErrorIs(err, meta.ErrBadCast)

	arr := meta.NewValue([3]int{1, 2, 3})
	test.Equal(3, arr.Len())
	test.Equal(3, meta.As[int](arr.Index(2)))
	_, err = arr.TryIndex(3)
	test.ErrorIs(err, meta.ErrOutOfRange)
	_, err = arr.TryIndex(-1)
	test.ErrorIs(err, meta.ErrOutOfRange)

	// arrays decay to pointers to the first element
	first := meta.As[*int](arr)
	test.Equal(1, *first)
	test.Equal(0, meta.NewValue(1).Len())

	list := meta.NewValue([]int{4, 5})
	test.Equal(2, list.Len())
	test.Equal(5, meta.As[int](list.Index(1)))

	frozen := meta.NewValue([2]meta.Const[int]{meta.ConstOf(1), meta.ConstOf(2)})
	_, err = meta.TryAs[*int](frozen)
	test.ErrorIs(err, meta.ErrConstViolation)
	test.Equal(2, meta.As[int](frozen.Index(1)))
}

func TestValueMoveSemantics(t *testing.T) {
	test := require.New(t)
	setup()

	// move-only
	h := handle{fd: 7}
	_, err := meta.TryValueOf(meta.LValue(&h))
	test.ErrorIs(err, meta.ErrNotCopyable)

	moved := meta.MoveValue(&h)
	test.Equal(7, meta.AsPtr[handle](moved).fd)
	test.Equal(0, h.fd)

	_, err = moved.TryCopy()
	test.ErrorIs(err, meta.ErrNotCopyable)

	// copy-only
	tok := token{s: "abc"}
	copied, err := meta.TryValueOf(meta.CRValue(&tok))
	test.NoError(err)
	test.Equal("abc", meta.AsPtr[token](copied).s)
	test.Equal("abc", tok.s)

	again := meta.MoveValue(&tok)
	test.Equal("abc", meta.AsPtr[token](again).s)
	test.Equal("abc", tok.s)

	pin := pinned{n: 1}
	_, err = meta.TryValueOf(meta.RValue(&pin))
	test.ErrorIs(err, meta.ErrNotMovable)

	flags := meta.ResolveClass[handle]().Flags()
	test.Equal(meta.ClassIsMovable, flags&(meta.ClassIsCopyable|meta.ClassIsMovable))
	flags = meta.ResolveClass[token]().Flags()
	test.Equal(meta.ClassIsCopyable|meta.ClassIsMovable, flags&(meta.ClassIsCopyable|meta.ClassIsMovable))
	test.Zero(meta.ResolveClass[pinned]().Flags() & (meta.ClassIsCopyable | meta.ClassIsMovable))
}

func TestValueEmplace(t *testing.T) {
	test := require.New(t)
	setup()

	v := meta.NewValue(1)
	p := meta.Emplace[fragile](&v, 3)
	test.Equal(3, p.n)
	test.True(v.Type() == meta.ResolveType[fragile]())

	_, err := meta.TryEmplace[fragile](&v, 0)
	test.EqualError(err, "zero fragile")
	test.False(v.IsValid())

	v = meta.NewValue(1)
	test.PanicsWithValue("negative fragile", func() { meta.Emplace[fragile](&v, -1) })
	test.False(v.IsValid())

	vec := meta.Emplace[ivec2](&v, 3, 4)
	test.Equal(ivec2{3, 4}, *vec)

	_, err = meta.TryEmplace[ivec2](&v, "x")
	test.ErrorIs(err, meta.ErrNoViableOverload)

	n := meta.Make(meta.ResolveType[int](), int(9))
	test.Equal(9, meta.As[int](n))
	test.Equal(0, meta.As[int](meta.Make(meta.ResolveType[int]())))
	_, err = meta.TryMake(meta.ResolveType[int](), 1, 2)
	test.ErrorIs(err, meta.ErrNotConstructible)
	_, err = meta.TryMake(meta.AnyType{})
	test.ErrorIs(err, meta.ErrInvalidHandle)
}

func TestValueDestruction(t *testing.T) {
	test := require.New(t)
	setup()

	before := counters
	v := meta.ResolveClass[tracked]().Create()
	test.Equal(before.ctors+1, counters.ctors)

	c := v.Copy()
	v.Reset()
	v.Reset()
	test.Equal(before.dtors+1, counters.dtors)

	c.Reset()
	test.Equal(before.dtors+2, counters.dtors)

	// references do not own their object
	obj := tracked{}
	r := meta.NewRef(&obj)
	r.Reset()
	test.Equal(before.dtors+2, counters.dtors)

	b := meta.NewValue(bomb{})
	test.PanicsWithValue("bomb", b.Reset)
	test.False(b.IsValid())
	test.NotPanics(b.Reset)
}

func TestValueSharedStorage(t *testing.T) {
	test := require.New(t)
	setup()

	before := counters
	v := meta.ResolveClass[tracked]().Create()
	alias := v
	test.False(alias.IsDestroyed())

	v.Reset()
	test.True(alias.IsDestroyed())
	alias.Reset()
	test.Equal(before.ctors+1, counters.ctors)
	test.Equal(before.dtors+1, counters.dtors)

	w := meta.ResolveClass[tracked]().Create()
	moved := w
	test.NoError(w.Assign(tracked{}))
	test.Equal(before.dtors+2, counters.dtors)
	moved.Reset()
	test.Equal(before.dtors+2, counters.dtors)

	// copies own their storage
	c := meta.ResolveClass[tracked]().Create()
	d := c.Copy()
	c.Reset()
	test.False(d.IsDestroyed())
	d.Reset()
	test.Equal(before.dtors+4, counters.dtors)
	w.Reset()
}

func TestValueAfterReset(t *testing.T) {
	test := require.New(t)
	setup()

	v := meta.NewValue(ivec2{X: 3, Y: 4})
	n := meta.NewValue(7)
	meta.Reset()

	test.Equal(ivec2{X: 3, Y: 4}, meta.As[ivec2](v))
	test.Equal(4, meta.AsPtr[ivec2](v).Y)
	test.True(meta.Is[int](n))
	test.False(meta.Is[string](n))
	test.Equal(7, meta.As[int](n))

	setup()
	_, err := meta.TryAs[ivec2](meta.NewValue(ivec2{}).Copy())
	test.NoError(err)
}

func TestValueEnumString(t *testing.T) {
	test := require.New(t)
	setup()

	test.Equal("<meta_test.align>(center)", meta.NewValue(alignCenter).String())
	test.Equal("<meta_test.align>(7)", meta.NewValue(align(7)).String())
}
