package demo_test

import (
	"math"
	"testing"

	"axlab.dev/meta/internal/demo"
	"axlab.dev/meta/pkg/meta"
	"github.com/stretchr/testify/require"
)

func setup() *meta.TypeMap {
	types := meta.Types()
	demo.Register(types)
	return types
}

func TestRegisterTwice(t *testing.T) {
	test := require.New(t)
	types := setup()

	demo.Register(types)
	test.Len(meta.ResolveClass[demo.Ivec2]().Constructors(), 2)
	test.Len(types.ResolveScope("math").Functions(), 3)
	test.Equal([]string{"math", "shapes", "text"}, types.Scopes())
}

func TestIvec2(t *testing.T) {
	test := require.New(t)
	setup()

	class := meta.ResolveClass[demo.Ivec2]()
	v := class.Create(3, 4)
	test.Equal(25, meta.As[int](class.InvokeMethod("length2", v)))

	class.GetMember("x").Set(v, 10)
	test.Equal(116, meta.As[int](class.InvokeMethod("length2", v)))

	class.InvokeMethod("add", v, demo.NewIvec2(1, 1))
	test.Equal(demo.Ivec2{X: 11, Y: 5}, meta.As[demo.Ivec2](v))
	test.Equal([]string{"other"}, []string{class.GetMethod("add").Arguments()[0].Name})
}

func TestAlign(t *testing.T) {
	test := require.New(t)
	setup()

	enum := meta.ResolveEnum[demo.Align]()
	test.Equal("center", enum.ValueToEvalue(demo.AlignCenter).Name())
	test.Equal(demo.AlignCenter, meta.As[demo.Align](enum.NameToEvalue("middle").Value()))
	test.False(enum.NameToEvalue("top").IsValid())
	test.Equal("<demo.Align>(right)", meta.NewValue(demo.AlignRight).String())
}

func TestMathScope(t *testing.T) {
	test := require.New(t)
	scope := setup().ResolveScope("math")

	sum := scope.Invoke("add", 60, -18)
	test.Equal(42, meta.As[int](sum))
	test.True(sum.Type() == meta.ResolveType[int]())
	test.Equal(3.5, meta.As[float64](scope.Invoke("add", 1.5, 2.0)))
	test.Equal(4, meta.As[int](scope.Invoke("div", 9, 2)))

	_, err := scope.TryInvoke("div", 1, 0)
	test.EqualError(err, "division by zero")
	_, err = scope.TryInvoke("add", 1, 2.0)
	test.ErrorIs(err, meta.ErrNoViableOverload)

	test.True(scope.GetVariable("pi").IsReadonly())
	test.Equal(math.Pi, meta.As[float64](scope.GetVariable("pi").Get()))
	test.True(scope.GetTypedef("real") == meta.ResolveType[float64]())
}

func TestShapes(t *testing.T) {
	test := require.New(t)
	types := setup()
	describe := types.ResolveScope("shapes").GetFunction("describe")

	square := meta.ResolveClass[demo.Square]()
	v := square.Create(3.0)
	test.Equal(9.0, meta.As[float64](square.InvokeMethod("area", v)))
	test.Equal("square", meta.As[string](square.InvokeMethod("name", v)))
	test.Equal("demo.Square", meta.As[string](describe.Invoke(v.Addr())))

	circle := meta.ResolveClass[demo.Circle]().Create(1.0)
	test.Equal(math.Pi, meta.As[float64](meta.ResolveClass[demo.Circle]().InvokeMethod("area", circle)))
	test.Equal("demo.Circle", meta.As[string](describe.Invoke(circle.Addr())))

	// plain Go objects need a tag before their dynamic type is known
	r := demo.NewRect(2, 3)
	test.Equal("demo.Shape", meta.As[string](describe.Invoke(&r)))
	meta.SetDynamicType(&r)
	test.Equal("demo.Rect", meta.As[string](describe.Invoke(&r)))

	sq := meta.AsPtr[demo.Square](v)
	test.True(meta.Upcast[demo.Shape](sq) == &sq.Rect.Shape)
	test.True(meta.ResolveClass[demo.Shape]().IsBaseOf(square))
	test.Equal(meta.ClassIsPolymorphic, square.Flags()&meta.ClassIsPolymorphic)
}

func TestJustify(t *testing.T) {
	test := require.New(t)
	scope := setup().ResolveScope("text")

	test.Equal("..ab..", meta.As[string](scope.Invoke("justify", "ab", 6, demo.AlignCenter)))
	test.Equal("...ab", meta.As[string](scope.Invoke("justify", "ab", 5, demo.AlignRight)))
	test.Equal("ab...", meta.As[string](scope.Invoke("justify", "ab", 5, demo.AlignLeft)))
	test.Equal("abc", meta.As[string](scope.Invoke("justify", "abc", 2, demo.AlignLeft)))
	test.False(scope.GetFunction("justify").IsInvocableWith("ab", 5, 1))
}
