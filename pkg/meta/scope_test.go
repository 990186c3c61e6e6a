package meta_test

import (
	"errors"
	"testing"

	"axlab.dev/meta/pkg/meta"
	"github.com/stretchr/testify/require"
)

var (
	mathLimit   = 100
	mathScale   = 2
	mathVersion = meta.ConstOf(3)
)

func mathScope() meta.Scope {
	if scope := meta.ResolveScope("math"); scope.IsValid() {
		return scope
	}
	return meta.BindScope("math").
		Function("add", func(a, b int) int { return a + b }, meta.Arguments("a", "b")).
		Function("negate", func(a int) int { return -a }, meta.Noexcept()).
		Function("pick", func(int) string { return "int" }).
		Function("pick", func(float64) string { return "float64" }).
		Function("twice", func(meta.CLRef[int]) string { return "ref" }).
		Function("twice", func(int) string { return "value" }).
		Function("name", func(meta.CLRef[dA]) string { return "A" }).
		Function("name", func(meta.CLRef[dB]) string { return "B" }).
		Function("sum", func(xs ...int) (out int) {
			for _, it := range xs {
				out += it
			}
			return
		}).
		Function("div", func(a, b int) (int, error) {
			if b == 0 {
				return 0, errors.New("division by zero")
			}
			return a / b, nil
		}).
		Function("discard", func() int { return 1 }, meta.WithPolicy(meta.DiscardReturn)).
		Variable("limit", &mathLimit).
		Variable("limit_ref", &mathLimit, meta.WithPolicy(meta.AsReferenceWrapper)).
		Variable("scale", &mathScale, meta.Readonly()).
		Variable("version", &mathVersion).
		Typedef("number", meta.ResolveType[int]()).
		Scope()
}

func TestScopeFunctions(t *testing.T) {
	test := require.New(t)
	setup()
	scope := mathScope()

	test.Equal("math", scope.Name())
	test.Contains(meta.Types().Scopes(), "math")
	test.Len(scope.Functions(), 11)

	test.Equal(42, meta.As[int](scope.Invoke("add", 60, -18)))
	test.Equal(78, meta.As[int](scope.Invoke("add", 60, 18)))

	add := scope.GetFunction("add")
	test.True(add.Type().ReturnType() == meta.ResolveType[int]())
	test.Equal(2, add.Type().Arity())
	args := add.Arguments()
	test.Equal("a", args[0].Name)
	test.Equal(1, args[1].Position)
	test.Equal("b", args[1].Name)
	test.True(args[1].Type == meta.ResolveType[int]())
	test.Equal(meta.AsCopy, add.Policy())

	_, err := add.TryInvoke(1)
	test.ErrorIs(err, meta.ErrArityMismatch)
	test.False(add.IsInvocableWith(1, "2"))

	negate := scope.GetFunction("negate")
	test.Equal(meta.FunctionIsNoexcept, negate.Type().Flags()&meta.FunctionIsNoexcept)
	test.Zero(add.Type().Flags() & meta.FunctionIsNoexcept)
	test.Equal(-3, meta.As[int](negate.Invoke(3)))

	test.Equal(6, meta.As[int](scope.Invoke("sum", []int{1, 2, 3})))
	test.Equal(0, meta.As[int](scope.Invoke("sum", []int(nil))))
	test.Equal(meta.FunctionIsVariadic, scope.GetFunction("sum").Type().Flags()&meta.FunctionIsVariadic)

	test.Equal(42, meta.As[int](scope.Invoke("div", 84, 2)))
	_, err = scope.TryInvoke("div", 1, 0)
	test.EqualError(err, "division by zero")

	test.False(scope.Invoke("discard").IsValid())
	test.Equal(meta.DiscardReturn, scope.GetFunction("discard").Policy())
}

func TestOverloadSelection(t *testing.T) {
	test := require.New(t)
	setup()
	scope := mathScope()

	test.Equal("int", meta.As[string](scope.Invoke("pick", 1)))
	test.Equal("float64", meta.As[string](scope.Invoke("pick", 1.5)))

	pick := scope.GetFunctionWith("pick", meta.ResolveType[float64]())
	test.Equal("float64", meta.As[string](pick.Invoke(2.5)))
	test.False(scope.GetFunctionWith("pick", meta.ResolveType[string]()).IsValid())

	var oe *meta.OverloadError
	_, err := scope.TryInvoke("pick", "x")
	test.ErrorIs(err, meta.ErrNoViableOverload)
	test.True(errors.As(err, &oe))
	test.False(oe.Ambiguous)
	test.Equal("pick", oe.Name)
	test.Len(oe.Errors, 2)
	test.ErrorIs(oe.Errors[0], meta.ErrArgumentMismatch)
	test.ErrorIs(oe.Errors[1], meta.ErrArgumentMismatch)

	_, err = scope.TryInvoke("add", 1)
	test.ErrorIs(err, meta.ErrNoViableOverload)
	test.True(errors.As(err, &oe))
	test.ErrorIs(oe.Errors[0], meta.ErrArityMismatch)

	_, err = scope.TryInvoke("missing")
	test.ErrorIs(err, meta.ErrNoViableOverload)

	// both overloads take an int exactly
	_, err = scope.TryInvoke("twice", 1)
	test.ErrorIs(err, meta.ErrAmbiguousCall)
	test.True(errors.As(err, &oe))
	test.True(oe.Ambiguous)
	test.Equal([]error{nil, nil}, oe.Errors)

	b := dB{}
	c := dC{}
	test.Equal("B", meta.As[string](scope.Invoke("name", meta.LValue(&b))))
	test.Equal("A", meta.As[string](scope.Invoke("name", meta.LValue(&c))))

	d := dD{}
	meta.SetDynamicType(&d)
	test.Equal("B", meta.As[string](scope.Invoke("name", meta.CLValue(&d))))
	test.Equal("A", meta.As[string](scope.Invoke("name", meta.CLValue(&d.dC))))
}

func TestScopeVariables(t *testing.T) {
	test := require.New(t)
	setup()
	scope := mathScope()
	defer func() { mathLimit = 100 }()

	limit := scope.GetVariable("limit")
	test.Equal("limit", limit.Name())
	test.False(limit.IsReadonly())
	test.True(limit.Type() == meta.ResolveType[int]())
	test.Equal(100, meta.As[int](limit.Get()))

	limit.Set(150)
	test.Equal(150, mathLimit)
	test.True(limit.IsSettableWith(1))
	test.False(limit.IsSettableWith("1"))
	test.ErrorIs(limit.TrySet("1"), meta.ErrArgumentMismatch)

	// AsCopy detaches the result from the variable
	copied := limit.Get()
	*meta.AsPtr[int](copied) = 1
	test.Equal(150, mathLimit)

	ref := scope.GetVariable("limit_ref").Get()
	test.True(ref.IsReference())
	*meta.AsPtr[int](ref) = 120
	test.Equal(120, mathLimit)

	scale := scope.GetVariable("scale")
	test.True(scale.IsReadonly())
	test.ErrorIs(scale.TrySet(3), meta.ErrNotSettable)
	test.Panics(func() { scale.Set(3) })
	test.Equal(2, meta.As[int](scale.Get()))

	version := scope.GetVariable("version")
	test.True(version.IsReadonly())
	test.True(version.Type() == meta.ResolveType[int]())
	test.Equal(3, meta.As[int](version.Get()))
	test.False(version.IsSettableWith(4))

	test.Len(scope.Variables(), 4)
	test.False(scope.GetVariable("missing").IsValid())

	test.True(scope.GetTypedef("number") == meta.ResolveType[int]())
	test.False(scope.GetTypedef("missing").IsValid())
	test.Equal([]meta.Typedef{{Name: "number", Type: meta.ResolveType[int]()}}, scope.Typedefs())
}

func TestScopeIsolation(t *testing.T) {
	test := require.New(t)

	types := &meta.TypeMap{}
	local := types.BindScope("local").
		Function("one", func() int { return 1 }).
		Scope()
	test.True(types.ResolveScope("local") == local)
	test.Equal([]string{"local"}, types.Scopes())
	test.False(meta.ResolveScope("local").IsValid())
	test.True(local.GetFunction("one").Type().Map() == types)
	test.Equal(1, meta.As[int](local.Invoke("one")))
	one, err := local.TryInvoke("one")
	test.NoError(err)
	test.True(one.Type().Map() == types)
	test.True(meta.Is[int](one))
	test.False(meta.Is[string](one))
	test.Equal(1, *meta.AsPtr[int](one))

	// binding again extends the same scope
	types.BindScope("local").Function("two", func() int { return 2 })
	test.Len(local.Functions(), 2)
}

func TestInvalidHandles(t *testing.T) {
	test := require.New(t)

	test.False(meta.ResolveScope("nope").IsValid())

	var scope meta.Scope
	_, err := scope.TryInvoke("add", 1, 2)
	test.ErrorIs(err, meta.ErrInvalidHandle)
	test.False(scope.GetFunction("add").IsValid())
	test.False(scope.GetVariable("limit").IsValid())
	test.False(scope.GetTypedef("number").IsValid())
	test.Panics(func() { scope.Name() })

	var fn meta.Function
	_, err = fn.TryInvoke()
	test.ErrorIs(err, meta.ErrInvalidHandle)
	test.False(fn.IsInvocableWith())
	test.ErrorIs(fn.CheckInvocable(), meta.ErrInvalidHandle)

	var variable meta.Variable
	_, err = variable.TryGet()
	test.ErrorIs(err, meta.ErrInvalidHandle)
	test.ErrorIs(variable.TrySet(1), meta.ErrInvalidHandle)
	test.False(variable.IsSettableWith(1))

	var member meta.Member
	_, err = member.TryGet(&account{})
	test.ErrorIs(err, meta.ErrInvalidHandle)

	var ctor meta.Constructor
	_, err = ctor.TryCreate()
	test.ErrorIs(err, meta.ErrInvalidHandle)

	var enum meta.EnumType
	test.False(enum.NameToEvalue("center").IsValid())
	test.False(enum.ValueToEvalue(1).IsValid())
	test.Empty(enum.Evalues())
	test.Empty(enum.EvalueNames())

	var class meta.ClassType
	test.False(class.GetConstructorWith().IsValid())
	test.False(class.Destructor().IsValid())
	test.Empty(class.Constructors())
	test.Empty(class.Members())
	test.Empty(class.Methods())

	test.Equal(meta.TypeId(0), meta.AnyType{}.Id())
}
