package meta_test

import (
	"testing"
	"unsafe"

	"axlab.dev/meta/pkg/meta"
	"github.com/stretchr/testify/require"
)

func upcastTo(p unsafe.Pointer, from, to meta.ClassType) unsafe.Pointer {
	out, _ := meta.UpcastPointer(p, from, to)
	return out
}

func TestMixedDiamondUpcast(t *testing.T) {
	test := require.New(t)
	setup()

	a := &dA{Va: 1}
	b := &dB{dA: dA{Va: 2}, Vb: 3}
	c := &dC{Vc: 4, dA: dA{Va: 5}}
	d := &dD{Vd: 6}
	d.dB.Va, d.dC.Va = 7, 8
	meta.SetDynamicType(a)
	meta.SetDynamicType(b)
	meta.SetDynamicType(c)
	meta.SetDynamicType(d)

	classA, classB := meta.ResolveClass[dA](), meta.ResolveClass[dB]()
	classC, classD := meta.ResolveClass[dC](), meta.ResolveClass[dD]()
	classes := []meta.ClassType{classA, classB, classC, classD}
	sources := []unsafe.Pointer{unsafe.Pointer(a), unsafe.Pointer(b), unsafe.Pointer(c), unsafe.Pointer(d)}

	// expected[source][target], nil when the cast fails
	expected := [4][4]unsafe.Pointer{
		{unsafe.Pointer(a), nil, nil, nil},
		{unsafe.Pointer(&b.dA), unsafe.Pointer(b), nil, nil},
		{unsafe.Pointer(&c.dA), nil, unsafe.Pointer(c), nil},
		{nil, unsafe.Pointer(&d.dB), unsafe.Pointer(&d.dC), unsafe.Pointer(d)},
	}
	for i, src := range sources {
		for j, dst := range classes {
			test.Equal(expected[i][j], upcastTo(src, classes[i], dst), "%s to %s", classes[i], dst)
		}
	}

	_, err := meta.UpcastPointer(unsafe.Pointer(d), classD, classA)
	test.ErrorIs(err, meta.ErrAmbiguousBase)
	_, err = meta.UpcastPointer(unsafe.Pointer(a), classA, classD)
	test.ErrorIs(err, meta.ErrNotBase)
	_, err = meta.UpcastPointer(unsafe.Pointer(a), meta.ClassType{}, classA)
	test.ErrorIs(err, meta.ErrInvalidHandle)

	// casts yield the same sub-objects as Go field access
	test.Equal(7, meta.Upcast[dA](meta.Upcast[dB](d)).Va)
	test.Equal(8, meta.Upcast[dA](meta.Upcast[dC](d)).Va)
	test.Equal(5, meta.Upcast[dA](c).Va)
	test.Nil(meta.Upcast[dA](d))
	test.True(meta.Upcast[dD](d) == d)

	test.True(classA.IsBaseOf(classD))
	test.True(classA.IsVirtualBaseOf(classD))
	test.False(classA.IsVirtualBaseOf(classB))
	test.True(classD.IsDerivedFrom(classC))
	test.False(classB.IsBaseOf(classC))
}

func TestDynamicCrossCast(t *testing.T) {
	test := require.New(t)
	setup()

	d := &dD{}
	d.dC.Vc = 9
	meta.SetDynamicType(d)

	// dC is not a base of dB, so the cast goes through the complete dD
	pc := meta.Upcast[dC](&d.dB)
	test.True(pc == &d.dC)
	test.Equal(9, pc.Vc)

	pb := meta.Upcast[dB](&d.dC.dA)
	test.True(pb == &d.dB)
	pd := meta.Upcast[dD](&d.dC)
	test.True(pd == d)

	// either dA sub-object reaches the other branch
	pc, err := meta.TryUpcast[dC](&d.dB.dA)
	test.NoError(err)
	test.True(pc == &d.dC)

	// a Go copy keeps the tag bytes but not their address
	e := *d
	test.Nil(meta.Upcast[dC](&e.dB))
	test.False(e.dB.Dynamic.Type().IsValid())
	test.True(d.dB.Dynamic.Type() == meta.ResolveClass[dD]())

	// without a tag only static routes apply
	plain := &dD{}
	test.Nil(meta.Upcast[dC](&plain.dB))
	test.True(meta.Upcast[dB](plain) == &plain.dB)
}

func TestNonVirtualDiamond(t *testing.T) {
	test := require.New(t)
	setup()

	d := &nD{}
	d.nB.Va, d.nC.Va = 1, 2
	meta.SetDynamicType(d)

	_, err := meta.TryUpcast[nA](d)
	test.ErrorIs(err, meta.ErrAmbiguousBase)
	test.Nil(meta.Upcast[nA](d))

	viaB := meta.Upcast[nA](meta.Upcast[nB](d))
	test.True(viaB == &d.nB.nA)
	test.Equal(1, viaB.Va)

	viaC := meta.Upcast[nA](meta.Upcast[nC](d))
	test.True(viaC == &d.nC.nA)
	test.Equal(2, viaC.Va)

	// both nA sub-objects are tagged with the complete object
	test.True(meta.Upcast[nC](&d.nB) == &d.nC)
	test.True(meta.Upcast[nB](&d.nC.nA) == &d.nB)
	test.True(d.nB.nA.Dynamic.Type() == meta.ResolveClass[nD]())
	test.True(d.nC.nA.Dynamic.Type() == meta.ResolveClass[nD]())

	test.False(meta.ResolveClass[nA]().IsVirtualBaseOf(meta.ResolveClass[nD]()))
}

func TestSelfAndUnrelatedCast(t *testing.T) {
	test := require.New(t)
	setup()

	b := &dB{}
	test.True(meta.Upcast[dB](b) == b)
	test.True(meta.Upcast[dB, meta.Const[dB]]((*meta.Const[dB])(unsafe.Pointer(b))) == b)
	test.Nil(meta.Upcast[dC](b))
	test.Nil(meta.Upcast[ivec2](b))
	test.Nil(meta.Upcast[dA, dB](nil))

	_, err := meta.TryUpcast[int](b)
	test.ErrorIs(err, meta.ErrBadCast)
}

func TestDeepChainUpcast(t *testing.T) {
	test := require.New(t)
	setup()

	x := &l4{}
	x.l3.l2.l1.l0.V0 = 10
	meta.SetDynamicType(x)

	p0 := meta.Upcast[l0](x)
	test.True(p0 == &x.l3.l2.l1.l0)
	test.Equal(10, p0.V0)
	test.True(meta.Upcast[l1](x) == &x.l3.l2.l1)
	test.True(meta.Upcast[l2](x) == &x.l3.l2)
	test.True(meta.Upcast[l3](x) == &x.l3)

	// from the middle of the chain back up to the complete object
	test.True(meta.Upcast[l4](p0) == x)
	test.True(meta.Upcast[l3](&x.l3.l2.l1) == &x.l3)

	route := meta.ResolveClass[l4]()
	test.True(meta.ResolveClass[l1]().IsVirtualBaseOf(route))
	test.True(meta.ResolveClass[l0]().IsVirtualBaseOf(route))
	test.False(meta.ResolveClass[l2]().IsVirtualBaseOf(route))
	test.Equal(meta.ClassIsPolymorphic, route.Flags()&meta.ClassIsPolymorphic)
}

func TestMostDerivedType(t *testing.T) {
	test := require.New(t)
	setup()

	d := &dD{}
	meta.SetDynamicType(d)

	test.True(meta.ResolveTypeOf(&d.dB) == meta.ResolveType[*dD]())
	test.True(meta.ResolveTypeOf(&d.dC.dA) == meta.ResolveType[*dD]())
	test.True(meta.ResolveTypeOf((*meta.Const[dC])(unsafe.Pointer(&d.dC))) == meta.ResolveType[*meta.Const[dD]]())
	test.True(meta.ResolveTypeOf(&dB{}) == meta.ResolveType[*dB]())

	ref := meta.NewRef(&d.dC)
	test.True(ref.Type() == meta.ResolveType[dD]())
	test.True(ref.Data() == unsafe.Pointer(d))
	test.True(meta.AsPtr[dC](ref) == &d.dC)
	test.True(meta.ResolveTypeOf(ref) == meta.ResolveType[dD]())

	ptr := meta.NewValue(&d.dB)
	test.True(ptr.Type() == meta.ResolveType[*dD]())
	test.True(meta.As[*dD](ptr) == d)
	test.True(meta.As[*dB](ptr) == &d.dB)
	test.True(meta.As[*dC](ptr) == &d.dC)
	test.True(meta.As[*dA](ptr) == &d.dB.dA)
	test.True(meta.As[*dA](ptr.Copy()) == &d.dB.dA)
	_, err := meta.TryAs[*dA](meta.NewValue(d))
	test.ErrorIs(err, meta.ErrAmbiguousBase)

	// owned values are tagged at their own address
	v := meta.ResolveClass[dD]().Create()
	test.True(meta.AsPtr[dD](v).dB.Dynamic.Type() == meta.ResolveClass[dD]())
	c := v.Copy()
	test.True(meta.AsPtr[dD](c).dC.Dynamic.Type() == meta.ResolveClass[dD]())
}

func TestPointerKeepsSubObject(t *testing.T) {
	test := require.New(t)
	setup()

	d := &nD{}
	meta.SetDynamicType(d)

	left := meta.NewValue(&d.nB)
	right := meta.NewValue(&d.nC)
	test.True(left.Type() == meta.ResolveType[*nD]())
	test.True(right.Type() == meta.ResolveType[*nD]())

	test.True(meta.As[*nA](left) == &d.nB.nA)
	test.True(meta.As[*nA](right) == &d.nC.nA)
	test.True(meta.As[*nB](left) == &d.nB)
	test.True(meta.As[*nB](right) == &d.nB)
	test.True(meta.As[*nD](right) == d)
	test.True(meta.As[unsafe.Pointer](right) == unsafe.Pointer(&d.nC))

	_, err := meta.TryAs[*nA](meta.NewValue(d))
	test.ErrorIs(err, meta.ErrAmbiguousBase)
}

func TestDiamondDestructionOrder(t *testing.T) {
	test := require.New(t)
	setup()

	v := meta.ResolveClass[dD]().Create()
	destroyed = nil
	v.Reset()
	test.Equal([]string{"D", "C", "B", "A", "A"}, destroyed)

	destroyed = nil
	b := dB{}
	test.True(meta.ResolveClass[dB]().DestroyAt(unsafe.Pointer(&b)))
	test.Equal([]string{"B", "A"}, destroyed)
}
