package meta_test

import (
	"errors"
	"fmt"

	"axlab.dev/meta/pkg/meta"
)

type ivec2 struct {
	X, Y int
}

func newIvec2(x, y int) ivec2 {
	return ivec2{x, y}
}

func (v ivec2) Length2() int {
	return v.X*v.X + v.Y*v.Y
}

func (v *ivec2) Scale(k int) {
	v.X *= k
	v.Y *= k
}

type align uint8

const (
	alignLeft align = iota
	alignRight
	alignCenter
)

type account struct {
	ID      meta.Const[int]
	Balance int
}

func (a *account) Deposit(n int) error {
	if n <= 0 {
		return fmt.Errorf("invalid deposit: %d", n)
	}
	a.Balance += n
	return nil
}

func (a account) Total() int {
	return a.Balance
}

func clearAccount(a meta.LRef[account]) {
	a.Ptr().Balance = 0
}

// B : A, C : virtual A, D : B, C
type dA struct {
	meta.Dynamic
	Va int
}

type dB struct {
	dA
	Vb int
}

type dC struct {
	Vc int
	dA
}

type dD struct {
	dB
	dC
	Vd int
}

// non-virtual diamond
type nA struct {
	meta.Dynamic
	Va int
}

type nB struct {
	nA
	Vb int
}

type nC struct {
	Vc int
	nA
}

type nD struct {
	nB
	nC
}

// L4 : L3 : L2 : virtual L1 : L0
type l0 struct {
	meta.Dynamic
	V0 int
}

type l1 struct {
	l0
	V1 int
}

type l2 struct {
	V2 int
	l1
}

type l3 struct {
	l2
	V3 int
}

type l4 struct {
	V4 int
	l3
}

type tracked struct {
	ID int
}

type handle struct {
	fd int
}

type token struct {
	s string
}

type pinned struct {
	n int
}

type fragile struct {
	n int
}

func newFragile(n int) (fragile, error) {
	if n < 0 {
		panic("negative fragile")
	}
	if n == 0 {
		return fragile{}, errors.New("zero fragile")
	}
	return fragile{n}, nil
}

type bomb struct{}

var (
	counters struct {
		ctors, dtors int
	}
	destroyed []string
)

var fixtureMap *meta.TypeMap

// setup binds the test types into the process-wide map, again after a Reset.
func setup() {
	if m := meta.Types(); fixtureMap != m {
		fixtureMap = m
		bindFixtures(m)
	}
}

func bindFixtures(m *meta.TypeMap) {
	meta.BindClassIn[ivec2](m).
		Constructor(func() ivec2 { return ivec2{} }).
		Constructor(newIvec2, meta.Arguments("x", "y")).
		Field("x", "X").
		Field("y", "Y").
		Method("length2", ivec2.Length2).
		Method("scale", (*ivec2).Scale).
		Function("zero", func() ivec2 { return ivec2{} })

	meta.BindEnumIn[align](m).
		Evalue("left", alignLeft).
		Evalue("right", alignRight).
		Evalue("center", alignCenter).
		Evalue("middle", alignCenter)

	meta.BindClassIn[account](m).
		Field("id", "ID").
		Field("balance", "Balance").
		Field("balance_ref", "Balance", meta.WithPolicy(meta.AsReferenceWrapper)).
		Field("balance_ptr", "Balance", meta.WithPolicy(meta.AsPointer)).
		Member("balance_ro", func(a *account) *int { return &a.Balance }, meta.Readonly()).
		Method("deposit", (*account).Deposit).
		Method("total", account.Total).
		Method("clear", clearAccount)

	meta.BindClassIn[dA](m).
		Field("va", "Va").
		Destructor(func(*dA) { destroyed = append(destroyed, "A") })
	meta.BindClassIn[dB](m).
		Base("dA").
		Field("vb", "Vb").
		Destructor(func(*dB) { destroyed = append(destroyed, "B") })
	meta.BindClassIn[dC](m).
		VirtualBase(func(c *dC) *dA { return &c.dA }).
		Field("vc", "Vc").
		Destructor(func(*dC) { destroyed = append(destroyed, "C") })
	meta.BindClassIn[dD](m).
		Base("dB").
		Base("dC").
		Field("vd", "Vd").
		Destructor(func(*dD) { destroyed = append(destroyed, "D") })

	meta.BindClassIn[nA](m)
	meta.BindClassIn[nB](m).Base("nA")
	meta.BindClassIn[nC](m).Base("nA")
	meta.BindClassIn[nD](m).Base("nB").Base("nC")

	meta.BindClassIn[l1](m).Base("l0")
	meta.BindClassIn[l2](m).VirtualBase("l1")
	meta.BindClassIn[l3](m).Base("l2")
	meta.BindClassIn[l4](m).Base("l3")

	meta.BindClassIn[tracked](m).
		Constructor(func() tracked {
			counters.ctors++
			return tracked{ID: counters.ctors}
		}).
		Destructor(func(*tracked) { counters.dtors++ })

	meta.BindClassIn[handle](m).NonCopyable()
	meta.BindClassIn[token](m).NonMovable()
	meta.BindClassIn[pinned](m).NonCopyable().NonMovable()
	meta.BindClassIn[fragile](m).Constructor(newFragile)
	meta.BindClassIn[bomb](m).Destructor(func(*bomb) { panic("bomb") })
}
