// Package demo registers the example types browsed by metainfo: a small
// vector class, an enum with an alias, a polymorphic shape hierarchy and a few
// scopes of free functions.
package demo

import (
	"errors"
	"math"
	"strings"

	"axlab.dev/meta/pkg/meta"
)

type Ivec2 struct {
	X, Y int
}

func NewIvec2(x, y int) Ivec2 {
	return Ivec2{x, y}
}

func (v Ivec2) Length2() int {
	return v.X*v.X + v.Y*v.Y
}

func (v *Ivec2) Add(other meta.CLRef[Ivec2]) {
	o := other.Get()
	v.X += o.X
	v.Y += o.Y
}

type Align uint8

const (
	AlignLeft Align = iota
	AlignRight
	AlignCenter
)

// Shape is the polymorphic root of the shape hierarchy.
type Shape struct {
	meta.Dynamic
	Label string
}

func (s Shape) Name() string {
	return s.Label
}

type Circle struct {
	Shape
	Radius float64
}

func NewCircle(radius float64) Circle {
	return Circle{Shape{Label: "circle"}, radius}
}

func (c Circle) Area() float64 {
	return math.Pi * c.Radius * c.Radius
}

type Rect struct {
	Shape
	W, H float64
}

func NewRect(w, h float64) Rect {
	return Rect{Shape{Label: "rect"}, w, h}
}

func (r Rect) Area() float64 {
	return r.W * r.H
}

type Square struct {
	Rect
}

func NewSquare(side float64) Square {
	return Square{Rect{Shape{Label: "square"}, side, side}}
}

// Describe returns the most-derived type of a shape.
func Describe(s *meta.Const[Shape]) string {
	return meta.ResolveTypeOf(s).AsPointer().DataType().String()
}

var pi = meta.ConstOf(math.Pi)

// Register binds the demo types and scopes into m. Binding twice is a no-op.
func Register(m *meta.TypeMap) {
	if m.ResolveScope("math").IsValid() {
		return
	}

	meta.BindClassIn[Ivec2](m).
		Constructor(func() Ivec2 { return Ivec2{} }).
		Constructor(NewIvec2, meta.Arguments("x", "y")).
		Field("x", "X").
		Field("y", "Y").
		Method("length2", Ivec2.Length2).
		Method("add", (*Ivec2).Add, meta.Arguments("other"))

	meta.BindEnumIn[Align](m).
		Evalue("left", AlignLeft).
		Evalue("right", AlignRight).
		Evalue("center", AlignCenter).
		Evalue("middle", AlignCenter)

	meta.BindClassIn[Shape](m).
		Field("label", "Label").
		Method("name", Shape.Name)
	meta.BindClassIn[Circle](m).
		Base("Shape").
		Constructor(NewCircle, meta.Arguments("radius")).
		Field("radius", "Radius").
		Method("area", Circle.Area)
	meta.BindClassIn[Rect](m).
		Base("Shape").
		Constructor(NewRect, meta.Arguments("w", "h")).
		Field("w", "W").
		Field("h", "H").
		Method("area", Rect.Area)
	meta.BindClassIn[Square](m).
		Base("Rect").
		Constructor(NewSquare, meta.Arguments("side"))

	m.BindScope("math").
		Function("add", func(a, b int) int { return a + b }, meta.Arguments("a", "b")).
		Function("add", func(a, b float64) float64 { return a + b }, meta.Arguments("a", "b")).
		Function("div", func(a, b int) (int, error) {
			if b == 0 {
				return 0, errors.New("division by zero")
			}
			return a / b, nil
		}, meta.Arguments("a", "b")).
		Variable("pi", &pi).
		Typedef("real", m.ResolveOf(0.0))

	m.BindScope("text").
		Function("justify", justify, meta.Arguments("text", "width", "align"))

	m.BindScope("shapes").
		Function("describe", Describe, meta.Arguments("shape"))
}

func justify(text string, width int, align Align) string {
	pad := width - len(text)
	if pad <= 0 {
		return text
	}
	switch align {
	case AlignRight:
		return strings.Repeat(".", pad) + text
	case AlignCenter:
		left := pad / 2
		return strings.Repeat(".", left) + text + strings.Repeat(".", pad-left)
	default:
		return text + strings.Repeat(".", pad)
	}
}
