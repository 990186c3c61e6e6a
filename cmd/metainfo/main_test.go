package main

import (
	"strings"
	"testing"

	"axlab.dev/meta/internal/demo"
	"axlab.dev/meta/internal/tester"
	"axlab.dev/meta/internal/util"
	"axlab.dev/meta/pkg/meta"
	"github.com/stretchr/testify/require"
)

func setup() *meta.TypeMap {
	types := meta.Types()
	demo.Register(types)
	return types
}

func TestShell(t *testing.T) {
	tester.CheckLines(t, "testdata/shell", runLines)
}

func TestDump(t *testing.T) {
	tester.CheckInput(t, "testdata/dump", func(input tester.Input) any {
		var args struct {
			Types  string `yaml:"types"`
			Scopes string `yaml:"scopes"`
		}
		input.Yaml(&args)
		return buildReport(setup(), args.Types, args.Scopes)
	})
}

func TestSessionErrors(t *testing.T) {
	test := require.New(t)
	s := newSession(setup(), &strings.Builder{})

	test.EqualError(s.Run(`call "math.add 1`), "unterminated quote")
	test.NoError(s.Run("   "))
	test.EqualError(s.Run("frobnicate"), "unknown command `frobnicate`")
	test.EqualError(s.Run("let v = new Ivec2"), "usage: let $NAME = COMMAND...")
	test.EqualError(s.Run("get $nope x"), "undefined variable `$nope`")
	test.EqualError(s.Run("new Nope"), "no class `Nope`")
	test.EqualError(s.Run("call add 1 2"), "invalid target `add`, expected OWNER.NAME")

	test.NoError(s.Run("let $n = call math.add 1 2"))
	test.EqualError(s.Run("get $n x"), "`$n` holds a number, not a class object")

	test.NoError(s.Run("let $v = new Ivec2 1 2"))
	test.EqualError(s.Run("get $v z"), "no member `z` in `demo.Ivec2`")
	test.ErrorIs(s.Run("method $v length2 1"), meta.ErrNoViableOverload)
}

func TestSessionPointers(t *testing.T) {
	test := require.New(t)
	out := &strings.Builder{}
	s := newSession(setup(), out)

	test.NoError(s.Run("let $v = new Ivec2 1 2"))
	test.NoError(s.Run("let $p = addr $v"))
	test.Equal("$v = <demo.Ivec2>({X:1 Y:2})\n$p = <*demo.Ivec2>(&{X:1 Y:2})\n", out.String())
	out.Reset()

	// writes through the pointer reach the variable
	test.NoError(s.Run("set $p x 5"))
	test.NoError(s.Run("get $v x"))
	test.NoError(s.Run("method $p length2"))
	test.Equal("<int>(5)\n<int>(29)\n", out.String())

	test.EqualError(s.Run("addr $missing"), "undefined variable `$missing`")
}

func TestComplete(t *testing.T) {
	test := require.New(t)
	s := newSession(setup(), &strings.Builder{})
	s.vars["vec"] = meta.NewValue(demo.NewIvec2(1, 2))

	test.Equal([]string{"method"}, s.complete("m"))
	test.Equal([]string{"call math"}, s.complete("call ma"))
	test.Equal([]string{"method $vec"}, s.complete("method $v"))
	test.Equal([]string{"new Ivec2"}, s.complete("new Iv"))
	test.Empty(s.complete("zz"))
}

// Echoes each input line followed by its output. Errors are reported by
// their first line.
func runLines(lines []string) any {
	var out []string
	buf := &strings.Builder{}
	s := newSession(setup(), buf)
	for _, line := range lines {
		out = append(out, "> "+line)
		err := s.Run(line)
		if buf.Len() > 0 {
			out = append(out, util.Lines(strings.TrimSuffix(buf.String(), "\n"))...)
			buf.Reset()
		}
		if err != nil {
			msg, _, _ := strings.Cut(err.Error(), "\n")
			out = append(out, "error: "+msg)
		}
	}
	return out
}
