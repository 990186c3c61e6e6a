package tester

import (
	"fmt"
	"strings"
	"testing"
)

type LineTest = func(input []string) any

type FuncTest = func(input Input) any

// CheckInput runs fn for every input under testdata. A string or []string
// result is checked as text output; anything else as data.
func CheckInput(t *testing.T, testdata string, fn FuncTest) {
	runner := NewRunner(t, testdata, funcTestRunner{fn})
	runner.Run()
}

func CheckLines(t *testing.T, testdata string, lineFunc LineTest) {
	CheckInput(t, testdata, func(input Input) any {
		return lineFunc(input.Lines())
	})
}

type funcTestRunner struct {
	fn FuncTest
}

func (runner funcTestRunner) Run(input Input) (out Output) {
	output := runner.fn(input)
	switch v := output.(type) {
	case Output:
		out = v
	case string:
		out.StdOut = v
	case []string:
		out.StdOut = strings.Join(v, "\n")
	default:
		out.Data = v
		if v == nil {
			out.Error = fmt.Errorf("the test generated no output")
		}
	}
	return
}
