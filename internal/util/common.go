package util

import (
	"fmt"
	"os"
	"regexp"
)

// NoError exits the process with a fatal error message. Only for commands;
// library code uses Check.
func NoError(err error, msg string) {
	if err != nil {
		if msg != "" {
			fmt.Fprintf(os.Stderr, "\nfatal error: %s - %v\n\n", msg, err)
		} else {
			fmt.Fprintf(os.Stderr, "\nfatal error: %v\n\n", err)
		}
		os.Exit(3)
	}
}

// Check panics if err is not nil. Used for invariants that only break on a
// programming error.
func Check(err error, msg string) {
	if err != nil {
		if msg != "" {
			panic(fmt.Sprintf("%s - %v", msg, err))
		}
		panic(err)
	}
}

// MatchesPattern matches input against a case-insensitive glob pattern.
func MatchesPattern(input, pattern string) bool {
	re := regexp.MustCompile(RegexpIgnoreCase + "^(" + GlobRegex(pattern) + ")$")
	return re.MatchString(input)
}

func Try[T any](input T, err error) T {
	NoError(err, "")
	return input
}

func Assert(cond bool, msgAndArgs ...interface{}) {
	if !cond {
		msg := fmt.Sprint(msgAndArgs...)
		if msg == "" {
			msg = "assertion failed"
		}
		panic(msg)
	}
}

type msgWithArgs struct {
	msg  string
	args []any
}

func (m msgWithArgs) String() string {
	if len(m.args) == 0 {
		return m.msg
	}
	return fmt.Sprintf(m.msg, m.args...)
}

// Msg formats lazily, so an assertion only pays for its message on failure.
func Msg(msg string, args ...any) fmt.Stringer {
	return msgWithArgs{msg, args}
}
