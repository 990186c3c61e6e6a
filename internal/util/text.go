package util

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	reLineBreak = regexp.MustCompile(`\r\n?|\n`)
	reTabIndent = regexp.MustCompile(`^[\t]+`)
)

func Lines(input string) []string {
	return reLineBreak.Split(input, -1)
}

func TrimLines(lines []string) []string {
	for i, it := range lines {
		lines[i] = strings.TrimRightFunc(it, unicode.IsSpace)
	}

	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	return lines
}

// Text normalizes an indented multi-line literal: line breaks become `\n`,
// leading tabs become four spaces, and the indentation of the first non-blank
// line is removed from every line.
func Text(input string) string {
	out := make([]string, 0)
	pre := ""
	for _, it := range TrimLines(Lines(input)) {
		it = reTabIndent.ReplaceAllStringFunc(it, func(input string) string {
			return strings.ReplaceAll(input, "\t", "    ")
		})
		if len(out) == 0 {
			if strings.TrimSpace(it) == "" {
				continue
			}

			indent := len(it) - len(strings.TrimLeftFunc(it, unicode.IsSpace))
			pre = it[:indent]
		}

		out = append(out, strings.TrimPrefix(it, pre))
	}
	return strings.Join(out, "\n")
}

// Fields splits a command line on spaces, keeping double-quoted text together
// and unquoting it.
func Fields(line string) (out []string, ok bool) {
	cur := strings.Builder{}
	quoted, has := false, false
	for _, chr := range line {
		switch {
		case chr == '"':
			quoted, has = !quoted, true
		case unicode.IsSpace(chr) && !quoted:
			if has {
				out = append(out, cur.String())
				cur.Reset()
				has = false
			}
		default:
			cur.WriteRune(chr)
			has = true
		}
	}
	if has {
		out = append(out, cur.String())
	}
	return out, !quoted
}
