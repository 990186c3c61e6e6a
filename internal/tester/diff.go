package tester

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"gopkg.in/yaml.v3"
)

// Block of a line diff. Kind is 0 for lines common to both sides, negative
// for lines only in the source, and positive for lines only in the
// destination. Src and Dst are the starting line indexes on each side.
type Block struct {
	Kind int
	Src  int
	Dst  int
	Len  int
}

type Diff struct {
	blocks []Block
}

func (diff Diff) Empty() bool {
	for _, it := range diff.blocks {
		if it.Kind != 0 {
			return false
		}
	}
	return true
}

func (diff Diff) Blocks() []Block {
	return diff.blocks
}

// Compare diffs the src lines against dst.
func Compare(src, dst []string) Diff {
	var out Diff
	matcher := difflib.NewMatcher(src, dst)
	for _, op := range matcher.GetOpCodes() {
		switch op.Tag {
		case 'e':
			out.blocks = append(out.blocks, Block{Kind: 0, Src: op.I1, Dst: op.J1, Len: op.I2 - op.I1})
		case 'd':
			out.blocks = append(out.blocks, Block{Kind: -1, Src: op.I1, Dst: op.J1, Len: op.I2 - op.I1})
		case 'i':
			out.blocks = append(out.blocks, Block{Kind: +1, Src: op.I1, Dst: op.J1, Len: op.J2 - op.J1})
		case 'r':
			out.blocks = append(out.blocks,
				Block{Kind: -1, Src: op.I1, Dst: op.J1, Len: op.I2 - op.I1},
				Block{Kind: +1, Src: op.I2, Dst: op.J1, Len: op.J2 - op.J1})
		}
	}
	return out
}

func yamlDecode(text string, out any) error {
	return yaml.NewDecoder(strings.NewReader(text)).Decode(out)
}
