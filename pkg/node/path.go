package node

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/pay-theory/dynaquery/pkg/errors"
)

// PathLexer splits an attribute path into names, dots and list brackets.
var PathLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Dot", Pattern: `\.`},
	{Name: "LBracket", Pattern: `\[`},
	{Name: "RBracket", Pattern: `\]`},
	{Name: "Name", Pattern: `[^.\[\]]+`},
})

// rawPath is the parse tree of a path such as "a.b[2].c".
type rawPath struct {
	Head     string        `parser:"@Name"`
	Segments []*rawSegment `parser:"@@*"`
}

type rawSegment struct {
	Field *string `parser:"  \".\" @Name"`
	Index *string `parser:"| \"[\" @Name \"]\""`
}

var pathParser = participle.MustBuild[rawPath](
	participle.Lexer(PathLexer),
)

// Segment is one step of an attribute path: a map key or a list index.
type Segment struct {
	Name    string
	Index   int
	IsIndex bool
}

// Path is a parsed attribute path.
type Path []Segment

// ParsePath tokenizes a dot/bracket attribute path.
func ParsePath(s string) (Path, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("%w: empty path", errors.ErrInvalidAttributePath)
	}

	raw, err := pathParser.ParseString("", s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", errors.ErrInvalidAttributePath, s, err)
	}

	path := make(Path, 0, len(raw.Segments)+1)
	path = append(path, Segment{Name: raw.Head})
	for _, seg := range raw.Segments {
		if seg.Field != nil {
			path = append(path, Segment{Name: *seg.Field})
			continue
		}
		idx, err := strconv.Atoi(*seg.Index)
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("%w: %q: list index %q is not a non-negative integer",
				errors.ErrInvalidAttributePath, s, *seg.Index)
		}
		path = append(path, Segment{Index: idx, IsIndex: true})
	}

	return path, nil
}

// String renders the path back into dot/bracket form.
func (p Path) String() string {
	var sb strings.Builder
	for i, seg := range p {
		switch {
		case seg.IsIndex:
			sb.WriteString("[" + strconv.Itoa(seg.Index) + "]")
		case i > 0:
			sb.WriteString("." + seg.Name)
		default:
			sb.WriteString(seg.Name)
		}
	}
	return sb.String()
}
