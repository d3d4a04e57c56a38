package expr

import (
	"strconv"
	"strings"

	"github.com/pay-theory/dynaquery/pkg/node"
	"github.com/pay-theory/dynaquery/pkg/validation"
)

// Placeholder prefixes.
const (
	NamePrefix  = "#n"
	ValuePrefix = ":v"
)

// Allocator hands out attribute name and value placeholders for one
// compiled command. Tokens are numbered from zero and never reused, so the
// same attribute or literal appearing twice gets two tokens.
//
// An Allocator must not be shared between commands.
type Allocator struct {
	names  map[string]string
	values map[string]any

	nameCounter  int
	valueCounter int
}

// NewAllocator creates an empty allocator
func NewAllocator() *Allocator {
	return &Allocator{
		names:  make(map[string]string),
		values: make(map[string]any),
	}
}

// Name allocates a placeholder for a single attribute name. Every name goes
// through a placeholder, reserved word or not.
func (a *Allocator) Name(attr string) string {
	placeholder := NamePrefix + strconv.Itoa(a.nameCounter)
	a.nameCounter++
	a.names[placeholder] = attr
	return placeholder
}

// Value allocates a placeholder for a literal. The literal is stored as is.
func (a *Allocator) Value(v any) string {
	placeholder := ValuePrefix + strconv.Itoa(a.valueCounter)
	a.valueCounter++
	a.values[placeholder] = v
	return placeholder
}

// Path parses an attribute path and allocates one name placeholder per map
// key segment. List indexes stay inline.
func (a *Allocator) Path(path string) (string, error) {
	parsed, err := node.ParsePath(path)
	if err != nil {
		return "", err
	}
	if err := validation.ValidateDepth(path, len(parsed)); err != nil {
		return "", err
	}

	var sb strings.Builder
	for i, seg := range parsed {
		if seg.IsIndex {
			sb.WriteString("[" + strconv.Itoa(seg.Index) + "]")
			continue
		}
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(a.Name(seg.Name))
	}
	return sb.String(), nil
}

// Names returns placeholder to attribute name mappings, or nil if none were
// allocated.
func (a *Allocator) Names() map[string]string {
	if len(a.names) == 0 {
		return nil
	}
	out := make(map[string]string, len(a.names))
	for k, v := range a.names {
		out[k] = v
	}
	return out
}

// Values returns placeholder to literal mappings, or nil if none were
// allocated.
func (a *Allocator) Values() map[string]any {
	if len(a.values) == 0 {
		return nil
	}
	out := make(map[string]any, len(a.values))
	for k, v := range a.values {
		out[k] = v
	}
	return out
}
