// Package typename parses Natvis type name patterns such as
// `std::vector<*,*>` and matches them against concrete type names.
package typename

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is wrapped by every parse error.
var ErrInvalid = errors.New("invalid type name")

// Template is a parsed type name. A wildcard template matches any type.
type Template struct {
	Wildcard bool
	Segments []Segment
	Suffix   string // pointer, reference, array and cv suffix, e.g. "const*"
}

// Segment is one `::`-separated component with optional template arguments.
type Segment struct {
	Name    string
	HasArgs bool
	Args    []*Template
}

// Parse parses a type name pattern.
func Parse(raw string) (*Template, error) {
	p := &parser{raw: raw, toks: tokenize(raw)}
	if len(p.toks) == 0 {
		return nil, fmt.Errorf("%w: empty name", ErrInvalid)
	}
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, p.errorf("unexpected %q", p.toks[p.pos])
	}
	return t, nil
}

// MustParse is like Parse but panics on error.
func MustParse(raw string) *Template {
	t, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return t
}

// Match reports whether the concrete type c matches the pattern t. A
// wildcard in the last argument position also matches any further arguments.
func (t *Template) Match(c *Template) bool {
	if t.Wildcard {
		return true
	}
	if c.Wildcard || len(t.Segments) != len(c.Segments) || t.Suffix != c.Suffix {
		return false
	}
	for i, seg := range t.Segments {
		other := c.Segments[i]
		if seg.Name != other.Name || seg.HasArgs != other.HasArgs {
			return false
		}
		if !matchArgs(seg.Args, other.Args) {
			return false
		}
	}
	return true
}

// MatchString parses concrete and matches it.
func (t *Template) MatchString(concrete string) bool {
	c, err := Parse(concrete)
	if err != nil {
		return false
	}
	return t.Match(c)
}

func matchArgs(pattern, concrete []*Template) bool {
	for i, p := range pattern {
		if i == len(pattern)-1 && p.Wildcard {
			return len(concrete) > i
		}
		if i >= len(concrete) || !p.Match(concrete[i]) {
			return false
		}
	}
	return len(pattern) == len(concrete)
}

// String renders the canonical form of the name.
func (t *Template) String() string {
	if t.Wildcard {
		return "*"
	}
	var b strings.Builder
	for i, seg := range t.Segments {
		if i > 0 {
			b.WriteString("::")
		}
		b.WriteString(seg.Name)
		if seg.HasArgs {
			b.WriteByte('<')
			for j, arg := range seg.Args {
				if j > 0 {
					b.WriteByte(',')
				}
				b.WriteString(arg.String())
			}
			b.WriteByte('>')
		}
	}
	if t.Suffix != "" {
		if strings.HasPrefix(t.Suffix, "const") || strings.HasPrefix(t.Suffix, "volatile") {
			b.WriteByte(' ')
		}
		b.WriteString(t.Suffix)
	}
	return b.String()
}
