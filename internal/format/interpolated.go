package format

import (
	"errors"
	"fmt"
	"iter"
	"strings"
)

// ErrUnclosedPlaceholder is returned for a `{` without a matching `}`.
var ErrUnclosedPlaceholder = errors.New("unclosed placeholder")

// Segment is a literal text followed by an optional expression.
type Segment struct {
	Literal string
	Expr    *Expression
}

// InterpolatedString is a parsed display string such as `size={m_size}`.
type InterpolatedString struct {
	Raw      string
	segments []Segment
}

// ParseInterpolated scans raw once from left to right. `{{` and `}}` stand
// for literal braces; every other `{` opens a placeholder closed by the next
// `}`. A trailing literal is emitted as a segment without expression.
func ParseInterpolated(raw string) (InterpolatedString, error) {
	s := InterpolatedString{Raw: raw}
	var lit strings.Builder
	for i := 0; i < len(raw); {
		c := raw[i]
		switch {
		case c == '{' && i+1 < len(raw) && raw[i+1] == '{':
			lit.WriteByte('{')
			i += 2
		case c == '}' && i+1 < len(raw) && raw[i+1] == '}':
			lit.WriteByte('}')
			i += 2
		case c == '{':
			end := strings.IndexByte(raw[i+1:], '}')
			if end < 0 {
				return InterpolatedString{}, fmt.Errorf("%w at offset %d in %q", ErrUnclosedPlaceholder, i, raw)
			}
			expr := ParseExpression(raw[i+1 : i+1+end])
			s.segments = append(s.segments, Segment{Literal: lit.String(), Expr: &expr})
			lit.Reset()
			i += end + 2
		default:
			lit.WriteByte(c)
			i++
		}
	}
	if lit.Len() > 0 {
		s.segments = append(s.segments, Segment{Literal: lit.String()})
	}
	return s, nil
}

// All yields (literal, expression) pairs; the expression is nil for a
// trailing literal. The sequence can be ranged over any number of times.
func (s InterpolatedString) All() iter.Seq2[string, *Expression] {
	return func(yield func(string, *Expression) bool) {
		for _, seg := range s.segments {
			if !yield(seg.Literal, seg.Expr) {
				return
			}
		}
	}
}

// Segments returns a copy of the parsed segments.
func (s InterpolatedString) Segments() []Segment {
	out := make([]Segment, len(s.segments))
	copy(out, s.segments)
	return out
}

// Expressions yields the placeholder expressions in order.
func (s InterpolatedString) Expressions() iter.Seq[*Expression] {
	return func(yield func(*Expression) bool) {
		for _, seg := range s.segments {
			if seg.Expr != nil && !yield(seg.Expr) {
				return
			}
		}
	}
}

// Rewrite applies fn to every placeholder expression.
func (s *InterpolatedString) Rewrite(fn func(string) string) {
	for expr := range s.Expressions() {
		expr.Rewrite(fn)
	}
}

// String renders the segments back in Natvis syntax.
func (s InterpolatedString) String() string {
	var b strings.Builder
	escaper := strings.NewReplacer("{", "{{", "}", "}}")
	for lit, expr := range s.All() {
		b.WriteString(escaper.Replace(lit))
		if expr != nil {
			b.WriteString("{" + expr.String() + "}")
		}
	}
	return b.String()
}
