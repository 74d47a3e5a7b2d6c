package scanner

import (
	"iter"
	"strings"
)

// Span is a half-open byte range [Start, End) of the scanned text.
type Span struct {
	Start int
	End   int
}

// Call describes one call-like occurrence `name(args...)` in an expression.
type Call struct {
	Name       string // name as written, including any `::` qualifiers
	Start      int    // offset of the first byte of the name
	ArgsStart  int    // offset just past the opening parenthesis
	End        int    // offset just past the closing parenthesis, len(text) if unterminated
	Args       []Span // raw argument slices, untrimmed
	Member     bool   // called through `.` or `->`
	Qualified  bool   // name has a `::` qualifier
	Terminated bool
}

// Arity is the number of arguments at the call site.
func (c Call) Arity() int {
	return len(c.Args)
}

// Arg returns the trimmed text of argument i.
func (c Call) Arg(text string, i int) string {
	a := c.Args[i]
	return strings.TrimSpace(text[a.Start:a.End])
}

// ArgTexts returns all trimmed argument texts.
func (c Call) ArgTexts(text string) []string {
	out := make([]string, len(c.Args))
	for i := range c.Args {
		out[i] = c.Arg(text, i)
	}
	return out
}

// Malformed reports an unterminated argument list or an empty argument slot.
func (c Call) Malformed(text string) bool {
	if !c.Terminated {
		return true
	}
	for i := range c.Args {
		if c.Arg(text, i) == "" {
			return true
		}
	}
	return false
}

// Scanner locates call sites in expression text.
type Scanner interface {
	// Next returns the first call whose name starts at or after from.
	Next(text string, from int) (Call, bool)
}

// Lexical is a Scanner working on C++ tokens without building a syntax tree.
type Lexical struct{}

// New returns the default lexical scanner.
func New() *Lexical {
	return &Lexical{}
}

var keywords = map[string]bool{
	"if": true, "while": true, "for": true, "switch": true, "return": true,
	"sizeof": true, "alignof": true, "decltype": true, "typeid": true, "noexcept": true,
	"new": true, "delete": true, "throw": true, "case": true, "catch": true,
	"int": true, "char": true, "short": true, "long": true, "float": true, "double": true,
	"bool": true, "unsigned": true, "signed": true, "void": true, "auto": true,
}

func (l *Lexical) Next(text string, from int) (Call, bool) {
	i := max(from, 0)
	for i < len(text) {
		c := text[i]
		switch {
		case c == '"' || c == '\'':
			i = skipLiteral(text, i)
		case isDigit(c):
			for i < len(text) && (isIdentPart(text[i]) || text[i] == '.') {
				i++
			}
		case isIdentStart(c):
			start := i
			end := scanQualifiedName(text, i)
			name := text[start:end]
			k := skipSpaces(text, end)
			if k < len(text) && text[k] == '(' && !keywords[name] {
				call := Call{
					Name:      name,
					Start:     start,
					ArgsStart: k + 1,
					Qualified: strings.Contains(name, "::"),
				}
				member, qualified := precededBy(text, start)
				call.Member = member
				call.Qualified = call.Qualified || qualified
				call.Args, call.End, call.Terminated = scanArgs(text, k+1)
				return call, true
			}
			i = end
		default:
			i++
		}
	}
	return Call{}, false
}

// Calls iterates over every call in text, descending into argument lists.
func Calls(s Scanner, text string) iter.Seq[Call] {
	return func(yield func(Call) bool) {
		pos := 0
		for {
			call, ok := s.Next(text, pos)
			if !ok {
				return
			}
			if !yield(call) {
				return
			}
			pos = call.ArgsStart
		}
	}
}

func scanQualifiedName(text string, i int) int {
	for {
		for i < len(text) && isIdentPart(text[i]) {
			i++
		}
		if i+2 < len(text) && text[i] == ':' && text[i+1] == ':' && isIdentStart(text[i+2]) {
			i += 2
			continue
		}
		return i
	}
}

// scanArgs splits the argument list that starts just after '(' at top-level commas.
func scanArgs(text string, i int) ([]Span, int, bool) {
	var args []Span
	depth := 0
	argStart := i
	for i < len(text) {
		switch c := text[i]; c {
		case '"', '\'':
			i = skipLiteral(text, i)
			continue
		case '(', '[', '{':
			depth++
		case ']', '}':
			if depth > 0 {
				depth--
			}
		case ')':
			if depth == 0 {
				args = appendArg(args, text, argStart, i)
				return args, i + 1, true
			}
			depth--
		case ',':
			if depth == 0 {
				args = append(args, Span{Start: argStart, End: i})
				argStart = i + 1
			}
		}
		i++
	}
	args = appendArg(args, text, argStart, len(text))
	return args, len(text), false
}

// appendArg adds the final slice, which is dropped for an empty `()` list.
func appendArg(args []Span, text string, start, end int) []Span {
	if len(args) == 0 && strings.TrimSpace(text[start:end]) == "" {
		return args
	}
	return append(args, Span{Start: start, End: end})
}

func precededBy(text string, start int) (member, qualified bool) {
	j := start - 1
	for j >= 0 && isSpace(text[j]) {
		j--
	}
	if j < 0 {
		return false, false
	}
	switch {
	case text[j] == '.':
		return true, false
	case text[j] == '>' && j > 0 && text[j-1] == '-':
		return true, false
	case text[j] == ':' && j > 0 && text[j-1] == ':':
		return false, true
	}
	return false, false
}

func skipLiteral(text string, i int) int {
	quote := text[i]
	i++
	for i < len(text) && text[i] != quote {
		if text[i] == '\\' {
			i++
		}
		i++
	}
	return min(i+1, len(text))
}

func skipSpaces(text string, i int) int {
	for i < len(text) && isSpace(text[i]) {
		i++
	}
	return i
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
