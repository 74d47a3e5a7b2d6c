package scanner

import "strings"

// ReplaceIdents rewrites free-standing identifiers in text. Identifiers inside
// string or character literals and names reached through `.`, `->` or `::`
// are left alone. repl returns the replacement and whether to apply it.
func ReplaceIdents(text string, repl func(name string) (string, bool)) string {
	var b strings.Builder
	last := 0
	i := 0
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
			for i < len(text) && isIdentPart(text[i]) {
				i++
			}
			if member, qualified := precededBy(text, start); member || qualified {
				continue
			}
			if r, ok := repl(text[start:i]); ok {
				b.WriteString(text[last:start])
				b.WriteString(r)
				last = i
			}
		default:
			i++
		}
	}
	if last == 0 {
		return text
	}
	b.WriteString(text[last:])
	return b.String()
}

// IsSimple reports whether expr is a literal or a bare identifier, i.e. cheap
// and free of side effects when evaluated more than once.
func IsSimple(expr string) bool {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return false
	}
	switch expr {
	case "true", "false", "nullptr":
		return true
	}
	c := expr[0]
	switch {
	case c == '"' || c == '\'':
		return skipLiteral(expr, 0) == len(expr)
	case isDigit(c) || (c == '-' && len(expr) > 1 && isDigit(expr[1])):
		for i := 1; i < len(expr); i++ {
			if !isIdentPart(expr[i]) && expr[i] != '.' && expr[i] != '\'' {
				return false
			}
		}
		return true
	case isIdentStart(c):
		for i := 1; i < len(expr); i++ {
			if !isIdentPart(expr[i]) {
				return false
			}
		}
		return true
	}
	return false
}
