package format

import "strings"

// Expression is an expression together with its format suffix.
type Expression struct {
	Text        string
	ArrayLength string
	View        string
	Flags       Flags
	Specifier   Specifier
}

// ParseExpression splits raw on its last comma and parses the suffix as a
// format spec. When the suffix holds no spec marker the comma belongs to the
// expression and the whole text is kept.
func ParseExpression(raw string) Expression {
	idx := strings.LastIndexByte(raw, ',')
	if idx < 0 {
		return Expression{Text: strings.TrimSpace(raw)}
	}
	spec, ok := ParseSpec(raw[idx+1:])
	if !ok {
		return Expression{Text: strings.TrimSpace(raw)}
	}
	return Expression{
		Text:        strings.TrimSpace(raw[:idx]),
		ArrayLength: spec.ArrayLength,
		View:        spec.View,
		Flags:       spec.Flags,
		Specifier:   spec.Specifier,
	}
}

// Rewrite applies fn to every expression text, the array length included.
func (e *Expression) Rewrite(fn func(string) string) {
	e.Text = fn(e.Text)
	if e.ArrayLength != "" {
		e.ArrayLength = fn(e.ArrayLength)
	}
}

// String renders the expression back in Natvis syntax.
func (e Expression) String() string {
	var suffix strings.Builder
	if e.ArrayLength != "" {
		suffix.WriteString("[" + e.ArrayLength + "]")
	}
	if e.View != "" {
		suffix.WriteString("view(" + e.View + ")")
	}
	for _, t := range flagTokens {
		if e.Flags.Has(t.flag) {
			suffix.WriteString(t.token)
		}
	}
	if e.Specifier != SpecNone {
		for _, t := range specifierTokens {
			if t.spec == e.Specifier {
				suffix.WriteString(t.token)
				break
			}
		}
	}
	if suffix.Len() == 0 {
		return e.Text
	}
	return e.Text + "," + suffix.String()
}
