package format

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSpec(t *testing.T) {
	tests := []struct {
		suffix string
		want   Spec
		ok     bool
	}{
		{"x", Spec{Specifier: SpecHex}, true},
		{"h", Spec{Specifier: SpecHex}, true},
		{"!x", Spec{Specifier: SpecHex, Flags: FlagRawFormat}, true},
		{"10", Spec{ArrayLength: "10"}, true},
		{" s8 ", Spec{Specifier: SpecUTF8String}, true},
		{"[m_size]s8b", Spec{ArrayLength: "m_size", Specifier: SpecUTF8StringNoQuotes}, true},
		{"view(simple)na", Spec{View: "simple", Flags: FlagNoAddress}, true},
		{"nvond", Spec{Flags: FlagNumericValueOnly | FlagNoDerived}, true},
		{"nax", Spec{Flags: FlagNoAddress, Specifier: SpecHex}, true},
		{"en", Spec{Specifier: SpecEnum}, true},
		{"ndzz", Spec{Flags: FlagNoDerived}, true},
		{"zz", Spec{}, false},
		{"b)", Spec{}, false},
		{"", Spec{}, false},
		{"[n", Spec{}, false},
	}

	for _, tt := range tests {
		got, ok := ParseSpec(tt.suffix)
		assert.Equal(t, tt.ok, ok, tt.suffix)
		assert.Equal(t, tt.want, got, tt.suffix)
	}
}

func TestParseExpression(t *testing.T) {
	t.Run("No comma", func(t *testing.T) {
		assert.Equal(t, Expression{Text: "m_ptr"}, ParseExpression(" m_ptr "))
	})

	t.Run("Specifier suffix", func(t *testing.T) {
		assert.Equal(t, Expression{Text: "m_ptr", Specifier: SpecHex}, ParseExpression("m_ptr,x"))
	})

	t.Run("Array length", func(t *testing.T) {
		e := ParseExpression("m_data, 10")
		assert.Equal(t, "m_data", e.Text)
		assert.Equal(t, "10", e.ArrayLength)
		assert.Equal(t, SpecNone, e.Specifier)
	})

	t.Run("Comma inside a call is rolled back", func(t *testing.T) {
		assert.Equal(t, Expression{Text: "max(a, b)"}, ParseExpression("max(a, b)"))
	})

	t.Run("Last comma wins", func(t *testing.T) {
		e := ParseExpression("f(a, b),[len]!s")
		assert.Equal(t, "f(a, b)", e.Text)
		assert.Equal(t, "len", e.ArrayLength)
		assert.Equal(t, FlagRawFormat, e.Flags)
		assert.Equal(t, SpecString, e.Specifier)
		assert.Equal(t, "f(a, b),[len]!s", e.String())
	})

	t.Run("Rewrite touches text and length", func(t *testing.T) {
		e := ParseExpression("size(),[count()]")
		e.Rewrite(strings.ToUpper)
		assert.Equal(t, "SIZE()", e.Text)
		assert.Equal(t, "COUNT()", e.ArrayLength)
	})
}

func TestParseInterpolated(t *testing.T) {
	t.Run("Escapes and spec", func(t *testing.T) {
		s, err := ParseInterpolated("a{{b}}c{x,d}")
		require.NoError(t, err)

		segs := s.Segments()
		require.Len(t, segs, 1)
		assert.Equal(t, "a{b}c", segs[0].Literal)
		require.NotNil(t, segs[0].Expr)
		assert.Equal(t, "x", segs[0].Expr.Text)
		assert.Equal(t, SpecDecimal, segs[0].Expr.Specifier)
	})

	t.Run("Trailing literal", func(t *testing.T) {
		s, err := ParseInterpolated("{{literal}} {x}")
		require.NoError(t, err)
		segs := s.Segments()
		require.Len(t, segs, 1)
		assert.Equal(t, "{literal} ", segs[0].Literal)
		assert.Equal(t, "x", segs[0].Expr.Text)

		s, err = ParseInterpolated("size={m_size} items")
		require.NoError(t, err)
		segs = s.Segments()
		require.Len(t, segs, 2)
		assert.Equal(t, "size=", segs[0].Literal)
		assert.Equal(t, " items", segs[1].Literal)
		assert.Nil(t, segs[1].Expr)
	})

	t.Run("Restartable sequence", func(t *testing.T) {
		s, err := ParseInterpolated("{a} and {b}")
		require.NoError(t, err)

		collect := func() []string {
			var out []string
			for lit, expr := range s.All() {
				out = append(out, lit+"|"+expr.Text)
			}
			return out
		}
		assert.Equal(t, []string{"|a", " and |b"}, collect())
		assert.Equal(t, collect(), collect())
	})

	t.Run("Unclosed placeholder", func(t *testing.T) {
		_, err := ParseInterpolated("size={m_size")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnclosedPlaceholder))
	})

	t.Run("Rewrite and render", func(t *testing.T) {
		s, err := ParseInterpolated("{{{n,x}}}")
		require.NoError(t, err)
		s.Rewrite(func(text string) string { return "(" + text + ")" })
		assert.Equal(t, "{{{(n),x}}}", s.String())
	})
}
