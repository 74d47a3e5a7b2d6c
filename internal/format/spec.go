// Package format parses Natvis expressions carrying a format suffix
// (`expr,spec`) and interpolated display strings (`text {expr} text`).
package format

import (
	"strings"
)

// Specifier is a Natvis format specifier such as `x` or `s8`.
type Specifier int

const (
	SpecNone Specifier = iota
	SpecDecimal
	SpecOctal
	SpecHex
	SpecHexUpper
	SpecHexNoPrefix
	SpecHexUpperNoPrefix
	SpecBinary
	SpecBinaryNoPrefix
	SpecScientific
	SpecGeneral
	SpecChar
	SpecString
	SpecStringNoQuotes
	SpecUTF8String
	SpecUTF8StringNoQuotes
	SpecWideString
	SpecWideStringNoQuotes
	SpecUTF32String
	SpecUTF32StringNoQuotes
	SpecBSTR
	SpecEnvironment
	SpecEnum
	SpecHeapArray
	SpecWindowClass
	SpecWindowMessage
	SpecHResult
)

// specifierTokens lists canonical tokens before their aliases.
var specifierTokens = []struct {
	token string
	spec  Specifier
}{
	{"d", SpecDecimal},
	{"o", SpecOctal},
	{"x", SpecHex},
	{"h", SpecHex},
	{"X", SpecHexUpper},
	{"H", SpecHexUpper},
	{"xb", SpecHexNoPrefix},
	{"hb", SpecHexNoPrefix},
	{"Xb", SpecHexUpperNoPrefix},
	{"Hb", SpecHexUpperNoPrefix},
	{"b", SpecBinary},
	{"bb", SpecBinaryNoPrefix},
	{"e", SpecScientific},
	{"g", SpecGeneral},
	{"c", SpecChar},
	{"s", SpecString},
	{"sb", SpecStringNoQuotes},
	{"s8", SpecUTF8String},
	{"s8b", SpecUTF8StringNoQuotes},
	{"su", SpecWideString},
	{"sub", SpecWideStringNoQuotes},
	{"s32", SpecUTF32String},
	{"s32b", SpecUTF32StringNoQuotes},
	{"bstr", SpecBSTR},
	{"env", SpecEnvironment},
	{"en", SpecEnum},
	{"hv", SpecHeapArray},
	{"wc", SpecWindowClass},
	{"wm", SpecWindowMessage},
	{"hr", SpecHResult},
}

var specifierNames = map[Specifier]string{
	SpecNone:                "none",
	SpecDecimal:             "decimal",
	SpecOctal:               "octal",
	SpecHex:                 "hex",
	SpecHexUpper:            "hex-upper",
	SpecHexNoPrefix:         "hex-no-prefix",
	SpecHexUpperNoPrefix:    "hex-upper-no-prefix",
	SpecBinary:              "binary",
	SpecBinaryNoPrefix:      "binary-no-prefix",
	SpecScientific:          "scientific",
	SpecGeneral:             "general",
	SpecChar:                "char",
	SpecString:              "string",
	SpecStringNoQuotes:      "string-no-quotes",
	SpecUTF8String:          "utf8-string",
	SpecUTF8StringNoQuotes:  "utf8-string-no-quotes",
	SpecWideString:          "wide-string",
	SpecWideStringNoQuotes:  "wide-string-no-quotes",
	SpecUTF32String:         "utf32-string",
	SpecUTF32StringNoQuotes: "utf32-string-no-quotes",
	SpecBSTR:                "bstr",
	SpecEnvironment:         "environment",
	SpecEnum:                "enum",
	SpecHeapArray:           "heap-array",
	SpecWindowClass:         "window-class",
	SpecWindowMessage:       "window-message",
	SpecHResult:             "hresult",
}

func (s Specifier) String() string {
	if name, ok := specifierNames[s]; ok {
		return name
	}
	return "unknown"
}

// Flags is a set of format flags.
type Flags uint8

const (
	FlagNoAddress Flags = 1 << iota
	FlagNoDerived
	FlagNoRawView
	FlagNumericValueOnly
	FlagRawFormat
)

var flagTokens = []struct {
	token string
	flag  Flags
}{
	{"nvo", FlagNumericValueOnly},
	{"na", FlagNoAddress},
	{"nd", FlagNoDerived},
	{"nr", FlagNoRawView},
	{"!", FlagRawFormat},
}

func (f Flags) Has(flag Flags) bool {
	return f&flag != 0
}

func (f Flags) String() string {
	var parts []string
	for _, t := range flagTokens {
		if f.Has(t.flag) {
			parts = append(parts, t.token)
		}
	}
	return strings.Join(parts, "|")
}

// Spec is the parsed suffix of a formatted expression.
type Spec struct {
	ArrayLength string
	View        string
	Flags       Flags
	Specifier   Specifier
}

// Empty reports that no spec marker was found.
func (s Spec) Empty() bool {
	return s.ArrayLength == "" && s.View == "" && s.Flags == 0 && s.Specifier == SpecNone
}

// ParseSpec parses `[len]`, `view(name)`, flags and a specifier, in that
// order. A suffix made of digits only is a bare array length. The second
// result is false when the suffix carries no spec marker at all.
func ParseSpec(suffix string) (Spec, bool) {
	suffix = strings.TrimSpace(suffix)
	var spec Spec
	if suffix == "" {
		return spec, false
	}
	if isDigits(suffix) {
		spec.ArrayLength = suffix
		return spec, true
	}

	rest := suffix
	if rest[0] == '[' {
		end := matchBracket(rest)
		if end < 0 {
			return Spec{}, false
		}
		spec.ArrayLength = strings.TrimSpace(rest[1:end])
		rest = rest[end+1:]
	}
	if strings.HasPrefix(rest, "view(") {
		end := strings.IndexByte(rest, ')')
		if end < 0 {
			return Spec{}, false
		}
		spec.View = strings.TrimSpace(rest[len("view("):end])
		rest = rest[end+1:]
	}
	for {
		matched := false
		for _, t := range flagTokens {
			if strings.HasPrefix(rest, t.token) {
				spec.Flags |= t.flag
				rest = rest[len(t.token):]
				matched = true
				break
			}
		}
		if !matched {
			break
		}
	}
	for _, t := range specifierTokens {
		if t.token == rest {
			spec.Specifier = t.spec
			break
		}
	}
	return spec, !spec.Empty()
}

func matchBracket(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
