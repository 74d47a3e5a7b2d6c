package typename

import (
	"fmt"
	"strings"
)

type parser struct {
	raw  string
	toks []string
	pos  int
}

func (p *parser) peek() string {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return ""
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w %q: %s", ErrInvalid, p.raw, fmt.Sprintf(format, args...))
}

func (p *parser) parseType() (*Template, error) {
	if p.peek() == "*" {
		switch p.pos + 1 {
		case len(p.toks):
			p.pos++
			return &Template{Wildcard: true}, nil
		default:
			if next := p.toks[p.pos+1]; next == "," || next == ">" {
				p.pos++
				return &Template{Wildcard: true}, nil
			}
		}
	}
	if p.peek() == "::" {
		p.pos++
	}

	t := &Template{}
	var suffix strings.Builder
	for {
		var words []string
		for isWord(p.peek()) {
			words = append(words, p.peek())
			p.pos++
		}
		if len(words) == 0 {
			if p.peek() == "" {
				return nil, p.errorf("unexpected end of name")
			}
			return nil, p.errorf("expected name, found %q", p.peek())
		}
		for len(words) > 1 && isQualifier(words[len(words)-1]) {
			suffix.WriteString(words[len(words)-1])
			words = words[:len(words)-1]
		}

		seg := Segment{Name: strings.Join(words, " ")}
		if p.peek() == "<" {
			p.pos++
			seg.HasArgs = true
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			seg.Args = args
		}
		t.Segments = append(t.Segments, seg)

		if p.peek() != "::" || suffix.Len() > 0 {
			break
		}
		p.pos++
	}

	for {
		switch tok := p.peek(); {
		case tok == "*" || tok == "&" || isQualifier(tok):
			suffix.WriteString(tok)
			p.pos++
		case tok == "[":
			end := p.pos + 1
			for end < len(p.toks) && p.toks[end] != "]" {
				end++
			}
			if end == len(p.toks) {
				return nil, p.errorf("unclosed array bound")
			}
			suffix.WriteString(strings.Join(p.toks[p.pos:end+1], ""))
			p.pos = end + 1
		case tok == "(":
			return nil, p.errorf("function types are not supported")
		default:
			t.Suffix = suffix.String()
			return t, nil
		}
	}
}

func (p *parser) parseArgs() ([]*Template, error) {
	var args []*Template
	if p.peek() == ">" {
		p.pos++
		return args, nil
	}
	for {
		arg, err := p.parseType()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		switch p.peek() {
		case ",":
			p.pos++
		case ">":
			p.pos++
			return args, nil
		case "":
			return nil, p.errorf("unclosed template argument list")
		default:
			return nil, p.errorf("unexpected %q in template arguments", p.peek())
		}
	}
}

func tokenize(raw string) []string {
	var toks []string
	for i := 0; i < len(raw); {
		c := raw[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == ':' && i+1 < len(raw) && raw[i+1] == ':':
			toks = append(toks, "::")
			i += 2
		case isWordChar(c):
			start := i
			for i < len(raw) && isWordChar(raw[i]) {
				i++
			}
			toks = append(toks, raw[start:i])
		default:
			toks = append(toks, string(c))
			i++
		}
	}
	return toks
}

func isWordChar(c byte) bool {
	return c == '_' || c == '$' || c == '.' || c == '-' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isWord(tok string) bool {
	return tok != "" && isWordChar(tok[0])
}

func isQualifier(tok string) bool {
	return tok == "const" || tok == "volatile"
}
