package intrinsic

import (
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"natvis/internal/scanner"
)

// DefaultMaxDepth bounds nested expansion of a single call site.
const DefaultMaxDepth = 64

// Substituter rewrites intrinsic calls in expressions.
type Substituter struct {
	scanner  scanner.Scanner
	log      logr.Logger
	maxDepth int
	key      string
}

// NewSubstituter creates a substituter. A non-positive maxDepth selects DefaultMaxDepth.
func NewSubstituter(sc scanner.Scanner, log logr.Logger, maxDepth int) *Substituter {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Substituter{scanner: sc, log: log, maxDepth: maxDepth}
}

// WithKey returns a copy of s whose resolved scopes carry key in their
// macro names. Documents pass a key derived from their content.
func (s *Substituter) WithKey(key string) *Substituter {
	c := *s
	c.key = key
	return &c
}

// Scanner returns the call scanner used for rewriting.
func (s *Substituter) Scanner() scanner.Scanner {
	return s.scanner
}

// Apply rewrites every intrinsic call in text. Scopes are searched in the
// given order and the builtin scope last; the first scope defining the
// call's mangled name wins. Calls that match nothing are left untouched.
func (s *Substituter) Apply(text string, scopes ...*Scope) string {
	chain := make([]*Scope, 0, len(scopes)+1)
	for _, sc := range scopes {
		if sc != nil {
			chain = append(chain, sc)
		}
	}
	chain = append(chain, Builtins())
	return s.rewrite(text, chain, 0)
}

func (s *Substituter) rewrite(text string, chain []*Scope, depth int) string {
	var b strings.Builder
	pos := 0
	for {
		call, ok := s.scanner.Next(text, pos)
		if !ok {
			break
		}
		if call.Malformed(text) {
			s.log.Info("skipping malformed call", "call", text[call.Start:call.End], "expression", text)
			b.WriteString(text[pos:call.End])
			pos = call.End
			continue
		}
		if !isCandidate(call) {
			b.WriteString(text[pos:call.ArgsStart])
			pos = call.ArgsStart
			continue
		}

		args := call.ArgTexts(text)
		m := MangledName{Name: call.Name, Arity: len(args)}
		scope, defs := lookup(chain, m)
		if len(defs) == 0 {
			b.WriteString(text[pos:call.ArgsStart])
			pos = call.ArgsStart
			continue
		}
		if depth >= s.maxDepth {
			s.log.Error(fmt.Errorf("expansion depth %d exceeded", s.maxDepth), "leaving call unexpanded", "intrinsic", m.String())
			b.WriteString(text[pos:call.End])
			pos = call.End
			continue
		}

		var replacement string
		if len(defs) == 1 {
			replacement = expandInline(defs[0], args)
		} else {
			replacement = expandMacro(scope.MacroName(m), args)
		}
		if scope.Kind() != KindBuiltin {
			for _, d := range defs {
				d.Used = true
			}
		}

		b.WriteString(text[pos:call.Start])
		b.WriteString(s.rewrite(replacement, chain, depth+1))
		pos = call.End
	}
	if pos == 0 {
		return text
	}
	b.WriteString(text[pos:])
	return b.String()
}

func lookup(chain []*Scope, m MangledName) (*Scope, []*Intrinsic) {
	for _, sc := range chain {
		if defs := sc.Lookup(m); len(defs) > 0 {
			return sc, defs
		}
	}
	return nil, nil
}

// Resolve sorts defs, rewrites each body against the definitions ordered
// before it followed by outer, and returns the resulting scope.
func (s *Substituter) Resolve(id int, kind Kind, defs []*Intrinsic, outer ...*Scope) (*Scope, error) {
	sorted, err := Sort(defs)
	if err != nil {
		return nil, fmt.Errorf("failed to order %s intrinsics: %w", kind, err)
	}
	scope := NewScope(id, kind, sorted)
	scope.key = s.key
	for i, in := range sorted {
		chain := append([]*Scope{scope.prefix(i)}, outer...)
		in.setExpression(s.Apply(in.OriginalExpression, chain...))
	}
	return scope, nil
}
