// Package intrinsic models Natvis intrinsic functions and rewrites the
// expressions that call them.
//
// An intrinsic is a named pseudo-function declared in a Natvis document.
// Calls to intrinsics never reach the debugger's evaluator: each call site is
// replaced either by the intrinsic's body (inline strategy) or, when several
// overloads share a name and arity, by a call to a generated definition
// (macro strategy).
package intrinsic

import (
	"fmt"
	"strings"

	"natvis/internal/scanner"
)

// Sentinel prefixes every generated name. Calls whose name carries it are
// never treated as intrinsic calls again.
const Sentinel = "__natvis_intrinsic_"

const tempPrefix = "__natvis_tmp"

// Parameter is an intrinsic parameter. Name may be empty; Type is required.
type Parameter struct {
	Name string
	Type string
}

// MangledName is the lookup key of an intrinsic: its name and arity.
type MangledName struct {
	Name  string
	Arity int
}

func (m MangledName) String() string {
	return fmt.Sprintf("%s/%d", m.Name, m.Arity)
}

// Strategy is the way calls to an intrinsic are expanded.
type Strategy int

const (
	StrategyInline Strategy = iota
	StrategyMacro
)

func (s Strategy) String() string {
	if s == StrategyMacro {
		return "macro"
	}
	return "inline"
}

// Intrinsic is one `<Intrinsic>` definition.
type Intrinsic struct {
	ID                 int
	Name               string
	Parameters         []Parameter
	ReturnType         string
	OriginalExpression string
	Expression         string
	Optional           bool
	Dependencies       []string

	// Used is set when a call site was rewritten to this intrinsic.
	Used bool
	// Lazy is set by NewScope when the intrinsic shares its mangled name
	// with other definitions and therefore expands as a macro.
	Lazy bool

	rewritten bool
}

// New creates an intrinsic and collects the names of the functions its body calls.
func New(id int, name string, params []Parameter, expression string, sc scanner.Scanner) *Intrinsic {
	in := &Intrinsic{
		ID:                 id,
		Name:               name,
		Parameters:         params,
		OriginalExpression: expression,
		Expression:         expression,
	}
	seen := make(map[string]bool)
	for call := range scanner.Calls(sc, expression) {
		if !isCandidate(call) || seen[call.Name] {
			continue
		}
		seen[call.Name] = true
		in.Dependencies = append(in.Dependencies, call.Name)
	}
	return in
}

// Mangled returns the lookup key of the intrinsic.
func (in *Intrinsic) Mangled() MangledName {
	return MangledName{Name: in.Name, Arity: len(in.Parameters)}
}

// Rewritten reports whether the body has been substituted.
func (in *Intrinsic) Rewritten() bool {
	return in.rewritten
}

// setExpression stores the substituted body. Only the first call has an effect.
func (in *Intrinsic) setExpression(expr string) {
	if in.rewritten {
		return
	}
	in.Expression = expr
	in.rewritten = true
}

// Signature renders the declaration, e.g. `int size(int n)`.
func (in *Intrinsic) Signature() string {
	ret := in.ReturnType
	if ret == "" {
		ret = "auto"
	}
	return fmt.Sprintf("%s %s(%s)", ret, in.Name, paramList(in.Parameters))
}

// ValidationCode wraps the original body in a capturing lambda so that a C++
// parser can check it without knowing the enclosing type.
func (in *Intrinsic) ValidationCode() string {
	return fmt.Sprintf("auto %scheck = [&](%s) { return (%s); };", Sentinel, paramList(in.Parameters), in.OriginalExpression)
}

func paramList(params []Parameter) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = strings.TrimSpace(p.Type + " " + p.Name)
	}
	return strings.Join(parts, ", ")
}

// requiresDeduction reports a parameter type whose concrete type is only known
// from the argument, so the argument cannot be cast to it.
func requiresDeduction(typ string) bool {
	found := false
	scanner.ReplaceIdents(typ, func(name string) (string, bool) {
		if name == "auto" {
			found = true
		}
		return "", false
	})
	return found
}

func isCandidate(call scanner.Call) bool {
	return !call.Member && !call.Qualified && !strings.HasPrefix(call.Name, Sentinel)
}
