package intrinsic

import (
	"fmt"
	"strings"
)

// Kind labels the origin of a scope.
type Kind string

const (
	KindGlobal  Kind = "global"
	KindType    Kind = "type"
	KindBuiltin Kind = "builtin"
)

// Scope is an ordered, immutable set of intrinsics visible at one point of a
// document. Intrinsics sharing a mangled name are overloads.
type Scope struct {
	id         int
	kind       Kind
	key        string
	intrinsics []*Intrinsic
	index      map[MangledName][]int
}

// NewScope creates a scope over intrinsics already in dependency order and
// marks every overloaded intrinsic as lazy.
func NewScope(id int, kind Kind, intrinsics []*Intrinsic) *Scope {
	s := newView(id, kind, intrinsics)
	for _, ids := range s.index {
		if len(ids) < 2 {
			continue
		}
		for _, i := range ids {
			s.intrinsics[i].Lazy = true
		}
	}
	return s
}

func newView(id int, kind Kind, intrinsics []*Intrinsic) *Scope {
	s := &Scope{
		id:         id,
		kind:       kind,
		intrinsics: intrinsics,
		index:      make(map[MangledName][]int),
	}
	for i, in := range intrinsics {
		m := in.Mangled()
		s.index[m] = append(s.index[m], i)
	}
	return s
}

// prefix returns a view of the first n intrinsics sharing the scope identity.
func (s *Scope) prefix(n int) *Scope {
	v := newView(s.id, s.kind, s.intrinsics[:n:n])
	v.key = s.key
	return v
}

func (s *Scope) ID() int { return s.id }
func (s *Scope) Kind() Kind { return s.kind }
func (s *Scope) Len() int { return len(s.intrinsics) }

// Intrinsics returns the intrinsics in dependency order.
func (s *Scope) Intrinsics() []*Intrinsic {
	out := make([]*Intrinsic, len(s.intrinsics))
	copy(out, s.intrinsics)
	return out
}

// Lookup returns every definition of m in definition order.
func (s *Scope) Lookup(m MangledName) []*Intrinsic {
	ids := s.index[m]
	out := make([]*Intrinsic, len(ids))
	for i, id := range ids {
		out[i] = s.intrinsics[id]
	}
	return out
}

// Strategy returns how calls to m expand in this scope.
func (s *Scope) Strategy(m MangledName) Strategy {
	if len(s.index[m]) > 1 {
		return StrategyMacro
	}
	return StrategyInline
}

// Lazy returns the intrinsics that expand as macros.
func (s *Scope) Lazy() []*Intrinsic {
	var out []*Intrinsic
	for _, in := range s.intrinsics {
		if in.Lazy {
			out = append(out, in)
		}
	}
	return out
}

// Unused returns the intrinsics no call site was rewritten to.
func (s *Scope) Unused() []*Intrinsic {
	var out []*Intrinsic
	for _, in := range s.intrinsics {
		if !in.Used {
			out = append(out, in)
		}
	}
	return out
}

// MacroName is the generated call name for an overloaded mangled name. The
// document key, when set, keeps names from different documents apart.
func (s *Scope) MacroName(m MangledName) string {
	name := fmt.Sprintf("%s%d_%s_%d", s.kind[:1], s.id, m.Name, m.Arity)
	if s.key == "" {
		return Sentinel + name
	}
	return Sentinel + s.key + "_" + name
}

// MacroDefinition is the textual definition of one overload of a macro-expanded intrinsic.
type MacroDefinition struct {
	Name       string
	ReturnType string
	Parameters []Parameter
	Body       string
	Validation string
}

func (d MacroDefinition) String() string {
	ret := d.ReturnType
	if ret == "" {
		ret = "auto"
	}
	return fmt.Sprintf("%s %s(%s) { return (%s); }", ret, d.Name, paramList(d.Parameters), d.Body)
}

// MacroDefinitions returns one definition per lazy intrinsic, in scope order.
func (s *Scope) MacroDefinitions() []MacroDefinition {
	var defs []MacroDefinition
	for _, in := range s.Lazy() {
		params := make([]Parameter, len(in.Parameters))
		casts := make(map[string]string, len(in.Parameters))
		for i, p := range in.Parameters {
			params[i] = p
			if p.Name == "" {
				params[i].Name = fmt.Sprintf("%sarg%d", tempPrefix, i)
				continue
			}
			casts[p.Name] = castTo(p.Type, p.Name)
		}
		defs = append(defs, MacroDefinition{
			Name:       s.MacroName(in.Mangled()),
			ReturnType: in.ReturnType,
			Parameters: params,
			Body:       replaceParams(in.Expression, casts),
			Validation: in.ValidationCode(),
		})
	}
	return defs
}

func castTo(typ, expr string) string {
	if requiresDeduction(typ) {
		return "(" + expr + ")"
	}
	return "((" + strings.TrimSpace(typ) + ")" + expr + ")"
}
