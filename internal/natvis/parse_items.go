package natvis

import (
	"errors"
	"fmt"

	"github.com/beevik/etree"

	"natvis/internal/format"
)

// errMissingChild marks a provider lacking a required child. Such providers
// are dropped without failing the entry.
var errMissingChild = errors.New("missing required child")

// parseItemProvider dispatches on the element tag. It returns nil for unknown
// tags and for providers lacking required children.
func (r rewriter) parseItemProvider(el *etree.Element) (ItemProvider, error) {
	var (
		p   ItemProvider
		err error
	)
	switch el.Tag {
	case "Item":
		p, err = r.parseItem(el)
	case "ExpandedItem":
		p, err = r.parseExpandedItem(el)
	case "Synthetic":
		p, err = r.parseSynthetic(el)
	case "ArrayItems":
		p, err = r.parseArrayItems(el)
	case "IndexListItems":
		p, err = r.parseIndexListItems(el)
	case "LinkedListItems":
		p, err = r.parseLinkedListItems(el)
	case "TreeItems":
		p, err = r.parseTreeItems(el)
	case "CustomListItems":
		p, err = r.parseCustomListItems(el)
	default:
		return nil, nil
	}
	if errors.Is(err, errMissingChild) {
		r.s.log.V(1).Info("dropping item provider", "kind", el.Tag, "reason", err.Error())
		return nil, nil
	}
	return p, err
}

func (r rewriter) common(el *etree.Element) (ItemCommon, error) {
	optional, err := boolAttr(el, "Optional", false)
	if err != nil {
		return ItemCommon{}, err
	}
	name, _ := attr(el, "Name")
	return ItemCommon{Name: name, Condition: r.condition(el), Optional: optional}, nil
}

func (r rewriter) conditionals(el *etree.Element, tag string) []Conditional {
	var out []Conditional
	for _, c := range childrenByTag(el, tag) {
		out = append(out, Conditional{Condition: r.condition(c), Value: r.expression(text(c))})
	}
	return out
}

// single parses the only child with the tag. It fails with errMissingChild
// when required and absent.
func (r rewriter) single(el *etree.Element, tag string, required bool) (*format.Expression, error) {
	c, err := singleChild(el, tag)
	if err != nil {
		return nil, err
	}
	if c == nil {
		if required {
			return nil, fmt.Errorf("%w <%s>", errMissingChild, tag)
		}
		return nil, nil
	}
	e := r.expression(text(c))
	return &e, nil
}

func (r rewriter) parseItem(el *etree.Element) (ItemProvider, error) {
	common, err := r.common(el)
	if err != nil {
		return nil, err
	}
	return &Item{ItemCommon: common, Value: r.expression(text(el))}, nil
}

func (r rewriter) parseExpandedItem(el *etree.Element) (ItemProvider, error) {
	common, err := r.common(el)
	if err != nil {
		return nil, err
	}
	return &ExpandedItem{ItemCommon: common, Value: r.expression(text(el))}, nil
}

func (r rewriter) parseSynthetic(el *etree.Element) (ItemProvider, error) {
	common, err := r.common(el)
	if err != nil {
		return nil, err
	}
	s := &Synthetic{ItemCommon: common}
	if v, ok := attr(el, "Expression"); ok {
		e := r.expression(v)
		s.Value = &e
	}
	if err := r.parseDisplay(el, &s.Summaries, &s.StringViews); err != nil {
		return nil, err
	}
	ex, err := singleChild(el, "Expand")
	if err != nil {
		return nil, err
	}
	if ex != nil {
		if s.Expand, err = r.parseExpand(ex); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (r rewriter) parseArrayItems(el *etree.Element) (ItemProvider, error) {
	common, err := r.common(el)
	if err != nil {
		return nil, err
	}
	a := &ArrayItems{
		ItemCommon:    common,
		Sizes:         r.conditionals(el, "Size"),
		ValuePointers: r.conditionals(el, "ValuePointer"),
	}
	if len(a.Sizes) == 0 || len(a.ValuePointers) == 0 {
		return nil, fmt.Errorf("%w <Size> and <ValuePointer>", errMissingChild)
	}
	if d, err := singleChild(el, "Direction"); err != nil {
		return nil, err
	} else if d != nil {
		switch text(d) {
		case "Forward":
			a.Direction = DirectionForward
		case "Backward":
			a.Direction = DirectionBackward
		default:
			return nil, fmt.Errorf("invalid direction %q", text(d))
		}
	}
	if a.Rank, err = r.single(el, "Rank", false); err != nil {
		return nil, err
	}
	if a.LowerBound, err = r.single(el, "LowerBound", false); err != nil {
		return nil, err
	}
	return a, nil
}

func (r rewriter) parseIndexListItems(el *etree.Element) (ItemProvider, error) {
	common, err := r.common(el)
	if err != nil {
		return nil, err
	}
	l := &IndexListItems{
		ItemCommon: common,
		Sizes:      r.conditionals(el, "Size"),
		ValueNodes: r.conditionals(el, "ValueNode"),
	}
	if len(l.Sizes) == 0 || len(l.ValueNodes) == 0 {
		return nil, fmt.Errorf("%w <Size> and <ValueNode>", errMissingChild)
	}
	return l, nil
}

func (r rewriter) parseLinkedListItems(el *etree.Element) (ItemProvider, error) {
	common, err := r.common(el)
	if err != nil {
		return nil, err
	}
	l := &LinkedListItems{ItemCommon: common}
	if l.Size, err = r.single(el, "Size", false); err != nil {
		return nil, err
	}
	ptrs := []struct {
		tag string
		dst *format.Expression
	}{
		{"HeadPointer", &l.HeadPointer},
		{"NextPointer", &l.NextPointer},
		{"ValueNode", &l.ValueNode},
	}
	for _, ptr := range ptrs {
		e, err := r.single(el, ptr.tag, true)
		if err != nil {
			return nil, err
		}
		*ptr.dst = *e
	}
	if vn, _ := singleChild(el, "ValueNode"); vn != nil {
		l.ValueNodeName, _ = attr(vn, "Name")
	}
	return l, nil
}

func (r rewriter) parseTreeItems(el *etree.Element) (ItemProvider, error) {
	common, err := r.common(el)
	if err != nil {
		return nil, err
	}
	t := &TreeItems{ItemCommon: common}
	if t.Size, err = r.single(el, "Size", false); err != nil {
		return nil, err
	}
	ptrs := []struct {
		tag string
		dst *format.Expression
	}{
		{"HeadPointer", &t.HeadPointer},
		{"LeftPointer", &t.LeftPointer},
		{"RightPointer", &t.RightPointer},
		{"ValueNode", &t.ValueNode},
	}
	for _, ptr := range ptrs {
		e, err := r.single(el, ptr.tag, true)
		if err != nil {
			return nil, err
		}
		*ptr.dst = *e
	}
	return t, nil
}

func (r rewriter) parseCustomListItems(el *etree.Element) (ItemProvider, error) {
	common, err := r.common(el)
	if err != nil {
		return nil, err
	}
	l := &CustomListItems{ItemCommon: common}
	if l.MaxItemsPerView, err = uintAttr(el, "MaxItemsPerView", 5000); err != nil {
		return nil, err
	}
	for _, v := range childrenByTag(el, "Variable") {
		name, err := requireAttr(v, "Name")
		if err != nil {
			return nil, err
		}
		init, _ := attr(v, "InitialValue")
		l.Variables = append(l.Variables, Variable{Name: name, InitialValue: r.apply(init)})
	}
	l.Sizes = r.conditionals(el, "Size")
	if l.Skip, err = r.single(el, "Skip", false); err != nil {
		return nil, err
	}
	if l.Code, err = r.parseCode(el); err != nil {
		return nil, err
	}
	return l, nil
}

// parseCode reads the statements of a CustomListItems or of a nested block.
func (r rewriter) parseCode(el *etree.Element) ([]CodeBlock, error) {
	var code []CodeBlock
	for _, c := range children(el) {
		var (
			b   CodeBlock
			err error
		)
		switch c.Tag {
		case "Exec":
			b = &Exec{Condition: r.condition(c).Expression, Expr: r.apply(text(c))}
		case "Break":
			b = &Break{Condition: r.condition(c).Expression}
		case "Item":
			name, _ := attr(c, "Name")
			b = &ListItem{Name: name, Condition: r.condition(c).Expression, Value: r.expression(text(c))}
		case "Loop":
			loop := &Loop{Condition: r.condition(c).Expression}
			loop.Body, err = r.parseCode(c)
			b = loop
		case "If":
			cond, cerr := requireAttr(c, "Condition")
			if cerr != nil {
				return nil, cerr
			}
			blk := &If{Condition: r.apply(cond)}
			blk.Body, err = r.parseCode(c)
			b = blk
		case "Elseif":
			if !followsIf(code) {
				return nil, fmt.Errorf("<Elseif> without preceding <If>")
			}
			cond, cerr := requireAttr(c, "Condition")
			if cerr != nil {
				return nil, cerr
			}
			blk := &Elseif{Condition: r.apply(cond)}
			blk.Body, err = r.parseCode(c)
			b = blk
		case "Else":
			if !followsIf(code) {
				return nil, fmt.Errorf("<Else> without preceding <If>")
			}
			blk := &Else{}
			blk.Body, err = r.parseCode(c)
			b = blk
		default:
			continue
		}
		if err != nil {
			return nil, err
		}
		code = append(code, b)
	}
	return code, nil
}

func followsIf(code []CodeBlock) bool {
	if len(code) == 0 {
		return false
	}
	switch code[len(code)-1].(type) {
	case *If, *Elseif:
		return true
	}
	return false
}
