package natvis

import (
	"context"
	"fmt"

	"github.com/beevik/etree"

	"natvis/internal/intrinsic"
)

// parseIntrinsics reads `<Intrinsic>` elements in document order. An
// optional intrinsic that fails to parse or validate is dropped.
func (s *state) parseIntrinsics(ctx context.Context, els []*etree.Element) ([]*intrinsic.Intrinsic, error) {
	var defs []*intrinsic.Intrinsic
	for _, el := range els {
		optional, err := boolAttr(el, "Optional", false)
		if err != nil {
			return nil, err
		}
		in, err := s.parseIntrinsic(ctx, el)
		if err != nil {
			if optional {
				s.log.Info("dropping optional intrinsic", "name", el.SelectAttrValue("Name", ""), "error", err.Error())
				continue
			}
			return nil, err
		}
		in.Optional = optional
		defs = append(defs, in)
	}
	return defs, nil
}

func (s *state) parseIntrinsic(ctx context.Context, el *etree.Element) (*intrinsic.Intrinsic, error) {
	name, err := requireAttr(el, "Name")
	if err != nil {
		return nil, err
	}
	expr, err := requireAttr(el, "Expression")
	if err != nil {
		return nil, fmt.Errorf("intrinsic %s: %w", name, err)
	}

	var params []intrinsic.Parameter
	for _, p := range childrenByTag(el, "Parameter") {
		typ, err := requireAttr(p, "Type")
		if err != nil {
			return nil, fmt.Errorf("intrinsic %s: %w", name, err)
		}
		pname, _ := attr(p, "Name")
		params = append(params, intrinsic.Parameter{Name: pname, Type: typ})
	}

	in := intrinsic.New(s.newIntrinsicID(), name, params, expr, s.subst.Scanner())
	in.ReturnType, _ = attr(el, "ReturnType")

	if s.checker != nil {
		if err := s.checker.Check(ctx, in.ValidationCode()); err != nil {
			return nil, fmt.Errorf("%w %s: %w", ErrInvalidIntrinsic, in.Signature(), err)
		}
	}
	return in, nil
}
