package natvis

import (
	"context"
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"natvis/internal/format"
	"natvis/internal/intrinsic"
	"natvis/internal/typename"
)

// rewriter substitutes intrinsic calls against the scopes visible in one entry.
type rewriter struct {
	s      *state
	scopes []*intrinsic.Scope
}

func (r rewriter) apply(text string) string {
	return r.s.subst.Apply(text, r.scopes...)
}

func (r rewriter) expression(raw string) format.Expression {
	e := format.ParseExpression(raw)
	e.Rewrite(r.apply)
	return e
}

func (r rewriter) interpolated(raw string) (format.InterpolatedString, error) {
	is, err := format.ParseInterpolated(raw)
	if err != nil {
		return format.InterpolatedString{}, err
	}
	is.Rewrite(r.apply)
	return is, nil
}

func (r rewriter) condition(el *etree.Element) Condition {
	c := Condition{}
	if v, ok := attr(el, "Condition"); ok {
		c.Expression = r.apply(strings.TrimSpace(v))
	}
	c.IncludeView, _ = attr(el, "IncludeView")
	c.ExcludeView, _ = attr(el, "ExcludeView")
	return c
}

func (s *state) parseType(ctx context.Context, el *etree.Element, global *intrinsic.Scope) (*TypeEntry, error) {
	raw, err := requireAttr(el, "Name")
	if err != nil {
		return nil, &EntryError{Err: err}
	}
	entry, err := s.parseTypeEntry(ctx, el, raw, global)
	if err != nil {
		return nil, &EntryError{Name: raw, Err: err}
	}
	return entry, nil
}

func (s *state) parseTypeEntry(ctx context.Context, el *etree.Element, raw string, global *intrinsic.Scope) (*TypeEntry, error) {
	names, err := typeNames(el, raw)
	if err != nil {
		return nil, err
	}
	entry := &TypeEntry{Names: names}
	if entry.Inheritable, err = boolAttr(el, "Inheritable", true); err != nil {
		return nil, err
	}
	if entry.Priority, err = priorityAttr(el); err != nil {
		return nil, err
	}
	entry.IncludeView, _ = attr(el, "IncludeView")
	entry.ExcludeView, _ = attr(el, "ExcludeView")

	defs, err := s.parseIntrinsics(ctx, childrenByTag(el, "Intrinsic"))
	if err != nil {
		return nil, err
	}
	if entry.Intrinsics, err = s.subst.Resolve(s.newScopeID(), intrinsic.KindType, defs, global); err != nil {
		return nil, err
	}
	r := rewriter{s: s, scopes: []*intrinsic.Scope{entry.Intrinsics, global}}

	if err := r.parseDisplay(el, &entry.Summaries, &entry.StringViews); err != nil {
		return nil, err
	}

	sp, err := singleChild(el, "SmartPointer")
	if err != nil {
		return nil, err
	}
	if sp != nil {
		if entry.SmartPointer, err = r.parseSmartPointer(sp); err != nil {
			return nil, err
		}
	}

	ex, err := singleChild(el, "Expand")
	if err != nil {
		return nil, err
	}
	if ex != nil {
		if entry.Expand, err = r.parseExpand(ex); err != nil {
			return nil, err
		}
	}
	return entry, nil
}

// typeNames collects the pipe-separated alternatives of Name and every
// AlternativeType child. One bad alternative fails the whole entry.
func typeNames(el *etree.Element, raw string) ([]TypeName, error) {
	alts := strings.Split(raw, "|")
	for _, alt := range childrenByTag(el, "AlternativeType") {
		name, err := requireAttr(alt, "Name")
		if err != nil {
			return nil, err
		}
		alts = append(alts, strings.Split(name, "|")...)
	}

	names := make([]TypeName, 0, len(alts))
	for _, alt := range alts {
		alt = strings.TrimSpace(alt)
		tmpl, err := typename.Parse(alt)
		if err != nil {
			return nil, err
		}
		names = append(names, TypeName{Raw: alt, Template: tmpl})
	}
	return names, nil
}

// parseDisplay reads the DisplayString and StringView children of el.
// Optional elements that fail are dropped.
func (r rewriter) parseDisplay(el *etree.Element, summaries *[]Summary, views *[]StringView) error {
	for _, c := range children(el) {
		switch c.Tag {
		case "DisplayString":
			optional, err := boolAttr(c, "Optional", false)
			if err != nil {
				return err
			}
			value, err := r.interpolated(displayText(c))
			if err != nil {
				if optional {
					r.s.log.Info("dropping optional display string", "error", err.Error())
					continue
				}
				return fmt.Errorf("DisplayString: %w", err)
			}
			*summaries = append(*summaries, Summary{
				Condition: r.condition(c),
				Optional:  optional,
				Value:     value,
			})
		case "StringView":
			optional, err := boolAttr(c, "Optional", false)
			if err != nil {
				return err
			}
			*views = append(*views, StringView{
				Condition: r.condition(c),
				Optional:  optional,
				Value:     r.expression(text(c)),
			})
		}
	}
	return nil
}

func (r rewriter) parseSmartPointer(el *etree.Element) (*SmartPointer, error) {
	usage, err := usageAttr(el)
	if err != nil {
		return nil, err
	}
	def, err := boolAttr(el, "DefaultExpansion", true)
	if err != nil {
		return nil, err
	}
	return &SmartPointer{
		Usage:            usage,
		DefaultExpansion: def,
		Value:            r.expression(text(el)),
	}, nil
}

func (r rewriter) parseExpand(el *etree.Element) (*Expand, error) {
	hide, err := boolAttr(el, "HideRawView", false)
	if err != nil {
		return nil, err
	}
	ex := &Expand{HideRawView: hide}
	for _, c := range children(el) {
		p, err := r.parseItemProvider(c)
		if err != nil {
			optional, _ := boolAttr(c, "Optional", false)
			if !optional {
				return nil, fmt.Errorf("%s: %w", c.Tag, err)
			}
			r.s.log.Info("dropping optional item", "kind", c.Tag, "error", err.Error())
			continue
		}
		if p != nil {
			ex.Items = append(ex.Items, p)
		}
	}
	return ex, nil
}
