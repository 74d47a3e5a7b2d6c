package natvis

import (
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"
	"github.com/beevik/etree"
)

// Namespace is the XML namespace of Natvis documents.
const Namespace = "http://schemas.microsoft.com/vstudio/debugger/natvis/2010"

var priorities = map[string]Priority{
	"Low":        PriorityLow,
	"MediumLow":  PriorityMediumLow,
	"Medium":     PriorityMedium,
	"MediumHigh": PriorityMediumHigh,
	"High":       PriorityHigh,
}

func attr(el *etree.Element, name string) (string, bool) {
	a := el.SelectAttr(name)
	if a == nil {
		return "", false
	}
	return a.Value, true
}

func requireAttr(el *etree.Element, name string) (string, error) {
	v, ok := attr(el, name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("%w %s on <%s>", ErrMissingAttr, name, el.Tag)
	}
	return v, nil
}

// boolAttr accepts exactly true/1 and false/0.
func boolAttr(el *etree.Element, name string, dflt bool) (bool, error) {
	v, ok := attr(el, name)
	if !ok {
		return dflt, nil
	}
	switch v {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("%w %q for %s on <%s>", ErrInvalidBool, v, name, el.Tag)
}

func priorityAttr(el *etree.Element) (Priority, error) {
	v, ok := attr(el, "Priority")
	if !ok {
		return PriorityMedium, nil
	}
	p, ok := priorities[v]
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrInvalidPriority, v)
	}
	return p, nil
}

func usageAttr(el *etree.Element) (SmartPointerUsage, error) {
	v, ok := attr(el, "Usage")
	if !ok {
		return UsageMinimal, nil
	}
	switch v {
	case "Minimal":
		return UsageMinimal, nil
	case "Indexable", "Full":
		return UsageIndexable, nil
	}
	return 0, fmt.Errorf("%w %q", ErrInvalidUsage, v)
}

func uintAttr(el *etree.Element, name string, dflt uint32) (uint32, error) {
	v, ok := attr(el, name)
	if !ok {
		return dflt, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q on <%s>: %w", name, v, el.Tag, err)
	}
	u, err := safecast.Conv[uint32](n)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q on <%s>: %w", name, v, el.Tag, err)
	}
	return u, nil
}

// children returns the child elements of el in the Natvis namespace.
func children(el *etree.Element) []*etree.Element {
	var out []*etree.Element
	for _, c := range el.ChildElements() {
		if inNamespace(c) {
			out = append(out, c)
		}
	}
	return out
}

func childrenByTag(el *etree.Element, tag string) []*etree.Element {
	var out []*etree.Element
	for _, c := range children(el) {
		if c.Tag == tag {
			out = append(out, c)
		}
	}
	return out
}

// singleChild returns the only child with the tag, nil if there is none and
// an error if there are several.
func singleChild(el *etree.Element, tag string) (*etree.Element, error) {
	found := childrenByTag(el, tag)
	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		return found[0], nil
	}
	return nil, fmt.Errorf("%w <%s> in <%s>", ErrDuplicate, tag, el.Tag)
}

func inNamespace(el *etree.Element) bool {
	ns := el.NamespaceURI()
	return ns == "" || ns == Namespace
}

func text(el *etree.Element) string {
	return strings.TrimSpace(el.Text())
}

// displayText keeps single-line text verbatim, spaces included. Text spread
// over several lines is joined from its trimmed non-empty lines.
func displayText(el *etree.Element) string {
	raw := el.Text()
	if !strings.ContainsAny(raw, "\r\n") {
		return raw
	}
	var lines []string
	for _, l := range strings.Split(raw, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return strings.Join(lines, " ")
}
