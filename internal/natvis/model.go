package natvis

import (
	"natvis/internal/format"
	"natvis/internal/intrinsic"
	"natvis/internal/typename"
)

// Priority orders competing visualizers for the same type.
type Priority int

const (
	PriorityLow Priority = iota + 1
	PriorityMediumLow
	PriorityMedium
	PriorityMediumHigh
	PriorityHigh
)

var priorityNames = []string{"Low", "MediumLow", "Medium", "MediumHigh", "High"}

func (p Priority) String() string {
	if p < PriorityLow || p > PriorityHigh {
		return "Unknown"
	}
	return priorityNames[p-1]
}

// TypeName is one name a TypeEntry applies to.
type TypeName struct {
	Raw      string
	Template *typename.Template
}

// Condition restricts an element to a runtime condition and to views.
type Condition struct {
	Expression  string
	IncludeView string
	ExcludeView string
}

// IsZero reports an unconditional element.
func (c Condition) IsZero() bool {
	return c == Condition{}
}

// TypeEntry is one `<Type>` element.
type TypeEntry struct {
	Names       []TypeName
	Inheritable bool
	IncludeView string
	ExcludeView string
	Priority    Priority
	Intrinsics  *intrinsic.Scope

	Summaries    []Summary
	StringViews  []StringView
	SmartPointer *SmartPointer
	Expand       *Expand
}

// Matches reports whether any name of the entry matches the concrete type name.
func (e *TypeEntry) Matches(concrete string) bool {
	c, err := typename.Parse(concrete)
	if err != nil {
		return false
	}
	for _, n := range e.Names {
		if n.Template.Match(c) {
			return true
		}
	}
	return false
}

// Summary is a `<DisplayString>`.
type Summary struct {
	Condition Condition
	Optional  bool
	Value     format.InterpolatedString
}

// StringView is a `<StringView>`.
type StringView struct {
	Condition Condition
	Optional  bool
	Value     format.Expression
}

// SmartPointerUsage selects the operators a smart pointer supports.
type SmartPointerUsage int

const (
	UsageMinimal SmartPointerUsage = iota
	UsageIndexable
)

func (u SmartPointerUsage) String() string {
	if u == UsageIndexable {
		return "Indexable"
	}
	return "Minimal"
}

// SmartPointer is a `<SmartPointer>`.
type SmartPointer struct {
	Usage            SmartPointerUsage
	DefaultExpansion bool
	Value            format.Expression
}

// Expand is the `<Expand>` section of a type or synthetic item.
type Expand struct {
	HideRawView bool
	Items       []ItemProvider
}
