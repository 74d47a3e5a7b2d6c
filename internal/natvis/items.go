package natvis

import "natvis/internal/format"

// ItemProvider describes how children of a value are produced. It is a
// closed set: Item, ExpandedItem, Synthetic, ArrayItems, IndexListItems,
// LinkedListItems, TreeItems and CustomListItems.
type ItemProvider interface {
	Common() *ItemCommon
	Kind() string
	isItemProvider()
}

// ItemCommon holds the attributes shared by every provider.
type ItemCommon struct {
	Name      string
	Condition Condition
	Optional  bool
}

func (c *ItemCommon) Common() *ItemCommon { return c }
func (*ItemCommon) isItemProvider() {}

// Conditional is an expression guarded by a condition, used where a
// provider allows several alternatives (Size, ValuePointer, ValueNode).
type Conditional struct {
	Condition Condition
	Value     format.Expression
}

// Item is a single named child.
type Item struct {
	ItemCommon
	Value format.Expression
}

// ExpandedItem inlines the children of another expression.
type ExpandedItem struct {
	ItemCommon
	Value format.Expression
}

// Synthetic is a child that does not exist in memory and carries its own
// display rules.
type Synthetic struct {
	ItemCommon
	Value       *format.Expression
	Summaries   []Summary
	StringViews []StringView
	Expand      *Expand
}

// ArrayDirection is the storage order of multi-dimensional arrays.
type ArrayDirection int

const (
	DirectionForward ArrayDirection = iota
	DirectionBackward
)

// ArrayItems displays contiguous elements.
type ArrayItems struct {
	ItemCommon
	Direction     ArrayDirection
	Rank          *format.Expression
	Sizes         []Conditional
	ValuePointers []Conditional
	LowerBound    *format.Expression
}

// IndexListItems displays elements addressed by index through `$i`.
type IndexListItems struct {
	ItemCommon
	Sizes      []Conditional
	ValueNodes []Conditional
}

// LinkedListItems walks a singly linked list.
type LinkedListItems struct {
	ItemCommon
	Size          *format.Expression
	HeadPointer   format.Expression
	NextPointer   format.Expression
	ValueNode     format.Expression
	ValueNodeName string
}

// TreeItems walks a binary tree in order.
type TreeItems struct {
	ItemCommon
	Size         *format.Expression
	HeadPointer  format.Expression
	LeftPointer  format.Expression
	RightPointer format.Expression
	ValueNode    format.Expression
}

// Variable is a `<Variable>` local to a CustomListItems.
type Variable struct {
	Name         string
	InitialValue string
}

// CustomListItems produces children by running a small program.
type CustomListItems struct {
	ItemCommon
	MaxItemsPerView uint32
	Variables       []Variable
	Sizes           []Conditional
	Skip            *format.Expression
	Code            []CodeBlock
}

func (*Item) Kind() string { return "Item" }
func (*ExpandedItem) Kind() string { return "ExpandedItem" }
func (*Synthetic) Kind() string { return "Synthetic" }
func (*ArrayItems) Kind() string { return "ArrayItems" }
func (*IndexListItems) Kind() string { return "IndexListItems" }
func (*LinkedListItems) Kind() string { return "LinkedListItems" }
func (*TreeItems) Kind() string { return "TreeItems" }
func (*CustomListItems) Kind() string { return "CustomListItems" }

// DisplayName returns the provider name or, when it has none, its kind.
func DisplayName(p ItemProvider) string {
	if name := p.Common().Name; name != "" {
		return name
	}
	return p.Kind()
}

// IsConditional reports whether the provider depends on a condition or a view.
func IsConditional(p ItemProvider) bool {
	return !p.Common().Condition.IsZero()
}
