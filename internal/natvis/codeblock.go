package natvis

import "natvis/internal/format"

// CodeBlock is one statement of a CustomListItems program: Exec, Loop, If,
// Elseif, Else, Break or Item.
type CodeBlock interface {
	isCodeBlock()
}

// Exec evaluates an expression for its side effects.
type Exec struct {
	Condition string
	Expr      string
}

// Loop repeats its body until a Break fires.
type Loop struct {
	Condition string
	Body      []CodeBlock
}

// If runs its body when the condition holds.
type If struct {
	Condition string
	Body      []CodeBlock
}

// Elseif follows an If or Elseif.
type Elseif struct {
	Condition string
	Body      []CodeBlock
}

// Else follows an If or Elseif.
type Else struct {
	Body []CodeBlock
}

// Break leaves the innermost loop.
type Break struct {
	Condition string
}

// ListItem yields one child.
type ListItem struct {
	Name      string
	Condition string
	Value     format.Expression
}

func (*Exec) isCodeBlock() {}
func (*Loop) isCodeBlock() {}
func (*If) isCodeBlock() {}
func (*Elseif) isCodeBlock() {}
func (*Else) isCodeBlock() {}
func (*Break) isCodeBlock() {}
func (*ListItem) isCodeBlock() {}
