package syntax

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"
)

// Error locates the first syntax error in checked code.
type Error struct {
	Offset  int
	Snippet string
}

func (e *Error) Error() string {
	return fmt.Sprintf("syntax error at offset %d near %q", e.Offset, e.Snippet)
}

// Checker parses C++ snippets with tree-sitter. It is not safe for concurrent use.
type Checker struct {
	parser *sitter.Parser
	lang   *sitter.Language
}

// NewChecker creates a checker for the given language.
func NewChecker(lang string) (*Checker, error) {
	var l *sitter.Language
	switch lang {
	case "cpp", "c++":
		l = cpp.GetLanguage()
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
	parser := sitter.NewParser()
	parser.SetLanguage(l)
	return &Checker{parser: parser, lang: l}, nil
}

// Check parses code as a translation unit and reports the first error or
// missing node. Natvis pseudo-variables such as `$i` and `$T1` are accepted.
func (c *Checker) Check(ctx context.Context, code string) error {
	source := []byte(strings.ReplaceAll(code, "$", "_"))
	tree, err := c.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return fmt.Errorf("failed to parse: %w", err)
	}
	root := tree.RootNode()
	if !root.HasError() {
		return nil
	}
	bad := firstError(root)
	if bad == nil {
		bad = root
	}
	start := int(bad.StartByte())
	end := min(int(bad.EndByte()), start+32, len(code))
	if end <= start {
		end = min(start+16, len(code))
	}
	return &Error{Offset: start, Snippet: code[start:end]}
}

func firstError(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil || !child.HasError() && !child.IsMissing() {
			continue
		}
		if bad := firstError(child); bad != nil {
			return bad
		}
	}
	return nil
}
