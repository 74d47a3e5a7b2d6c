package natvis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"iter"
	"os"

	"github.com/beevik/etree"
	"github.com/go-logr/logr"

	"natvis/internal/intrinsic"
	"natvis/internal/scanner"
	"natvis/internal/syntax"
)

// Options controls a Parser.
type Options struct {
	// SuppressErrors turns document-level failures into an empty document.
	// The failure is still logged.
	SuppressErrors bool
	// ValidateIntrinsics parses every intrinsic body with a C++ grammar.
	ValidateIntrinsics bool
	// MaxExpansionDepth bounds nested intrinsic expansion; 0 selects the default.
	MaxExpansionDepth int
}

// Parser reads Natvis documents. A Parser holds no per-document state and
// may be shared; every parse builds its own scopes.
type Parser struct {
	log  logr.Logger
	opts Options
}

func NewParser(log logr.Logger, opts Options) *Parser {
	return &Parser{log: log, opts: opts}
}

// ParseFile reads and parses the document at path.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return p.fail(path, err)
	}
	return p.Parse(ctx, path, data)
}

// Parse parses an in-memory document. path is only used in diagnostics.
func (p *Parser) Parse(ctx context.Context, path string, data []byte) (*Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return p.fail(path, err)
	}
	return p.parse(ctx, path, DocumentKey(data), doc)
}

// DocumentKey derives the key that macro names of a document carry. Equal
// content always yields the same key, so a reloaded document keeps its names.
func DocumentKey(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:6])
}

func (p *Parser) fail(path string, err error) (*Document, error) {
	perr := &ParseError{Path: path, Err: err}
	p.log.Error(err, "failed to parse natvis document", "path", path)
	if p.opts.SuppressErrors {
		return &Document{Path: path}, nil
	}
	return nil, perr
}

func (p *Parser) parse(ctx context.Context, path, key string, doc *etree.Document) (*Document, error) {
	if n := len(doc.ChildElements()); n > 1 {
		return p.fail(path, fmt.Errorf("%w: %d root elements", ErrMalformed, n))
	}
	root := doc.Root()
	if root == nil || root.Tag != "AutoVisualizer" || !inNamespace(root) {
		return p.fail(path, ErrNotNatvis)
	}

	st := &state{
		log:   p.log.WithValues("path", path),
		subst: intrinsic.NewSubstituter(scanner.New(), p.log.WithName("intrinsic"), p.opts.MaxExpansionDepth).WithKey(key),
	}
	if p.opts.ValidateIntrinsics {
		checker, err := syntax.NewChecker("cpp")
		if err != nil {
			return p.fail(path, err)
		}
		st.checker = checker
	}

	defs, err := st.parseIntrinsics(ctx, childrenByTag(root, "Intrinsic"))
	if err != nil {
		return p.fail(path, fmt.Errorf("global intrinsics: %w", err))
	}
	global, err := st.subst.Resolve(st.newScopeID(), intrinsic.KindGlobal, defs)
	if err != nil {
		return p.fail(path, err)
	}

	return &Document{
		Path:   path,
		Key:    key,
		state:  st,
		root:   root,
		global: global,
	}, nil
}

// Document is one parsed Natvis file. Type entries are parsed on demand.
type Document struct {
	Path string
	// Key is derived from the content and prefixes generated macro names.
	Key string

	state      *state
	root       *etree.Element
	global     *intrinsic.Scope
	typeScopes []*intrinsic.Scope
	skipped    int
	consumed   bool
}

// Types yields the type entries in document order. Entries that fail to
// parse are logged and skipped. The sequence can be consumed only once;
// later ranges yield nothing.
func (d *Document) Types(ctx context.Context) iter.Seq[*TypeEntry] {
	return func(yield func(*TypeEntry) bool) {
		if d.consumed || d.root == nil {
			return
		}
		d.consumed = true
		for _, el := range childrenByTag(d.root, "Type") {
			if ctx.Err() != nil {
				return
			}
			entry, err := d.state.parseType(ctx, el, d.global)
			if err != nil {
				d.skipped++
				d.state.log.Error(err, "skipping type entry", "name", el.SelectAttrValue("Name", ""))
				continue
			}
			if entry.Intrinsics != nil && entry.Intrinsics.Len() > 0 {
				d.typeScopes = append(d.typeScopes, entry.Intrinsics)
			}
			if !yield(entry) {
				return
			}
		}
	}
}

// Global returns the document-level intrinsic scope, nil for an empty document.
func (d *Document) Global() *intrinsic.Scope {
	return d.global
}

// Skipped returns the number of type entries dropped so far.
func (d *Document) Skipped() int {
	return d.skipped
}

// MacroDefinitions returns the definitions the evaluator needs for every
// overloaded intrinsic seen so far, global ones first.
func (d *Document) MacroDefinitions() []intrinsic.MacroDefinition {
	var defs []intrinsic.MacroDefinition
	for sc := range d.scopes() {
		defs = append(defs, sc.MacroDefinitions()...)
	}
	return defs
}

// UnusedIntrinsics returns the intrinsics no expression called. It is only
// complete once Types has been fully consumed.
func (d *Document) UnusedIntrinsics() []*intrinsic.Intrinsic {
	var out []*intrinsic.Intrinsic
	for sc := range d.scopes() {
		out = append(out, sc.Unused()...)
	}
	return out
}

func (d *Document) scopes() iter.Seq[*intrinsic.Scope] {
	return func(yield func(*intrinsic.Scope) bool) {
		if d.global != nil && !yield(d.global) {
			return
		}
		for _, sc := range d.typeScopes {
			if !yield(sc) {
				return
			}
		}
	}
}

// state is owned by a single document.
type state struct {
	log     logr.Logger
	subst   *intrinsic.Substituter
	checker *syntax.Checker

	lastIntrinsicID int
	lastScopeID     int
}

func (s *state) newIntrinsicID() int {
	s.lastIntrinsicID++
	return s.lastIntrinsicID
}

func (s *state) newScopeID() int {
	s.lastScopeID++
	return s.lastScopeID
}
