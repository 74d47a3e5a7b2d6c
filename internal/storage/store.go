package storage

import (
	"context"
	"time"
)

// Catalog persists the type entries of parsed Natvis documents so that
// concrete type names can be looked up without reparsing.
type Catalog interface {
	// HasDocument reports whether path is indexed with this content hash.
	HasDocument(ctx context.Context, path, hash string) (bool, error)

	// SaveDocument replaces every earlier version of the document's path.
	SaveDocument(ctx context.Context, doc *Document) error

	// RemoveDocument drops every version of the document at path.
	RemoveDocument(ctx context.Context, path string) error

	// Lookup returns the entries matching a concrete type name, highest priority first.
	Lookup(ctx context.Context, concrete string) ([]Match, error)

	// Documents lists the indexed documents ordered by path.
	Documents(ctx context.Context) ([]DocumentInfo, error)

	Close() error
}

// Document is an indexed Natvis file.
type Document struct {
	Hash    string
	Path    string
	Skipped int
	Entries []EntryRecord
}

// DocumentInfo describes an indexed document without its entries.
type DocumentInfo struct {
	Hash      string
	Path      string
	Entries   int
	Skipped   int
	IndexedAt time.Time
}

// Match is a catalog entry whose name matched a lookup.
type Match struct {
	Path     string
	Name     string
	Ordinal  int
	Priority int
	Entry    EntryRecord
}
