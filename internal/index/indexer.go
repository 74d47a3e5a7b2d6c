package index

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"natvis/internal/crawler"
	"natvis/internal/natvis"
	"natvis/internal/storage"
)

// Indexer orchestrates parsing Natvis documents into the catalog.
type Indexer struct {
	crawler *crawler.Crawler
	parser  *natvis.Parser
	store   storage.Catalog
	log     logr.Logger
}

// NewIndexer creates a new indexer. store may be nil for Check-only use.
func NewIndexer(c *crawler.Crawler, p *natvis.Parser, store storage.Catalog, log logr.Logger) *Indexer {
	return &Indexer{
		crawler: c,
		parser:  p,
		store:   store,
		log:     log,
	}
}

// Report summarizes one indexing run.
type Report struct {
	Indexed   int
	Unchanged int
	Removed   int
	Failed    int
	Entries   int
}

// IndexPaths crawls roots and indexes every document found.
func (i *Indexer) IndexPaths(ctx context.Context, roots ...string) (Report, error) {
	files, err := i.crawler.Files(roots...)
	if err != nil {
		return Report{}, fmt.Errorf("scan failed: %w", err)
	}
	return i.IndexFiles(ctx, files...)
}

// IndexFiles indexes the given documents. A document already cataloged
// under its path with the same content is skipped; a missing file is
// removed from the catalog.
// Parse failures are logged and counted, not returned.
func (i *Indexer) IndexFiles(ctx context.Context, files ...string) (Report, error) {
	var r Report
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return r, err
		}
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			if err := i.store.RemoveDocument(ctx, path); err != nil {
				return r, err
			}
			r.Removed++
			continue
		}
		if err != nil {
			return r, err
		}

		hash := storage.ContentHash(data)
		if ok, err := i.store.HasDocument(ctx, path, hash); err != nil {
			return r, err
		} else if ok {
			r.Unchanged++
			continue
		}

		doc, err := i.parser.Parse(ctx, path, data)
		if err != nil {
			// Log and continue instead of failing the whole run
			i.log.Error(err, "failed to parse document", "path", path)
			r.Failed++
			continue
		}
		rec := &storage.Document{Hash: hash, Path: path}
		for entry := range doc.Types(ctx) {
			rec.Entries = append(rec.Entries, storage.NewEntryRecord(entry))
		}
		rec.Skipped = doc.Skipped()
		if err := i.store.SaveDocument(ctx, rec); err != nil {
			return r, fmt.Errorf("failed to save %s: %w", path, err)
		}
		i.log.V(1).Info("indexed document", "path", path, "entries", len(rec.Entries), "skipped", rec.Skipped)
		r.Indexed++
		r.Entries += len(rec.Entries)
	}
	return r, nil
}

// Result is the outcome of checking one document.
type Result struct {
	Path    string
	Entries int
	Skipped int
	Unused  []string
	Err     error
}

// OK reports a document that parsed without any dropped entry.
func (r Result) OK() bool {
	return r.Err == nil && r.Skipped == 0
}

// Check parses every document under roots concurrently. Results follow the
// crawl order.
func (i *Indexer) Check(ctx context.Context, concurrency int, roots ...string) ([]Result, error) {
	files, err := i.crawler.Files(roots...)
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	results := make([]Result, len(files))
	g, ctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for n, path := range files {
		g.Go(func() error {
			results[n] = i.checkFile(ctx, path)
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (i *Indexer) checkFile(ctx context.Context, path string) Result {
	res := Result{Path: path}
	doc, err := i.parser.ParseFile(ctx, path)
	if err != nil {
		res.Err = err
		return res
	}
	for range doc.Types(ctx) {
		res.Entries++
	}
	res.Skipped = doc.Skipped()
	for _, in := range doc.UnusedIntrinsics() {
		res.Unused = append(res.Unused, in.Signature())
	}
	return res
}
