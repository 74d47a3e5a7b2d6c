package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"natvis/internal/crawler"
	"natvis/internal/natvis"
	"natvis/internal/storage"
)

const good = `<AutoVisualizer xmlns="http://schemas.microsoft.com/vstudio/debugger/natvis/2010">
  <Intrinsic Name="spare" Expression="0"/>
  <Type Name="Vec&lt;*&gt;"><DisplayString>{_size}</DisplayString></Type>
</AutoVisualizer>`

const partial = `<AutoVisualizer xmlns="http://schemas.microsoft.com/vstudio/debugger/natvis/2010">
  <Type Name="List&lt;*&gt;"/>
  <Type Name="Broken" Inheritable="perhaps"/>
</AutoVisualizer>`

func setup(t *testing.T) (string, *Indexer, *storage.SQLiteStore) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.natvis"), []byte(good), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "partial.natvis"), []byte(partial), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.natvis"), []byte("<AutoVisualizer"), 0o644))

	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	p := natvis.NewParser(logr.Discard(), natvis.Options{})
	return dir, NewIndexer(crawler.NewCrawler(), p, store, logr.Discard()), store
}

func TestIndexer_IndexPaths(t *testing.T) {
	dir, idx, store := setup(t)
	ctx := context.Background()

	report, err := idx.IndexPaths(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, Report{Indexed: 2, Failed: 1, Entries: 2}, report)

	t.Run("Unchanged documents are skipped", func(t *testing.T) {
		report, err := idx.IndexPaths(ctx, dir)
		require.NoError(t, err)
		assert.Equal(t, 2, report.Unchanged)
		assert.Equal(t, 0, report.Indexed)
	})

	t.Run("Lookup finds indexed types", func(t *testing.T) {
		matches, err := store.Lookup(ctx, "Vec<int>")
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, []string{"{_size}"}, matches[0].Entry.Summaries)
	})

	t.Run("Removed files leave the catalog", func(t *testing.T) {
		path := filepath.Join(dir, "good.natvis")
		require.NoError(t, os.Remove(path))
		report, err := idx.IndexFiles(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Removed)

		matches, err := store.Lookup(ctx, "Vec<int>")
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("Identical content at a new path is indexed", func(t *testing.T) {
		copied := filepath.Join(dir, "copy.natvis")
		require.NoError(t, os.WriteFile(copied, []byte(partial), 0o644))
		report, err := idx.IndexFiles(ctx, copied)
		require.NoError(t, err)
		assert.Equal(t, Report{Indexed: 1, Entries: 1}, report)

		matches, err := store.Lookup(ctx, "List<int>")
		require.NoError(t, err)
		var paths []string
		for _, m := range matches {
			paths = append(paths, m.Path)
		}
		assert.ElementsMatch(t, []string{copied, filepath.Join(dir, "partial.natvis")}, paths)
	})
}

func TestIndexer_Check(t *testing.T) {
	dir, idx, _ := setup(t)

	results, err := idx.Check(context.Background(), 2, dir)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Crawl order is lexical.
	bad, ok, some := results[0], results[1], results[2]

	assert.Error(t, bad.Err)
	assert.False(t, bad.OK())

	assert.True(t, ok.OK())
	assert.Equal(t, 1, ok.Entries)
	assert.Equal(t, []string{"auto spare()"}, ok.Unused)

	assert.NoError(t, some.Err)
	assert.Equal(t, 1, some.Entries)
	assert.Equal(t, 1, some.Skipped)
	assert.False(t, some.OK())
}
