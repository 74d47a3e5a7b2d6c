package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"natvis/internal/crawler"
	"natvis/internal/index"
	"natvis/internal/storage"
	"natvis/internal/watch"
)

var checkCmd = &cobra.Command{
	Use:   "check [path...]",
	Short: "Parse Natvis documents and report dropped entries and unused intrinsics",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		logger := newLogger(cfg)
		idx := index.NewIndexer(crawler.NewCrawler(), newParser(cfg, logger), nil, logger)

		results, err := idx.Check(cmd.Context(), cfg.Check.Concurrency, rootsOf(args)...)
		if err != nil {
			log.Fatalf("Check failed: %v", err)
		}

		failed := 0
		for _, r := range results {
			switch {
			case r.Err != nil:
				failed++
				errColor.Printf("FAIL ")
				fmt.Printf("%s: %v\n", r.Path, r.Err)
			case r.Skipped > 0:
				failed++
				warnColor.Printf("WARN ")
				fmt.Printf("%s: %d entries, %d skipped\n", r.Path, r.Entries, r.Skipped)
			default:
				okColor.Printf("OK   ")
				fmt.Printf("%s: %d entries\n", r.Path, r.Entries)
			}
			for _, sig := range r.Unused {
				fmt.Printf("     unused intrinsic %s\n", sig)
			}
		}
		if failed > 0 {
			os.Exit(1)
		}
	},
}

var dumpFormat string

var dumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Print the parsed type entries of a Natvis document",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		logger := newLogger(cfg)
		ctx := cmd.Context()

		doc, err := newParser(cfg, logger).ParseFile(ctx, args[0])
		if err != nil {
			log.Fatalf("Failed to parse: %v", err)
		}
		var records []storage.EntryRecord
		for entry := range doc.Types(ctx) {
			records = append(records, storage.NewEntryRecord(entry))
		}

		if dumpFormat == "yaml" {
			out, err := yaml.Marshal(records)
			if err != nil {
				log.Fatalf("Failed to encode: %v", err)
			}
			fmt.Print(string(out))
		} else {
			for _, r := range records {
				printRecord(r)
			}
		}
		for _, def := range doc.MacroDefinitions() {
			fmt.Println(def.String())
		}
	},
}

var indexCmd = &cobra.Command{
	Use:   "index [path...]",
	Short: "Index Natvis documents into the type catalog",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		logger := newLogger(cfg)
		idx, store := initIndexer(cfg, logger)
		defer store.Close()

		report, err := idx.IndexPaths(cmd.Context(), rootsOf(args)...)
		if err != nil {
			log.Fatalf("Index failed: %v", err)
		}
		fmt.Printf("Indexed %d documents (%d entries), %d unchanged, %d failed. Database: %s\n",
			report.Indexed, report.Entries, report.Unchanged, report.Failed, cfg.Catalog.Path)
	},
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <type>",
	Short: "Find the visualizers matching a concrete type name",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		store, err := storage.NewSQLiteStore(cfg.Catalog.Path)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer store.Close()

		matches, err := store.Lookup(cmd.Context(), args[0])
		if err != nil {
			log.Fatalf("Lookup failed: %v", err)
		}
		if len(matches) == 0 {
			warnColor.Printf("No visualizer for %s\n", args[0])
			return
		}
		for _, m := range matches {
			okColor.Printf("%s", m.Name)
			fmt.Printf("  (%s, entry %d)\n", m.Path, m.Ordinal)
			printRecord(m.Entry)
		}
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [path...]",
	Short: "Keep the type catalog in sync with Natvis documents on disk",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		logger := newLogger(cfg)
		idx, store := initIndexer(cfg, logger)
		defer store.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		roots := rootsOf(args)
		if _, err := idx.IndexPaths(ctx, roots...); err != nil {
			log.Fatalf("Index failed: %v", err)
		}
		dirs, err := crawler.NewCrawler().Dirs(roots...)
		if err != nil {
			log.Fatalf("Failed to list directories: %v", err)
		}
		w, err := watch.New(logger.WithName("watch"), cfg.Watch.Debounce.Duration, dirs...)
		if err != nil {
			log.Fatalf("Failed to watch: %v", err)
		}
		defer w.Close()

		fmt.Printf("Watching %d directories. Press Ctrl+C to stop.\n", len(dirs))
		err = w.Run(ctx, func(paths []string) {
			report, err := idx.IndexFiles(ctx, paths...)
			if err != nil {
				logger.Error(err, "reindex failed")
				return
			}
			fmt.Printf("Reindexed %d, removed %d, failed %d\n", report.Indexed, report.Removed, report.Failed)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Fatalf("Watch failed: %v", err)
		}
	},
}

func init() {
	dumpCmd.Flags().StringVarP(&dumpFormat, "format", "f", "text", "Output format: text or yaml")
}

func printRecord(r storage.EntryRecord) {
	fmt.Printf("%s [priority %d]\n", strings.Join(r.Names, " | "), r.Priority)
	for _, s := range r.Summaries {
		fmt.Printf("  display  %s\n", s)
	}
	for _, s := range r.StringViews {
		fmt.Printf("  string   %s\n", s)
	}
	if r.SmartPointer != "" {
		fmt.Printf("  pointer  %s\n", r.SmartPointer)
	}
	for _, it := range r.Items {
		fmt.Printf("  item     %s %s\n", it.Kind, it.Name)
	}
	for _, sig := range r.Intrinsics {
		fmt.Printf("  intrinsic %s\n", sig)
	}
}
