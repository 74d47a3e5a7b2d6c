package main

import (
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/spf13/cobra"

	"natvis/internal/config"
	"natvis/internal/crawler"
	"natvis/internal/index"
	"natvis/internal/natvis"
	"natvis/internal/storage"
)

var (
	rootCmd = &cobra.Command{
		Use:   "natvis",
		Short: "Parse, check and index Natvis visualizers",
	}
	cfgPath   string
	dbPath    string
	verbosity int
	suppress  bool

	okColor   = color.New(color.FgGreen, color.Bold)
	warnColor = color.New(color.FgYellow, color.Bold)
	errColor  = color.New(color.FgRed, color.Bold)
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "natvis.yaml", "Path to the configuration file (YAML or TOML)")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Path to the type catalog database (SQLite)")
	rootCmd.PersistentFlags().IntVarP(&verbosity, "verbose", "v", -1, "Log verbosity")
	rootCmd.PersistentFlags().BoolVar(&suppress, "suppress-errors", false, "Treat unreadable documents as empty")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(watchCmd)
}

// loadConfig applies command-line flags over the configuration file.
func loadConfig(cmd *cobra.Command) *config.Config {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if dbPath != "" {
		cfg.Catalog.Path = dbPath
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Log.Verbosity = verbosity
	}
	if cmd.Flags().Changed("suppress-errors") {
		cfg.Parser.SuppressErrors = suppress
	}
	return cfg
}

func newLogger(cfg *config.Config) logr.Logger {
	stdr.SetVerbosity(cfg.Log.Verbosity)
	return stdr.New(log.New(os.Stderr, "", log.LstdFlags))
}

func newParser(cfg *config.Config, logger logr.Logger) *natvis.Parser {
	return natvis.NewParser(logger.WithName("natvis"), natvis.Options{
		SuppressErrors:     cfg.Parser.SuppressErrors,
		ValidateIntrinsics: cfg.Parser.ValidateIntrinsics,
		MaxExpansionDepth:  cfg.Parser.MaxExpansionDepth,
	})
}

// initIndexer opens the catalog and wires the indexer around it.
func initIndexer(cfg *config.Config, logger logr.Logger) (*index.Indexer, *storage.SQLiteStore) {
	store, err := storage.NewSQLiteStore(cfg.Catalog.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	return index.NewIndexer(crawler.NewCrawler(), newParser(cfg, logger), store, logger.WithName("index")), store
}

func rootsOf(args []string) []string {
	if len(args) == 0 {
		return []string{"."}
	}
	return args
}
