package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/rufuslabs/rufus/internal/config"
	"github.com/rufuslabs/rufus/pkg/rufus"
	"github.com/rufuslabs/rufus/pkg/synthesizer"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "rufus",
	Short: "Rufus - instruction-guided web content extraction",
	Long: `Rufus crawls a website, scores its content against a natural
language instruction and returns the relevant parts, ranked and annotated
with the path the crawler took to reach them.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [URL] [INSTRUCTIONS]",
	Short: "Crawl a site and extract content matching the instructions",
	Example: `  rufus scrape https://example.com "Find product pricing and plan comparisons"
  rufus scrape https://docs.example.com "API authentication" --depth 2 --format markdown`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		seedURL, instructions := args[0], args[1]

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		logger := newLogger(cmd, cfg)

		client, err := rufus.New(cfg, logger)
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond,
			spinner.WithWriter(os.Stderr), spinner.WithSuffix(" scraping "+seedURL))
		spin.Start()

		result, scrapeErr := client.Scrape(ctx, seedURL, instructions)
		spin.Stop()

		if result == nil {
			return scrapeErr
		}
		if scrapeErr != nil {
			logger.Warn("scrape interrupted, writing partial results", "err", scrapeErr)
		}

		out := os.Stdout
		if cfg.Output.Path != "" {
			f, err := os.Create(cfg.Output.Path)
			if err != nil {
				return fmt.Errorf("cannot create output file: %w", err)
			}
			defer f.Close()
			out = f
		}

		writer, err := synthesizer.ForFormat(cfg.Output.Format, out)
		if err != nil {
			return err
		}
		if err := writer.Write(result); err != nil {
			return fmt.Errorf("cannot write results: %w", err)
		}

		info := client.CacheInfo()
		logger.Info("done",
			"documents", result.Metadata.DocumentCount,
			"visited", result.Metadata.PagesVisited,
			"failed", result.Metadata.PagesFailed,
			"cached_pages", info.PageCache.Entries)

		return scrapeErr
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the client caches",
	Long: `Caches live for the lifetime of a client session. These commands
open a session from the current configuration and operate on its caches.`,
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Report entry counts and approximate sizes for both caches",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(client.CacheInfo())
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the page and extraction caches",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		client.ClearCache()
		info := client.CacheInfo()
		fmt.Fprintf(cmd.OutOrStdout(), "caches cleared (%d page entries, %d extraction entries)\n",
			info.PageCache.Entries, info.ExtractionCache.Entries)
		return nil
	},
}

func newClient(cmd *cobra.Command) (*rufus.Client, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return rufus.New(cfg, newLogger(cmd, cfg))
}

// loadConfig reads the config file and applies flag overrides on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("depth") {
		cfg.Crawler.MaxDepth, _ = flags.GetInt("depth")
	}
	if flags.Changed("max-pages") {
		cfg.Crawler.MaxPages, _ = flags.GetInt("max-pages")
	}
	if flags.Changed("workers") {
		cfg.Crawler.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("strict-domain") {
		cfg.Crawler.StrictDomain, _ = flags.GetBool("strict-domain")
	}
	if flags.Changed("threshold") {
		cfg.Extraction.SimilarityThreshold, _ = flags.GetFloat64("threshold")
	}
	if flags.Changed("chunk-size") {
		cfg.Extraction.ChunkSize, _ = flags.GetInt("chunk-size")
	}
	if flags.Changed("parse-pdfs") {
		cfg.Extraction.ParsePDFs, _ = flags.GetBool("parse-pdfs")
	}
	if flags.Changed("scorer") {
		cfg.Scorer.Kind, _ = flags.GetString("scorer")
	}
	if flags.Changed("format") {
		cfg.Output.Format, _ = flags.GetString("format")
	}
	if flags.Changed("output") {
		cfg.Output.Path, _ = flags.GetString("output")
	}

	// Re-check after overrides; flags can break constraints too.
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
	})

	level, err := log.ParseLevel(cfg.Logging.Level)
	if err == nil {
		logger.SetLevel(level)
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

func init() {
	scrapeCmd.Flags().Int("depth", 3, "Maximum crawl depth from the seed URL")
	scrapeCmd.Flags().Int("max-pages", 100, "Maximum number of pages to fetch")
	scrapeCmd.Flags().Int("workers", 8, "Concurrent fetch workers")
	scrapeCmd.Flags().Bool("strict-domain", false, "Only follow links on the seed host")
	scrapeCmd.Flags().Float64("threshold", 0.6, "Minimum relevance score to keep a fragment")
	scrapeCmd.Flags().Int("chunk-size", 1024, "Maximum chunk size in characters")
	scrapeCmd.Flags().Bool("parse-pdfs", false, "Extract text from PDF documents")
	scrapeCmd.Flags().String("scorer", "lexical", "Relevance scorer (lexical, claude)")
	scrapeCmd.Flags().String("format", "json", "Output format (json, csv, markdown)")
	scrapeCmd.Flags().String("output", "", "Output file (default stdout)")

	cacheCmd.AddCommand(cacheInfoCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	rootCmd.AddCommand(scrapeCmd)
	rootCmd.AddCommand(cacheCmd)

	rootCmd.PersistentFlags().String("config", "", "Config file path")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable verbose output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
