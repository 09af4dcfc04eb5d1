package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/use-agent/sitemapper/config"
	"github.com/use-agent/sitemapper/crawler"
	"github.com/use-agent/sitemapper/engine"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitemapper",
		Short: "Crawl a site and generate its sitemap.xml",
		Long: `sitemapper discovers the pages of a website by crawling same-domain links
breadth-first from a seed URL, and renders them as a sitemap protocol 0.9 document.

Run it as an HTTP service with "serve", or one-off from the shell with "crawl".
Configuration is read from SITEMAPPER_* environment variables and a local .env file.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads .env and the environment, and validates the result.
func loadConfig() (*config.Config, error) {
	if _, err := config.LoadEnvFiles(); err != nil {
		return nil, err
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds a slog logger from the LogConfig.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

// newCrawler wires the HTTP fetch engine and crawler from configuration.
func newCrawler(cfg config.CrawlerConfig, logger *slog.Logger) *crawler.Crawler {
	eng := engine.NewHTTPEngine(engine.Options{
		UserAgent:    cfg.UserAgent,
		Timeout:      cfg.FetchTimeout,
		MaxBodyBytes: int64(cfg.MaxBodyMB) << 20,
		ChromeTLS:    cfg.ChromeTLS,
	})
	return crawler.New(eng,
		crawler.WithBatchSize(cfg.BatchSize),
		crawler.WithDelay(cfg.Delay),
		crawler.WithPriority(crawler.PriorityByName(cfg.PriorityPolicy)),
		crawler.WithLogger(logger),
	)
}
