package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/use-agent/sitemapper/models"
	"github.com/use-agent/sitemapper/sitemap"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <url>",
		Short: "Crawl a site and print its sitemap",
		Long: `Crawl fetches the seed URL and follows same-domain links breadth-first,
then writes the discovered pages as sitemap XML (or as JSON with --json).

Examples:
  # Sitemap for the first two levels of a site
  sitemapper crawl https://example.com

  # Deeper crawl written to a file
  sitemapper crawl --depth 4 --pages 200 -o sitemap.xml https://example.com

  # Never fail: emit the sample sitemap if the site cannot be crawled
  sitemapper crawl --fallback-sample https://example.com`,
		Args: cobra.ExactArgs(1),
		RunE: runCrawl,
	}

	cmd.Flags().IntP("depth", "d", models.DefaultMaxDepth, "Maximum crawl depth (1-10), the seed being depth 1")
	cmd.Flags().IntP("pages", "p", models.DefaultMaxPages, "Maximum number of pages to record (1-200)")
	cmd.Flags().String("changefreq", "", "changefreq applied to every entry (default from SITEMAPPER_DEFAULT_CHANGEFREQ)")
	cmd.Flags().StringP("output", "o", "", "Write output to this file instead of stdout")
	cmd.Flags().Bool("json", false, "Print the crawl result as JSON instead of sitemap XML")
	cmd.Flags().Bool("fallback-sample", false, "Print the sample sitemap when the crawl fails or finds no pages")

	return cmd
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log, cmd.ErrOrStderr())

	depth, _ := cmd.Flags().GetInt("depth")
	pages, _ := cmd.Flags().GetInt("pages")
	changefreq, _ := cmd.Flags().GetString("changefreq")
	output, _ := cmd.Flags().GetString("output")
	asJSON, _ := cmd.Flags().GetBool("json")
	fallback, _ := cmd.Flags().GetBool("fallback-sample")
	if !cmd.Flags().Changed("changefreq") {
		changefreq = cfg.Sitemap.DefaultChangefreq
	}

	req := models.CrawlRequest{URL: args[0], MaxDepth: depth, MaxPages: pages}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	res, crawlErr := newCrawler(cfg.Crawler, logger).Crawl(ctx, req)

	var (
		invalidURL *models.InvalidURLError
		validation *models.ValidationError
	)
	if errors.As(crawlErr, &invalidURL) || errors.As(crawlErr, &validation) {
		return crawlErr
	}

	var out []byte
	switch {
	case asJSON:
		if crawlErr != nil {
			return fmt.Errorf("crawl failed: %w", crawlErr)
		}
		out, err = json.MarshalIndent(models.CrawlResponse{Success: true, Data: res.Data()}, "", "  ")
		if err != nil {
			return err
		}
		out = append(out, '\n')

	case crawlErr != nil || len(res.Pages) == 0:
		if !fallback {
			if crawlErr != nil {
				return fmt.Errorf("crawl failed: %w", crawlErr)
			}
			return fmt.Errorf("crawl of %s found no pages", res.BaseURL)
		}
		logger.Warn("live crawl unavailable, using sample sitemap", "url", args[0], "error", crawlErr)
		doc, err := sitemap.NewGenerator(cfg.Sitemap.MaxURLs).Generate(sitemap.Sample(args[0], time.Now()), models.DefaultSitemapOptions())
		if err != nil {
			return err
		}
		out = []byte(doc)

	default:
		entries := sitemap.FromPages(res.Pages, changefreq)
		doc, err := sitemap.NewGenerator(cfg.Sitemap.MaxURLs).Generate(entries, models.DefaultSitemapOptions())
		if err != nil {
			return err
		}
		out = []byte(doc)
	}

	return writeOutput(cmd.OutOrStdout(), output, out, logger)
}

func writeOutput(stdout io.Writer, path string, data []byte, logger *slog.Logger) error {
	if path == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	logger.Info("output written", "path", path, "bytes", len(data))
	return nil
}
