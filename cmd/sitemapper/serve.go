package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/use-agent/sitemapper/api"
	"github.com/use-agent/sitemapper/api/handler"
	"github.com/use-agent/sitemapper/api/middleware"
	"github.com/use-agent/sitemapper/cache"
	"github.com/use-agent/sitemapper/sitemap"
	"github.com/use-agent/sitemapper/webhook"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve exposes crawling and sitemap generation over HTTP under /api/v1:

  POST /crawl               crawl a site and return its page records
  POST /sitemap/generate    render page entries as sitemap XML (JSON envelope)
  POST /sitemap/download    same, returned as an XML attachment
  GET  /sitemap/generate    sample sitemap for ?baseUrl=
  GET  /sitemap/download    sample sitemap attachment for ?baseUrl=
  GET  /health, GET /metrics`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	// ── 1. Configuration and logging ────────────────────────────────
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	slog.SetDefault(newLogger(cfg.Log, os.Stdout))
	handler.Version = getVersion()

	slog.Info("sitemapper starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"batchSize", cfg.Crawler.BatchSize,
		"delay", cfg.Crawler.Delay,
		"priority", cfg.Crawler.PriorityPolicy,
	)

	// ── 2. Components ───────────────────────────────────────────────
	cc := cache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL)
	defer cc.Close()

	stop := make(chan struct{})
	defer close(stop)
	rl := middleware.NewRateLimiter(cfg.RateLimit)
	rl.StartCleanup(stop)

	router := api.NewRouter(api.Deps{
		Config:      cfg,
		Crawler:     newCrawler(cfg.Crawler, slog.Default()),
		Generator:   sitemap.NewGenerator(cfg.Sitemap.MaxURLs),
		Cache:       cc,
		Notifier:    webhook.NewNotifier(nil, slog.Default()),
		RateLimiter: rl,
		StartTime:   time.Now(),
	})

	// ── 3. HTTP server ──────────────────────────────────────────────
	addr := cfg.Server.Addr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// ── 4. Graceful shutdown ────────────────────────────────────────
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	select {
	case err := <-serveErr:
		if err != nil {
			slog.Error("HTTP server error", "error", err)
			return err
		}
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	// Give in-flight crawls time to finish.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("sitemapper stopped")
	return nil
}
