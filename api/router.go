package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/use-agent/sitemapper/api/handler"
	"github.com/use-agent/sitemapper/api/middleware"
	"github.com/use-agent/sitemapper/cache"
	"github.com/use-agent/sitemapper/config"
	"github.com/use-agent/sitemapper/sitemap"
)

// Deps are the components the routes are wired to. Cache and Notifier may
// be nil.
type Deps struct {
	Config      *config.Config
	Crawler     handler.Crawler
	Generator   *sitemap.Generator
	Cache       *cache.Cache
	Notifier    handler.Notifier
	RateLimiter *middleware.RateLimiter
	StartTime   time.Time
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger → RequestID
//	API:     BodyLimit → Auth (if enabled) → RateLimit
//
// Health and metrics stay outside auth so monitoring probes always work.
func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.RequestID())
	r.NoRoute(handler.NotFound)

	v1 := r.Group("/api/v1")

	v1.GET("/health", handler.Health(cfg.Server.Environment, d.StartTime))
	v1.GET("/metrics", gin.WrapH(promhttp.Handler()))

	protected := v1.Group("")
	protected.Use(middleware.BodyLimit(int64(cfg.Server.MaxRequestMB) << 20))
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	rl := d.RateLimiter
	if rl == nil {
		rl = middleware.NewRateLimiter(cfg.RateLimit)
	}
	protected.Use(rl.Middleware())

	protected.POST("/crawl", handler.PostCrawl(d.Crawler, d.Cache, d.Notifier))

	protected.POST("/sitemap/generate", handler.GenerateSitemap(d.Generator))
	protected.GET("/sitemap/generate", handler.SampleSitemap(d.Generator))
	protected.POST("/sitemap/download", handler.DownloadSitemap(d.Generator))
	protected.GET("/sitemap/download", handler.DownloadSample(d.Generator))

	return r
}
