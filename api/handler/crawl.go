package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/sitemapper/cache"
	"github.com/use-agent/sitemapper/crawler"
	"github.com/use-agent/sitemapper/models"
	"github.com/use-agent/sitemapper/normalize"
	"github.com/use-agent/sitemapper/webhook"
)

// Crawler runs one crawl. *crawler.Crawler satisfies it.
type Crawler interface {
	Crawl(ctx context.Context, req models.CrawlRequest) (*crawler.Result, error)
}

// Notifier delivers webhook events. *webhook.Notifier satisfies it.
type Notifier interface {
	DeliverAsync(url, secret string, event *webhook.Event) <-chan error
}

// PostCrawl returns a handler for POST /api/v1/crawl.
//
// Flow:
//  1. Bind, default omitted bounds, validate bounds and seed URL.
//  2. Serve a cached result when maxAge allows it.
//  3. Crawl, cache the result, notify the webhook, respond.
//
// cc and wh may be nil.
func PostCrawl(cr Crawler, cc *cache.Cache, wh Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload models.CrawlPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			respondBindError(c, err)
			return
		}
		req := payload.Request()

		seed, err := normalize.URL(req.URL)
		if err != nil {
			respondError(c, err)
			return
		}
		if err := req.Validate(); err != nil {
			respondError(c, err)
			return
		}

		key := cache.Key(seed, req.MaxDepth, req.MaxPages)
		if cc != nil && req.MaxAge > 0 {
			if cached, hit := cc.Get(key, req.MaxAge); hit {
				c.JSON(http.StatusOK, models.CrawlResponse{
					Success:     true,
					Data:        cached,
					CacheStatus: "hit",
				})
				return
			}
		}

		res, err := cr.Crawl(c.Request.Context(), req)
		if err != nil {
			var (
				invalidURL *models.InvalidURLError
				validation *models.ValidationError
			)
			if !errors.As(err, &invalidURL) && !errors.As(err, &validation) {
				slog.Error("crawl failed", "url", seed, "error", err)
				err = models.NewServiceError(models.ErrCodeCrawlFailed, "crawl failed", err)
				notify(wh, req, webhook.EventCrawlFailed, gin.H{"url": seed, "error": err.Error()})
			}
			respondError(c, err)
			return
		}

		data := res.Data()
		resp := models.CrawlResponse{Success: true, Data: data}
		if cc != nil {
			cc.Set(key, data)
			if req.MaxAge > 0 {
				resp.CacheStatus = "miss"
			}
		}
		notify(wh, req, webhook.EventCrawlCompleted, data)

		c.JSON(http.StatusOK, resp)
	}
}

func notify(wh Notifier, req models.CrawlRequest, eventType string, data any) {
	if wh == nil || req.WebhookURL == "" {
		return
	}
	wh.DeliverAsync(req.WebhookURL, req.WebhookSecret, webhook.NewEvent(eventType, data))
}
