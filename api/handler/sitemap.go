package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/sitemapper/models"
	"github.com/use-agent/sitemapper/normalize"
	"github.com/use-agent/sitemapper/sitemap"
)

const defaultSampleBaseURL = "https://example.com"

// GenerateSitemap returns a handler for POST /api/v1/sitemap/generate.
// Invalid entries yield 400 with one detail per problem.
func GenerateSitemap(gen *sitemap.Generator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SitemapRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		doc, err := gen.Generate(req.Pages, req.Options())
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.SitemapResponse{
			Success: true,
			Data:    sitemapData(doc, len(req.Pages)),
		})
	}
}

// SampleSitemap returns a handler for GET /api/v1/sitemap/generate, which
// renders the sample entry set under the baseUrl query parameter.
func SampleSitemap(gen *sitemap.Generator) gin.HandlerFunc {
	return func(c *gin.Context) {
		baseURL, _, err := sampleBase(c)
		if err != nil {
			respondError(c, err)
			return
		}

		entries := sitemap.Sample(baseURL, time.Now())
		doc, err := gen.Generate(entries, models.DefaultSitemapOptions())
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.SitemapResponse{
			Success: true,
			Data:    sitemapData(doc, len(entries)),
		})
	}
}

// DownloadSitemap returns a handler for POST /api/v1/sitemap/download. The
// body is the same as for generate; the response is the XML itself.
func DownloadSitemap(gen *sitemap.Generator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SitemapRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		doc, err := gen.Generate(req.Pages, req.Options())
		if err != nil {
			respondError(c, err)
			return
		}
		writeXMLAttachment(c, "sitemap.xml", doc)
	}
}

// DownloadSample returns a handler for GET /api/v1/sitemap/download.
func DownloadSample(gen *sitemap.Generator) gin.HandlerFunc {
	return func(c *gin.Context) {
		baseURL, host, err := sampleBase(c)
		if err != nil {
			respondError(c, err)
			return
		}

		doc, err := gen.Generate(sitemap.Sample(baseURL, time.Now()), models.DefaultSitemapOptions())
		if err != nil {
			respondError(c, err)
			return
		}
		writeXMLAttachment(c, fmt.Sprintf("sitemap-%s.xml", host), doc)
	}
}

// sampleBase reads and checks the baseUrl query parameter.
func sampleBase(c *gin.Context) (baseURL, host string, err error) {
	baseURL = c.DefaultQuery("baseUrl", defaultSampleBaseURL)
	host, err = normalize.Host(baseURL)
	if err != nil {
		return "", "", err
	}
	return baseURL, host, nil
}

func sitemapData(doc string, count int) *models.SitemapData {
	return &models.SitemapData{
		XML:         doc,
		PageCount:   count,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

func writeXMLAttachment(c *gin.Context, filename, doc string) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Data(http.StatusOK, "application/xml", []byte(doc))
}
