// Command sitemapper-mcp exposes the sitemapper HTTP API as MCP tools over stdio.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/sitemapper/models"
	"github.com/use-agent/sitemapper/sitemap"
)

// apiClient calls the sitemapper HTTP API.
type apiClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func newAPIClient(baseURL, apiKey string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Minute},
	}
}

// post sends payload as JSON to path and decodes the JSON response into out.
func (c *apiClient) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}

func main() {
	apiURL := os.Getenv("SITEMAPPER_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	client := newAPIClient(apiURL, os.Getenv("SITEMAPPER_API_KEY"))

	s := newServer(client)
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func newServer(client *apiClient) *server.MCPServer {
	s := server.NewMCPServer(
		"sitemapper",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	crawlSiteTool := mcp.NewTool("crawl_site",
		mcp.WithDescription("Crawl a website breadth-first from a URL, following same-domain links, and list the pages found with their titles and last-modified dates."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The starting URL to crawl from"),
		),
		mcp.WithNumber("max_depth",
			mcp.Description("Maximum crawl depth, the starting page being depth 1 (default: 2, max: 10)"),
		),
		mcp.WithNumber("max_pages",
			mcp.Description("Maximum number of pages to record (default: 50, max: 200)"),
		),
	)
	s.AddTool(crawlSiteTool, handleCrawlSite(client))

	generateTool := mcp.NewTool("generate_sitemap",
		mcp.WithDescription("Crawl a website and return its sitemap.xml document."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The starting URL to crawl from"),
		),
		mcp.WithNumber("max_depth",
			mcp.Description("Maximum crawl depth (default: 2, max: 10)"),
		),
		mcp.WithNumber("max_pages",
			mcp.Description("Maximum number of pages in the sitemap (default: 50, max: 200)"),
		),
		mcp.WithString("changefreq",
			mcp.Description("changefreq applied to every entry (omitted by default)"),
			mcp.Enum(models.ChangeFreqs...),
		),
	)
	s.AddTool(generateTool, handleGenerateSitemap(client))

	return s
}

// crawl runs POST /api/v1/crawl with the tool's url/max_depth/max_pages arguments.
func crawl(ctx context.Context, client *apiClient, request mcp.CallToolRequest) (*models.CrawlData, error) {
	url, err := request.RequireString("url")
	if err != nil {
		return nil, fmt.Errorf("url is required")
	}

	payload := models.CrawlRequest{
		URL:      url,
		MaxDepth: request.GetInt("max_depth", 0),
		MaxPages: request.GetInt("max_pages", 0),
	}

	var resp models.CrawlResponse
	if err := client.post(ctx, "/api/v1/crawl", payload, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.Data == nil {
		return nil, apiError("crawl failed", resp.Code, resp.Error, resp.Details)
	}
	return resp.Data, nil
}

func handleCrawlSite(client *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		data, err := crawl(ctx, client, request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Crawled %s: %d pages in %dms\n\n", data.BaseURL, data.TotalPages, data.CrawlTime)
		for i, p := range data.Pages {
			fmt.Fprintf(&sb, "%d. %s", i+1, p.URL)
			if p.Title != "" {
				fmt.Fprintf(&sb, " - %s", p.Title)
			}
			if p.LastModified != "" {
				fmt.Fprintf(&sb, " (modified %s)", p.LastModified)
			}
			sb.WriteByte('\n')
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleGenerateSitemap(client *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		data, err := crawl(ctx, client, request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if len(data.Pages) == 0 {
			return mcp.NewToolResultError(fmt.Sprintf("no pages found at %s", data.BaseURL)), nil
		}

		entries := sitemap.FromPages(data.Pages, request.GetString("changefreq", ""))

		var resp models.SitemapResponse
		payload := models.SitemapRequest{BaseURL: data.BaseURL, Pages: entries}
		if err := client.post(ctx, "/api/v1/sitemap/generate", payload, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("sitemap request failed: %v", err)), nil
		}
		if !resp.Success || resp.Data == nil {
			return mcp.NewToolResultError(apiError("sitemap generation failed", resp.Code, resp.Error, resp.Details).Error()), nil
		}
		return mcp.NewToolResultText(resp.Data.XML), nil
	}
}

func apiError(fallback, code, message string, details []string) error {
	if message == "" {
		return errors.New(fallback)
	}
	msg := fmt.Sprintf("[%s] %s", code, message)
	if len(details) > 0 {
		msg += ": " + strings.Join(details, "; ")
	}
	return errors.New(msg)
}
