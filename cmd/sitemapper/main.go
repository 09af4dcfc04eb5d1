// Package main provides the sitemapper CLI.
//
// Usage:
//
//	sitemapper serve
//	sitemapper crawl <url> [--depth N] [--pages N] [--output FILE]
//	sitemapper version
package main

func main() {
	Execute()
}
