package scrape

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Links collects the absolute URLs reachable from anchor tags in doc.
// An href that already carries an http scheme is kept verbatim; a
// root-relative href is resolved against base with its trailing slash
// stripped. Every other form (relative paths, mailto:, fragments) is dropped.
// The result is a set, so iteration order is not stable.
func Links(doc *goquery.Document, base string) map[string]struct{} {
	links := make(map[string]struct{})

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		switch {
		case href == "":
		case strings.HasPrefix(href, "http"):
			links[href] = struct{}{}
		case strings.HasPrefix(href, "/"):
			links[strings.TrimRight(base, "/")+href] = struct{}{}
		}
	})

	return links
}
