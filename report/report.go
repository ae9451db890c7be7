// Package report renders a scrape result and its analysis as a Markdown
// document with YAML front matter.
package report

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
	"gopkg.in/yaml.v3"

	"github.com/sitelens/sitelens/scrape"
)

type Metadata struct {
	URL         string   `yaml:"url"`
	Title       string   `yaml:"title"`
	FetchedTime string   `yaml:"fetchedTime"`
	Provider    string   `yaml:"provider,omitempty"`
	Links       []string `yaml:"links,omitempty"`
}

// Report couples one scrape result with its design analysis.
type Report struct {
	Result   *scrape.Result
	Analysis string
	Metadata Metadata
}

// New builds a report for the given result. provider names the model backend
// that produced the analysis, for the front matter.
func New(result *scrape.Result, analysis, provider string) *Report {
	meta := Metadata{
		URL:         result.URL,
		Title:       HTMLTitle(result.MainContent),
		FetchedTime: time.Now().Format(time.RFC3339),
		Provider:    provider,
	}

	for _, page := range result.Successes() {
		meta.Links = append(meta.Links, page.URL)
	}

	return &Report{
		Result:   result,
		Analysis: analysis,
		Metadata: meta,
	}
}

// ToMarkdown converts the report to a markdown string with the metadata as
// YAML front matter. It returns the filename and the markdown content.
func (r *Report) ToMarkdown() (string, string, error) {
	var host string
	if u, err := url.Parse(r.Result.URL); err == nil {
		host = u.Host
	}

	body, err := md.ConvertString(r.Result.MainContent, converter.WithDomain(host))
	if err != nil {
		return "", "", errors.Wrap(err, "failed to convert content to markdown")
	}

	if r.Metadata.Title == "" {
		r.Metadata.Title = findMarkdownTitle(body)
	}
	if r.Metadata.Title == "" {
		r.Metadata.Title = strings.ReplaceAll(strings.TrimPrefix(host, "www."), ".", "-")
	}

	frontMatter, err := yaml.Marshal(r.Metadata)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to marshal metadata to YAML")
	}

	var builder strings.Builder
	builder.WriteString("---\n")
	builder.Write(frontMatter)
	builder.WriteString("---\n\n")
	builder.WriteString(body)

	if r.Analysis != "" {
		builder.WriteString("\n\n## Design Analysis\n\n")
		builder.WriteString(r.Analysis)
	}

	for _, page := range r.Result.Successes() {
		builder.WriteString("\n\n## Linked Page: ")
		builder.WriteString(page.URL)
		builder.WriteString("\n\n```html\n")
		builder.WriteString(page.Content)
		builder.WriteString("\n```\n")
	}

	fileName := SanitizeFileName(r.Metadata.Title) + ".md"

	return fileName, builder.String(), nil
}

// HTMLTitle extracts the text of the first title element in the markup, or
// "" when there is none.
func HTMLTitle(markup string) string {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return ""
	}

	title, _ := extractTitle(root)
	return title
}

func isTitleElement(n *html.Node) bool {
	return n.Type == html.ElementNode && n.Data == "title"
}

func extractTitle(n *html.Node) (string, bool) {
	if isTitleElement(n) {
		if n.FirstChild == nil {
			return "", true
		}
		return strings.TrimSpace(n.FirstChild.Data), true
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		result, ok := extractTitle(c)
		if ok {
			return result, ok
		}
	}

	return "", false
}

// findMarkdownTitle returns the text of the first level-1 heading.
func findMarkdownTitle(content string) string {
	parsed := goldmark.New(
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)

	source := []byte(content)
	doc := parsed.Parser().Parse(text.NewReader(source))

	var title string
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if heading, ok := n.(*ast.Heading); ok && entering && heading.Level == 1 {
			var builder strings.Builder
			for child := heading.FirstChild(); child != nil; child = child.NextSibling() {
				if t, ok := child.(*ast.Text); ok {
					builder.Write(t.Segment.Value(source))
				}
			}
			title = builder.String()
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})

	return title
}

var fileNameRegex = regexp.MustCompile(`[\/\\:\*\?"<>\|\p{C}]`)

// SanitizeFileName replaces characters that are unsafe in file names.
func SanitizeFileName(name string) string {
	name = fileNameRegex.ReplaceAllString(name, "-")
	return strings.Trim(name, " .")
}
