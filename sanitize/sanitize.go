// Package sanitize strips rendered markup down to meaningful structure.
package sanitize

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"golang.org/x/net/html"
)

// unwantedTags are removed entirely, subtrees included, wherever they appear.
var unwantedTags = []string{
	"script", "style", "meta", "footer", "header",
	"nav", "aside", "form", "iframe", "noscript",
}

// ParseError reports markup that could not be parsed at all. Malformed but
// recoverable markup does not produce one; the parser is lenient.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparseable markup: %s", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Sanitize removes the unwanted tags from markup and, when cleanAttributes is
// set, strips attributes from the remaining elements: anchors keep a non-empty
// href, images keep non-empty src and alt, everything else loses its
// attribute set. Blank lines are dropped and the rest are trimmed.
//
// Sanitize is idempotent: re-sanitizing its output yields the same string.
func Sanitize(markup string, cleanAttributes bool) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", &ParseError{Err: err}
	}

	doc.Find(strings.Join(unwantedTags, ", ")).Remove()

	if cleanAttributes {
		doc.Find("*").Each(func(_ int, sel *goquery.Selection) {
			for _, n := range sel.Nodes {
				n.Attr = keepAttributes(n)
			}
		})
	}

	out, err := doc.Html()
	if err != nil {
		return "", errors.Wrap(err, "failed to serialize markup")
	}

	return trimLines(out), nil
}

// keepAttributes returns the attribute set an element retains after cleaning.
func keepAttributes(n *html.Node) []html.Attribute {
	switch n.Data {
	case "a":
		for _, attr := range n.Attr {
			if attr.Key == "href" && attr.Val != "" {
				return []html.Attribute{{Key: "href", Val: attr.Val}}
			}
		}
		return nil
	case "img":
		var kept []html.Attribute
		for _, key := range []string{"src", "alt"} {
			for _, attr := range n.Attr {
				if attr.Key == key && attr.Val != "" {
					kept = append(kept, html.Attribute{Key: key, Val: attr.Val})
					break
				}
			}
		}
		return kept
	default:
		return nil
	}
}

func trimLines(markup string) string {
	lines := strings.Split(markup, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
