// Package export serializes scrape results for download.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/sitelens/sitelens/scrape"
)

// payload is the JSON document shape: the scraped page, the successfully
// fetched linked pages, and the analysis text.
type payload struct {
	URL         string            `json:"url"`
	MainContent string            `json:"main_content"`
	LinkedPages []scrape.LinkPage `json:"linked_pages"`
	Analysis    string            `json:"gemini_analysis"`
}

// JSON renders the result and analysis as an indented JSON document.
func JSON(result *scrape.Result, analysis string) ([]byte, error) {
	data, err := json.MarshalIndent(payload{
		URL:         result.URL,
		MainContent: result.MainContent,
		LinkedPages: result.Successes(),
		Analysis:    analysis,
	}, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal result")
	}

	return data, nil
}

// CSV renders the linked-pages table with url and content columns.
func CSV(pages []scrape.LinkPage) ([]byte, error) {
	var buf bytes.Buffer

	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"url", "content"}); err != nil {
		return nil, errors.Wrap(err, "failed to write CSV header")
	}

	for _, page := range pages {
		if err := w.Write([]string{page.URL, page.Content}); err != nil {
			return nil, errors.Wrap(err, "failed to write CSV row")
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errors.Wrap(err, "failed to flush CSV")
	}

	return buf.Bytes(), nil
}
