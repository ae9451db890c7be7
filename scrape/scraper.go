// Package scrape renders pages in a browser session and extracts their
// cleaned content and links.
package scrape

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/sitelens/sitelens/log"
	"github.com/sitelens/sitelens/sanitize"
	"github.com/sitelens/sitelens/util"
)

// MaxExcerptLen bounds the content recorded for a linked page.
const MaxExcerptLen = 500

const readyPollInterval = 100 * time.Millisecond

// ErrLoadTimeout is returned when a page never reaches the complete ready
// state within the configured load timeout.
var ErrLoadTimeout = errors.New("page load timed out before reaching ready state")

// NavigationError reports a failed fetch of a single linked page. It is
// isolated per link and never aborts the remaining links.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("failed to fetch linked page %s: %s", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}

// Options configures scrape timing.
type Options struct {
	// LoadTimeout bounds the ready-state wait on the primary page.
	LoadTimeout time.Duration
	// ScrollInterval is the pause between scroll commands, and the fixed
	// settle pause on linked-page fetches.
	ScrollInterval time.Duration
	// MaxScrollPasses bounds the scroll-settle loop so infinite-scroll pages
	// cannot hang a scrape.
	MaxScrollPasses int
}

// DefaultOptions returns the standard scrape timing.
func DefaultOptions() Options {
	return Options{
		LoadTimeout:     10 * time.Second,
		ScrollInterval:  2 * time.Second,
		MaxScrollPasses: 20,
	}
}

// LinkPage is the outcome of one linked-page fetch. Exactly one of Content
// and Err is meaningful.
type LinkPage struct {
	URL     string `json:"url"`
	Content string `json:"content"`
	Err     error  `json:"-"`
}

// Result is the outcome of one scrape: the sanitized main document and the
// ordered sequence of linked-page outcomes.
type Result struct {
	URL         string
	MainContent string
	Links       []LinkPage
}

// Successes returns the linked pages that were fetched without error, in
// their original order.
func (r *Result) Successes() []LinkPage {
	pages := make([]LinkPage, 0, len(r.Links))
	for _, page := range r.Links {
		if page.Err == nil {
			pages = append(pages, page)
		}
	}
	return pages
}

// Scraper drives a browser session through the fetch pipeline.
type Scraper struct {
	log     zerolog.Logger
	browser BrowserFactory
	opts    Options
}

func NewScraper(browser BrowserFactory, opts Options) *Scraper {
	defaults := DefaultOptions()
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = defaults.LoadTimeout
	}
	if opts.ScrollInterval <= 0 {
		opts.ScrollInterval = defaults.ScrollInterval
	}
	if opts.MaxScrollPasses <= 0 {
		opts.MaxScrollPasses = defaults.MaxScrollPasses
	}

	return &Scraper{
		log:     log.NewLogger("scrape"),
		browser: browser,
		opts:    opts,
	}
}

// Scrape navigates to pageURL, waits for it to load, scrolls until the page
// height settles, and returns the sanitized content. When extractLinks is
// set, up to maxLinks discovered links are visited as well; a failure on one
// linked page is recorded in its LinkPage and does not abort the rest.
//
// Any failure before the main document is captured aborts the whole scrape
// and returns a nil Result. The browser session is released on every path.
func (s *Scraper) Scrape(ctx context.Context, pageURL string, extractLinks bool, maxLinks int) (*Result, error) {
	logger := s.log.With().Str("scrape_id", uuid.NewString()).Str("url", pageURL).Logger()

	browser, err := s.browser(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to acquire browser session")
	}
	defer browser.Close()

	start := time.Now()

	if err := browser.Navigate(ctx, pageURL); err != nil {
		return nil, errors.Wrapf(err, "failed to navigate to %s", pageURL)
	}

	if err := s.waitReady(ctx, browser); err != nil {
		return nil, err
	}

	if err := s.scrollSettle(ctx, browser, logger); err != nil {
		return nil, errors.Wrap(err, "failed to settle page scroll")
	}

	source, err := browser.HTML(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read rendered markup")
	}

	main, err := sanitize.Sanitize(source, true)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("size", util.FormatBytes(int64(len(main)))).
		Dur("duration", time.Since(start)).
		Msg("Main document captured")

	result := &Result{URL: pageURL, MainContent: main}

	if extractLinks {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(source))
		if err != nil {
			return nil, &sanitize.ParseError{Err: err}
		}

		attempted := 0
		for link := range Links(doc, pageURL) {
			if attempted == maxLinks {
				break
			}
			attempted++

			page := s.scrapeLink(ctx, browser, link)
			if page.Err != nil {
				logger.Warn().Err(page.Err).Str("link", link).Msg("Linked page dropped")
			} else {
				logger.Debug().Str("link", link).Msg("Linked page captured")
			}

			result.Links = append(result.Links, page)
		}
	}

	return result, nil
}

// waitReady blocks until the document reports the complete ready state,
// bounded by the load timeout.
func (s *Scraper) waitReady(ctx context.Context, browser Browser) error {
	deadline := time.Now().Add(s.opts.LoadTimeout)

	for {
		state, err := browser.ReadyState(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to read document ready state")
		}
		if state == "complete" {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrLoadTimeout
		}
		if err := pause(ctx, readyPollInterval); err != nil {
			return err
		}
	}
}

// scrollSettle repeatedly scrolls to the bottom of the page until its height
// stops increasing, triggering lazily loaded content. The pass bound keeps
// infinite-scroll pages from hanging the scrape.
func (s *Scraper) scrollSettle(ctx context.Context, browser Browser, logger zerolog.Logger) error {
	last, err := browser.ScrollHeight(ctx)
	if err != nil {
		return err
	}

	for pass := 0; pass < s.opts.MaxScrollPasses; pass++ {
		if err := browser.ScrollToBottom(ctx); err != nil {
			return err
		}
		if err := pause(ctx, s.opts.ScrollInterval); err != nil {
			return err
		}

		height, err := browser.ScrollHeight(ctx)
		if err != nil {
			return err
		}
		if height == last {
			return nil
		}
		last = height
	}

	logger.Warn().Int("passes", s.opts.MaxScrollPasses).Msg("Page height never settled, continuing with current content")
	return nil
}

// scrapeLink fetches one linked page. There is no ready-state wait here, only
// a fixed settle pause.
func (s *Scraper) scrapeLink(ctx context.Context, browser Browser, link string) LinkPage {
	if err := browser.Navigate(ctx, link); err != nil {
		return LinkPage{URL: link, Err: &NavigationError{URL: link, Err: err}}
	}

	if err := pause(ctx, s.opts.ScrollInterval); err != nil {
		return LinkPage{URL: link, Err: &NavigationError{URL: link, Err: err}}
	}

	source, err := browser.HTML(ctx)
	if err != nil {
		return LinkPage{URL: link, Err: &NavigationError{URL: link, Err: err}}
	}

	content, err := sanitize.Sanitize(source, true)
	if err != nil {
		return LinkPage{URL: link, Err: &NavigationError{URL: link, Err: err}}
	}

	return LinkPage{URL: link, Content: util.Truncate(content, MaxExcerptLen)}
}

func pause(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
