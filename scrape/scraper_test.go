package scrape

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

// fakeBrowser is an in-memory Browser for exercising the fetch pipeline.
type fakeBrowser struct {
	pages      map[string]string
	readyState string
	failNav    map[string]bool

	current   string
	navigated []string
	closed    bool
}

func newFakeBrowser(pages map[string]string) *fakeBrowser {
	return &fakeBrowser{
		pages:      pages,
		readyState: "complete",
		failNav:    make(map[string]bool),
	}
}

func (f *fakeBrowser) factory(_ context.Context) (Browser, error) {
	return f, nil
}

func (f *fakeBrowser) Navigate(_ context.Context, url string) error {
	f.navigated = append(f.navigated, url)
	if f.failNav[url] {
		return fmt.Errorf("connection refused")
	}
	f.current = url
	return nil
}

func (f *fakeBrowser) ReadyState(_ context.Context) (string, error) {
	return f.readyState, nil
}

func (f *fakeBrowser) ScrollHeight(_ context.Context) (int64, error) {
	return 1000, nil
}

func (f *fakeBrowser) ScrollToBottom(_ context.Context) error {
	return nil
}

func (f *fakeBrowser) HTML(_ context.Context) (string, error) {
	return f.pages[f.current], nil
}

func (f *fakeBrowser) Close() error {
	f.closed = true
	return nil
}

func testOptions() Options {
	return Options{
		LoadTimeout:     time.Second,
		ScrollInterval:  time.Millisecond,
		MaxScrollPasses: 3,
	}
}

func TestScrapeMainContent(t *testing.T) {
	browser := newFakeBrowser(map[string]string{
		"https://example.com": `<html><body><script>x</script><h1 class="big">Hello</h1></body></html>`,
	})
	s := NewScraper(browser.factory, testOptions())

	result, err := s.Scrape(context.Background(), "https://example.com", false, 5)
	if err != nil {
		t.Fatal(err)
	}

	if strings.Contains(result.MainContent, "script") || strings.Contains(result.MainContent, "class=") {
		t.Errorf("main content not sanitized: %s", result.MainContent)
	}
	if !strings.Contains(result.MainContent, "<h1>Hello</h1>") {
		t.Errorf("main content missing page text: %s", result.MainContent)
	}
	if len(result.Links) != 0 {
		t.Errorf("links collected without extraction enabled: %v", result.Links)
	}
	if !browser.closed {
		t.Error("browser session not released")
	}
}

func TestScrapeAttemptsAtMostMaxLinks(t *testing.T) {
	var anchors strings.Builder
	for i := 0; i < 12; i++ {
		fmt.Fprintf(&anchors, `<a href="/page-%d">p%d</a>`, i, i)
	}

	pages := map[string]string{
		"https://example.com": "<html><body>" + anchors.String() + "</body></html>",
	}
	for i := 0; i < 12; i++ {
		pages[fmt.Sprintf("https://example.com/page-%d", i)] = fmt.Sprintf("<html><body><p>page %d</p></body></html>", i)
	}

	browser := newFakeBrowser(pages)
	s := NewScraper(browser.factory, testOptions())

	result, err := s.Scrape(context.Background(), "https://example.com", true, 5)
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Links) != 5 {
		t.Errorf("expected exactly 5 linked pages, got %d", len(result.Links))
	}
	// One navigation for the main page, one per attempted link.
	if len(browser.navigated) != 6 {
		t.Errorf("expected 6 navigations, got %d: %v", len(browser.navigated), browser.navigated)
	}
}

func TestScrapeLinkFailureIsolated(t *testing.T) {
	pages := map[string]string{
		"https://example.com": `<html><body>
			<a href="/a">a</a><a href="/b">b</a><a href="/c">c</a><a href="/d">d</a><a href="/e">e</a>
		</body></html>`,
	}
	for _, p := range []string{"a", "b", "c", "d", "e"} {
		pages["https://example.com/"+p] = "<html><body><p>" + p + "</p></body></html>"
	}

	browser := newFakeBrowser(pages)
	browser.failNav["https://example.com/c"] = true

	s := NewScraper(browser.factory, testOptions())

	result, err := s.Scrape(context.Background(), "https://example.com", true, 5)
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Links) != 5 {
		t.Fatalf("all attempted links must appear in the sequence, got %d", len(result.Links))
	}

	successes := result.Successes()
	if len(successes) != 4 {
		t.Errorf("expected 4 successful linked pages, got %d", len(successes))
	}

	var failed *NavigationError
	for _, page := range result.Links {
		if page.Err != nil {
			if ne, ok := page.Err.(*NavigationError); ok {
				failed = ne
			}
		}
	}
	if failed == nil || failed.URL != "https://example.com/c" {
		t.Errorf("expected a NavigationError for /c, got %v", failed)
	}
}

func TestScrapeLoadTimeout(t *testing.T) {
	browser := newFakeBrowser(map[string]string{
		"https://slow.example.com": "<html><body>never ready</body></html>",
	})
	browser.readyState = "loading"

	opts := testOptions()
	opts.LoadTimeout = 50 * time.Millisecond

	s := NewScraper(browser.factory, opts)

	result, err := s.Scrape(context.Background(), "https://slow.example.com", false, 5)
	if result != nil {
		t.Errorf("expected nil result on timeout, got %+v", result)
	}
	if err != ErrLoadTimeout {
		t.Errorf("expected ErrLoadTimeout, got %v", err)
	}
	if !browser.closed {
		t.Error("browser session must be released on the error path")
	}
}

func TestScrapeLinkExcerptTruncated(t *testing.T) {
	long := strings.Repeat("content ", 200) // well past the excerpt bound

	browser := newFakeBrowser(map[string]string{
		"https://example.com":      `<html><body><a href="/long">long</a></body></html>`,
		"https://example.com/long": "<html><body><p>" + long + "</p></body></html>",
	})

	s := NewScraper(browser.factory, testOptions())

	result, err := s.Scrape(context.Background(), "https://example.com", true, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Links) != 1 {
		t.Fatalf("expected one linked page, got %d", len(result.Links))
	}

	excerpt := result.Links[0].Content
	if !strings.HasSuffix(excerpt, "...") {
		t.Errorf("long excerpt missing ellipsis marker: %q", excerpt)
	}
	if len(excerpt) != MaxExcerptLen+3 {
		t.Errorf("unexpected excerpt length: %d", len(excerpt))
	}
}

func TestScrapeLinkExcerptMultibyte(t *testing.T) {
	long := strings.Repeat("设计页面布局 ", 200)

	browser := newFakeBrowser(map[string]string{
		"https://example.com":    `<html><body><a href="/cn">cn</a></body></html>`,
		"https://example.com/cn": "<html><body><p>" + long + "</p></body></html>",
	})

	s := NewScraper(browser.factory, testOptions())

	result, err := s.Scrape(context.Background(), "https://example.com", true, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Links) != 1 {
		t.Fatalf("expected one linked page, got %d", len(result.Links))
	}

	excerpt := result.Links[0].Content
	if !utf8.ValidString(excerpt) {
		t.Fatalf("excerpt is not valid UTF-8: %q", excerpt)
	}
	if n := utf8.RuneCountInString(excerpt); n != MaxExcerptLen+3 {
		t.Errorf("unexpected excerpt rune count: %d", n)
	}
}
