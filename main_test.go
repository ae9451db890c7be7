package main

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/sitelens/sitelens/analyze"
	"github.com/sitelens/sitelens/log"
	"github.com/sitelens/sitelens/scrape"
	"github.com/sitelens/sitelens/store"
)

type staticBrowser struct {
	html string
}

func (b *staticBrowser) factory(_ context.Context) (scrape.Browser, error) { return b, nil }

func (b *staticBrowser) Navigate(_ context.Context, _ string) error { return nil }

func (b *staticBrowser) ReadyState(_ context.Context) (string, error) { return "complete", nil }

func (b *staticBrowser) ScrollHeight(_ context.Context) (int64, error) { return 1000, nil }

func (b *staticBrowser) ScrollToBottom(_ context.Context) error { return nil }

func (b *staticBrowser) HTML(_ context.Context) (string, error) { return b.html, nil }

func (b *staticBrowser) Close() error { return nil }

type failingProvider struct{}

func (failingProvider) Name() string { return "test" }

func (failingProvider) Generate(_ context.Context, _ string, _ float32) (string, error) {
	return "", fmt.Errorf("model unavailable")
}

func TestRunOnceAnalysisFailureStillExports(t *testing.T) {
	browser := &staticBrowser{
		html: "<html><head><title>Example</title></head><body><p>content</p></body></html>",
	}
	opts := scrape.Options{
		LoadTimeout:     time.Second,
		ScrollInterval:  time.Millisecond,
		MaxScrollPasses: 3,
	}

	fileStore := store.NewFileStore(t.TempDir())

	a := &app{
		log:      log.NewLogger("test"),
		scraper:  scrape.NewScraper(browser.factory, opts),
		analyzer: analyze.NewClient(failingProvider{}),
		provider: "test",
		store:    fileStore,
	}

	err := a.runOnce(context.Background(), "https://example.com", false, 1)
	if err == nil {
		t.Fatal("expected the analysis failure to be returned")
	}

	var analysisErr *analyze.AnalysisError
	if !errors.As(err, &analysisErr) {
		t.Fatalf("expected an AnalysisError, got %v", err)
	}

	// The scraped content must still be written even though analysis failed.
	files, listErr := fileStore.List()
	if listErr != nil {
		t.Fatal(listErr)
	}
	if len(files) == 0 {
		t.Error("expected exports despite the analysis failure")
	}
}
