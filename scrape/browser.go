package scrape

import (
	"context"

	"github.com/chromedp/chromedp"
	"github.com/pkg/errors"
)

// Browser is a single rendered-browser session. Implementations are not safe
// for concurrent use; a session is held exclusively for the duration of one
// scrape.
type Browser interface {
	// Navigate loads the given URL in the session.
	Navigate(ctx context.Context, url string) error
	// ReadyState reports the document's current ready state ("loading",
	// "interactive" or "complete").
	ReadyState(ctx context.Context) (string, error)
	// ScrollHeight reports the current height of the document body.
	ScrollHeight(ctx context.Context) (int64, error)
	// ScrollToBottom commands a scroll to the bottom of the document.
	ScrollToBottom(ctx context.Context) error
	// HTML returns the current rendered markup of the page.
	HTML(ctx context.Context) (string, error)
	// Close terminates the session. It must be called on every exit path.
	Close() error
}

// BrowserFactory opens a new browser session.
type BrowserFactory func(ctx context.Context) (Browser, error)

// ChromeOptions configures the headless Chrome session.
type ChromeOptions struct {
	UserAgent  string
	ChromePath string // path to the Chrome binary, empty for auto-detect
}

// DefaultUserAgent is presented to every visited page.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// NewChromeBrowser returns a factory that starts headless Chrome sessions.
func NewChromeBrowser(opts ChromeOptions) BrowserFactory {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	return func(ctx context.Context) (Browser, error) {
		allocOpts := []chromedp.ExecAllocatorOption{
			chromedp.NoDefaultBrowserCheck,
			chromedp.NoFirstRun,
			chromedp.Headless,
			chromedp.DisableGPU,
			chromedp.NoSandbox,
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(opts.UserAgent),
		}

		if opts.ChromePath != "" {
			allocOpts = append(allocOpts, chromedp.ExecPath(opts.ChromePath))
		}

		allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
		tabCtx, tabCancel := chromedp.NewContext(allocCtx)

		cancel := func() {
			tabCancel()
			allocCancel()
		}

		// Run with no actions to start the browser, so a missing or broken
		// Chrome binary surfaces here instead of on the first navigation.
		if err := chromedp.Run(tabCtx); err != nil {
			cancel()
			return nil, errors.Wrap(err, "failed to start browser")
		}

		return &chromeSession{ctx: tabCtx, cancel: cancel}, nil
	}
}

type chromeSession struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// run executes actions against the session's browser context, honoring the
// caller's deadline when one is set.
func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx := s.ctx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(s.ctx, deadline)
		defer cancel()
	}
	return chromedp.Run(runCtx, actions...)
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url))
}

func (s *chromeSession) ReadyState(ctx context.Context) (string, error) {
	var state string
	err := s.run(ctx, chromedp.Evaluate(`document.readyState`, &state))
	return state, err
}

func (s *chromeSession) ScrollHeight(ctx context.Context) (int64, error) {
	var height int64
	err := s.run(ctx, chromedp.Evaluate(`document.body.scrollHeight`, &height))
	return height, err
}

func (s *chromeSession) ScrollToBottom(ctx context.Context) error {
	return s.run(ctx, chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil))
}

func (s *chromeSession) HTML(ctx context.Context) (string, error) {
	var html string
	err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (s *chromeSession) Close() error {
	s.cancel()
	return nil
}
