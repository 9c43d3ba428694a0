package remote

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// Browser renders catalogue pages whose listings are built client-side and
// return empty markup to a plain HTTP fetch. Requires Chrome/Chromium on the
// host; sources that need it say so in their registry description.
type Browser struct {
	userAgent string
	timeout   time.Duration
	logger    *slog.Logger
}

// NewBrowser creates a headless-browser fetcher. A nil logger disables
// progress logging.
func NewBrowser(userAgent string, timeout time.Duration, logger *slog.Logger) *Browser {
	if strings.TrimSpace(userAgent) == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Browser{userAgent: userAgent, timeout: timeout, logger: logger}
}

// RenderHTML navigates to rawURL in a headless browser, waits for the body
// plus a settle delay for scripted content, and returns the rendered markup.
func (b *Browser) RenderHTML(ctx context.Context, rawURL string) (string, error) {
	b.logger.Debug("starting headless browser", "url", rawURL)

	browserCtx, cancel := b.newSession(ctx)
	defer cancel()

	var html string
	err := b.step(browserCtx,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body"),
		// Listings populate after load; give the scripts a moment.
		chromedp.Sleep(2*time.Second),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", Wrap(ErrTransient, "", "render page", rawURL, err)
	}

	b.logger.Debug("rendered page", "url", rawURL, "bytes", len(html))
	return html, nil
}

// PageWalk describes an interactive listing session: the entry URL, controls
// clicked once to set up the search, and the pagination control that
// advances it.
type PageWalk struct {
	URL string

	// SetupClicks are CSS selectors clicked in order after the first load,
	// e.g. a filter checkbox followed by the search submit.
	SetupClicks []string

	// NextText is the visible label of the pagination control. The walk ends
	// when no enabled control carries it. Empty means a single page.
	NextText string

	// MaxPages caps the walk as a guard against pagination loops.
	MaxPages int
}

// WalkPages drives an interactive catalogue listing in one browser session
// and hands each rendered page's markup to visit. The walk ends when visit
// returns false, the pagination control disappears or reports disabled, or
// MaxPages is reached.
func (b *Browser) WalkPages(ctx context.Context, walk PageWalk, visit func(page int, html string) (bool, error)) error {
	b.logger.Debug("starting listing walk", "url", walk.URL)

	browserCtx, cancel := b.newSession(ctx)
	defer cancel()

	setup := []chromedp.Action{
		chromedp.Navigate(walk.URL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(2 * time.Second),
	}
	for _, sel := range walk.SetupClicks {
		setup = append(setup,
			chromedp.Click(sel, chromedp.NodeVisible),
			chromedp.Sleep(time.Second),
		)
	}
	if err := b.step(browserCtx, setup...); err != nil {
		return b.walkError(ctx, walk.URL, err)
	}

	maxPages := walk.MaxPages
	if maxPages <= 0 {
		maxPages = 200
	}

	for page := 1; page <= maxPages; page++ {
		var html string
		if err := b.step(browserCtx, chromedp.OuterHTML("html", &html)); err != nil {
			return b.walkError(ctx, walk.URL, err)
		}
		b.logger.Debug("rendered listing page", "url", walk.URL, "page", page, "bytes", len(html))

		more, err := visit(page, html)
		if err != nil || !more {
			return err
		}
		if walk.NextText == "" {
			return nil
		}

		var advanced bool
		if err := b.step(browserCtx, chromedp.Evaluate(clickNextScript(walk.NextText), &advanced)); err != nil {
			return b.walkError(ctx, walk.URL, err)
		}
		if !advanced {
			b.logger.Debug("pagination control absent or disabled, walk complete", "pages", page)
			return nil
		}
		// Results render after the click settles.
		if err := b.step(browserCtx, chromedp.Sleep(3*time.Second)); err != nil {
			return b.walkError(ctx, walk.URL, err)
		}
	}
	return nil
}

func (b *Browser) newSession(ctx context.Context) (context.Context, context.CancelFunc) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(b.userAgent),
		)...,
	)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	return browserCtx, func() {
		cancelBrowser()
		cancelAlloc()
	}
}

// step runs actions under the per-operation budget so one stuck page cannot
// hang a multi-page walk.
func (b *Browser) step(ctx context.Context, actions ...chromedp.Action) error {
	stepCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return chromedp.Run(stepCtx, actions...)
}

func (b *Browser) walkError(ctx context.Context, rawURL string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return Wrap(ErrTransient, "", "walk listing", rawURL, err)
}

// clickNextScript locates the pagination control by rel=next or visible text
// and clicks it, reporting whether the walk advanced.
func clickNextScript(text string) string {
	return fmt.Sprintf(`(function() {
	var el = document.querySelector("a[rel='next']");
	if (!el) {
		var nodes = document.querySelectorAll("a, button");
		for (var i = 0; i < nodes.length; i++) {
			if (nodes[i].textContent.trim().indexOf(%q) >= 0) { el = nodes[i]; break; }
		}
	}
	if (!el || el.disabled) { return false; }
	if ((el.getAttribute("class") || "").indexOf("disabled") >= 0) { return false; }
	el.click();
	return true;
})()`, text)
}
