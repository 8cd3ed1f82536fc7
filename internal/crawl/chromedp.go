package crawl

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/chromedp/chromedp"
)

// ChromeBrowser implements Browser on a chromedp exec allocator.
type ChromeBrowser struct {
	allocCtx context.Context
	cancel   context.CancelFunc
	logger   *slog.Logger
}

// LaunchChrome starts a Chrome allocator. The returned browser must be
// closed to release the process.
func LaunchChrome(headless bool, logger *slog.Logger) (*ChromeBrowser, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.WindowSize(1280, 1024),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	logger.Info("crawl.browser.launched", "headless", headless)
	return &ChromeBrowser{allocCtx: allocCtx, cancel: cancel, logger: logger}, nil
}

func (b *ChromeBrowser) NewPage(ctx context.Context) (Page, error) {
	pageCtx, cancel := chromedp.NewContext(b.allocCtx)
	// force tab creation so failures surface here, not on first navigation
	if err := chromedp.Run(pageCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", ErrBrowserClosed, err)
	}
	return &chromePage{ctx: pageCtx, cancel: cancel}, nil
}

func (b *ChromeBrowser) Close() error {
	b.cancel()
	return nil
}

type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// run executes actions on the tab context, aborting early when the
// caller's context is cancelled.
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	sub, cancel := context.WithCancel(p.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(sub, actions...)
}

func (p *chromePage) Goto(ctx context.Context, url string) error {
	if err := p.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPageLoad, url, err)
	}
	return nil
}

func (p *chromePage) Screenshot(ctx context.Context, path string, quality int) (int64, error) {
	var buf []byte
	if err := p.run(ctx, chromedp.FullScreenshot(&buf, quality)); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrScreenshotFailed, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrScreenshotFailed, err)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrScreenshotFailed, err)
	}
	return int64(len(buf)), nil
}

func (p *chromePage) Evaluate(ctx context.Context, expr string, out any) error {
	return p.run(ctx, chromedp.Evaluate(expr, out))
}

func (p *chromePage) WaitVisible(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (p *chromePage) Close() error {
	p.cancel()
	return nil
}
