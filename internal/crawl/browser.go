// Package crawl drives one headless-browser session per crawl job:
// discovering product pages, capturing screenshots and accumulating
// per-page statistics.
package crawl

import (
	"context"
	"errors"
)

var (
	ErrBrowserClosed    = errors.New("browser closed")
	ErrPageLoad         = errors.New("page load failed")
	ErrScreenshotFailed = errors.New("screenshot failed")
	ErrJobNotFound      = errors.New("crawl job not found")
	ErrNotCrawling      = errors.New("job is not crawling")
)

// Browser is the opaque automation engine capability; the coordinator
// assumes nothing beyond these operations.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is one browser tab.
type Page interface {
	Goto(ctx context.Context, url string) error
	// Screenshot captures the page to path and returns the file size.
	Screenshot(ctx context.Context, path string, quality int) (int64, error)
	// Evaluate runs a JS expression and unmarshals its result into out.
	Evaluate(ctx context.Context, expr string, out any) error
	WaitVisible(ctx context.Context, selector string) error
	Close() error
}
