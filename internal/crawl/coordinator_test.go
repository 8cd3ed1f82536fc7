package crawl

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/benfi/label-automation/constants"
	"github.com/benfi/label-automation/internal/entity"
)

// fakePage serves canned link sets per URL and records screenshots.
type fakePage struct {
	mu       sync.Mutex
	links    map[string][]string // page URL -> hrefs
	failGoto map[string]bool
	failShot map[string]bool
	current  string
	shots    []string
}

func (p *fakePage) Goto(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failGoto[url] {
		return fmt.Errorf("%w: %s", ErrPageLoad, url)
	}
	p.current = url
	return nil
}

func (p *fakePage) Screenshot(_ context.Context, path string, _ int) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failShot[p.current] {
		return 0, ErrScreenshotFailed
	}
	p.shots = append(p.shots, path)
	return 1024, nil
}

func (p *fakePage) Evaluate(_ context.Context, _ string, out any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	hrefs := out.(*[]string)
	*hrefs = append([]string(nil), p.links[p.current]...)
	return nil
}

func (p *fakePage) WaitVisible(context.Context, string) error { return nil }
func (p *fakePage) Close() error                              { return nil }

type fakeBrowser struct {
	page *fakePage
}

func (b *fakeBrowser) NewPage(context.Context) (Page, error) { return b.page, nil }
func (b *fakeBrowser) Close() error                          { return nil }

func awaitTerminal(t *testing.T, c *Coordinator, id uuid.UUID) *entity.CrawlJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := c.GetJob(id)
		if ok && job.Status.Terminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach a terminal state", id)
	return nil
}

func newTestCoordinator(t *testing.T, page *fakePage) *Coordinator {
	t.Helper()
	c := NewCoordinator(&fakeBrowser{page: page}, CoordinatorConfig{
		ScreenshotDir: t.TempDir(),
		PageTimeout:   time.Second,
		RatePerSecond: 1000, // no throttling in tests
	}, nil)
	t.Cleanup(c.Shutdown)
	return c
}

const shop = "https://shop.example.de"

func TestCrawlHappyPath(t *testing.T) {
	page := &fakePage{
		links: map[string][]string{
			shop: {
				shop + "/produkt/a",
				shop + "/kategorie/regale",
			},
			shop + "/kategorie/regale": {
				shop + "/produkt/b",
				shop + "/produkt/a", // duplicate across pages
			},
		},
	}
	c := newTestCoordinator(t, page)

	job, err := c.StartCrawl(shop, entity.CrawlConfig{})
	if err != nil {
		t.Fatalf("StartCrawl: %v", err)
	}

	final := awaitTerminal(t, c, job.ID)
	if final.Status != constants.CrawlCompleted {
		t.Fatalf("Status = %s, errors: %v", final.Status, final.Results.Errors)
	}
	if final.Results.ProductsFound != 2 {
		t.Errorf("ProductsFound = %d, want 2", final.Results.ProductsFound)
	}
	if len(final.Results.Screenshots) != 2 {
		t.Errorf("Screenshots = %d, want 2", len(final.Results.Screenshots))
	}
	stats := final.Results.Stats
	if stats.TotalPages != 2 || stats.SuccessfulScreenshots != 2 || stats.FailedScreenshots != 0 {
		t.Errorf("Stats = %+v", stats)
	}
	if stats.TotalDataTransferred != 2048 {
		t.Errorf("TotalDataTransferred = %d, want 2048", stats.TotalDataTransferred)
	}
}

func TestCrawlPartialPageFailures(t *testing.T) {
	page := &fakePage{
		links: map[string][]string{
			shop: {shop + "/produkt/a", shop + "/produkt/b", shop + "/produkt/c"},
		},
		failGoto: map[string]bool{shop + "/produkt/b": true},
	}
	c := newTestCoordinator(t, page)

	job, err := c.StartCrawl(shop, entity.CrawlConfig{})
	if err != nil {
		t.Fatalf("StartCrawl: %v", err)
	}
	final := awaitTerminal(t, c, job.ID)

	// one bad page never fails the session
	if final.Status != constants.CrawlCompleted {
		t.Fatalf("Status = %s, want completed", final.Status)
	}
	stats := final.Results.Stats
	if stats.SuccessfulScreenshots != 2 || stats.FailedScreenshots != 1 {
		t.Errorf("Stats = %+v, want 2 ok / 1 failed", stats)
	}
	if len(final.Results.Errors) != 1 {
		t.Errorf("Errors = %v, want one entry", final.Results.Errors)
	}
}

func TestCrawlEntryPageFailure(t *testing.T) {
	page := &fakePage{failGoto: map[string]bool{shop: true}}
	c := newTestCoordinator(t, page)

	job, err := c.StartCrawl(shop, entity.CrawlConfig{})
	if err != nil {
		t.Fatalf("StartCrawl: %v", err)
	}
	final := awaitTerminal(t, c, job.ID)
	if final.Status != constants.CrawlFailed {
		t.Errorf("Status = %s, want failed", final.Status)
	}
	if len(final.Results.Errors) == 0 {
		t.Error("want a discovery error")
	}
}

func TestCrawlMaxProductsCap(t *testing.T) {
	var hrefs []string
	for i := 0; i < 10; i++ {
		hrefs = append(hrefs, fmt.Sprintf("%s/produkt/%d", shop, i))
	}
	page := &fakePage{links: map[string][]string{shop: hrefs}}
	c := newTestCoordinator(t, page)

	job, err := c.StartCrawl(shop, entity.CrawlConfig{MaxProducts: 3})
	if err != nil {
		t.Fatalf("StartCrawl: %v", err)
	}
	final := awaitTerminal(t, c, job.ID)
	if final.Results.ProductsFound != 3 {
		t.Errorf("ProductsFound = %d, want 3", final.Results.ProductsFound)
	}
	if len(final.Results.Screenshots) != 3 {
		t.Errorf("Screenshots = %d, want 3", len(final.Results.Screenshots))
	}
}

func TestCrawlNoFullShopScanSkipsCategories(t *testing.T) {
	f := false
	page := &fakePage{
		links: map[string][]string{
			shop:                       {shop + "/produkt/a", shop + "/kategorie/regale"},
			shop + "/kategorie/regale": {shop + "/produkt/b"},
		},
	}
	c := newTestCoordinator(t, page)

	job, err := c.StartCrawl(shop, entity.CrawlConfig{FullShopScan: &f})
	if err != nil {
		t.Fatalf("StartCrawl: %v", err)
	}
	final := awaitTerminal(t, c, job.ID)
	if final.Results.ProductsFound != 1 {
		t.Errorf("ProductsFound = %d, want 1 (categories not followed)", final.Results.ProductsFound)
	}
}

func TestStopJob(t *testing.T) {
	c := newTestCoordinator(t, &fakePage{})

	// unknown job
	if c.StopJob(uuid.Nil) {
		t.Error("StopJob(unknown) = true, want false")
	}

	job, err := c.StartCrawl(shop, entity.CrawlConfig{})
	if err != nil {
		t.Fatalf("StartCrawl: %v", err)
	}
	final := awaitTerminal(t, c, job.ID)

	// terminal jobs cannot be stopped
	if c.StopJob(final.ID) {
		t.Error("StopJob(terminal) = true, want false")
	}
}

func TestCleanupOldJobs(t *testing.T) {
	c := newTestCoordinator(t, &fakePage{})

	job, err := c.StartCrawl(shop, entity.CrawlConfig{})
	if err != nil {
		t.Fatalf("StartCrawl: %v", err)
	}
	awaitTerminal(t, c, job.ID)

	// too young to be removed
	if n := c.CleanupOldJobs(time.Hour); n != 0 {
		t.Errorf("CleanupOldJobs(1h) = %d, want 0", n)
	}
	// everything terminal is older than a zero cutoff window
	if n := c.CleanupOldJobs(-time.Second); n != 1 {
		t.Errorf("CleanupOldJobs(-1s) = %d, want 1", n)
	}
	if _, ok := c.GetJob(job.ID); ok {
		t.Error("job still present after cleanup")
	}
}
