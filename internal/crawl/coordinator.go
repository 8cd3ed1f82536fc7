package crawl

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/benfi/label-automation/constants"
	"github.com/benfi/label-automation/internal/entity"
)

// CoordinatorConfig tunes the crawl coordinator.
type CoordinatorConfig struct {
	ScreenshotDir string
	PageTimeout   time.Duration
	RatePerSecond float64
}

// Coordinator drives one browser session per crawl job and owns the
// crawl-job table.
type Coordinator struct {
	logger  *slog.Logger
	browser Browser
	cfg     CoordinatorConfig
	limiter *rate.Limiter

	mu      sync.Mutex
	jobs    map[uuid.UUID]*entity.CrawlJob
	cancels map[uuid.UUID]context.CancelFunc
	running sync.WaitGroup
	closed  bool
}

func NewCoordinator(browser Browser, cfg CoordinatorConfig, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ScreenshotDir == "" {
		cfg.ScreenshotDir = "./tmp/screenshots"
	}
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = 30 * time.Second
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 2
	}
	return &Coordinator{
		logger:  logger,
		browser: browser,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
		jobs:    make(map[uuid.UUID]*entity.CrawlJob),
		cancels: make(map[uuid.UUID]context.CancelFunc),
	}
}

// StartCrawl registers a crawl job and runs the session asynchronously.
func (c *Coordinator) StartCrawl(shopURL string, cfg entity.CrawlConfig) (*entity.CrawlJob, error) {
	job := &entity.CrawlJob{
		ID:        uuid.New(),
		ShopURL:   shopURL,
		Status:    constants.CrawlPending,
		Config:    cfg.WithDefaults(),
		CreatedAt: time.Now().UTC(),
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, fmt.Errorf("coordinator is shut down")
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.jobs[job.ID] = job
	c.cancels[job.ID] = cancel
	c.running.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.running.Done()
		defer cancel()
		c.run(ctx, job.ID)
	}()

	c.logger.Info("crawl.job.started", "job_id", job.ID, "shop_url", shopURL,
		"max_products", job.Config.MaxProducts)
	return job.Clone(), nil
}

// GetJob returns a copy of the job, if known.
func (c *Coordinator) GetJob(id uuid.UUID) (*entity.CrawlJob, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	job, ok := c.jobs[id]
	if !ok {
		return nil, false
	}
	return job.Clone(), true
}

// GetAllJobs returns copies of every known job.
func (c *Coordinator) GetAllJobs() []*entity.CrawlJob {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*entity.CrawlJob, 0, len(c.jobs))
	for _, job := range c.jobs {
		out = append(out, job.Clone())
	}
	return out
}

// StopJob cancels a running crawl. Returns true only when the job was in
// crawling state.
func (c *Coordinator) StopJob(id uuid.UUID) bool {
	c.mu.Lock()
	job, ok := c.jobs[id]
	if !ok || job.Status != constants.CrawlCrawling {
		c.mu.Unlock()
		return false
	}
	job.Status = constants.CrawlFailed
	job.Results.Errors = append(job.Results.Errors, "crawl stopped")
	cancel := c.cancels[id]
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.logger.Info("crawl.job.stopped", "job_id", id)
	return true
}

// CleanupOldJobs removes terminal jobs older than maxAge and returns the
// number removed. Active jobs are never touched.
func (c *Coordinator) CleanupOldJobs(maxAge time.Duration) int {
	cutoff := time.Now().UTC().Add(-maxAge)
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for id, job := range c.jobs {
		if job.Status.Terminal() && job.CreatedAt.Before(cutoff) {
			delete(c.jobs, id)
			delete(c.cancels, id)
			removed++
		}
	}
	if removed > 0 {
		c.logger.Info("crawl.cleanup", "removed", removed)
	}
	return removed
}

// Shutdown fails all active jobs, cancels their sessions and clears the
// table. Blocks until all sessions returned.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	c.closed = true
	for id, job := range c.jobs {
		if !job.Status.Terminal() {
			job.Status = constants.CrawlFailed
			job.Results.Errors = append(job.Results.Errors, "coordinator shutdown")
		}
		if cancel := c.cancels[id]; cancel != nil {
			cancel()
		}
	}
	c.mu.Unlock()

	c.running.Wait()

	c.mu.Lock()
	c.jobs = make(map[uuid.UUID]*entity.CrawlJob)
	c.cancels = make(map[uuid.UUID]context.CancelFunc)
	c.mu.Unlock()
	c.logger.Info("crawl.coordinator.shutdown")
}

// run executes one crawl session to completion.
func (c *Coordinator) run(ctx context.Context, jobID uuid.UUID) {
	c.setStatus(jobID, constants.CrawlCrawling)

	page, err := c.browser.NewPage(ctx)
	if err != nil {
		c.failJob(jobID, fmt.Sprintf("open page: %v", err))
		return
	}
	defer page.Close()

	job, _ := c.GetJob(jobID)
	cfg := job.Config

	productLinks, err := c.discover(ctx, page, job.ShopURL, cfg)
	if err != nil {
		c.failJob(jobID, fmt.Sprintf("discover products: %v", err))
		return
	}
	if len(productLinks) > cfg.MaxProducts {
		productLinks = productLinks[:cfg.MaxProducts]
	}
	c.withJob(jobID, func(j *entity.CrawlJob) {
		j.Results.ProductsFound = len(productLinks)
	})
	c.logger.Info("crawl.discover.ok", "job_id", jobID, "products", len(productLinks))

	var totalLoad time.Duration
	for _, link := range productLinks {
		if ctx.Err() != nil {
			c.failJob(jobID, "crawl cancelled")
			return
		}
		if err := c.limiter.Wait(ctx); err != nil {
			c.failJob(jobID, "crawl cancelled")
			return
		}

		start := time.Now()
		shot, err := c.capture(ctx, page, jobID, link, cfg.ScreenshotQuality)
		load := time.Since(start)
		totalLoad += load

		c.withJob(jobID, func(j *entity.CrawlJob) {
			j.Results.Stats.TotalPages++
			if err != nil {
				// per-page failures never abort the crawl
				j.Results.Stats.FailedScreenshots++
				j.Results.Errors = append(j.Results.Errors, fmt.Sprintf("%s: %v", link, err))
			} else {
				j.Results.Stats.SuccessfulScreenshots++
				j.Results.Screenshots = append(j.Results.Screenshots, *shot)
				j.Results.Stats.TotalDataTransferred += shot.SizeBytes
			}
			j.Results.Stats.AveragePageLoadTime = totalLoad / time.Duration(j.Results.Stats.TotalPages)
		})
		if err != nil {
			c.logger.Warn("crawl.page.failed", "job_id", jobID, "url", link, "error", err)
		}
	}

	c.setStatus(jobID, constants.CrawlCompleted)
	c.logger.Info("crawl.job.completed", "job_id", jobID)
}

// discover walks the shop front page (and, for full scans, its category
// and pagination pages) collecting product links.
func (c *Coordinator) discover(ctx context.Context, page Page, shopURL string, cfg entity.CrawlConfig) ([]string, error) {
	visited := map[string]bool{}
	var products []string
	productSeen := map[string]bool{}

	queue := []string{shopURL}
	for len(queue) > 0 && len(products) < cfg.MaxProducts {
		if ctx.Err() != nil {
			return products, ctx.Err()
		}
		pageURL := queue[0]
		queue = queue[1:]
		if visited[pageURL] {
			continue
		}
		visited[pageURL] = true

		if err := c.limiter.Wait(ctx); err != nil {
			return products, err
		}
		pctx, cancel := context.WithTimeout(ctx, c.cfg.PageTimeout)
		err := page.Goto(pctx, pageURL)
		if err != nil {
			cancel()
			if pageURL == shopURL {
				return nil, err // the entry page must load
			}
			continue
		}
		var hrefs []string
		err = page.Evaluate(pctx, collectLinksJS, &hrefs)
		cancel()
		if err != nil {
			continue
		}

		prod, cats, pages := classifyLinks(shopURL, hrefs)
		for _, p := range prod {
			if !productSeen[p] {
				productSeen[p] = true
				products = append(products, p)
			}
		}
		if cfg.FullShopScan != nil && *cfg.FullShopScan {
			queue = append(queue, cats...)
		}
		if cfg.FollowPagination != nil && *cfg.FollowPagination {
			queue = append(queue, pages...)
		}
	}
	return products, nil
}

// capture navigates to one product page and screenshots it.
func (c *Coordinator) capture(ctx context.Context, page Page, jobID uuid.UUID, link string, quality int) (*entity.Screenshot, error) {
	pctx, cancel := context.WithTimeout(ctx, c.cfg.PageTimeout)
	defer cancel()

	if err := page.Goto(pctx, link); err != nil {
		return nil, err
	}
	id := uuid.New()
	path := filepath.Join(c.cfg.ScreenshotDir, jobID.String(), id.String()+".png")
	size, err := page.Screenshot(pctx, path, quality)
	if err != nil {
		return nil, err
	}
	return &entity.Screenshot{
		ID:        id,
		PageURL:   link,
		Path:      path,
		SizeBytes: size,
		TakenAt:   time.Now().UTC(),
	}, nil
}

func (c *Coordinator) setStatus(id uuid.UUID, s constants.CrawlStatus) {
	c.withJob(id, func(j *entity.CrawlJob) {
		if !j.Status.Terminal() {
			j.Status = s
		}
	})
}

func (c *Coordinator) failJob(id uuid.UUID, msg string) {
	c.withJob(id, func(j *entity.CrawlJob) {
		if !j.Status.Terminal() {
			j.Status = constants.CrawlFailed
			j.Results.Errors = append(j.Results.Errors, msg)
		}
	})
}

func (c *Coordinator) withJob(id uuid.UUID, fn func(*entity.CrawlJob)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if job, ok := c.jobs[id]; ok {
		fn(job)
	}
}
