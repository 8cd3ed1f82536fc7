// Package orchestrator sequences crawl -> OCR -> match -> render for one
// automation job as an explicit state machine with one awaited transition
// per stage.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/benfi/label-automation/constants"
	"github.com/benfi/label-automation/internal/common"
	"github.com/benfi/label-automation/internal/entity"
	"github.com/benfi/label-automation/internal/ocr"
	"github.com/benfi/label-automation/internal/repository"
	"github.com/benfi/label-automation/internal/validation"
)

// CrawlService is the crawl coordinator surface the orchestrator needs.
type CrawlService interface {
	StartCrawl(shopURL string, cfg entity.CrawlConfig) (*entity.CrawlJob, error)
	GetJob(id uuid.UUID) (*entity.CrawlJob, bool)
	StopJob(id uuid.UUID) bool
	Shutdown()
}

// OCRService is the worker-pool surface the orchestrator needs.
type OCRService interface {
	ProcessScreenshot(ctx context.Context, path string, opts ocr.Options) (*entity.OCRResult, error)
	Shutdown(ctx context.Context)
}

// MergeService folds OCR results into the product store.
type MergeService interface {
	BatchCreateFromOCR(ctx context.Context, results []*entity.OCRResult, jobID uuid.UUID) (entity.MergeOutcome, []*entity.Product)
}

// LabelRenderer produces label references for merged products. The real
// renderer lives outside this core; NopRenderer stands in for it.
type LabelRenderer interface {
	RenderLabels(ctx context.Context, job *entity.AutomationJob, products []*entity.Product) ([]string, error)
}

// NopRenderer emits one label reference per product without rendering.
type NopRenderer struct{}

func (NopRenderer) RenderLabels(_ context.Context, _ *entity.AutomationJob, products []*entity.Product) ([]string, error) {
	labels := make([]string, 0, len(products))
	for _, p := range products {
		labels = append(labels, "label:"+p.ArticleNumber)
	}
	return labels, nil
}

// Config tunes the orchestrator.
type Config struct {
	CrawlPollInterval  time.Duration
	CorruptionRejectAt float64 // records scoring at or above are not merged
}

// Orchestrator owns the automation-job table and drives each job through
// the stage pipeline in its own goroutine.
type Orchestrator struct {
	logger   *slog.Logger
	cfg      Config
	store    JobStore
	crawler  CrawlService
	ocr      OCRService
	merger   MergeService
	ocrRepo  repository.OCRResultRepository
	notifier Notifier
	renderer LabelRenderer

	mu      sync.Mutex
	cancels map[uuid.UUID]context.CancelFunc
	wg      sync.WaitGroup
	closed  bool
}

func New(
	store JobStore,
	crawler CrawlService,
	ocrService OCRService,
	merger MergeService,
	ocrRepo repository.OCRResultRepository,
	notifier Notifier,
	renderer LabelRenderer,
	cfg Config,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if renderer == nil {
		renderer = NopRenderer{}
	}
	if cfg.CrawlPollInterval <= 0 {
		cfg.CrawlPollInterval = 250 * time.Millisecond
	}
	if cfg.CorruptionRejectAt <= 0 {
		cfg.CorruptionRejectAt = 0.5
	}
	return &Orchestrator{
		logger:   logger,
		cfg:      cfg,
		store:    store,
		crawler:  crawler,
		ocr:      ocrService,
		merger:   merger,
		ocrRepo:  ocrRepo,
		notifier: notifier,
		renderer: renderer,
		cancels:  make(map[uuid.UUID]context.CancelFunc),
	}
}

// StartAutomation validates the config, registers a pending job and
// advances it asynchronously. Returns immediately with the created job.
func (o *Orchestrator) StartAutomation(ctx context.Context, cfg entity.AutomationConfig) (*entity.AutomationJob, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	if err := common.ValidateAutomationConfigJSON(raw); err != nil {
		return nil, err
	}

	job := &entity.AutomationJob{
		ID:     uuid.New(),
		Status: constants.AutomationPending,
		Config: cfg,
		Progress: entity.AutomationProgress{
			TotalSteps: constants.TotalAutomationSteps,
		},
		CreatedAt: time.Now().UTC(),
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, common.NewAppError("ORCH_CLOSED", "orchestrator is shut down", common.ErrShutdown)
	}
	jobCtx, cancel := context.WithCancel(context.Background())
	o.cancels[job.ID] = cancel
	o.wg.Add(1)
	o.mu.Unlock()

	o.store.Put(job)
	o.notifier.JobCreated(ctx, job)
	o.logger.Info("orchestrator.job.created", "job_id", job.ID, "shop_url", cfg.ShopURL)

	go func() {
		defer o.wg.Done()
		defer cancel()
		o.run(jobCtx, job.ID)
	}()

	return job.Clone(), nil
}

// GetJob returns a copy of the job, if known.
func (o *Orchestrator) GetJob(id uuid.UUID) (*entity.AutomationJob, bool) {
	return o.store.Get(id)
}

// GetAllJobs returns copies of all known jobs.
func (o *Orchestrator) GetAllJobs() []*entity.AutomationJob {
	return o.store.All()
}

// CancelJob fails a non-terminal job and stops its crawl session if one
// is running. Terminal jobs cannot be cancelled.
func (o *Orchestrator) CancelJob(id uuid.UUID) bool {
	var crawlJobID *uuid.UUID
	cancelled := false
	o.store.Update(id, func(j *entity.AutomationJob) {
		if j.Status.Terminal() {
			return
		}
		msg := "Job cancelled by user"
		j.Status = constants.AutomationFailed
		j.Error = &msg
		now := time.Now().UTC()
		j.FinishedAt = &now
		crawlJobID = j.CrawlJobID
		cancelled = true
	})
	if !cancelled {
		return false
	}

	o.mu.Lock()
	if cancel := o.cancels[id]; cancel != nil {
		cancel()
	}
	o.mu.Unlock()

	if crawlJobID != nil {
		if cj, ok := o.crawler.GetJob(*crawlJobID); ok && cj.Status == constants.CrawlCrawling {
			o.crawler.StopJob(*crawlJobID)
		}
	}
	if job, ok := o.store.Get(id); ok {
		o.notifier.JobFailed(context.Background(), job)
	}
	o.logger.Info("orchestrator.job.cancelled", "job_id", id)
	return true
}

// DeleteJob removes a job from the table, cancelling it first if needed.
func (o *Orchestrator) DeleteJob(id uuid.UUID) bool {
	if job, ok := o.store.Get(id); ok && !job.Status.Terminal() {
		o.CancelJob(id)
	}
	return o.store.Delete(id)
}

// Shutdown fails all in-flight jobs, stops the coordinator and the OCR
// pool, and waits for job goroutines to return.
func (o *Orchestrator) Shutdown(ctx context.Context) {
	o.mu.Lock()
	o.closed = true
	cancels := make([]context.CancelFunc, 0, len(o.cancels))
	for _, c := range o.cancels {
		cancels = append(cancels, c)
	}
	o.mu.Unlock()

	for _, job := range o.store.All() {
		if !job.Status.Terminal() {
			o.failJob(job.ID, "shutting down")
		}
	}
	for _, cancel := range cancels {
		cancel()
	}

	done := make(chan struct{})
	go func() { defer close(done); o.wg.Wait() }()
	select {
	case <-done:
	case <-ctx.Done():
		o.logger.Warn("orchestrator.shutdown.interrupted")
	}

	o.crawler.Shutdown()
	o.ocr.Shutdown(ctx)
	o.logger.Info("orchestrator.shutdown.complete")
}

// run drives one job through the stage pipeline. Each stage's typed
// output feeds the next; any stage error fails the whole job.
func (o *Orchestrator) run(ctx context.Context, jobID uuid.UUID) {
	now := time.Now().UTC()
	o.updateRunning(jobID, func(j *entity.AutomationJob) { j.StartedAt = &now })

	screenshots, err := o.runCrawl(ctx, jobID)
	if err != nil {
		o.failJob(jobID, err.Error())
		return
	}
	results, err := o.runOCR(ctx, jobID, screenshots)
	if err != nil {
		o.failJob(jobID, err.Error())
		return
	}
	products, err := o.runMatch(ctx, jobID, results)
	if err != nil {
		o.failJob(jobID, err.Error())
		return
	}
	if err := o.runRender(ctx, jobID, products); err != nil {
		o.failJob(jobID, err.Error())
		return
	}

	if !o.advance(jobID, constants.AutomationCompleted) {
		return
	}
	if job, ok := o.store.Get(jobID); ok {
		o.notifier.JobCompleted(ctx, job)
		o.logger.Info("orchestrator.job.completed", "job_id", jobID,
			"products_found", job.Progress.ProductsFound,
			"labels_generated", job.Progress.LabelsGenerated)
	}
}

// runCrawl starts the crawl session and awaits its terminal state.
func (o *Orchestrator) runCrawl(ctx context.Context, jobID uuid.UUID) ([]entity.Screenshot, error) {
	if !o.advance(jobID, constants.AutomationCrawling) {
		return nil, fmt.Errorf("job no longer runnable")
	}
	job, ok := o.store.Get(jobID)
	if !ok {
		return nil, common.ErrNotFound
	}

	crawlJob, err := o.crawler.StartCrawl(job.Config.ShopURL, job.Config.Crawl)
	if err != nil {
		return nil, fmt.Errorf("start crawl: %w", err)
	}
	o.updateRunning(jobID, func(j *entity.AutomationJob) { j.CrawlJobID = &crawlJob.ID })

	ticker := time.NewTicker(o.cfg.CrawlPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			o.crawler.StopJob(crawlJob.ID)
			return nil, fmt.Errorf("crawl interrupted: %w", ctx.Err())
		case <-ticker.C:
		}

		cj, ok := o.crawler.GetJob(crawlJob.ID)
		if !ok {
			return nil, fmt.Errorf("crawl job vanished")
		}
		if found := cj.Results.ProductsFound; found > 0 {
			local := float64(cj.Results.Stats.TotalPages) / float64(found) * 100
			o.setLocalProgress(jobID, local)
		}
		if !cj.Status.Terminal() {
			continue
		}

		o.updateRunning(jobID, func(j *entity.AutomationJob) {
			j.Results.Screenshots = cj.Results.Screenshots
			j.Results.Errors = append(j.Results.Errors, cj.Results.Errors...)
			j.Progress.ProductsFound = cj.Results.ProductsFound
		})
		if cj.Status == constants.CrawlFailed {
			return nil, fmt.Errorf("crawl failed: %s", lastError(cj.Results.Errors))
		}
		o.logger.Info("orchestrator.crawl.ok", "job_id", jobID,
			"screenshots", len(cj.Results.Screenshots))
		return cj.Results.Screenshots, nil
	}
}

// runOCR fans the screenshots through the worker pool; per-item failures
// are recorded on the job and do not stop the stage.
func (o *Orchestrator) runOCR(ctx context.Context, jobID uuid.UUID, screenshots []entity.Screenshot) ([]*entity.OCRResult, error) {
	if !o.advance(jobID, constants.AutomationOCR) {
		return nil, fmt.Errorf("job no longer runnable")
	}

	var mu sync.Mutex
	var results []*entity.OCRResult
	var done int

	var wg sync.WaitGroup
	for _, shot := range screenshots {
		wg.Add(1)
		go func(shot entity.Screenshot) {
			defer wg.Done()
			res, err := o.ocr.ProcessScreenshot(ctx, shot.Path, ocr.Options{
				ScreenshotID: shot.ID,
				JobID:        jobID,
			})

			mu.Lock()
			done++
			local := float64(done) / float64(len(screenshots)) * 100
			mu.Unlock()
			o.setLocalProgress(jobID, local)

			if err != nil {
				o.updateRunning(jobID, func(j *entity.AutomationJob) {
					j.Results.Errors = append(j.Results.Errors,
						fmt.Sprintf("ocr %s: %v", shot.Path, err))
				})
				return
			}
			if o.ocrRepo != nil {
				if err := o.ocrRepo.Save(ctx, res); err != nil {
					o.logger.Warn("orchestrator.ocr.persist.failed", "result_id", res.ID, "error", err)
				}
			}
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			o.updateRunning(jobID, func(j *entity.AutomationJob) {
				j.Results.OCRResults = append(j.Results.OCRResults, res.ID)
			})
		}(shot)
	}
	wg.Wait()

	if ctx.Err() != nil {
		return nil, fmt.Errorf("ocr interrupted: %w", ctx.Err())
	}
	o.logger.Info("orchestrator.ocr.ok", "job_id", jobID,
		"succeeded", len(results), "failed", len(screenshots)-len(results))
	return results, nil
}

// runMatch validates each candidate, filters heavily corrupted records
// and merges the rest into the product store.
func (o *Orchestrator) runMatch(ctx context.Context, jobID uuid.UUID, results []*entity.OCRResult) ([]*entity.Product, error) {
	if !o.advance(jobID, constants.AutomationMatching) {
		return nil, fmt.Errorf("job no longer runnable")
	}

	mergeable := make([]*entity.OCRResult, 0, len(results))
	for _, res := range results {
		report := validation.DetectCorruptedData(&res.ExtractedData)
		if report.CorruptionScore >= o.cfg.CorruptionRejectAt {
			o.updateRunning(jobID, func(j *entity.AutomationJob) {
				j.Results.Errors = append(j.Results.Errors,
					fmt.Sprintf("result %s rejected: corruption score %.2f", res.ID, report.CorruptionScore))
			})
			continue
		}
		v := validation.ValidateProductData(&res.ExtractedData)
		if !v.IsValid && res.ExtractedData.ArticleNumber == "" {
			// without an article number there is nothing to merge onto
			continue
		}
		mergeable = append(mergeable, res)
	}

	outcome, products := o.merger.BatchCreateFromOCR(ctx, mergeable, jobID)
	o.updateRunning(jobID, func(j *entity.AutomationJob) {
		j.Progress.ProductsFound = outcome.Created + outcome.Updated
	})
	o.setLocalProgress(jobID, 100)
	o.logger.Info("orchestrator.match.ok", "job_id", jobID,
		"created", outcome.Created, "updated", outcome.Updated,
		"skipped", outcome.Skipped, "errors", outcome.Errors)
	return products, nil
}

// runRender delegates to the label renderer collaborator.
func (o *Orchestrator) runRender(ctx context.Context, jobID uuid.UUID, products []*entity.Product) error {
	if !o.advance(jobID, constants.AutomationRendering) {
		return fmt.Errorf("job no longer runnable")
	}
	job, ok := o.store.Get(jobID)
	if !ok {
		return common.ErrNotFound
	}
	labels, err := o.renderer.RenderLabels(ctx, job, products)
	if err != nil {
		return fmt.Errorf("render labels: %w", err)
	}
	o.updateRunning(jobID, func(j *entity.AutomationJob) {
		j.Results.Labels = labels
		j.Progress.LabelsGenerated = len(labels)
	})
	return nil
}

// advance moves a job forward through the state machine, refreshing
// progress and notifying. Returns false when the transition is illegal
// (e.g. the job was cancelled meanwhile).
func (o *Orchestrator) advance(jobID uuid.UUID, to constants.AutomationStatus) bool {
	moved := false
	o.store.Update(jobID, func(j *entity.AutomationJob) {
		if !constants.CanTransition(j.Status, to) {
			return
		}
		j.Status = to
		switch to {
		case constants.AutomationCrawling:
			j.Progress.CurrentStep = 0
		case constants.AutomationOCR:
			j.Progress.CurrentStep = 1
		case constants.AutomationMatching:
			j.Progress.CurrentStep = 2
		case constants.AutomationRendering:
			j.Progress.CurrentStep = 3
		case constants.AutomationCompleted:
			j.Progress.CurrentStep = constants.TotalAutomationSteps
			j.Progress.Percent = 100
			now := time.Now().UTC()
			j.FinishedAt = &now
		}
		if p := float64(j.Progress.CurrentStep) * 25; p > j.Progress.Percent {
			j.Progress.Percent = p
		}
		moved = true
	})
	if moved {
		if job, ok := o.store.Get(jobID); ok {
			o.notifier.JobUpdated(context.Background(), job)
		}
	}
	return moved
}

// setLocalProgress folds stage-local progress (0..100) into the overall
// percentage; the overall value never decreases.
func (o *Orchestrator) setLocalProgress(jobID uuid.UUID, local float64) {
	if local < 0 {
		local = 0
	}
	if local > 100 {
		local = 100
	}
	o.updateRunning(jobID, func(j *entity.AutomationJob) {
		p := float64(j.Progress.CurrentStep)*25 + local/4
		if p > j.Progress.Percent && p <= 100 {
			j.Progress.Percent = p
		}
	})
}

// updateRunning mutates a job only while it is still non-terminal; once a
// job is completed or failed its fields are frozen, no matter which stage
// goroutines are still landing.
func (o *Orchestrator) updateRunning(jobID uuid.UUID, fn func(*entity.AutomationJob)) {
	o.store.Update(jobID, func(j *entity.AutomationJob) {
		if j.Status.Terminal() {
			return
		}
		fn(j)
	})
}

func (o *Orchestrator) failJob(jobID uuid.UUID, msg string) {
	failed := false
	o.store.Update(jobID, func(j *entity.AutomationJob) {
		if j.Status.Terminal() {
			return
		}
		j.Status = constants.AutomationFailed
		j.Error = &msg
		now := time.Now().UTC()
		j.FinishedAt = &now
		failed = true
	})
	if !failed {
		return
	}
	if job, ok := o.store.Get(jobID); ok {
		o.notifier.JobFailed(context.Background(), job)
	}
	o.logger.Error("orchestrator.job.failed", "job_id", jobID, "error", msg)
}

func lastError(errs []string) string {
	if len(errs) == 0 {
		return "unknown error"
	}
	return errs[len(errs)-1]
}
