package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/benfi/label-automation/constants"
	"github.com/benfi/label-automation/internal/common"
	"github.com/benfi/label-automation/internal/confidence"
	"github.com/benfi/label-automation/internal/entity"
	"github.com/benfi/label-automation/internal/extract"
)

// Options tune a single recognition request.
type Options struct {
	ScreenshotID uuid.UUID
	JobID        uuid.UUID
	Preprocess   *bool // nil -> pool default
}

type task struct {
	id    uuid.UUID
	path  string
	opts  Options
	reply chan taskResult
}

type taskResult struct {
	result *entity.OCRResult
	err    error
}

// Pool owns a fixed set of recognition workers. Requests beyond capacity
// queue; one request's failure never affects siblings or the pool itself.
type Pool struct {
	logger     *slog.Logger
	engine     Engine
	prep       *Preprocessor
	policy     FallbackPolicy
	workers    int
	timeout    time.Duration
	preprocess bool

	ch    chan task
	done  chan struct{}
	wg    sync.WaitGroup
	subWG sync.WaitGroup

	mu        sync.Mutex
	statuses  map[uuid.UUID]statusEntry
	retention time.Duration
	started   bool
	closed    bool
}

// statusEntry tracks one request's status; doneAt is set once terminal so
// old entries can be pruned.
type statusEntry struct {
	status constants.OCRStatus
	doneAt time.Time
}

type PoolOption func(*Pool)

func WithWorkers(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithQueueSize(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.ch = make(chan task, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) PoolOption {
	return func(p *Pool) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func WithPreprocessor(prep *Preprocessor, enabled bool) PoolOption {
	return func(p *Pool) {
		p.prep = prep
		p.preprocess = enabled
	}
}

func WithFallback(policy FallbackPolicy) PoolOption {
	return func(p *Pool) {
		p.policy = policy
	}
}

// WithStatusRetention bounds how long terminal statuses stay queryable.
func WithStatusRetention(d time.Duration) PoolOption {
	return func(p *Pool) {
		if d > 0 {
			p.retention = d
		}
	}
}

func NewPool(engine Engine, logger *slog.Logger, opts ...PoolOption) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{
		logger:    logger,
		engine:    engine,
		workers:   2,
		timeout:   2 * time.Minute,
		ch:        make(chan task, 64),
		done:      make(chan struct{}),
		statuses:  make(map[uuid.UUID]statusEntry),
		retention: time.Hour,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Initialize spawns the worker set. Calling it twice, or without an
// engine, is a fatal initialization error.
func (p *Pool) Initialize() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.engine == nil {
		return common.NewAppError("OCR_INIT", "no recognition engine configured", common.ErrFatal)
	}
	if p.started {
		return common.NewAppError("OCR_INIT", "pool already initialized", common.ErrFatal)
	}
	p.started = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func(workerID int) {
			defer p.wg.Done()
			p.logger.Info("ocr.pool.worker.started", "worker_id", workerID)
			for t := range p.ch {
				ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
				res, err := p.process(ctx, t)
				cancel()
				t.reply <- taskResult{result: res, err: err}
			}
			p.logger.Info("ocr.pool.worker.stopped", "worker_id", workerID)
		}(i + 1)
	}
	return nil
}

// ProcessScreenshot recognizes one image and extracts candidate fields.
// Missing or empty files are rejected before a worker is occupied.
func (p *Pool) ProcessScreenshot(ctx context.Context, path string, opts Options) (*entity.OCRResult, error) {
	if err := checkImageFile(path); err != nil {
		return nil, err
	}

	t := task{
		id:    uuid.New(),
		path:  path,
		opts:  opts,
		reply: make(chan taskResult, 1),
	}

	p.mu.Lock()
	if !p.started || p.closed {
		p.mu.Unlock()
		return nil, common.NewAppError("OCR_SUBMIT", "worker pool is not accepting work", common.ErrShutdown)
	}
	p.statuses[t.id] = statusEntry{status: constants.OCRProcessing}
	p.subWG.Add(1)
	p.mu.Unlock()

	// Shutdown closes done before the task channel and waits for parked
	// submitters, so this send never races the channel close.
	select {
	case p.ch <- t:
		p.subWG.Done()
	case <-p.done:
		p.subWG.Done()
		p.setStatus(t.id, constants.OCRFailed)
		return nil, common.NewAppError("OCR_SUBMIT", "worker pool is not accepting work", common.ErrShutdown)
	case <-ctx.Done():
		p.subWG.Done()
		p.setStatus(t.id, constants.OCRFailed)
		return nil, ctx.Err()
	}

	select {
	case r := <-t.reply:
		if r.err != nil {
			p.setStatus(t.id, constants.OCRFailed)
			return nil, r.err
		}
		p.setStatus(t.id, constants.OCRCompleted)
		return r.result, nil
	case <-ctx.Done():
		// the worker finishes on its own schedule; the caller stops waiting
		p.setStatus(t.id, constants.OCRFailed)
		return nil, ctx.Err()
	}
}

// ProcessScreenshots recognizes a batch with bounded concurrency through
// the worker set. Failed items are logged and dropped; the returned slice
// holds successes only, in input order.
func (p *Pool) ProcessScreenshots(ctx context.Context, paths []string, opts Options) []*entity.OCRResult {
	type indexed struct {
		idx int
		res *entity.OCRResult
	}
	out := make(chan indexed, len(paths))

	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		go func(idx int, path string) {
			defer wg.Done()
			res, err := p.ProcessScreenshot(ctx, path, opts)
			if err != nil {
				p.logger.Warn("ocr.batch.item.failed", "path", path, "job_id", opts.JobID, "error", err)
				return
			}
			out <- indexed{idx: idx, res: res}
		}(i, path)
	}
	wg.Wait()
	close(out)

	byIdx := make([]*entity.OCRResult, len(paths))
	for item := range out {
		byIdx[item.idx] = item.res
	}
	results := make([]*entity.OCRResult, 0, len(paths))
	for _, r := range byIdx {
		if r != nil {
			results = append(results, r)
		}
	}
	return results
}

// GetProcessingStatus returns the tracked status for a result id.
func (p *Pool) GetProcessingStatus(id uuid.UUID) (constants.OCRStatus, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.statuses[id]
	return e.status, ok
}

// Shutdown stops intake, drains queued work and waits for the workers.
func (p *Pool) Shutdown(ctx context.Context) {
	p.mu.Lock()
	if !p.started || p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.done)
	p.mu.Unlock()

	// intake is closed; once parked submitters have bailed out the task
	// channel can be closed safely
	p.subWG.Wait()
	close(p.ch)

	done := make(chan struct{})
	go func() { defer close(done); p.wg.Wait() }()

	select {
	case <-ctx.Done():
		p.logger.Warn("ocr.pool.shutdown.interrupted")
	case <-done:
		p.logger.Info("ocr.pool.shutdown.complete")
	}
}

func (p *Pool) process(ctx context.Context, t task) (*entity.OCRResult, error) {
	start := time.Now()

	path := t.path
	usePrep := p.preprocess
	if t.opts.Preprocess != nil {
		usePrep = *t.opts.Preprocess
	}
	if usePrep && p.prep != nil {
		prepped, cleanup, err := p.prep.Apply(ctx, path)
		if err != nil {
			// recognition on the raw image is better than no recognition
			p.logger.Warn("ocr.preprocess.failed", "path", path, "error", err)
		} else {
			defer cleanup()
			path = prepped
		}
	}

	rec, err := p.engine.Recognize(ctx, path)
	if err != nil {
		return nil, common.NewAppError("OCR_RECOGNIZE", fmt.Sprintf("recognize %s", t.path), fmt.Errorf("%w: %w", common.ErrRecognition, err))
	}
	engineName := p.engine.Name()

	overall := overallFromWords(rec)
	if p.policy.ShouldEscalate(overall) {
		p.logger.Info("ocr.fallback.escalate",
			"path", t.path, "confidence", overall, "threshold", p.policy.MinConfidence)
		if alt, altErr := p.policy.Engine.Recognize(ctx, path); altErr == nil {
			if altOverall := overallFromWords(alt); altOverall > overall {
				rec, overall = alt, altOverall
				engineName = p.policy.Engine.Name()
			}
		} else {
			p.logger.Warn("ocr.fallback.failed", "path", t.path, "error", altErr)
		}
	}

	fields := extract.ExtractFields(rec.Text)
	perField := fieldConfidences(fields, overall)

	result := &entity.OCRResult{
		ID:            t.id,
		ScreenshotID:  t.opts.ScreenshotID,
		Status:        constants.OCRCompleted,
		RawText:       rec.Text,
		ExtractedData: fields,
		Confidence: entity.OCRConfidence{
			Overall:  overall,
			PerField: perField,
		},
		BoundingBoxes:    rec.Words,
		Engine:           engineName,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		CreatedAt:        time.Now().UTC(),
	}
	p.logger.Debug("ocr.process.ok",
		"result_id", t.id, "job_id", t.opts.JobID,
		"engine", engineName, "confidence", overall,
		"article_number", fields.ArticleNumber,
		"elapsed_ms", result.ProcessingTimeMs,
	)
	return result, nil
}

// fieldConfidences scores extracted fields with the recognition
// confidence; absent fields score zero.
func fieldConfidences(fields entity.ExtractedFields, overall float64) map[string]float64 {
	scores := map[string]float64{}
	present := func(name string, ok bool) {
		if ok {
			scores[name] = overall
		} else {
			scores[name] = 0
		}
	}
	present(confidence.FieldProductName, fields.ProductName != "")
	present(confidence.FieldArticleNumber, fields.ArticleNumber != "")
	present(confidence.FieldPrice, fields.Price != nil)
	present(confidence.FieldDescription, fields.Description != "")
	if len(fields.TieredPrices) > 0 {
		scores[confidence.FieldTieredPrices] = overall
	}
	return scores
}

func (p *Pool) setStatus(id uuid.UUID, s constants.OCRStatus) {
	now := time.Now()
	p.mu.Lock()
	defer p.mu.Unlock()
	if s.Terminal() {
		p.pruneLocked(now)
		p.statuses[id] = statusEntry{status: s, doneAt: now}
		return
	}
	p.statuses[id] = statusEntry{status: s}
}

// pruneLocked drops terminal entries older than the retention window so
// the status table stays bounded in a long-running process.
func (p *Pool) pruneLocked(now time.Time) {
	cutoff := now.Add(-p.retention)
	for id, e := range p.statuses {
		if !e.doneAt.IsZero() && e.doneAt.Before(cutoff) {
			delete(p.statuses, id)
		}
	}
}

func checkImageFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return common.NewAppError("OCR_INPUT", fmt.Sprintf("image file not found: %s", path), common.ErrInvalidInput)
	}
	if info.Size() == 0 {
		return common.NewAppError("OCR_INPUT", "Image file is empty", common.ErrInvalidInput)
	}
	return nil
}
