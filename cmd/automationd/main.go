package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/benfi/label-automation/constants"
	"github.com/benfi/label-automation/internal/common"
	"github.com/benfi/label-automation/internal/crawl"
	"github.com/benfi/label-automation/internal/entity"
	"github.com/benfi/label-automation/internal/export"
	"github.com/benfi/label-automation/internal/merge"
	"github.com/benfi/label-automation/internal/ocr"
	"github.com/benfi/label-automation/internal/orchestrator"
	repo "github.com/benfi/label-automation/internal/repository"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "automationd <shop-url>")
		os.Exit(2)
	}
	shopURL := os.Args[1]

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	products, ocrResults, cleanup, err := openRepositories(ctx, cfg, logger)
	if err != nil {
		logger.Error("open repositories", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	var notifier orchestrator.Notifier = orchestrator.NopNotifier{}
	if cfg.NATS.URL != "" {
		nc, err := nats.Connect(cfg.NATS.URL, nats.Name("label-automation"))
		if err != nil {
			logger.Error("connect nats", "url", cfg.NATS.URL, "error", err)
			os.Exit(1)
		}
		defer nc.Close()
		notifier = orchestrator.NewNATSNotifier(nc, cfg.NATS.SubjectPrefix, logger)
	}

	browser, err := crawl.LaunchChrome(cfg.Crawl.Headless, logger)
	if err != nil {
		logger.Error("launch browser", "error", err)
		os.Exit(1)
	}
	defer browser.Close()

	coordinator := crawl.NewCoordinator(browser, crawl.CoordinatorConfig{
		ScreenshotDir: cfg.Crawl.ScreenshotDir,
		PageTimeout:   cfg.Crawl.PageTimeout,
		RatePerSecond: cfg.Crawl.RatePerSecond,
	}, logger)

	pool := buildOCRPool(cfg, logger)
	if err := pool.Initialize(); err != nil {
		logger.Error("initialize ocr pool", "error", err)
		os.Exit(1)
	}

	merger := merge.NewMerger(products, logger)
	orch := orchestrator.New(
		orchestrator.NewMemoryJobStore(),
		coordinator,
		pool,
		merger,
		ocrResults,
		notifier,
		nil,
		orchestrator.Config{},
		logger,
	)

	job, err := orch.StartAutomation(ctx, entity.AutomationConfig{ShopURL: shopURL})
	if err != nil {
		logger.Error("start automation", "error", err)
		os.Exit(1)
	}
	logger.Info("automation started", "job_id", job.ID, "shop_url", shopURL)

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
loop:
	for {
		select {
		case <-ctx.Done():
			logger.Info("interrupt received, cancelling job", "job_id", job.ID)
			orch.CancelJob(job.ID)
			break loop
		case <-ticker.C:
			j, ok := orch.GetJob(job.ID)
			if !ok {
				break loop
			}
			logger.Info("automation progress",
				"job_id", j.ID, "status", j.Status,
				"percent", j.Progress.Percent,
				"products_found", j.Progress.ProductsFound)
			if j.Status.Terminal() {
				break loop
			}
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	orch.Shutdown(shutdownCtx)

	final, ok := orch.GetJob(job.ID)
	if !ok {
		os.Exit(1)
	}
	if final.Status == constants.AutomationFailed {
		msg := ""
		if final.Error != nil {
			msg = *final.Error
		}
		logger.Error("automation failed", "job_id", final.ID, "error", msg)
		os.Exit(1)
	}
	logger.Info("automation finished",
		"job_id", final.ID,
		"screenshots", len(final.Results.Screenshots),
		"labels", final.Progress.LabelsGenerated)

	if path := os.Getenv("EXPORT_XLSX_PATH"); path != "" {
		svc := export.NewService(products, logger)
		data, err := svc.ExportProductsXLSX(shutdownCtx, 0)
		if err != nil {
			logger.Error("export failed", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			logger.Error("write export", "path", path, "error", err)
			os.Exit(1)
		}
		logger.Info("export written", "path", path, "bytes", len(data))
	}
}

// openRepositories picks Postgres when DB_URL is set, SQLite otherwise.
func openRepositories(ctx context.Context, cfg *common.Config, logger *slog.Logger) (repo.ProductRepository, repo.OCRResultRepository, func(), error) {
	if cfg.Database.DSN != "" {
		pool, err := repo.Open(ctx, repo.Config{
			DSN:             cfg.Database.DSN,
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
			DialTimeout:     cfg.Database.DialTimeout,
		}, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := repo.HealthCheck(ctx, pool, cfg.Database.DialTimeout, logger); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		return repo.NewProductRepository(pool, logger),
			repo.NewOCRResultRepository(pool, logger),
			func() { repo.Close(pool, logger) },
			nil
	}

	db, err := repo.OpenSQLite(ctx, cfg.Database.SQLitePath, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return repo.NewSQLiteProductRepository(db, logger),
		repo.NewSQLiteOCRResultRepository(db, logger),
		func() { _ = db.Close() },
		nil
}

// buildOCRPool wires the tesseract engine, the magick preprocessor and a
// single-step fallback engine with a different page segmentation mode.
func buildOCRPool(cfg *common.Config, logger *slog.Logger) *ocr.Pool {
	primary := ocr.NewTesseractEngine(ocr.TesseractConfig{
		Binary: cfg.OCR.Tesseract,
		Lang:   cfg.OCR.TesseractLang,
		PSM:    6,
	}, logger)
	fallback := ocr.NewTesseractEngine(ocr.TesseractConfig{
		Binary: cfg.OCR.Tesseract,
		Lang:   cfg.OCR.TesseractLang,
		PSM:    3,
		OEM:    1,
	}, logger)

	opts := []ocr.PoolOption{
		ocr.WithWorkers(cfg.OCR.Workers),
		ocr.WithQueueSize(cfg.OCR.QueueSize),
		ocr.WithProcessTimeout(cfg.OCR.ProcessTimeout),
		ocr.WithFallback(ocr.FallbackPolicy{
			MinConfidence: cfg.OCR.FallbackThreshold,
			Engine:        fallback,
		}),
	}
	if cfg.OCR.Preprocess {
		opts = append(opts, ocr.WithPreprocessor(ocr.NewPreprocessor(cfg.OCR.Magick, logger), true))
	}
	return ocr.NewPool(primary, logger, opts...)
}
