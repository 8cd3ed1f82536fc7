package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/benfi/label-automation/internal/common"
	"github.com/benfi/label-automation/internal/entity"
	"github.com/benfi/label-automation/internal/ingest"
	"github.com/benfi/label-automation/internal/merge"
	"github.com/benfi/label-automation/internal/ocr"
	repo "github.com/benfi/label-automation/internal/repository"
)

// ingestd watches one or more drop directories for screenshots and runs
// each new image through OCR and the product merger. Useful for feeding
// manually captured pages into the store without a crawl session.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		logger.Error("usage", "cmd", "ingestd <dir> [dir...]")
		os.Exit(2)
	}
	roots := os.Args[1:]

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	db, err := repo.OpenSQLite(ctx, cfg.Database.SQLitePath, logger)
	if err != nil {
		logger.Error("open sqlite", "path", cfg.Database.SQLitePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	products := repo.NewSQLiteProductRepository(db, logger)
	ocrResults := repo.NewSQLiteOCRResultRepository(db, logger)
	merger := merge.NewMerger(products, logger)

	engine := ocr.NewTesseractEngine(ocr.TesseractConfig{
		Binary: cfg.OCR.Tesseract,
		Lang:   cfg.OCR.TesseractLang,
		PSM:    6,
	}, logger)
	opts := []ocr.PoolOption{
		ocr.WithWorkers(cfg.OCR.Workers),
		ocr.WithQueueSize(cfg.OCR.QueueSize),
		ocr.WithProcessTimeout(cfg.OCR.ProcessTimeout),
	}
	if cfg.OCR.Preprocess {
		opts = append(opts, ocr.WithPreprocessor(ocr.NewPreprocessor(cfg.OCR.Magick, logger), true))
	}
	pool := ocr.NewPool(engine, logger, opts...)
	if err := pool.Initialize(); err != nil {
		logger.Error("initialize ocr pool", "error", err)
		os.Exit(1)
	}

	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       roots,
		InitialScan: true,
		Debounce:    500 * time.Millisecond,
	})
	if err != nil {
		logger.Error("start watcher", "error", err)
		os.Exit(1)
	}
	go func() {
		for werr := range errs {
			logger.Warn("watcher error", "error", werr)
		}
	}()

	sink := func(ctx context.Context, res *entity.OCRResult) error {
		if err := ocrResults.Save(ctx, res); err != nil {
			return err
		}
		_, _, err := merger.CreateOrUpdateFromOCR(ctx, merge.Request{OCRResult: res})
		return err
	}

	logger.Info("ingest watching", "roots", roots)
	loop := ingest.NewLoop(pool, sink, logger)
	loop.Run(ctx, events)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool.Shutdown(shutdownCtx)
	logger.Info("ingest stopped")
}
