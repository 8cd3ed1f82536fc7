package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/benfi/label-automation/internal/common"
	"github.com/benfi/label-automation/internal/ocr"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runocr <image-path>")
		os.Exit(2)
	}
	imagePath := os.Args[1]

	cfg := common.LoadConfig()

	engine := ocr.NewTesseractEngine(ocr.TesseractConfig{
		Binary: cfg.OCR.Tesseract,
		Lang:   cfg.OCR.TesseractLang,
		PSM:    6,
	}, logger)

	opts := []ocr.PoolOption{
		ocr.WithWorkers(1),
		ocr.WithProcessTimeout(cfg.OCR.ProcessTimeout),
	}
	if cfg.OCR.Preprocess {
		opts = append(opts, ocr.WithPreprocessor(ocr.NewPreprocessor(cfg.OCR.Magick, logger), true))
	}
	pool := ocr.NewPool(engine, logger, opts...)
	if err := pool.Initialize(); err != nil {
		logger.Error("initialize pool", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	start := time.Now()
	res, err := pool.ProcessScreenshot(ctx, imagePath, ocr.Options{ScreenshotID: uuid.New()})
	dur := time.Since(start)

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	pool.Shutdown(shutdownCtx)

	if err != nil {
		logger.Error("recognition failed",
			"path", imagePath, "error", err, "duration_ms", dur.Milliseconds())
		os.Exit(1)
	}

	price := 0.0
	if res.ExtractedData.Price != nil {
		price = *res.ExtractedData.Price
	}
	logger.Info("recognition OK",
		"result_id", res.ID,
		"engine", res.Engine,
		"confidence", res.Confidence.Overall,
		"article_number", res.ExtractedData.ArticleNumber,
		"product_name", res.ExtractedData.ProductName,
		"price", price,
		"tiers", len(res.ExtractedData.TieredPrices),
		"words", len(res.BoundingBoxes),
		"duration_ms", dur.Milliseconds(),
	)
}
