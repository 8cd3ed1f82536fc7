package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/benfi/label-automation/internal/common"
	"github.com/benfi/label-automation/internal/crawl"
	"github.com/benfi/label-automation/internal/entity"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runcrawl <shop-url>")
		os.Exit(2)
	}
	shopURL := os.Args[1]

	cfg := common.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

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

	job, err := coordinator.StartCrawl(shopURL, entity.CrawlConfig{})
	if err != nil {
		logger.Error("start crawl", "error", err)
		os.Exit(1)
	}
	logger.Info("crawl started", "job_id", job.ID, "shop_url", shopURL)

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("interrupt received, stopping crawl", "job_id", job.ID)
			coordinator.StopJob(job.ID)
			coordinator.Shutdown()
			os.Exit(1)
		case <-ticker.C:
		}

		j, ok := coordinator.GetJob(job.ID)
		if !ok {
			logger.Error("crawl job vanished", "job_id", job.ID)
			os.Exit(1)
		}
		if !j.Status.Terminal() {
			logger.Info("crawl progress", "job_id", j.ID, "status", j.Status,
				"screenshots", len(j.Results.Screenshots))
			continue
		}

		coordinator.Shutdown()
		stats := j.Results.Stats
		logger.Info("crawl finished",
			"job_id", j.ID,
			"status", j.Status,
			"pages", stats.TotalPages,
			"screenshots_ok", stats.SuccessfulScreenshots,
			"screenshots_failed", stats.FailedScreenshots,
			"avg_page_load_ms", stats.AveragePageLoadTime.Milliseconds(),
			"bytes", stats.TotalDataTransferred,
			"errors", len(j.Results.Errors),
		)
		for _, e := range j.Results.Errors {
			logger.Warn("crawl page error", "error", e)
		}
		return
	}
}
