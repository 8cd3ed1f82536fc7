// Package ingest watches screenshot drop directories and feeds new
// images into the OCR pipeline without a crawl session.
package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/benfi/label-automation/internal/entity"
	"github.com/benfi/label-automation/internal/ocr"
)

// Allowed extensions for discovery (lowercase, without '.').
var defaultExts = map[string]struct{}{
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"webp": {},
}

type WatchConfig struct {
	Roots       []string // directories to watch (recursive)
	AllowedExts map[string]struct{}
	InitialScan bool          // if true, walk roots and emit existing files
	Debounce    time.Duration // coalesce rapid update/rename bursts
}

// StartWatcher emits the paths of newly dropped screenshots. The error
// channel carries watcher failures; both channels close when ctx ends.
func StartWatcher(ctx context.Context, cfg WatchConfig) (<-chan string, <-chan error, error) {
	if len(cfg.Roots) == 0 {
		slog.Error("watcher start failed: no roots provided")
		return nil, nil, errors.New("no roots provided")
	}
	if cfg.AllowedExts == nil {
		cfg.AllowedExts = defaultExts
	}
	evCh := make(chan string, 256)
	errCh := make(chan error, 1)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Error("failed to create fsnotify watcher", "error", err)
		return nil, nil, err
	}

	// Add roots recursively
	addDir := func(root string) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				return w.Add(path)
			}
			if cfg.InitialScan && allowed(path, cfg.AllowedExts) {
				select {
				case evCh <- path:
				default:
				}
			}
			return nil
		})
	}
	for _, r := range cfg.Roots {
		if err := addDir(r); err != nil {
			slog.Error("failed to add root directory", "root", r, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
	}

	go func() {
		defer close(evCh)
		defer close(errCh)
		defer func() { _ = w.Close() }()

		var timer *time.Timer
		pending := map[string]struct{}{}

		sendPending := func() {
			for p := range pending {
				select {
				case evCh <- p:
				default:
				}
				delete(pending, p)
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case e := <-w.Events:
				// a created directory must itself be watched
				if e.Op&fsnotify.Create == fsnotify.Create {
					tryAddDir(w, e.Name)
				}

				if allowed(e.Name, cfg.AllowedExts) && (e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename)) != 0 {
					pending[e.Name] = struct{}{}
					if cfg.Debounce > 0 {
						if timer != nil {
							timer.Stop()
						}
						timer = time.AfterFunc(cfg.Debounce, sendPending)
					} else {
						sendPending()
					}
				}
			case err := <-w.Errors:
				slog.Error("watcher error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

// OCRService is the pool surface the ingest loop needs.
type OCRService interface {
	ProcessScreenshot(ctx context.Context, path string, opts ocr.Options) (*entity.OCRResult, error)
}

// Loop consumes watcher events and runs each dropped screenshot through
// OCR and the given sink.
type Loop struct {
	ocr    OCRService
	sink   func(ctx context.Context, res *entity.OCRResult) error
	logger *slog.Logger
}

func NewLoop(ocrService OCRService, sink func(ctx context.Context, res *entity.OCRResult) error, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{ocr: ocrService, sink: sink, logger: logger}
}

// Run blocks until ctx ends or the event channel closes.
func (l *Loop) Run(ctx context.Context, events <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-events:
			if !ok {
				return
			}
			res, err := l.ocr.ProcessScreenshot(ctx, path, ocr.Options{ScreenshotID: uuid.New()})
			if err != nil {
				l.logger.Warn("ingest.ocr.failed", "path", path, "error", err)
				continue
			}
			if l.sink != nil {
				if err := l.sink(ctx, res); err != nil {
					l.logger.Warn("ingest.sink.failed", "path", path, "error", err)
					continue
				}
			}
			l.logger.Info("ingest.processed", "path", path, "result_id", res.ID,
				"confidence", res.Confidence.Overall)
		}
	}
}

func allowed(path string, exts map[string]struct{}) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	_, ok := exts[ext]
	return ok
}

func tryAddDir(w *fsnotify.Watcher, path string) {
	// best effort: non-directories fail to add and that is fine
	_ = w.Add(path)
}
