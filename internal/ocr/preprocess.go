package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Preprocessor sharpens screenshots for recognition by piping them
// through imagemagick: grayscale, normalize, sharpen, threshold.
type Preprocessor struct {
	Magick string // binary name or absolute path; if empty -> "magick"
	runner Runner
	logger *slog.Logger
}

func NewPreprocessor(magick string, logger *slog.Logger) *Preprocessor {
	if magick == "" {
		magick = "magick"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Preprocessor{Magick: magick, runner: newExecRunner(logger), logger: logger}
}

// Apply writes the preprocessed image to a temp file and returns its
// path. Call cleanup() to remove it.
func (p *Preprocessor) Apply(ctx context.Context, in string) (string, func(), error) {
	tmpDir, err := os.MkdirTemp("", "la-prep-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }
	out := filepath.Join(tmpDir, "prep.png")

	args := []string{
		in,
		"-colorspace", "Gray",
		"-normalize",
		"-sharpen", "0x1",
		"-threshold", "55%",
		out,
	}
	if _, errb, err := p.runner.Run(ctx, p.Magick, args...); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("magick preprocess failed: %w (stderr: %s)", err, truncate(string(errb), 512))
	}
	if _, statErr := os.Stat(out); statErr != nil {
		cleanup()
		return "", nil, fmt.Errorf("preprocess produced no output: %v", statErr)
	}
	return out, cleanup, nil
}
