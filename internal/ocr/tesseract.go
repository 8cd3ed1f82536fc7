package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/benfi/label-automation/internal/entity"
)

// TesseractConfig configures the tesseract-backed engine.
type TesseractConfig struct {
	Binary      string // binary name or absolute path; if empty -> "tesseract"
	Lang        string // default "deu"
	PSM         int    // e.g., 6 is good for uniform block of text
	OEM         int    // 1 = LSTM; leave 0 to use default
	TessdataDir string
}

// TesseractEngine recognizes images by invoking tesseract in TSV mode
// through the exec Runner, yielding word-level confidences and boxes.
type TesseractEngine struct {
	cfg    TesseractConfig
	runner Runner
	logger *slog.Logger
}

func NewTesseractEngine(cfg TesseractConfig, logger *slog.Logger) *TesseractEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "deu"
	}
	return &TesseractEngine{cfg: cfg, runner: newExecRunner(logger), logger: logger}
}

func (e *TesseractEngine) Name() string { return "tesseract" }

func (e *TesseractEngine) Recognize(ctx context.Context, imagePath string) (Recognition, error) {
	args := []string{imagePath, "stdout", "-l", e.cfg.Lang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	args = append(args, "tsv")

	out, errb, err := e.runner.Run(ctx, e.cfg.Binary, args...)
	if err != nil {
		return Recognition{}, fmt.Errorf("tesseract TSV: %w (stderr: %s)", err, truncate(string(errb), 512))
	}
	return parseTSV(string(out)), nil
}

// parseTSV turns tesseract TSV output into text plus word confidences.
// Columns: level page block par line word left top width height conf text.
func parseTSV(tsv string) Recognition {
	var rec Recognition
	var text strings.Builder
	var confSum float64
	lastLineKey := ""

	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 || len(ln) == 0 {
			continue // header
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		if cols[0] != "5" { // word-level rows only
			continue
		}
		confStr := cols[10]
		word := cols[11]
		if word == "" || confStr == "" || confStr == "-1" {
			continue
		}
		conf, err := strconv.ParseFloat(confStr, 64)
		if err != nil {
			continue
		}

		lineKey := cols[2] + "/" + cols[3] + "/" + cols[4]
		if text.Len() > 0 {
			if lineKey != lastLineKey {
				text.WriteByte('\n')
			} else {
				text.WriteByte(' ')
			}
		}
		lastLineKey = lineKey
		text.WriteString(word)

		left, _ := strconv.Atoi(cols[6])
		top, _ := strconv.Atoi(cols[7])
		width, _ := strconv.Atoi(cols[8])
		height, _ := strconv.Atoi(cols[9])
		rec.Words = append(rec.Words, entity.Word{
			Text:       word,
			Confidence: conf,
			BBox:       entity.BoundingBox{X: left, Y: top, Width: width, Height: height},
		})
		confSum += conf
	}

	rec.Text = text.String()
	if len(rec.Words) > 0 {
		rec.Confidence = confSum / float64(len(rec.Words))
	}
	return rec
}
