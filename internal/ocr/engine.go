package ocr

import (
	"context"

	"github.com/benfi/label-automation/internal/entity"
)

// Recognition is one raw engine result. Confidence values are on the
// engine's native 0..100 scale; the pool converts to [0,1].
type Recognition struct {
	Text       string
	Confidence float64
	Words      []entity.Word
}

// Engine is the external recognition engine consumed by the worker pool.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, imagePath string) (Recognition, error)
}

// FallbackPolicy decides whether a low-confidence primary result is worth
// one escalation to a higher-accuracy engine. Escalation is a single
// bounded step, never a retry loop.
type FallbackPolicy struct {
	// MinConfidence is on the [0,1] scale of the aggregated result.
	MinConfidence float64
	Engine        Engine
}

// ShouldEscalate reports whether the policy wants the fallback engine
// consulted for the given overall confidence.
func (p FallbackPolicy) ShouldEscalate(overall float64) bool {
	return p.Engine != nil && overall < p.MinConfidence
}

// overallFromWords averages word-level confidences (0..100) down to [0,1].
// Falls back to the engine's own overall score when no words came back.
func overallFromWords(rec Recognition) float64 {
	if len(rec.Words) == 0 {
		return clamp01(rec.Confidence / 100)
	}
	var sum float64
	for _, w := range rec.Words {
		sum += w.Confidence
	}
	return clamp01(sum / float64(len(rec.Words)) / 100)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
