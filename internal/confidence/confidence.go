// Package confidence holds the single weighted scoring function shared by
// the validator and the merger, so both sides rank records the same way.
package confidence

// Field names used as weight keys across the pipeline.
const (
	FieldProductName   = "productName"
	FieldArticleNumber = "articleNumber"
	FieldPrice         = "price"
	FieldDescription   = "description"
	FieldTieredPrices  = "tieredPrices"
)

// DefaultWeights weight the critical fields (name, article number, price)
// twice as high as the descriptive ones, so a record with strong critical
// fields clears 0.5 overall even with an empty description.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		FieldProductName:   2.0,
		FieldArticleNumber: 2.0,
		FieldPrice:         2.0,
		FieldDescription:   1.0,
		FieldTieredPrices:  1.0,
	}
}

// Overall computes the weighted mean of per-field scores. Fields without
// an entry in weights count with weight 1. The result is clamped to [0,1];
// an empty score map yields 0.
func Overall(scores map[string]float64, weights map[string]float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum, wsum float64
	for field, score := range scores {
		w := 1.0
		if weights != nil {
			if v, ok := weights[field]; ok {
				w = v
			}
		}
		sum += Clamp(score) * w
		wsum += w
	}
	if wsum == 0 {
		return 0
	}
	return Clamp(sum / wsum)
}

// Clamp forces v into [0,1].
func Clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
