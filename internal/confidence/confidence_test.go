package confidence

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestOverallEmpty(t *testing.T) {
	if got := Overall(nil, DefaultWeights()); got != 0 {
		t.Errorf("Overall(nil) = %v, want 0", got)
	}
	if got := Overall(map[string]float64{}, nil); got != 0 {
		t.Errorf("Overall(empty) = %v, want 0", got)
	}
}

func TestOverallWeightedMean(t *testing.T) {
	scores := map[string]float64{
		FieldProductName:   1.0,
		FieldArticleNumber: 1.0,
		FieldPrice:         1.0,
		FieldDescription:   0,
		FieldTieredPrices:  0,
	}
	// (2+2+2+0+0) / (2+2+2+1+1) = 6/8
	if got := Overall(scores, DefaultWeights()); !almostEqual(got, 0.75) {
		t.Errorf("Overall = %v, want 0.75", got)
	}
}

func TestOverallUnknownFieldDefaultsToWeightOne(t *testing.T) {
	scores := map[string]float64{
		FieldProductName: 1.0,
		"somethingElse":  0,
	}
	// (2*1 + 1*0) / 3
	if got := Overall(scores, DefaultWeights()); !almostEqual(got, 2.0/3.0) {
		t.Errorf("Overall = %v, want 2/3", got)
	}
}

func TestOverallClampsInputsAndOutput(t *testing.T) {
	scores := map[string]float64{
		FieldProductName: 1.7,  // clamped to 1
		FieldPrice:       -0.3, // clamped to 0
	}
	got := Overall(scores, DefaultWeights())
	// (2*1 + 2*0) / 4 = 0.5
	if !almostEqual(got, 0.5) {
		t.Errorf("Overall = %v, want 0.5", got)
	}
	if got < 0 || got > 1 {
		t.Errorf("Overall = %v outside [0,1]", got)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{-1, 0},
		{0, 0},
		{0.5, 0.5},
		{1, 1},
		{1.5, 1},
	}
	for _, tt := range tests {
		if got := Clamp(tt.in); got != tt.want {
			t.Errorf("Clamp(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
