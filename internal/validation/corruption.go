package validation

import (
	"fmt"
	"strings"

	"github.com/benfi/label-automation/internal/confidence"
	"github.com/benfi/label-automation/internal/entity"
)

// signatureCategory is one class of contamination with its scoring weight
// and the per-category match cap.
type signatureCategory struct {
	name       string
	weight     float64
	cap        int
	signatures []string
}

// Signature packs for text that leaked into product fields from the page
// chrome. Matching is case-insensitive substring.
var signatureCategories = []signatureCategory{
	{
		name:   "encoding artifacts",
		weight: 0.4,
		cap:    5,
		signatures: []string{
			"Ã¤", "Ã¶", "Ã¼", "ÃŸ", "â€", "Â©", "Â®", "Ã‚", "�",
		},
	},
	{
		name:   "cookie banner boilerplate",
		weight: 0.3,
		cap:    3,
		signatures: []string{
			"cookie", "cookies akzeptieren", "alle akzeptieren",
			"datenschutzerklärung", "einwilligung", "tracking",
		},
	},
	{
		name:   "site navigation boilerplate",
		weight: 0.3,
		cap:    3,
		signatures: []string{
			"warenkorb", "zur kasse", "mein konto", "anmelden",
			"impressum", "agb", "versandkosten", "newsletter",
		},
	},
}

// DetectCorruptedData scans the concatenated text fields for known
// contamination signatures. The score is hard-clamped to [0,1] and
// IsCorrupted holds exactly when the score is positive.
func DetectCorruptedData(data *entity.ExtractedFields) entity.CorruptionReport {
	report := entity.CorruptionReport{}
	if data == nil {
		return report
	}
	text := strings.ToLower(data.ProductName + "\n" + data.Description)

	for _, cat := range signatureCategories {
		count := 0
		for _, sig := range cat.signatures {
			count += strings.Count(text, strings.ToLower(sig))
		}
		if count == 0 {
			continue
		}
		capped := count
		if capped > cat.cap {
			capped = cat.cap
		}
		report.CorruptionScore += cat.weight * float64(capped) / float64(cat.cap)
		report.Issues = append(report.Issues,
			fmt.Sprintf("%s detected (%d match(es))", cat.name, count))
	}

	report.CorruptionScore = confidence.Clamp(report.CorruptionScore)
	report.IsCorrupted = report.CorruptionScore > 0
	return report
}
