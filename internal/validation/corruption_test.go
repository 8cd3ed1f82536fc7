package validation

import (
	"strings"
	"testing"

	"github.com/benfi/label-automation/internal/entity"
)

func TestDetectCorruptedDataClean(t *testing.T) {
	report := DetectCorruptedData(&entity.ExtractedFields{
		ProductName: "Etikettenhalter transparent",
		Description: "Selbstklebender Halter aus PVC für Regalschienen.",
	})
	if report.IsCorrupted {
		t.Errorf("IsCorrupted = true for clean data, issues: %v", report.Issues)
	}
	if report.CorruptionScore != 0 {
		t.Errorf("CorruptionScore = %v, want 0", report.CorruptionScore)
	}
}

func TestDetectCorruptedDataNil(t *testing.T) {
	report := DetectCorruptedData(nil)
	if report.IsCorrupted || report.CorruptionScore != 0 {
		t.Errorf("nil input: %+v, want zero report", report)
	}
}

func TestDetectCorruptedDataEncodingArtifacts(t *testing.T) {
	report := DetectCorruptedData(&entity.ExtractedFields{
		ProductName: "GrÃ¶ÃŸe 100mm",
	})
	if !report.IsCorrupted {
		t.Fatal("IsCorrupted = false, want true")
	}
	if report.CorruptionScore <= 0 || report.CorruptionScore > 1 {
		t.Errorf("CorruptionScore = %v, want in (0,1]", report.CorruptionScore)
	}
	if len(report.Issues) == 0 {
		t.Error("Issues empty, want encoding artifact issue")
	}
}

func TestDetectCorruptedDataBoilerplate(t *testing.T) {
	report := DetectCorruptedData(&entity.ExtractedFields{
		ProductName: "Cookies akzeptieren",
		Description: "Warenkorb zur Kasse Impressum Newsletter",
	})
	if !report.IsCorrupted {
		t.Fatal("IsCorrupted = false, want true")
	}
	// cookie banner and navigation both contribute
	if len(report.Issues) < 2 {
		t.Errorf("Issues = %v, want at least two categories", report.Issues)
	}
}

func TestDetectCorruptedDataScoreClamped(t *testing.T) {
	// saturate every category
	desc := strings.Repeat("Ã¤ Ã¶ Ã¼ ÃŸ â€ ", 5) +
		strings.Repeat("cookie einwilligung tracking ", 5) +
		strings.Repeat("warenkorb impressum newsletter zur kasse ", 5)
	report := DetectCorruptedData(&entity.ExtractedFields{Description: desc})
	if report.CorruptionScore != 1 {
		t.Errorf("CorruptionScore = %v, want clamped to 1", report.CorruptionScore)
	}
	if !report.IsCorrupted {
		t.Error("IsCorrupted = false, want true")
	}
}
