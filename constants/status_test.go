package constants

import "testing"

func TestAutomationStatusTerminal(t *testing.T) {
	tests := []struct {
		s    AutomationStatus
		want bool
	}{
		{AutomationPending, false},
		{AutomationCrawling, false},
		{AutomationOCR, false},
		{AutomationMatching, false},
		{AutomationRendering, false},
		{AutomationCompleted, true},
		{AutomationFailed, true},
	}
	for _, tt := range tests {
		if got := tt.s.Terminal(); got != tt.want {
			t.Errorf("%s.Terminal() = %v, want %v", tt.s, got, tt.want)
		}
	}
}

func TestOCRStatusTerminal(t *testing.T) {
	tests := []struct {
		s    OCRStatus
		want bool
	}{
		{OCRProcessing, false},
		{OCRCompleted, true},
		{OCRFailed, true},
	}
	for _, tt := range tests {
		if got := tt.s.Terminal(); got != tt.want {
			t.Errorf("%s.Terminal() = %v, want %v", tt.s, got, tt.want)
		}
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to AutomationStatus
		want     bool
	}{
		{AutomationPending, AutomationCrawling, true},
		{AutomationCrawling, AutomationOCR, true},
		{AutomationOCR, AutomationMatching, true},
		{AutomationMatching, AutomationRendering, true},
		{AutomationRendering, AutomationCompleted, true},
		// stages may be skipped forward but never revisited
		{AutomationPending, AutomationMatching, true},
		{AutomationOCR, AutomationCrawling, false},
		{AutomationCrawling, AutomationCrawling, false},
		// failed is reachable from any non-terminal state
		{AutomationPending, AutomationFailed, true},
		{AutomationRendering, AutomationFailed, true},
		// terminal states never move again
		{AutomationCompleted, AutomationFailed, false},
		{AutomationFailed, AutomationCrawling, false},
		{AutomationFailed, AutomationFailed, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestStatusValues(t *testing.T) {
	// stored and published as-is; renaming one is a breaking change
	tests := []struct {
		got  string
		want string
	}{
		{string(AutomationPending), "pending"},
		{string(AutomationCrawling), "crawling"},
		{string(AutomationOCR), "processing-ocr"},
		{string(AutomationMatching), "matching"},
		{string(AutomationRendering), "rendering"},
		{string(AutomationCompleted), "completed"},
		{string(AutomationFailed), "failed"},
		{string(CrawlPending), "pending"},
		{string(OCRProcessing), "processing"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("status value %q, want %q", tt.got, tt.want)
		}
	}
}
