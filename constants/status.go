package constants

// AutomationStatus is the canonical status for automation jobs.
type AutomationStatus string

// Stable values (stored and pushed over the notification channel as-is).
const (
	AutomationPending   AutomationStatus = "pending"
	AutomationCrawling  AutomationStatus = "crawling"
	AutomationOCR       AutomationStatus = "processing-ocr"
	AutomationMatching  AutomationStatus = "matching"
	AutomationRendering AutomationStatus = "rendering"
	AutomationCompleted AutomationStatus = "completed"
	AutomationFailed    AutomationStatus = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s AutomationStatus) Terminal() bool {
	return s == AutomationCompleted || s == AutomationFailed
}

// stageRank orders the forward path; failed is reachable from anywhere.
var stageRank = map[AutomationStatus]int{
	AutomationPending:   0,
	AutomationCrawling:  1,
	AutomationOCR:       2,
	AutomationMatching:  3,
	AutomationRendering: 4,
	AutomationCompleted: 5,
}

// CanTransition reports whether from -> to is a legal status move:
// strictly forward through the stage sequence, or a jump to failed from
// any non-terminal state.
func CanTransition(from, to AutomationStatus) bool {
	if from.Terminal() {
		return false
	}
	if to == AutomationFailed {
		return true
	}
	fr, ok1 := stageRank[from]
	tr, ok2 := stageRank[to]
	return ok1 && ok2 && tr > fr
}

// CrawlStatus is the canonical status for crawl jobs.
type CrawlStatus string

const (
	CrawlPending   CrawlStatus = "pending"
	CrawlCrawling  CrawlStatus = "crawling"
	CrawlCompleted CrawlStatus = "completed"
	CrawlFailed    CrawlStatus = "failed"
)

func (s CrawlStatus) Terminal() bool {
	return s == CrawlCompleted || s == CrawlFailed
}

// OCRStatus is the canonical status for OCR results.
type OCRStatus string

const (
	OCRProcessing OCRStatus = "processing"
	OCRCompleted  OCRStatus = "completed"
	OCRFailed     OCRStatus = "failed"
)

func (s OCRStatus) Terminal() bool {
	return s == OCRCompleted || s == OCRFailed
}
