package constants

// OCRFallbackThreshold is the default overall-confidence floor below which
// the fallback recognition engine is consulted. Configurable via
// OCR_FALLBACK_THRESHOLD.
const OCRFallbackThreshold = 0.60

// Default crawl limits. Explicit config values override these per key.
const (
	DefaultMaxProducts       = 2000
	DefaultScreenshotQuality = 90
)

// TotalAutomationSteps is the number of pipeline stages contributing to
// job progress (crawl, ocr, match, render).
const TotalAutomationSteps = 4

// PlaceholderNamePrefix marks auto-generated product names ("Product <nr>")
// written when a record was created without usable OCR text. Records with
// such names are always eligible for overwrite.
const PlaceholderNamePrefix = "Product "
