package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/benfi/label-automation/constants"
)

// BoundingBox locates one recognized word on the source image.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Word is one word-level recognition with its engine confidence (0..100).
type Word struct {
	Text       string      `json:"text"`
	Confidence float64     `json:"confidence"`
	BBox       BoundingBox `json:"bbox"`
}

// TieredPrice is one quantity-break price row ("ab 10 Stück 22,99 EUR").
type TieredPrice struct {
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// ExtractedFields are the typed candidate fields pulled out of raw OCR
// text by the pattern table. Pointers distinguish "absent" from zero.
type ExtractedFields struct {
	ArticleNumber string        `json:"article_number,omitempty"`
	ProductName   string        `json:"product_name,omitempty"`
	Description   string        `json:"description,omitempty"`
	Price         *float64      `json:"price,omitempty"`
	TieredPrices  []TieredPrice `json:"tiered_prices,omitempty"`
}

// OCRConfidence carries the overall score plus per-field scores, all in
// [0,1].
type OCRConfidence struct {
	Overall  float64            `json:"overall"`
	PerField map[string]float64 `json:"per_field,omitempty"`
}

// OCRResult is the outcome of recognizing one screenshot.
type OCRResult struct {
	ID               uuid.UUID           `json:"id"`
	ScreenshotID     uuid.UUID           `json:"screenshot_id"`
	Status           constants.OCRStatus `json:"status"`
	RawText          string              `json:"raw_text"`
	ExtractedData    ExtractedFields     `json:"extracted_data"`
	Confidence       OCRConfidence       `json:"confidence"`
	BoundingBoxes    []Word              `json:"bounding_boxes,omitempty"`
	Engine           string              `json:"engine,omitempty"`
	ProcessingTimeMs int64               `json:"processing_time_ms"`
	ErrorMessage     *string             `json:"error_message,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
}
