package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/benfi/label-automation/constants"
)

// Product is one verified product record. The article number is the
// natural key; only the merger creates or updates rows.
type Product struct {
	ID            uuid.UUID     `json:"id"`
	ArticleNumber string        `json:"article_number"`
	ProductName   string        `json:"product_name"`
	Description   string        `json:"description"`
	Price         *float64      `json:"price,omitempty"`
	TieredPrices  []TieredPrice `json:"tiered_prices,omitempty"`
	Currency      string        `json:"currency"`
	ImageURL      string        `json:"image_url,omitempty"`
	ThumbnailURL  string        `json:"thumbnail_url,omitempty"`
	Category      string        `json:"category,omitempty"`
	OCRConfidence float64       `json:"ocr_confidence"`
	Source        string        `json:"source,omitempty"`
	Published     bool          `json:"published"`
	Verified      bool          `json:"verified"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// IsPlaceholderName reports whether the record carries an auto-generated
// "Product <articleNumber>" name, meaning it was never properly populated
// and should always yield to fresh OCR data.
func (p *Product) IsPlaceholderName() bool {
	return strings.TrimSpace(p.ProductName) == constants.PlaceholderNamePrefix+p.ArticleNumber
}

// ProductStats is the aggregate view over the product store.
type ProductStats struct {
	Total      int      `json:"total"`
	WithImages int      `json:"with_images"`
	Verified   int      `json:"verified"`
	Categories []string `json:"categories"`
}
