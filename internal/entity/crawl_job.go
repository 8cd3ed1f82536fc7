package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/benfi/label-automation/constants"
)

// CrawlConfig controls one browser crawl session. Zero values mean
// "use the coordinator default"; WithDefaults resolves them.
type CrawlConfig struct {
	MaxProducts       int   `json:"max_products,omitempty"`
	FullShopScan      *bool `json:"full_shop_scan,omitempty"`
	FollowPagination  *bool `json:"follow_pagination,omitempty"`
	ScreenshotQuality int   `json:"screenshot_quality,omitempty"`
}

// WithDefaults returns the config with unset keys replaced by the crawl
// defaults (maxProducts=2000, fullShopScan=true, followPagination=true,
// screenshotQuality=90). Explicit values win per key.
func (c CrawlConfig) WithDefaults() CrawlConfig {
	out := c
	if out.MaxProducts <= 0 {
		out.MaxProducts = constants.DefaultMaxProducts
	}
	if out.FullShopScan == nil {
		t := true
		out.FullShopScan = &t
	}
	if out.FollowPagination == nil {
		t := true
		out.FollowPagination = &t
	}
	if out.ScreenshotQuality <= 0 || out.ScreenshotQuality > 100 {
		out.ScreenshotQuality = constants.DefaultScreenshotQuality
	}
	return out
}

// Screenshot is one captured product page.
type Screenshot struct {
	ID        uuid.UUID `json:"id"`
	PageURL   string    `json:"page_url"`
	Path      string    `json:"path"`
	SizeBytes int64     `json:"size_bytes"`
	TakenAt   time.Time `json:"taken_at"`
}

// CrawlStats accumulates per-page measurements over one session.
type CrawlStats struct {
	TotalPages            int           `json:"total_pages"`
	SuccessfulScreenshots int           `json:"successful_screenshots"`
	FailedScreenshots     int           `json:"failed_screenshots"`
	AveragePageLoadTime   time.Duration `json:"average_page_load_time"`
	TotalDataTransferred  int64         `json:"total_data_transferred"`
}

// CrawlResults is the outcome of one crawl session. Per-page failures
// land in Errors without aborting the session.
type CrawlResults struct {
	ProductsFound int          `json:"products_found"`
	Screenshots   []Screenshot `json:"screenshots,omitempty"`
	Errors        []string     `json:"errors,omitempty"`
	Stats         CrawlStats   `json:"stats"`
}

// CrawlJob represents one browser-automation session. At most one
// automation job owns it; the crawl coordinator owns its lifecycle.
type CrawlJob struct {
	ID        uuid.UUID             `json:"id"`
	ShopURL   string                `json:"shop_url"`
	Status    constants.CrawlStatus `json:"status"`
	Config    CrawlConfig           `json:"config"`
	Results   CrawlResults          `json:"results"`
	CreatedAt time.Time             `json:"created_at"`
}

func (j *CrawlJob) Clone() *CrawlJob {
	cp := *j
	cp.Results.Screenshots = append([]Screenshot(nil), j.Results.Screenshots...)
	cp.Results.Errors = append([]string(nil), j.Results.Errors...)
	return &cp
}
