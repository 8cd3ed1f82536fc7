package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/benfi/label-automation/constants"
)

// AutomationConfig is the caller-supplied configuration for one
// end-to-end automation run.
type AutomationConfig struct {
	ShopURL    string      `json:"shop_url"`
	TemplateID string      `json:"template_id,omitempty"`
	Crawl      CrawlConfig `json:"crawl"`
}

// AutomationProgress tracks pipeline advancement for one job.
type AutomationProgress struct {
	CurrentStep     int     `json:"current_step"`
	TotalSteps      int     `json:"total_steps"`
	Percent         float64 `json:"percent"`
	ProductsFound   int     `json:"products_found"`
	LabelsGenerated int     `json:"labels_generated"`
}

// AutomationResults accumulates per-stage outputs on the job.
type AutomationResults struct {
	Screenshots []Screenshot `json:"screenshots,omitempty"`
	OCRResults  []uuid.UUID  `json:"ocr_results,omitempty"`
	Labels      []string     `json:"labels,omitempty"`
	Errors      []string     `json:"errors,omitempty"`
}

// AutomationJob represents one crawl -> OCR -> match -> render run.
// Owned exclusively by the orchestrator; all mutation goes through its
// job store.
type AutomationJob struct {
	ID         uuid.UUID                  `json:"id"`
	Status     constants.AutomationStatus `json:"status"`
	Config     AutomationConfig           `json:"config"`
	Progress   AutomationProgress         `json:"progress"`
	Results    AutomationResults          `json:"results"`
	CrawlJobID *uuid.UUID                 `json:"crawl_job_id,omitempty"`
	Error      *string                    `json:"error,omitempty"`
	CreatedAt  time.Time                  `json:"created_at"`
	StartedAt  *time.Time                 `json:"started_at,omitempty"`
	FinishedAt *time.Time                 `json:"finished_at,omitempty"`
}

// Clone returns a deep-enough copy for handing out past the store
// boundary without exposing internal slices to mutation.
func (j *AutomationJob) Clone() *AutomationJob {
	cp := *j
	cp.Results.Screenshots = append([]Screenshot(nil), j.Results.Screenshots...)
	cp.Results.OCRResults = append([]uuid.UUID(nil), j.Results.OCRResults...)
	cp.Results.Labels = append([]string(nil), j.Results.Labels...)
	cp.Results.Errors = append([]string(nil), j.Results.Errors...)
	return &cp
}
