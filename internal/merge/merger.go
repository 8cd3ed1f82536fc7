// Package merge decides create-vs-update for product records from OCR
// candidates, preserving better existing data.
package merge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/benfi/label-automation/constants"
	"github.com/benfi/label-automation/internal/common"
	"github.com/benfi/label-automation/internal/entity"
	"github.com/benfi/label-automation/internal/repository"
	"github.com/benfi/label-automation/internal/validation"
)

// Action classifies the outcome of one merge call.
type Action int

const (
	ActionSkipped Action = iota
	ActionCreated
	ActionUpdated
)

// Request carries one OCR candidate into the merger.
type Request struct {
	OCRResult  *entity.OCRResult
	Screenshot *entity.Screenshot
	CrawlJobID *uuid.UUID
}

// Merger owns all writes to the product store.
type Merger struct {
	products repository.ProductRepository
	logger   *slog.Logger
}

func NewMerger(products repository.ProductRepository, logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{products: products, logger: logger}
}

// CreateOrUpdateFromOCR merges one candidate. Returns (nil, ActionSkipped,
// nil) for unusable candidates: incomplete OCR, no article number, or no
// descriptive text at all. An existing record is only overwritten when it
// has lower confidence or carries a placeholder name.
func (m *Merger) CreateOrUpdateFromOCR(ctx context.Context, req Request) (*entity.Product, Action, error) {
	ocr := req.OCRResult
	if ocr == nil || ocr.Status != constants.OCRCompleted {
		return nil, ActionSkipped, nil
	}
	fixed := validation.AutoFixData(&ocr.ExtractedData)
	if fixed == nil || strings.TrimSpace(fixed.ArticleNumber) == "" {
		return nil, ActionSkipped, nil
	}
	if strings.TrimSpace(fixed.ProductName) == "" && strings.TrimSpace(fixed.Description) == "" {
		return nil, ActionSkipped, nil
	}

	candidate := m.buildProduct(fixed, ocr, req)

	existing, err := m.products.FindByArticleNumber(ctx, candidate.ArticleNumber)
	if errors.Is(err, common.ErrNotFound) {
		created, err := m.products.Create(ctx, candidate)
		if err != nil {
			return nil, ActionSkipped, fmt.Errorf("create product %s: %w", candidate.ArticleNumber, err)
		}
		m.logger.Info("merge.product.created",
			"article_number", created.ArticleNumber, "confidence", created.OCRConfidence)
		return created, ActionCreated, nil
	}
	if err != nil {
		return nil, ActionSkipped, fmt.Errorf("lookup product %s: %w", candidate.ArticleNumber, err)
	}

	if !shouldOverwrite(existing, candidate) {
		m.logger.Debug("merge.product.kept",
			"article_number", existing.ArticleNumber,
			"existing_confidence", existing.OCRConfidence,
			"candidate_confidence", candidate.OCRConfidence)
		return existing, ActionSkipped, nil
	}

	// keep existing images when the candidate brings none
	if candidate.ImageURL == "" {
		candidate.ImageURL = existing.ImageURL
	}
	if candidate.ThumbnailURL == "" {
		candidate.ThumbnailURL = existing.ThumbnailURL
	}
	candidate.ID = existing.ID

	updated, err := m.products.Update(ctx, candidate)
	if err != nil {
		return nil, ActionSkipped, fmt.Errorf("update product %s: %w", candidate.ArticleNumber, err)
	}
	m.logger.Info("merge.product.updated",
		"article_number", updated.ArticleNumber,
		"old_confidence", existing.OCRConfidence, "new_confidence", updated.OCRConfidence,
		"placeholder_replaced", existing.IsPlaceholderName())
	return updated, ActionUpdated, nil
}

// BatchCreateFromOCR merges each result independently; one item's failure
// never aborts the batch. Created+Updated+Skipped+Errors equals the input
// length.
func (m *Merger) BatchCreateFromOCR(ctx context.Context, results []*entity.OCRResult, jobID uuid.UUID) (entity.MergeOutcome, []*entity.Product) {
	var outcome entity.MergeOutcome
	var merged []*entity.Product
	for _, res := range results {
		product, action, err := m.CreateOrUpdateFromOCR(ctx, Request{OCRResult: res})
		if err != nil {
			outcome.Errors++
			m.logger.Warn("merge.batch.item.failed", "job_id", jobID, "error", err)
			continue
		}
		switch action {
		case ActionCreated:
			outcome.Created++
			merged = append(merged, product)
		case ActionUpdated:
			outcome.Updated++
			merged = append(merged, product)
		default:
			outcome.Skipped++
		}
	}
	m.logger.Info("merge.batch.done", "job_id", jobID,
		"created", outcome.Created, "updated", outcome.Updated,
		"skipped", outcome.Skipped, "errors", outcome.Errors)
	return outcome, merged
}

// Search matches published products case-insensitively across article
// number, name and description.
func (m *Merger) Search(ctx context.Context, query string, limit int) ([]*entity.Product, error) {
	if limit <= 0 {
		limit = 20
	}
	return m.products.Search(ctx, query, limit)
}

// Stats aggregates the product store.
func (m *Merger) Stats(ctx context.Context) (entity.ProductStats, error) {
	var stats entity.ProductStats
	var err error
	if stats.Total, err = m.products.Count(ctx); err != nil {
		return stats, err
	}
	if stats.WithImages, err = m.products.CountWithImages(ctx); err != nil {
		return stats, err
	}
	if stats.Verified, err = m.products.CountVerified(ctx); err != nil {
		return stats, err
	}
	if stats.Categories, err = m.products.GroupByCategory(ctx); err != nil {
		return stats, err
	}
	return stats, nil
}

func (m *Merger) buildProduct(fields *entity.ExtractedFields, ocr *entity.OCRResult, req Request) *entity.Product {
	name := strings.TrimSpace(fields.ProductName)
	if name == "" {
		name = constants.PlaceholderNamePrefix + fields.ArticleNumber
	}
	p := &entity.Product{
		ArticleNumber: fields.ArticleNumber,
		ProductName:   name,
		Description:   strings.TrimSpace(fields.Description),
		Price:         fields.Price,
		TieredPrices:  fields.TieredPrices,
		Currency:      "EUR",
		OCRConfidence: ocr.Confidence.Overall,
		Source:        "ocr",
		Published:     true,
	}
	if req.Screenshot != nil {
		p.ImageURL = req.Screenshot.Path
		if req.Screenshot.PageURL != "" {
			p.Source = req.Screenshot.PageURL
		}
	}
	return p
}

// shouldOverwrite implements the merge invariant: overwrite only on
// higher confidence, or unconditionally when the existing record was
// never properly populated (placeholder name).
func shouldOverwrite(existing, candidate *entity.Product) bool {
	if existing.IsPlaceholderName() {
		return true
	}
	return candidate.OCRConfidence > existing.OCRConfidence
}
