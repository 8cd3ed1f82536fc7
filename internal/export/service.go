// Package export produces XLSX workbooks from the product store.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/benfi/label-automation/internal/entity"
	"github.com/benfi/label-automation/internal/repository"
)

// Service is a tiny façade over the product repository that produces
// XLSX bytes for exports.
type Service struct {
	products repository.ProductRepository
	logger   *slog.Logger
}

func NewService(products repository.ProductRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{products: products, logger: logger}
}

// ExportProductsXLSX returns an XLSX workbook (as bytes) for up to limit
// products; limit <= 0 exports everything.
func (s *Service) ExportProductsXLSX(ctx context.Context, limit int) ([]byte, error) {
	start := time.Now()

	if limit <= 0 {
		total, err := s.products.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("count products: %w", err)
		}
		limit = total
	}
	var prods []*entity.Product
	if limit > 0 {
		var err error
		prods, err = s.products.FindMany(ctx, limit, 0)
		if err != nil {
			return nil, fmt.Errorf("query products: %w", err)
		}
	}

	f := excelize.NewFile()
	const sheet = "Products"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Article Number",
		"Product Name",
		"Description",
		"Price (EUR)",
		"Tiered Prices",
		"Confidence",
		"Verified",
		"Published",
		"Source",
		"Updated",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, p := range prods {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, p.ArticleNumber)
		write(2, p.ProductName)
		write(3, truncate(p.Description, 140))
		if p.Price != nil {
			write(4, *p.Price)
		} else {
			write(4, "")
		}
		write(5, formatTiers(p.TieredPrices))
		write(6, fmt.Sprintf("%.2f", p.OCRConfidence))
		write(7, p.Verified)
		write(8, p.Published)
		write(9, p.Source)
		if !p.UpdatedAt.IsZero() {
			write(10, p.UpdatedAt.Format("2006-01-02"))
		} else {
			write(10, "")
		}

		row++
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 16) // article number
	_ = f.SetColWidth(sheet, "B", "B", 32) // name
	_ = f.SetColWidth(sheet, "C", "C", 48) // description
	_ = f.SetColWidth(sheet, "D", "E", 16) // prices
	_ = f.SetColWidth(sheet, "I", "I", 48) // source
	_ = f.SetColWidth(sheet, "J", "J", 12) // date

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(prods),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// formatTiers renders tier rows as "ab 10: 1.80; ab 50: 1.50".
func formatTiers(tiers []entity.TieredPrice) string {
	if len(tiers) == 0 {
		return ""
	}
	parts := make([]string, 0, len(tiers))
	for _, t := range tiers {
		parts = append(parts, fmt.Sprintf("ab %d: %.2f", t.Quantity, t.Price))
	}
	return strings.Join(parts, "; ")
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
