package export

import (
	"bytes"
	"context"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/benfi/label-automation/internal/entity"
	"github.com/benfi/label-automation/internal/repository"
)

func floatPtr(v float64) *float64 { return &v }

func TestExportProductsXLSX(t *testing.T) {
	repo := repository.NewMemoryProductRepository()
	ctx := context.Background()
	seed := []*entity.Product{
		{
			ArticleNumber: "111",
			ProductName:   "Etikettenhalter transparent",
			Description:   "Selbstklebender Halter aus PVC.",
			Price:         floatPtr(22.99),
			TieredPrices:  []entity.TieredPrice{{Quantity: 10, Price: 1.80}},
			Currency:      "EUR",
			Published:     true,
		},
		{
			ArticleNumber: "222",
			ProductName:   "Regalschiene Alu",
			Currency:      "EUR",
			Published:     true,
		},
	}
	for _, p := range seed {
		if _, err := repo.Create(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	svc := NewService(repo, nil)
	data, err := svc.ExportProductsXLSX(ctx, 0)
	if err != nil {
		t.Fatalf("ExportProductsXLSX: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Products")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 { // header + 2 products
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[0][0] != "Article Number" {
		t.Errorf("header = %q", rows[0][0])
	}
	// repository returns products sorted by article number
	if rows[1][0] != "111" || rows[1][1] != "Etikettenhalter transparent" {
		t.Errorf("row 1 = %v", rows[1])
	}
	if rows[1][4] != "ab 10: 1.80" {
		t.Errorf("tiers cell = %q, want %q", rows[1][4], "ab 10: 1.80")
	}
	if rows[2][0] != "222" {
		t.Errorf("row 2 = %v", rows[2])
	}
}

func TestExportProductsXLSXEmptyStore(t *testing.T) {
	svc := NewService(repository.NewMemoryProductRepository(), nil)
	data, err := svc.ExportProductsXLSX(context.Background(), 0)
	if err != nil {
		t.Fatalf("ExportProductsXLSX: %v", err)
	}
	if len(data) == 0 {
		t.Error("empty workbook bytes")
	}
}

func TestFormatTiers(t *testing.T) {
	if got := formatTiers(nil); got != "" {
		t.Errorf("formatTiers(nil) = %q, want empty", got)
	}
	got := formatTiers([]entity.TieredPrice{{Quantity: 10, Price: 1.8}, {Quantity: 50, Price: 1.5}})
	if got != "ab 10: 1.80; ab 50: 1.50" {
		t.Errorf("formatTiers = %q", got)
	}
}
