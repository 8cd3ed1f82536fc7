package merge

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/benfi/label-automation/constants"
	"github.com/benfi/label-automation/internal/entity"
	"github.com/benfi/label-automation/internal/repository"
)

func floatPtr(v float64) *float64 { return &v }

func ocrResult(article, name string, overall float64) *entity.OCRResult {
	return &entity.OCRResult{
		ID:     uuid.New(),
		Status: constants.OCRCompleted,
		ExtractedData: entity.ExtractedFields{
			ArticleNumber: article,
			ProductName:   name,
			Description:   "Selbstklebender Halter aus PVC.",
			Price:         floatPtr(22.99),
		},
		Confidence: entity.OCRConfidence{Overall: overall},
	}
}

func newTestMerger() (*Merger, *repository.MemoryProductRepository) {
	repo := repository.NewMemoryProductRepository()
	return NewMerger(repo, nil), repo
}

func TestCreateOrUpdateFromOCRCreates(t *testing.T) {
	m, _ := newTestMerger()
	ctx := context.Background()

	res := ocrResult("123456", "Etikettenhalter transparent", 0.9)
	product, action, err := m.CreateOrUpdateFromOCR(ctx, Request{OCRResult: res})
	if err != nil {
		t.Fatalf("CreateOrUpdateFromOCR: %v", err)
	}
	if action != ActionCreated {
		t.Fatalf("action = %v, want created", action)
	}
	if product.ArticleNumber != "123456" || product.ProductName != "Etikettenhalter transparent" {
		t.Errorf("product = %+v", product)
	}
	if product.Currency != "EUR" || !product.Published {
		t.Errorf("Currency/Published = %q/%v, want EUR/true", product.Currency, product.Published)
	}
	if product.OCRConfidence != 0.9 {
		t.Errorf("OCRConfidence = %v, want 0.9", product.OCRConfidence)
	}
}

func TestCreateOrUpdateFromOCRSkipsUnusable(t *testing.T) {
	m, _ := newTestMerger()
	ctx := context.Background()

	tests := []struct {
		name string
		res  *entity.OCRResult
	}{
		{"nil result", nil},
		{"incomplete ocr", &entity.OCRResult{Status: constants.OCRProcessing}},
		{"no article number", ocrResult("", "Etikettenhalter", 0.9)},
		{"no text at all", func() *entity.OCRResult {
			r := ocrResult("123456", "", 0.9)
			r.ExtractedData.Description = ""
			return r
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			product, action, err := m.CreateOrUpdateFromOCR(ctx, Request{OCRResult: tt.res})
			if err != nil {
				t.Fatalf("err = %v", err)
			}
			if action != ActionSkipped || product != nil {
				t.Errorf("action = %v product = %v, want skipped/nil", action, product)
			}
		})
	}
}

func TestCreateOrUpdateFromOCRPlaceholderName(t *testing.T) {
	m, _ := newTestMerger()
	ctx := context.Background()

	res := ocrResult("123456", "", 0.9)
	product, action, err := m.CreateOrUpdateFromOCR(ctx, Request{OCRResult: res})
	if err != nil || action != ActionCreated {
		t.Fatalf("action = %v err = %v", action, err)
	}
	if product.ProductName != "Product 123456" {
		t.Errorf("ProductName = %q, want placeholder", product.ProductName)
	}
	if !product.IsPlaceholderName() {
		t.Error("IsPlaceholderName = false, want true")
	}
}

func TestCreateOrUpdateFromOCRConfidenceGate(t *testing.T) {
	m, _ := newTestMerger()
	ctx := context.Background()

	if _, _, err := m.CreateOrUpdateFromOCR(ctx, Request{OCRResult: ocrResult("123456", "Guter Name", 0.8)}); err != nil {
		t.Fatal(err)
	}

	// lower confidence candidate never overwrites
	product, action, err := m.CreateOrUpdateFromOCR(ctx, Request{OCRResult: ocrResult("123456", "Schlechter Name", 0.5)})
	if err != nil {
		t.Fatal(err)
	}
	if action != ActionSkipped {
		t.Fatalf("action = %v, want skipped", action)
	}
	if product.ProductName != "Guter Name" {
		t.Errorf("ProductName = %q, existing record must survive", product.ProductName)
	}

	// higher confidence candidate overwrites
	product, action, err = m.CreateOrUpdateFromOCR(ctx, Request{OCRResult: ocrResult("123456", "Besserer Name", 0.95)})
	if err != nil {
		t.Fatal(err)
	}
	if action != ActionUpdated {
		t.Fatalf("action = %v, want updated", action)
	}
	if product.ProductName != "Besserer Name" || product.OCRConfidence != 0.95 {
		t.Errorf("product = %+v", product)
	}
}

func TestCreateOrUpdateFromOCRPlaceholderAlwaysYields(t *testing.T) {
	m, _ := newTestMerger()
	ctx := context.Background()

	// placeholder record with high stored confidence
	if _, _, err := m.CreateOrUpdateFromOCR(ctx, Request{OCRResult: ocrResult("123456", "", 0.9)}); err != nil {
		t.Fatal(err)
	}

	// a lower-confidence candidate with a real name still replaces it
	product, action, err := m.CreateOrUpdateFromOCR(ctx, Request{OCRResult: ocrResult("123456", "Echter Name", 0.4)})
	if err != nil {
		t.Fatal(err)
	}
	if action != ActionUpdated {
		t.Fatalf("action = %v, want updated (placeholder yields)", action)
	}
	if product.ProductName != "Echter Name" {
		t.Errorf("ProductName = %q", product.ProductName)
	}
}

func TestCreateOrUpdateFromOCRPreservesImages(t *testing.T) {
	m, repo := newTestMerger()
	ctx := context.Background()

	first := ocrResult("123456", "Mit Bild", 0.5)
	shot := &entity.Screenshot{PageURL: "https://shop.example.de/produkt/a", Path: "/shots/a.png"}
	if _, _, err := m.CreateOrUpdateFromOCR(ctx, Request{OCRResult: first, Screenshot: shot}); err != nil {
		t.Fatal(err)
	}

	// update without a screenshot keeps the stored image
	product, action, err := m.CreateOrUpdateFromOCR(ctx, Request{OCRResult: ocrResult("123456", "Ohne Bild", 0.9)})
	if err != nil || action != ActionUpdated {
		t.Fatalf("action = %v err = %v", action, err)
	}
	if product.ImageURL != "/shots/a.png" {
		t.Errorf("ImageURL = %q, want preserved path", product.ImageURL)
	}

	stored, err := repo.FindByArticleNumber(ctx, "123456")
	if err != nil {
		t.Fatal(err)
	}
	if stored.ImageURL != "/shots/a.png" {
		t.Errorf("stored ImageURL = %q", stored.ImageURL)
	}
}

func TestBatchCreateFromOCRAccounting(t *testing.T) {
	m, _ := newTestMerger()
	ctx := context.Background()

	// seed an existing high-confidence record
	if _, _, err := m.CreateOrUpdateFromOCR(ctx, Request{OCRResult: ocrResult("111", "Bestand", 0.9)}); err != nil {
		t.Fatal(err)
	}

	input := []*entity.OCRResult{
		ocrResult("222", "Neu A", 0.8),          // created
		ocrResult("111", "Update", 0.95),        // updated
		ocrResult("111", "Zu schwach", 0.1),     // skipped (lower confidence)
		ocrResult("", "Ohne Artikelnummer", 0.8), // skipped (unusable)
		{Status: constants.OCRFailed},            // skipped (incomplete)
	}
	outcome, merged := m.BatchCreateFromOCR(ctx, input, uuid.New())

	if outcome.Created != 1 || outcome.Updated != 1 || outcome.Skipped != 3 || outcome.Errors != 0 {
		t.Errorf("outcome = %+v, want 1/1/3/0", outcome)
	}
	if got := outcome.Created + outcome.Updated + outcome.Skipped + outcome.Errors; got != len(input) {
		t.Errorf("accounting sum = %d, want %d", got, len(input))
	}
	if len(merged) != 2 {
		t.Errorf("merged = %d products, want 2", len(merged))
	}
}

func TestSearchAndStats(t *testing.T) {
	m, _ := newTestMerger()
	ctx := context.Background()

	for _, r := range []*entity.OCRResult{
		ocrResult("111", "Etikettenhalter transparent", 0.9),
		ocrResult("222", "Regalschiene Alu", 0.9),
	} {
		if _, _, err := m.CreateOrUpdateFromOCR(ctx, Request{OCRResult: r}); err != nil {
			t.Fatal(err)
		}
	}

	found, err := m.Search(ctx, "etikett", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 || found[0].ArticleNumber != "111" {
		t.Errorf("Search = %+v, want article 111", found)
	}

	stats, err := m.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 2 {
		t.Errorf("Total = %d, want 2", stats.Total)
	}
}
