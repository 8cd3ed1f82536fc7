package validation

import (
	"testing"

	"github.com/benfi/label-automation/internal/confidence"
	"github.com/benfi/label-automation/internal/entity"
)

func floatPtr(v float64) *float64 { return &v }

func hasString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func TestValidateProductDataNil(t *testing.T) {
	res := ValidateProductData(nil)
	if res.IsValid {
		t.Error("IsValid = true, want false")
	}
	if !hasString(res.Errors, "Invalid data object provided") {
		t.Errorf("Errors = %v, want to contain %q", res.Errors, "Invalid data object provided")
	}
	if res.OverallConfidence != 0 {
		t.Errorf("OverallConfidence = %v, want 0", res.OverallConfidence)
	}
}

func TestValidateProductDataGoodRecord(t *testing.T) {
	data := &entity.ExtractedFields{
		ArticleNumber: "123456",
		ProductName:   "Etikettenhalter transparent",
		Description:   "Selbstklebender Halter aus PVC.",
		Price:         floatPtr(22.99),
		TieredPrices: []entity.TieredPrice{
			{Quantity: 10, Price: 1.80},
			{Quantity: 50, Price: 1.50},
		},
	}
	res := ValidateProductData(data)
	if !res.IsValid {
		t.Fatalf("IsValid = false, errors: %v", res.Errors)
	}
	if len(res.Errors) != 0 {
		t.Errorf("Errors = %v, want none", res.Errors)
	}
	if res.OverallConfidence < 0.9 {
		t.Errorf("OverallConfidence = %v, want >= 0.9", res.OverallConfidence)
	}
	for _, field := range []string{
		confidence.FieldProductName,
		confidence.FieldArticleNumber,
		confidence.FieldPrice,
		confidence.FieldTieredPrices,
	} {
		if !res.FieldValidation[field] {
			t.Errorf("FieldValidation[%s] = false, want true", field)
		}
	}
}

func TestValidateProductDataName(t *testing.T) {
	tests := []struct {
		name      string
		inName    string
		wantValid bool
		wantErr   string
		wantConf  float64
	}{
		{"missing", "", false, "Product name is missing", 0},
		{"too short", "ab", false, "Product name is too short (< 3 characters)", 0.2},
		{"all uppercase", "REGALSCHIENE ALU", true, "", 0.8},
		{"fine", "Regalschiene Alu", true, "", 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateProductData(&entity.ExtractedFields{
				ArticleNumber: "1234",
				ProductName:   tt.inName,
			})
			if res.FieldValidation[confidence.FieldProductName] != tt.wantValid {
				t.Errorf("name valid = %v, want %v", res.FieldValidation[confidence.FieldProductName], tt.wantValid)
			}
			if tt.wantErr != "" && !hasString(res.Errors, tt.wantErr) {
				t.Errorf("Errors = %v, want to contain %q", res.Errors, tt.wantErr)
			}
			if got := res.Confidence[confidence.FieldProductName]; got != tt.wantConf {
				t.Errorf("name confidence = %v, want %v", got, tt.wantConf)
			}
		})
	}
}

func TestValidateProductDataArticleNumber(t *testing.T) {
	tests := []struct {
		name     string
		nr       string
		valid    bool
		conf     float64
		warnings int
	}{
		{"missing", "", false, 0, 0},
		{"digits", "123456", true, 1.0, 0},
		{"non-digits", "12A4", true, 0.8, 1},
		{"very short", "12", true, 0.7, 1},
		{"short and non-digit", "A1", true, 0.7, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateProductData(&entity.ExtractedFields{
				ArticleNumber: tt.nr,
				ProductName:   "Regalschiene",
			})
			if res.FieldValidation[confidence.FieldArticleNumber] != tt.valid {
				t.Errorf("valid = %v, want %v", res.FieldValidation[confidence.FieldArticleNumber], tt.valid)
			}
			if got := res.Confidence[confidence.FieldArticleNumber]; got != tt.conf {
				t.Errorf("confidence = %v, want %v", got, tt.conf)
			}
			if len(res.Warnings) != tt.warnings {
				t.Errorf("Warnings = %v, want %d", res.Warnings, tt.warnings)
			}
		})
	}
}

func TestValidateProductDataPrice(t *testing.T) {
	base := func(p *float64) *entity.ExtractedFields {
		return &entity.ExtractedFields{ArticleNumber: "1234", ProductName: "Regalschiene", Price: p}
	}

	// missing price: reduced confidence but no error
	res := ValidateProductData(base(nil))
	if !res.IsValid {
		t.Errorf("missing price: IsValid = false, errors: %v", res.Errors)
	}
	if got := res.Confidence[confidence.FieldPrice]; got != 0.5 {
		t.Errorf("missing price confidence = %v, want 0.5", got)
	}

	// non-positive price is an error
	res = ValidateProductData(base(floatPtr(0)))
	if res.IsValid {
		t.Error("zero price: IsValid = true, want false")
	}
	if !hasString(res.Errors, "Price must be greater than 0") {
		t.Errorf("Errors = %v, want price error", res.Errors)
	}

	// implausibly high price only warns
	res = ValidateProductData(base(floatPtr(250000)))
	if !res.IsValid {
		t.Error("high price: IsValid = false, want true")
	}
	if got := res.Confidence[confidence.FieldPrice]; got != 0.7 {
		t.Errorf("high price confidence = %v, want 0.7", got)
	}

	// integer price that looks like a dropped separator warns
	res = ValidateProductData(base(floatPtr(2545)))
	if len(res.Warnings) == 0 {
		t.Error("want a missing-decimal-point warning for 2545")
	}
}

func TestValidateProductDataTieredPrices(t *testing.T) {
	res := ValidateProductData(&entity.ExtractedFields{
		ArticleNumber: "1234",
		ProductName:   "Regalschiene",
		TieredPrices: []entity.TieredPrice{
			{Quantity: 50, Price: 1.50},
			{Quantity: 10, Price: 1.80},
			{Quantity: 10, Price: 1.75},
		},
	})
	if !res.IsValid {
		t.Fatalf("IsValid = false, errors: %v", res.Errors)
	}
	// descending order and duplicate quantity both warn
	if len(res.Warnings) < 2 {
		t.Errorf("Warnings = %v, want order and duplicate warnings", res.Warnings)
	}
	if got := res.Confidence[confidence.FieldTieredPrices]; got != 0.8 {
		t.Errorf("tier confidence = %v, want 0.8", got)
	}

	res = ValidateProductData(&entity.ExtractedFields{
		ArticleNumber: "1234",
		ProductName:   "Regalschiene",
		TieredPrices:  []entity.TieredPrice{{Quantity: 0, Price: -1}},
	})
	if res.IsValid {
		t.Error("invalid tier rows: IsValid = true, want false")
	}
	if got := res.Confidence[confidence.FieldTieredPrices]; got != 0.2 {
		t.Errorf("invalid tier confidence = %v, want 0.2", got)
	}
}

func TestValidateField(t *testing.T) {
	fv := ValidateField(confidence.FieldProductName, "ab")
	if fv.IsValid {
		t.Error("short name: IsValid = true, want false")
	}
	if !hasString(fv.Errors, "Product name is too short (< 3 characters)") {
		t.Errorf("Errors = %v", fv.Errors)
	}

	fv = ValidateField(confidence.FieldPrice, 22.99)
	if !fv.IsValid || fv.Confidence != 1.0 {
		t.Errorf("price 22.99: valid=%v conf=%v", fv.IsValid, fv.Confidence)
	}

	fv = ValidateField(confidence.FieldPrice, "not a number")
	if len(fv.Errors) == 0 {
		t.Error("non-numeric price: want an error")
	}

	fv = ValidateField("bogus", 1)
	if len(fv.Errors) == 0 {
		t.Error("unknown field: want an error")
	}
}

func TestMissingDecimalPoint(t *testing.T) {
	tests := []struct {
		v    float64
		want bool
	}{
		{2545, true},
		{199, true},
		{99, false},     // below range
		{2500, false},   // round hundreds are plausible
		{25.45, false},   // already has decimals
		{1000000, false}, // above range
	}
	for _, tt := range tests {
		if got := missingDecimalPoint(tt.v); got != tt.want {
			t.Errorf("missingDecimalPoint(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}
