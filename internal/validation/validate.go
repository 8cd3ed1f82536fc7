// Package validation is the stateless rule engine for extracted product
// candidates: per-field validity and confidence, auto-fix transforms, and
// corruption-likelihood scoring for whole records.
package validation

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/benfi/label-automation/internal/confidence"
	"github.com/benfi/label-automation/internal/entity"
)

var reDigitsOnly = regexp.MustCompile(`^\d+$`)

// ValidateProductData applies the per-field rules and computes the
// weighted overall confidence. A nil input yields an invalid result with
// a single error and zero confidence.
func ValidateProductData(data *entity.ExtractedFields) entity.ValidationResult {
	res := entity.ValidationResult{
		IsValid:         true,
		FieldValidation: map[string]bool{},
		Confidence:      map[string]float64{},
	}
	if data == nil {
		res.IsValid = false
		res.Errors = append(res.Errors, "Invalid data object provided")
		return res
	}

	validateName(data.ProductName, &res)
	validateArticleNumber(data.ArticleNumber, &res)
	validatePrice(data.Price, &res)
	validateTieredPrices(data.TieredPrices, &res)
	validateDescription(data.Description, &res)

	res.OverallConfidence = confidence.Overall(res.Confidence, confidence.DefaultWeights())
	return res
}

func validateName(name string, res *entity.ValidationResult) {
	field := confidence.FieldProductName
	conf := 1.0
	valid := true

	switch {
	case strings.TrimSpace(name) == "":
		res.Errors = append(res.Errors, "Product name is missing")
		valid, conf = false, 0
	case len([]rune(strings.TrimSpace(name))) < 3:
		res.Errors = append(res.Errors, "Product name is too short (< 3 characters)")
		valid, conf = false, 0.2
	default:
		if isAllUppercase(name) {
			res.Warnings = append(res.Warnings, "Product name is all uppercase")
			conf = 0.8
		}
		if strings.ContainsAny(name, "\n\r") {
			res.Warnings = append(res.Warnings, "Product name contains line breaks")
			conf = math.Min(conf, 0.9)
		}
	}
	if !valid {
		res.IsValid = false
	}
	res.FieldValidation[field] = valid
	res.Confidence[field] = conf
}

func validateArticleNumber(nr string, res *entity.ValidationResult) {
	field := confidence.FieldArticleNumber
	conf := 1.0
	valid := true

	nr = strings.TrimSpace(nr)
	switch {
	case nr == "":
		res.Errors = append(res.Errors, "Article number is missing")
		valid, conf = false, 0
	default:
		if !reDigitsOnly.MatchString(nr) {
			res.Warnings = append(res.Warnings, "Article number contains non-digit characters")
			conf = 0.8
		}
		if len(nr) <= 2 {
			res.Warnings = append(res.Warnings, "Article number is very short")
			conf = math.Min(conf, 0.7)
		}
	}
	if !valid {
		res.IsValid = false
	}
	res.FieldValidation[field] = valid
	res.Confidence[field] = conf
}

func validatePrice(price *float64, res *entity.ValidationResult) {
	field := confidence.FieldPrice
	conf := 1.0
	valid := true

	switch {
	case price == nil:
		// a missing price is not an error by itself ("Auf Anfrage" items)
		conf = 0.5
	case *price <= 0:
		res.Errors = append(res.Errors, "Price must be greater than 0")
		valid, conf = false, 0
	default:
		if *price > 100000 {
			res.Warnings = append(res.Warnings, "Price is implausibly high (> 100000)")
			conf = 0.7
		}
		if missingDecimalPoint(*price) {
			// confidence untouched until autofix corrects the value
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("Price %.0f may be missing a decimal point", *price))
		}
	}
	if !valid {
		res.IsValid = false
	}
	res.FieldValidation[field] = valid
	res.Confidence[field] = conf
}

func validateTieredPrices(tiers []entity.TieredPrice, res *entity.ValidationResult) {
	field := confidence.FieldTieredPrices
	if len(tiers) == 0 {
		return
	}
	conf := 1.0
	valid := true
	seen := map[int]bool{}
	ascending := true
	for i, t := range tiers {
		if t.Quantity <= 0 {
			res.Errors = append(res.Errors, fmt.Sprintf("Tiered price row %d has invalid quantity", i+1))
			valid = false
		}
		if t.Price <= 0 || math.IsNaN(t.Price) {
			res.Errors = append(res.Errors, fmt.Sprintf("Tiered price row %d has invalid price", i+1))
			valid = false
		}
		if i > 0 && tiers[i].Quantity < tiers[i-1].Quantity {
			ascending = false
		}
		if seen[t.Quantity] {
			res.Warnings = append(res.Warnings, fmt.Sprintf("Duplicate tiered price quantity %d", t.Quantity))
			conf = math.Min(conf, 0.8)
		}
		seen[t.Quantity] = true
	}
	if !ascending {
		res.Warnings = append(res.Warnings, "Tiered prices are not in ascending quantity order")
		conf = math.Min(conf, 0.8)
	}
	if !valid {
		res.IsValid = false
		conf = 0.2
	}
	res.FieldValidation[field] = valid
	res.Confidence[field] = conf
}

func validateDescription(desc string, res *entity.ValidationResult) {
	field := confidence.FieldDescription
	conf := 0.9
	if strings.TrimSpace(desc) == "" {
		conf = 0
	}
	res.FieldValidation[field] = true
	res.Confidence[field] = conf
}

// ValidateField applies the single-field rule for ad-hoc validation.
func ValidateField(fieldName string, value any) entity.FieldValidation {
	res := entity.ValidationResult{
		IsValid:         true,
		FieldValidation: map[string]bool{},
		Confidence:      map[string]float64{},
	}
	switch fieldName {
	case confidence.FieldProductName:
		s, _ := value.(string)
		validateName(s, &res)
	case confidence.FieldArticleNumber:
		s, _ := value.(string)
		validateArticleNumber(s, &res)
	case confidence.FieldPrice:
		switch v := value.(type) {
		case float64:
			validatePrice(&v, &res)
		case *float64:
			validatePrice(v, &res)
		case nil:
			validatePrice(nil, &res)
		default:
			return entity.FieldValidation{Errors: []string{"Price must be a number"}}
		}
	case confidence.FieldTieredPrices:
		tiers, _ := value.([]entity.TieredPrice)
		validateTieredPrices(tiers, &res)
	case confidence.FieldDescription:
		s, _ := value.(string)
		validateDescription(s, &res)
	default:
		return entity.FieldValidation{Errors: []string{fmt.Sprintf("Unknown field %q", fieldName)}}
	}
	return entity.FieldValidation{
		IsValid:    res.FieldValidation[fieldName],
		Confidence: res.Confidence[fieldName],
		Errors:     res.Errors,
	}
}

// missingDecimalPoint reports whether an integer price magnitude looks
// like an OCR-dropped separator (2545 likely meaning 25.45).
func missingDecimalPoint(v float64) bool {
	if v != math.Trunc(v) {
		return false
	}
	n := int64(v)
	return n >= 100 && n <= 999999 && n%100 != 0
}

func isAllUppercase(s string) bool {
	hasLetter := false
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r == 'ä' || r == 'ö' || r == 'ü' || r == 'ß' {
			return false
		}
		if r >= 'A' && r <= 'Z' || r == 'Ä' || r == 'Ö' || r == 'Ü' {
			hasLetter = true
		}
	}
	return hasLetter
}
