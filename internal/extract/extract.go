// Package extract turns raw recognized text into typed candidate product
// fields using German shop-page patterns. All functions are pure.
package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/benfi/label-automation/internal/entity"
)

// Rule binds a pattern to the parser that folds its matches into the
// candidate fields. Rules run in order; later rules never overwrite a
// field an earlier rule already set.
type Rule struct {
	Field   string
	Pattern *regexp.Regexp
	Apply   func(fields *entity.ExtractedFields, matches [][]string)
}

var (
	reArticleNumber = regexp.MustCompile(`(?i)(?:Produktnummer|Art\.\s*-\s*Nr\.?|Art\.?\s*Nr\.?|Artikel)\s*[:.]?\s*(\d+)`)
	rePriceBefore   = regexp.MustCompile(`(\d{1,3}(?:\.\d{3})*(?:,\d{1,2})?|\d+(?:[.,]\d{1,2})?)\s*(?:EUR|€)`)
	rePriceAfter    = regexp.MustCompile(`(?:EUR|€)\s*(\d{1,3}(?:\.\d{3})*(?:,\d{1,2})?|\d+(?:[.,]\d{1,2})?)`)
	reTieredRow     = regexp.MustCompile(`(?im)^.*?\b(ab|bis)\s+(\d+)\s+(?:Stueck|Stück|St\.|Stk\.)\s+(\d{1,3}(?:\.\d{3})*(?:,\d{1,2})?|\d+(?:[.,]\d{1,2})?)\s*(?:EUR|€)`)
)

// rules is the locale rule table. Keeping it a table lets the German
// format rules be unit-tested without the recognition engine.
var rules = []Rule{
	{
		Field:   "articleNumber",
		Pattern: reArticleNumber,
		Apply: func(f *entity.ExtractedFields, matches [][]string) {
			if f.ArticleNumber == "" && len(matches) > 0 {
				f.ArticleNumber = matches[0][1]
			}
		},
	},
	{
		Field:   "tieredPrices",
		Pattern: reTieredRow,
		Apply: func(f *entity.ExtractedFields, matches [][]string) {
			for _, m := range matches {
				qty, err := strconv.Atoi(m[2])
				if err != nil || qty <= 0 {
					continue
				}
				price, ok := ParseGermanFloat(m[3])
				if !ok {
					continue
				}
				f.TieredPrices = append(f.TieredPrices, entity.TieredPrice{Quantity: qty, Price: price})
			}
		},
	},
	{
		Field:   "price",
		Pattern: rePriceBefore,
		Apply:   applyPrice,
	},
	{
		Field:   "price",
		Pattern: rePriceAfter,
		Apply:   applyPrice,
	},
}

func applyPrice(f *entity.ExtractedFields, matches [][]string) {
	if f.Price != nil || len(matches) == 0 {
		return
	}
	if v, ok := ParseGermanFloat(matches[0][1]); ok && v > 0 {
		f.Price = &v
	}
}

// ExtractFields runs the rule table over raw OCR text and fills in name
// and description heuristically from the remaining lines.
func ExtractFields(raw string) entity.ExtractedFields {
	var fields entity.ExtractedFields
	for _, rule := range rules {
		if m := rule.Pattern.FindAllStringSubmatch(raw, -1); len(m) > 0 {
			rule.Apply(&fields, m)
		}
	}
	sort.SliceStable(fields.TieredPrices, func(i, j int) bool {
		return fields.TieredPrices[i].Quantity < fields.TieredPrices[j].Quantity
	})

	name, desc := nameAndDescription(raw)
	fields.ProductName = name
	fields.Description = desc
	return fields
}

// labelLine matches lines that are field labels rather than prose.
var labelLine = regexp.MustCompile(`(?i)^\s*(?:Produktnummer|Art\.?\s*-?\s*Nr|Artikel|Preis|Menge|Staffelpreis|ab\s+\d|bis\s+\d|EUR\b|€)`)

// nameAndDescription picks the first plausible prose line as the product
// name and joins the following prose lines as the description.
func nameAndDescription(raw string) (string, string) {
	var name string
	var descLines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if len([]rune(line)) < 3 || labelLine.MatchString(line) {
			continue
		}
		if name == "" {
			name = line
			continue
		}
		descLines = append(descLines, line)
		if len(descLines) >= 8 {
			break
		}
	}
	return name, strings.Join(descLines, " ")
}

// ParseGermanFloat parses German-formatted decimals ("1.234,56", "22,99")
// as well as plain dot decimals ("22.99").
func ParseGermanFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, ",") {
		// dots are thousands separators when a comma is present
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	} else if dots := strings.Count(s, "."); dots > 1 {
		// multiple dots without comma: all thousands separators
		s = strings.ReplaceAll(s, ".", "")
	} else if dots == 1 {
		// a single dot followed by exactly 3 digits is a thousands
		// separator ("1.234"), otherwise a decimal point
		idx := strings.Index(s, ".")
		if len(s)-idx-1 == 3 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
