package validation

import (
	"regexp"
	"sort"
	"strings"

	"github.com/benfi/label-automation/internal/entity"
)

// ocrSubstitutions restores known recognition errors. Applied to all
// text fields, word-boundary aware where the broken form is a word.
var ocrSubstitutions = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`\bFir\b`), "Für"},
	{regexp.MustCompile(`\bfir\b`), "für"},
	{regexp.MustCompile(`Ã¤`), "ä"},
	{regexp.MustCompile(`Ã¶`), "ö"},
	{regexp.MustCompile(`Ã¼`), "ü"},
	{regexp.MustCompile(`Ã„`), "Ä"},
	{regexp.MustCompile(`Ã–`), "Ö"},
	{regexp.MustCompile(`Ãœ`), "Ü"},
	{regexp.MustCompile(`ÃŸ`), "ß"},
	{regexp.MustCompile(`â€“`), "–"},
	{regexp.MustCompile(`Â([©®€])`), "$1"},
}

var reWhitespace = regexp.MustCompile(`\s+`)

// AutoFixData returns a repaired copy of the candidate fields, or nil for
// nil input. The original is never mutated.
func AutoFixData(data *entity.ExtractedFields) *entity.ExtractedFields {
	if data == nil {
		return nil
	}
	out := *data
	out.TieredPrices = append([]entity.TieredPrice(nil), data.TieredPrices...)

	out.ProductName = fixText(out.ProductName)
	out.Description = fixText(out.Description)

	if isAllUppercase(out.ProductName) && len([]rune(out.ProductName)) > 3 {
		out.ProductName = titleCase(out.ProductName)
	}

	if out.Price != nil && missingDecimalPoint(*out.Price) {
		fixed := *out.Price / 100
		out.Price = &fixed
	}

	out.TieredPrices = normalizeTiers(out.TieredPrices)
	return &out
}

// fixText strips line breaks, collapses whitespace and applies the OCR
// substitution table.
func fixText(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = reWhitespace.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	for _, sub := range ocrSubstitutions {
		s = sub.pattern.ReplaceAllString(s, sub.replacement)
	}
	return s
}

// normalizeTiers sorts rows ascending by quantity and drops duplicate
// quantities, first occurrence winning.
func normalizeTiers(tiers []entity.TieredPrice) []entity.TieredPrice {
	if len(tiers) == 0 {
		return tiers
	}
	seen := map[int]bool{}
	out := make([]entity.TieredPrice, 0, len(tiers))
	for _, t := range tiers {
		if seen[t.Quantity] {
			continue
		}
		seen[t.Quantity] = true
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Quantity < out[j].Quantity })
	return out
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		if len(r) == 0 {
			continue
		}
		r[0] = upperRune(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func upperRune(r rune) rune {
	switch {
	case r >= 'a' && r <= 'z':
		return r - 32
	case r == 'ä':
		return 'Ä'
	case r == 'ö':
		return 'Ö'
	case r == 'ü':
		return 'Ü'
	}
	return r
}
