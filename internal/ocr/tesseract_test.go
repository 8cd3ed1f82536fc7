package ocr

import (
	"strings"
	"testing"
)

const tsvHeader = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext"

func tsvRow(level, block, par, line, left, top, width, height, conf, text string) string {
	return strings.Join([]string{level, "1", block, par, line, "1", left, top, width, height, conf, text}, "\t")
}

func TestParseTSV(t *testing.T) {
	tsv := strings.Join([]string{
		tsvHeader,
		tsvRow("1", "0", "0", "0", "0", "0", "800", "600", "-1", ""), // page row ignored
		tsvRow("5", "1", "1", "1", "10", "20", "100", "30", "91.5", "Etikettenhalter"),
		tsvRow("5", "1", "1", "1", "120", "20", "90", "30", "88.5", "transparent"),
		tsvRow("5", "1", "1", "2", "10", "60", "80", "30", "95", "Produktnummer:"),
		tsvRow("5", "1", "1", "2", "100", "60", "60", "30", "93", "123456"),
		tsvRow("5", "1", "1", "2", "170", "60", "5", "30", "-1", ""), // empty word skipped
	}, "\n")

	rec := parseTSV(tsv)

	if len(rec.Words) != 4 {
		t.Fatalf("len(Words) = %d, want 4", len(rec.Words))
	}
	want := "Etikettenhalter transparent\nProduktnummer: 123456"
	if rec.Text != want {
		t.Errorf("Text = %q, want %q", rec.Text, want)
	}
	// (91.5 + 88.5 + 95 + 93) / 4
	if rec.Confidence != 92 {
		t.Errorf("Confidence = %v, want 92", rec.Confidence)
	}
	w := rec.Words[0]
	if w.Text != "Etikettenhalter" || w.Confidence != 91.5 {
		t.Errorf("Words[0] = %+v", w)
	}
	if w.BBox.X != 10 || w.BBox.Y != 20 || w.BBox.Width != 100 || w.BBox.Height != 30 {
		t.Errorf("Words[0].BBox = %+v", w.BBox)
	}
}

func TestParseTSVEmptyAndMalformed(t *testing.T) {
	rec := parseTSV("")
	if len(rec.Words) != 0 || rec.Text != "" || rec.Confidence != 0 {
		t.Errorf("empty input: %+v", rec)
	}

	rec = parseTSV(tsvHeader + "\nnot\ttab\tseparated")
	if len(rec.Words) != 0 {
		t.Errorf("malformed rows produced words: %+v", rec.Words)
	}
}
