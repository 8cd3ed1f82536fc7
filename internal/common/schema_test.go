package common

import (
	"errors"
	"testing"
)

func TestValidateAutomationConfigJSON(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{"minimal", `{"shop_url":"https://shop.example.de"}`, false},
		{"full", `{
			"shop_url": "https://shop.example.de",
			"template_id": "default",
			"crawl": {"max_products": 100, "full_shop_scan": true, "screenshot_quality": 90}
		}`, false},
		{"empty crawl", `{"shop_url":"https://shop.example.de","crawl":{}}`, false},
		{"missing shop_url", `{"template_id":"default"}`, true},
		{"empty shop_url", `{"shop_url":""}`, true},
		{"non-http scheme", `{"shop_url":"ftp://shop.example.de"}`, true},
		{"unknown top-level key", `{"shop_url":"https://x.de","bogus":1}`, true},
		{"unknown crawl key", `{"shop_url":"https://x.de","crawl":{"bogus":1}}`, true},
		{"zero max_products", `{"shop_url":"https://x.de","crawl":{"max_products":0}}`, true},
		{"quality above 100", `{"shop_url":"https://x.de","crawl":{"screenshot_quality":101}}`, true},
		{"not json", `{`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAutomationConfigJSON([]byte(tt.doc))
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr = %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("err = %v, want invalid-input cause", err)
			}
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := ErrNotFound
	err := NewAppError("X", "missing", cause)
	if !errors.Is(err, ErrNotFound) {
		t.Error("errors.Is failed to find the cause")
	}
	if err.Error() == "" {
		t.Error("empty error string")
	}
}
