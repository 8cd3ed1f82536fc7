package entity

// ValidationResult is the outcome of validating one candidate record.
type ValidationResult struct {
	IsValid           bool               `json:"is_valid"`
	Errors            []string           `json:"errors,omitempty"`
	Warnings          []string           `json:"warnings,omitempty"`
	FieldValidation   map[string]bool    `json:"field_validation"`
	Confidence        map[string]float64 `json:"confidence"`
	OverallConfidence float64            `json:"overall_confidence"`
}

// FieldValidation is the single-field variant used for ad-hoc checks.
type FieldValidation struct {
	IsValid    bool     `json:"is_valid"`
	Confidence float64  `json:"confidence"`
	Errors     []string `json:"errors,omitempty"`
}

// CorruptionReport scores how likely extracted text is contaminated with
// non-product boilerplate. Score is hard-capped to [0,1].
type CorruptionReport struct {
	IsCorrupted     bool     `json:"is_corrupted"`
	CorruptionScore float64  `json:"corruption_score"`
	Issues          []string `json:"issues,omitempty"`
}

// MergeOutcome is the accounting result of one batch merge.
// Created+Updated+Skipped+Errors always equals the input length.
type MergeOutcome struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}
