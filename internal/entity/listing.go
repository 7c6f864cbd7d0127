package entity

// ListingSuggestion is the generated (or templated) listing copy.
// Meta carries "error" and "attempted_model" when a real generation attempt fell back, and
// "applied_tools" (comma separated) when connector tools were attached.
type ListingSuggestion struct {
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	SuggestedPrices []float64         `json:"suggestedPrices"`
	UsedRealBackend bool              `json:"usedRealBackend"`
	Model           string            `json:"model,omitempty"`
	Meta            map[string]string `json:"meta,omitempty"`
}

// GenerateResult is everything one pipeline run produces for a set of photos.
type GenerateResult struct {
	OCR           OCRResult            `json:"ocr"`
	PartNumber    string               `json:"partNumber,omitempty"`
	Listing       ListingSuggestion    `json:"listing"`
	Compatibility []CompatibilityEntry `json:"compatibility"`
	Images        []string             `json:"images"`
}
