package entity

// Image is one uploaded photo of a part. Name is the original filename.
type Image struct {
	Name string `json:"name"`
	Data []byte `json:"-"`
}

// OCRResult is the normalized output of whichever OCR backend succeeded for a batch.
type OCRResult struct {
	RawText       string   `json:"rawText"`
	DetectedTexts []string `json:"detectedTexts"`
	PartNumber    string   `json:"partNumber,omitempty"`
	VehicleInfo   string   `json:"vehicleInfo,omitempty"`
	Confidence    int      `json:"confidence"`
	Backend       string   `json:"backend,omitempty"`
}

// PartNumberCandidate is a token extracted from OCR text that may be a part number.
type PartNumberCandidate struct {
	RawValue        string `json:"rawValue"`
	NormalizedValue string `json:"normalizedValue"`
	Score           int    `json:"score"`
}

// ClampConfidence bounds c to [0,100].
func ClampConfidence(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}
