package listing

import (
	"fmt"
	"slices"

	"github.com/joseph-ayodele/partlister/internal/entity"
)

const (
	// MockModel labels suggestions produced without a generative backend.
	MockModel = "mock-local"

	// DefaultPartNumber is used when neither the caller nor OCR supplied one.
	DefaultPartNumber = "GEN-1234"
)

var mockPrices = []float64{59.99, 64.99, 79.99}

// MockPrices returns a fresh copy of the fixed fallback price triple.
func MockPrices() []float64 { return slices.Clone(mockPrices) }

func mockTitle(vehicle, pn, existing string) string {
	if existing != "" {
		return existing
	}
	return fmt.Sprintf("%s Component - OEM %s", vehicle, pn)
}

func mockDescription(vehicle, pn, existing string) string {
	if existing != "" {
		return existing
	}
	return fmt.Sprintf("Mock description for %s (part %s). Add real details after enabling OpenAI API key.", vehicle, pn)
}

// Mock builds the deterministic templated suggestion.
func Mock(vehicle, pn, existingTitle, existingDescription string) entity.ListingSuggestion {
	return entity.ListingSuggestion{
		Title:           mockTitle(vehicle, pn, existingTitle),
		Description:     mockDescription(vehicle, pn, existingDescription),
		SuggestedPrices: MockPrices(),
		UsedRealBackend: false,
		Model:           MockModel,
	}
}
