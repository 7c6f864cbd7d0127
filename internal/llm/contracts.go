package llm

import (
	"context"

	"github.com/joseph-ayodele/partlister/internal/entity"
)

// ListingRequest is everything the listing writer may use to author copy.
type ListingRequest struct {
	OCR                 entity.OCRResult
	PartNumber          string
	VehicleDescriptor   string
	Vehicle             *entity.Vehicle
	ExistingTitle       string
	ExistingDescription string
	Compatibility       []entity.CompatibilityEntry
}

// ListingFields is the structured shape we require from the model.
type ListingFields struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	SuggestedPrices []float64 `json:"suggestedPrices"`
}

// ListingResponse carries the validated fields plus the model that produced them.
type ListingResponse struct {
	Fields       ListingFields
	Model        string
	Raw          []byte
	ResponseID   string
	AppliedTools []string // connector names attached to the request
}

// PartNumberRequest asks the model to choose among heuristic candidates.
type PartNumberRequest struct {
	Candidates []string
	RawText    string
	Vehicle    *entity.Vehicle
}

// PartNumberChoice is the model's pick. An empty PartNumber means "none of these".
type PartNumberChoice struct {
	PartNumber string `json:"partNumber"`
	Confidence int    `json:"confidence"`
	Reasoning  string `json:"reasoning,omitempty"`
}

// VisionText is the model's transcription of one image.
type VisionText struct {
	Text       string `json:"text"`
	Confidence *int   `json:"confidence,omitempty"`
}

// ListingWriter authors listing copy under a strict schema.
type ListingWriter interface {
	WriteListing(ctx context.Context, req ListingRequest) (ListingResponse, error)
	ModelName() string
}

// ToolReporter is implemented by writers that attach connector tools to their requests.
// Generators use it to report the tools even when a call fails.
type ToolReporter interface {
	AppliedTools() []string
}

// PartNumberArbiter picks the most probable part number from candidates.
type PartNumberArbiter interface {
	PickPartNumber(ctx context.Context, req PartNumberRequest) (PartNumberChoice, error)
}

// VisionReader transcribes visible text from an image.
type VisionReader interface {
	ReadImage(ctx context.Context, name string, data []byte) (VisionText, error)
}
