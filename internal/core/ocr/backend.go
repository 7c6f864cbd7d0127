package ocr

import (
	"context"

	"github.com/joseph-ayodele/partlister/internal/entity"
)

// Tier names, in default fallback order.
const (
	BackendNative    = "native"
	BackendEmbedded  = "embedded"
	BackendVision    = "vision"
	BackendSimulated = "simulated"
)

// Recognition is one backend's output for a batch of images.
type Recognition struct {
	Texts         []string // one per image, in input order
	Confidence    int
	HasConfidence bool
	PartNumber    string // optional hint
	VehicleInfo   string // optional hint
}

// Backend is one OCR tier. Available reports configuration or probe state and is never an
// error; Recognize processes images sequentially and fails as a whole.
type Backend interface {
	Name() string
	Available(ctx context.Context) bool
	Recognize(ctx context.Context, images []entity.Image) (Recognition, error)
}

// Cache stores recognitions keyed by a digest of the input images.
type Cache interface {
	Get(ctx context.Context, key string) (entity.OCRResult, bool, error)
	Put(ctx context.Context, key string, res entity.OCRResult) error
}
