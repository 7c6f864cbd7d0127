package ocr

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/partlister/internal/entity"
	"github.com/joseph-ayodele/partlister/internal/llm"
)

// VisionBackend asks a vision-capable model to transcribe each image, one call per image.
type VisionBackend struct {
	enabled bool
	reader  llm.VisionReader
	logger  *slog.Logger
}

// NewVisionBackend returns a tier that is available only when enabled and reader is non-nil.
func NewVisionBackend(enabled bool, reader llm.VisionReader, logger *slog.Logger) *VisionBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &VisionBackend{enabled: enabled, reader: reader, logger: logger}
}

func (b *VisionBackend) Name() string { return BackendVision }

func (b *VisionBackend) Available(context.Context) bool {
	return b.enabled && b.reader != nil
}

func (b *VisionBackend) Recognize(ctx context.Context, images []entity.Image) (Recognition, error) {
	rec := Recognition{Texts: make([]string, 0, len(images))}
	var confs []float64
	for _, img := range images {
		vt, err := b.reader.ReadImage(ctx, img.Name, img.Data)
		if err != nil {
			return Recognition{}, err
		}
		rec.Texts = append(rec.Texts, vt.Text)
		if vt.Confidence != nil {
			confs = append(confs, float64(*vt.Confidence))
		}
	}
	rec.Confidence, rec.HasConfidence = meanConfidence(confs)
	return rec, nil
}
