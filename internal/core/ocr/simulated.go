package ocr

import (
	"context"
	"strings"

	"github.com/joseph-ayodele/partlister/internal/entity"
)

const simulatedVehicle = "2018-2022 Chevrolet Equinox"

// SimulatedBackend is the deterministic last resort. Its output is a placeholder derived from
// the first image name, so its confidence is always 0.
type SimulatedBackend struct {
	enabled bool
}

func NewSimulatedBackend(enabled bool) *SimulatedBackend {
	return &SimulatedBackend{enabled: enabled}
}

func (b *SimulatedBackend) Name() string { return BackendSimulated }

func (b *SimulatedBackend) Available(context.Context) bool { return b.enabled }

func (b *SimulatedBackend) Recognize(_ context.Context, images []entity.Image) (Recognition, error) {
	seed := "UNKNOWN"
	if len(images) > 0 && images[0].Name != "" {
		seed = images[0].Name
	}
	prefix := []rune(seed)
	if len(prefix) > 4 {
		prefix = prefix[:4]
	}
	return Recognition{
		Texts:         []string{"SIMULATED OCR TEXT\nP/N: " + seed + "\nFRONT LEFT DRIVER SIDE"},
		Confidence:    0,
		HasConfidence: true,
		PartNumber:    "SIM-" + strings.ToUpper(string(prefix)) + "-XYZ",
		VehicleInfo:   simulatedVehicle,
	}, nil
}
