package listing

import (
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/partlister/internal/entity"
	"github.com/joseph-ayodele/partlister/internal/llm"
)

// SynthesizeCompatibility returns existing unchanged when it has entries. Otherwise, if the
// vehicle descriptor looks like "year make model...", it returns a single unverified entry
// derived from it. existing is never mutated.
func SynthesizeCompatibility(existing []entity.CompatibilityEntry, descriptor string) []entity.CompatibilityEntry {
	out := make([]entity.CompatibilityEntry, len(existing))
	copy(out, existing)
	if len(out) > 0 {
		return out
	}

	descriptor = strings.TrimSpace(descriptor)
	if descriptor == llm.UnknownVehicle || !strings.Contains(descriptor, " ") {
		return out
	}
	fields := strings.Fields(descriptor)
	model := "Model"
	if len(fields) > 2 {
		model = strings.Join(fields[2:], " ")
	}
	return append(out, entity.CompatibilityEntry{
		ID:       uuid.New().String(),
		Year:     fields[0],
		Make:     fields[1],
		Model:    model,
		Verified: false,
	})
}
