package partnumber

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/partlister/internal/common"
	"github.com/joseph-ayodele/partlister/internal/entity"
	"github.com/joseph-ayodele/partlister/internal/llm"
)

// Resolver reconciles OCR output into a single part number.
type Resolver struct {
	arbiter llm.PartNumberArbiter
	logger  *slog.Logger
}

// NewResolver builds a Resolver. A nil arbiter disables AI arbitration.
func NewResolver(arbiter llm.PartNumberArbiter, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{arbiter: arbiter, logger: logger}
}

// Resolve returns the part number for ocr. A non-blank provided value always wins.
// Arbiter failures are logged and the heuristic winner is used instead; Resolve never fails.
func (r *Resolver) Resolve(ctx context.Context, ocr entity.OCRResult, provided string, vehicle *entity.Vehicle) string {
	if strings.TrimSpace(provided) != "" {
		return Normalize(provided)
	}

	candidates := Candidates(ocr)
	heuristic := Pick(candidates)
	fallback := heuristic
	if fallback == "" {
		fallback = Normalize(ocr.PartNumber)
	}

	reqID := common.RequestIDFromContext(ctx)
	r.logger.Debug("partnumber.candidates",
		"req_id", reqID,
		"count", len(candidates),
		"heuristic", heuristic,
	)

	if r.arbiter == nil || len(candidates) == 0 {
		return fallback
	}

	start := time.Now()
	choice, err := r.arbiter.PickPartNumber(ctx, llm.PartNumberRequest{
		Candidates: candidates,
		RawText:    ocr.RawText,
		Vehicle:    vehicle,
	})
	if err != nil {
		r.logger.Warn("partnumber.arbiter.failed",
			"req_id", reqID,
			"error", err,
			"fallback", fallback,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return fallback
	}

	picked := Normalize(choice.PartNumber)
	r.logger.Info("partnumber.arbiter.ok",
		"req_id", reqID,
		"picked", picked,
		"confidence", choice.Confidence,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if picked == "" {
		return fallback
	}
	return picked
}
