package listing

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/joseph-ayodele/partlister/internal/common"
	"github.com/joseph-ayodele/partlister/internal/entity"
	"github.com/joseph-ayodele/partlister/internal/llm"
)

// Request is the input to Generate.
type Request struct {
	OCR                 entity.OCRResult
	PartNumber          string
	Vehicle             *entity.Vehicle
	ExistingTitle       string
	ExistingDescription string
	Compatibility       []entity.CompatibilityEntry
}

// Generator produces listing copy. With no writer it always returns the mock suggestion; with
// a writer, any call or validation failure also degrades to the mock.
type Generator struct {
	writer llm.ListingWriter
	logger *slog.Logger
}

func NewGenerator(writer llm.ListingWriter, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{writer: writer, logger: logger}
}

// Generate never fails; the result is always fully populated.
func (g *Generator) Generate(ctx context.Context, req Request) entity.ListingSuggestion {
	ctx, rid := common.EnsureRequestID(ctx)
	vehicle := llm.VehicleDescriptor(req.Vehicle, req.OCR.VehicleInfo)
	pn := firstNonBlank(req.PartNumber, req.OCR.PartNumber, DefaultPartNumber)
	title := strings.TrimSpace(req.ExistingTitle)
	desc := strings.TrimSpace(req.ExistingDescription)

	if g.writer == nil {
		g.logger.Debug("listing.generate.mock", "req_id", rid, "reason", "no backend configured")
		return Mock(vehicle, pn, title, desc)
	}

	start := time.Now()
	model := g.writer.ModelName()
	resp, err := g.writer.WriteListing(ctx, llm.ListingRequest{
		OCR:                 req.OCR,
		PartNumber:          pn,
		VehicleDescriptor:   vehicle,
		Vehicle:             req.Vehicle,
		ExistingTitle:       title,
		ExistingDescription: desc,
		Compatibility:       req.Compatibility,
	})
	if err != nil {
		g.logger.Warn("listing.generate.fallback", "req_id", rid, "model", model, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		out := Mock(vehicle, pn, title, desc)
		out.Model = model
		out.Meta = map[string]string{"error": err.Error(), "attempted_model": model}
		if tr, ok := g.writer.(llm.ToolReporter); ok {
			if tools := tr.AppliedTools(); len(tools) > 0 {
				out.Meta["applied_tools"] = strings.Join(tools, ",")
			}
		}
		return out
	}

	prices := finitePrices(resp.Fields.SuggestedPrices)
	if len(prices) == 0 {
		g.logger.Warn("listing.generate.prices_substituted", "req_id", rid, "returned", len(resp.Fields.SuggestedPrices))
		prices = MockPrices()
	}
	if resp.Model != "" {
		model = resp.Model
	}

	g.logger.Info("listing.generate.ok", "req_id", rid, "model", model, "prices", len(prices),
		"elapsed_ms", time.Since(start).Milliseconds())
	out := entity.ListingSuggestion{
		Title:           firstNonBlank(resp.Fields.Title, mockTitle(vehicle, pn, title)),
		Description:     firstNonBlank(resp.Fields.Description, mockDescription(vehicle, pn, desc)),
		SuggestedPrices: prices,
		UsedRealBackend: true,
		Model:           model,
	}
	if len(resp.AppliedTools) > 0 {
		out.Meta = map[string]string{"applied_tools": strings.Join(resp.AppliedTools, ",")}
	}
	return out
}

func finitePrices(in []float64) []float64 {
	out := make([]float64, 0, len(in))
	for _, p := range in {
		if !math.IsNaN(p) && !math.IsInf(p, 0) {
			out = append(out, p)
		}
	}
	return out
}

func firstNonBlank(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
