package listing

import (
	"context"
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/joseph-ayodele/partlister/internal/common"
	"github.com/joseph-ayodele/partlister/internal/entity"
	"github.com/joseph-ayodele/partlister/internal/llm"
)

type stubWriter struct {
	resp  llm.ListingResponse
	err   error
	got   llm.ListingRequest
	calls int
}

func (s *stubWriter) WriteListing(_ context.Context, req llm.ListingRequest) (llm.ListingResponse, error) {
	s.calls++
	s.got = req
	return s.resp, s.err
}

func (s *stubWriter) ModelName() string { return "gpt-4.1-mini" }

func equinoxRequest() Request {
	return Request{
		OCR:        entity.OCRResult{RawText: "P/N: GM-45123", PartNumber: "GM-45123"},
		PartNumber: "GM-45123",
		Vehicle:    &entity.Vehicle{Year: "2018", Make: "Chevrolet", Model: "Equinox"},
	}
}

func TestGenerateMockWithoutBackend(t *testing.T) {
	t.Parallel()

	g := NewGenerator(nil, nil)
	got := g.Generate(context.Background(), equinoxRequest())

	if got.Title != "2018 Chevrolet Equinox Component - OEM GM-45123" {
		t.Errorf("title = %q", got.Title)
	}
	if got.Description != "Mock description for 2018 Chevrolet Equinox (part GM-45123). Add real details after enabling OpenAI API key." {
		t.Errorf("description = %q", got.Description)
	}
	if !slices.Equal(got.SuggestedPrices, []float64{59.99, 64.99, 79.99}) {
		t.Errorf("prices = %v", got.SuggestedPrices)
	}
	if got.UsedRealBackend || got.Model != MockModel {
		t.Errorf("used real = %v, model = %q", got.UsedRealBackend, got.Model)
	}

	again := g.Generate(context.Background(), equinoxRequest())
	if again.Title != got.Title || again.Description != got.Description || !slices.Equal(again.SuggestedPrices, got.SuggestedPrices) {
		t.Error("mock path is not deterministic")
	}
}

func TestGenerateMockDefaultsAndExisting(t *testing.T) {
	t.Parallel()

	g := NewGenerator(nil, nil)
	got := g.Generate(context.Background(), Request{})
	if got.Title != "Unknown Vehicle Component - OEM GEN-1234" {
		t.Errorf("title = %q", got.Title)
	}

	got = g.Generate(context.Background(), Request{
		OCR:                 entity.OCRResult{PartNumber: "AB-1234", VehicleInfo: "2019 Ford F-150"},
		ExistingTitle:       "My title",
		ExistingDescription: "My description",
	})
	if got.Title != "My title" || got.Description != "My description" {
		t.Errorf("existing copy not kept: %+v", got)
	}

	// mutating one result's prices must not leak into the next
	got.SuggestedPrices[0] = 1
	if next := g.Generate(context.Background(), Request{}); next.SuggestedPrices[0] != 59.99 {
		t.Errorf("mock prices shared between results: %v", next.SuggestedPrices)
	}
}

func TestGenerateWithBackend(t *testing.T) {
	t.Parallel()

	w := &stubWriter{resp: llm.ListingResponse{
		Fields: llm.ListingFields{
			Title:           "2018-2020 Chevrolet Equinox Front Left Hub OEM GM-45123",
			Description:     "Genuine GM hub assembly in good used condition.",
			SuggestedPrices: []float64{89.99, 74.5},
		},
		Model: "gpt-4.1-mini-2025-04-14",
	}}
	req := equinoxRequest()
	req.Compatibility = []entity.CompatibilityEntry{{Year: "2018", Make: "Chevrolet", Model: "Equinox"}}

	got := NewGenerator(w, nil).Generate(context.Background(), req)
	if !got.UsedRealBackend || got.Model != "gpt-4.1-mini-2025-04-14" {
		t.Errorf("used real = %v, model = %q", got.UsedRealBackend, got.Model)
	}
	// returned order is kept, not re-sorted
	if !slices.Equal(got.SuggestedPrices, []float64{89.99, 74.5}) {
		t.Errorf("prices = %v", got.SuggestedPrices)
	}
	if w.got.VehicleDescriptor != "2018 Chevrolet Equinox" || w.got.PartNumber != "GM-45123" || len(w.got.Compatibility) != 1 {
		t.Errorf("writer request = %+v", w.got)
	}
}

func TestGenerateFallsBackOnFailure(t *testing.T) {
	t.Parallel()

	w := &stubWriter{err: common.OutputValidationError("listing_suggestion", errFake("invalid character 'x' looking for beginning of value"))}
	got := NewGenerator(w, nil).Generate(context.Background(), equinoxRequest())

	if got.UsedRealBackend {
		t.Error("fallback marked as real")
	}
	if !strings.HasPrefix(got.Title, "2018 Chevrolet Equinox Component") {
		t.Errorf("title = %q", got.Title)
	}
	if !slices.Equal(got.SuggestedPrices, MockPrices()) {
		t.Errorf("prices = %v", got.SuggestedPrices)
	}
	if !strings.Contains(got.Meta["error"], "invalid character") || got.Meta["attempted_model"] != "gpt-4.1-mini" {
		t.Errorf("meta = %v", got.Meta)
	}
}

// toolWriter is a stubWriter that attaches connector tools.
type toolWriter struct {
	stubWriter
	tools []string
}

func (w *toolWriter) AppliedTools() []string { return w.tools }

func TestGenerateReportsAppliedTools(t *testing.T) {
	t.Parallel()

	failing := &toolWriter{stubWriter: stubWriter{err: common.BackendCallError("status 400", errFake("bad tool"))}, tools: []string{"ebay-catalog", "parts"}}
	got := NewGenerator(failing, nil).Generate(context.Background(), equinoxRequest())
	if got.Meta["applied_tools"] != "ebay-catalog,parts" || got.Meta["error"] == "" {
		t.Errorf("fallback meta = %v", got.Meta)
	}

	ok := &stubWriter{resp: llm.ListingResponse{
		Fields:       llm.ListingFields{Title: "2018 Chevrolet Equinox Hub GM-45123", Description: "Hub assembly.", SuggestedPrices: []float64{50}},
		AppliedTools: []string{"ebay-catalog"},
	}}
	got = NewGenerator(ok, nil).Generate(context.Background(), equinoxRequest())
	if !got.UsedRealBackend || got.Meta["applied_tools"] != "ebay-catalog" {
		t.Errorf("success meta = %v", got.Meta)
	}

	plain := NewGenerator(&stubWriter{err: errFake("down")}, nil).Generate(context.Background(), equinoxRequest())
	if _, ok := plain.Meta["applied_tools"]; ok {
		t.Errorf("applied_tools reported without connectors: %v", plain.Meta)
	}
}

func TestGenerateSubstitutesUnusablePrices(t *testing.T) {
	t.Parallel()

	tests := map[string][]float64{
		"empty":      {},
		"nil":        nil,
		"non-finite": {math.NaN(), math.Inf(1)},
	}
	for name, prices := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			w := &stubWriter{resp: llm.ListingResponse{Fields: llm.ListingFields{
				Title: "A perfectly fine title", Description: "A perfectly fine description.", SuggestedPrices: prices,
			}}}
			got := NewGenerator(w, nil).Generate(context.Background(), equinoxRequest())
			if !got.UsedRealBackend {
				t.Error("price substitution should not discard the real result")
			}
			if !slices.Equal(got.SuggestedPrices, MockPrices()) {
				t.Errorf("prices = %v", got.SuggestedPrices)
			}
			if got.Model != "gpt-4.1-mini" {
				t.Errorf("model = %q, want configured model when response has none", got.Model)
			}
		})
	}

	w := &stubWriter{resp: llm.ListingResponse{Fields: llm.ListingFields{
		Title: "t", Description: "d", SuggestedPrices: []float64{math.NaN(), 42},
	}}}
	if got := NewGenerator(w, nil).Generate(context.Background(), equinoxRequest()); !slices.Equal(got.SuggestedPrices, []float64{42}) {
		t.Errorf("non-finite entries not dropped: %v", got.SuggestedPrices)
	}
}

type errFake string

func (e errFake) Error() string { return string(e) }
