package llm

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/partlister/internal/entity"
)

const (
	// ListingSystemPrompt frames the listing writer.
	ListingSystemPrompt = "You are an assistant helping automotive parts sellers prepare eBay Motors listings. Keep the tone professional and factual."

	// PartNumberSystemPrompt frames the part-number arbiter.
	PartNumberSystemPrompt = "You are an expert automotive parts catalog analyst. You only return data you are confident about."

	// VisionSystemPrompt frames the vision OCR tier.
	VisionSystemPrompt = "You transcribe text printed, stamped or labeled on automotive parts. Return only what is visible."

	// VisionUserPrompt accompanies each image sent for transcription.
	VisionUserPrompt = "Transcribe every piece of visible text in this photo, one line per label line. " +
		"Include part numbers, brand marks and fitment notes exactly as printed. " +
		"Set confidence to an integer 0-100 describing how legible the text was."

	// UnknownVehicle is used when neither structured vehicle data nor OCR hints exist.
	UnknownVehicle = "Unknown Vehicle"

	maxPromptOCRChars = 4000
)

// VehicleDescriptor renders "year make model" from the structured vehicle, falling back to the
// OCR vehicle hint and then to UnknownVehicle.
func VehicleDescriptor(v *entity.Vehicle, fallback string) string {
	if v != nil {
		var segs []string
		for _, s := range []string{v.Year, v.Make, v.Model} {
			if s = strings.TrimSpace(s); s != "" {
				segs = append(segs, s)
			}
		}
		if len(segs) > 0 {
			return strings.Join(segs, " ")
		}
	}
	if f := strings.TrimSpace(fallback); f != "" {
		return f
	}
	return UnknownVehicle
}

// BuildVehicleDetail renders the labeled vehicle lines, or "" when there is nothing to say.
func BuildVehicleDetail(v *entity.Vehicle) string {
	if v == nil {
		return ""
	}
	var lines []string
	add := func(label, val string) {
		if val = strings.TrimSpace(val); val != "" {
			lines = append(lines, label+": "+val)
		}
	}
	add("Year", v.Year)
	add("Make", v.Make)
	add("Model", v.Model)
	add("VIN", v.VIN)
	return strings.Join(lines, "\n")
}

// SummarizeCompatibility renders one "year make model (verified|unverified)" line per entry.
func SummarizeCompatibility(entries []entity.CompatibilityEntry) string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		state := "unverified"
		if e.Verified {
			state = "verified"
		}
		lines = append(lines, fmt.Sprintf("%s %s %s (%s)", e.Year, e.Make, e.Model, state))
	}
	return strings.Join(lines, "\n")
}

// NumberedLines renders "1. a\n2. b".
func NumberedLines(lines []string) string {
	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, l)
	}
	return b.String()
}

// BuildListingPrompt assembles the user message for listing generation. Sections with no
// content are omitted; sections are separated by a blank line.
func BuildListingPrompt(req ListingRequest) string {
	vehicle := req.VehicleDescriptor
	if vehicle == "" {
		vehicle = VehicleDescriptor(req.Vehicle, req.OCR.VehicleInfo)
	}

	raw := strings.TrimSpace(req.OCR.RawText)
	if raw == "" {
		raw = "N/A"
	}
	compat := SummarizeCompatibility(req.Compatibility)

	sections := []string{
		"You create concise, high-conversion eBay Motors part listings.",
		"Vehicle info: " + vehicle,
		optional("Vehicle details:\n", BuildVehicleDetail(req.Vehicle)),
		"Part number: " + req.PartNumber,
		"OCR extracted text:\n" + truncate(raw, maxPromptOCRChars),
		optional("OCR detected lines:\n", NumberedLines(req.OCR.DetectedTexts)),
		optional("Existing title: ", strings.TrimSpace(req.ExistingTitle)),
		optional("Existing description: ", strings.TrimSpace(req.ExistingDescription)),
	}
	if compat != "" {
		sections = append(sections, "Existing compatibility entries:\n"+compat)
	} else {
		sections = append(sections, "No compatibility provided.")
	}
	sections = append(sections,
		"Return polished strings focused on fitment, condition, and selling points.",
		"Suggested prices must be an array of 2-3 realistic USD prices ordered ascending.",
	)
	return joinSections(sections)
}

// BuildPartNumberPrompt assembles the user message for part-number arbitration.
func BuildPartNumberPrompt(req PartNumberRequest) string {
	sections := []string{
		"You analyze OCR outputs from automotive part labels.",
		"Select the most probable OEM or manufacturer part number from the candidates.",
		"Return the single best part number if confident; otherwise leave it empty.",
		"Candidates:\n" + NumberedLines(req.Candidates),
		optional("Full OCR text:\n", truncate(strings.TrimSpace(req.RawText), maxPromptOCRChars)),
	}
	if req.Vehicle != nil {
		sections = append(sections, optional("Vehicle context:\n", BuildVehicleDetail(req.Vehicle)))
	}
	sections = append(sections,
		"If no candidate appears valid, respond with an empty part number and confidence 0.",
		"Confidence should be an integer 0-100 indicating certainty.",
	)
	return joinSections(sections)
}

func optional(prefix, body string) string {
	if body == "" {
		return ""
	}
	return prefix + body
}

func joinSections(sections []string) string {
	kept := sections[:0]
	for _, s := range sections {
		if s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, "\n\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "\n…(truncated)"
}
