package partnumber

import (
	"slices"
	"testing"

	"github.com/joseph-ayodele/partlister/internal/entity"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "  gm-45123 ", want: "GM-45123"},
		{in: "ab.12#34", want: "AB1234"},
		{in: "x_y/z-1", want: "X_Y/Z-1"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLooksValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{in: "GM-45123", want: true},
		{in: "AB12", want: true},
		{in: "A1", want: false},                         // too short
		{in: "ABCDEFGHIJKLMNOPQRSTUVWXY1", want: false}, // too long
		{in: "FRONT", want: false},                      // no digit, stoplisted
		{in: "123456", want: false},                     // no letter
		{in: "AB 12", want: false},                      // disallowed char
		{in: "ab-12", want: true},
	}
	for _, tt := range tests {
		if got := LooksValid(tt.in); got != tt.want {
			t.Errorf("LooksValid(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int
	}{
		{in: "GM-45123-789", want: 4 + 4 + 2 + 6},
		{in: "AB12", want: 4},
		{in: "123456", want: 2 - 3},
		{in: "ABC12345", want: 4 + 2 + 2},
		{in: "FRONT", want: -5},
	}
	for _, tt := range tests {
		if got := Score(tt.in); got != tt.want {
			t.Errorf("Score(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestScanBoundedRejectsEmbeddedMatches(t *testing.T) {
	t.Parallel()

	// "BCDEF" would match the secondary shape but is glued to a digit on the left.
	if got := scanBounded(reSecondary, "1BCDEF"); len(got) != 0 {
		t.Errorf("scanBounded = %v, want none", got)
	}
	got := scanBounded(reSecondary, "x ABC123 y DEF45")
	if !slices.Equal(got, []string{"ABC123", "DEF45"}) {
		t.Errorf("scanBounded = %v", got)
	}
	got = scanBounded(rePrimary, "see 84-113-AB/7C now")
	if !slices.Equal(got, []string{"84-113-AB/7C"}) {
		t.Errorf("primary scan = %v", got)
	}
}

func TestCandidatesFromLabelLine(t *testing.T) {
	t.Parallel()

	ocr := entity.OCRResult{
		RawText:       "P/N: GM-45123-789 FRONT LEFT",
		DetectedTexts: []string{"P/N: GM-45123-789 FRONT LEFT"},
	}
	got := Candidates(ocr)
	if !slices.Equal(got, []string{"GM-45123-789"}) {
		t.Fatalf("Candidates = %v, want [GM-45123-789]", got)
	}
	for _, stop := range []string{"FRONT", "LEFT"} {
		if slices.Contains(got, stop) {
			t.Errorf("stoplisted %q must not be a candidate", stop)
		}
	}
}

func TestCandidatesOrderAndDedup(t *testing.T) {
	t.Parallel()

	ocr := entity.OCRResult{
		PartNumber:    "ab-1234",
		DetectedTexts: []string{"GENUINE AB-1234", "ref X99871 and 84-113-AB"},
		RawText:       "GENUINE AB-1234\nref X99871 and 84-113-AB",
	}
	got := Candidates(ocr)
	want := []string{"AB-1234", "84-113-AB", "X99871"}
	if !slices.Equal(got, want) {
		t.Errorf("Candidates = %v, want %v", got, want)
	}
}

func TestPickDeterministicAndPrefersMixed(t *testing.T) {
	t.Parallel()

	cands := []string{"12345678", "AB345678"}
	first := Pick(cands)
	for i := 0; i < 10; i++ {
		if got := Pick(cands); got != first {
			t.Fatalf("Pick is not deterministic: %q vs %q", got, first)
		}
	}
	if first != "AB345678" {
		t.Errorf("Pick = %q, want mixed alphanumeric AB345678", first)
	}

	// equal scores: first seen wins
	if got := Pick([]string{"AB-12", "CD-34"}); got != "AB-12" {
		t.Errorf("tie break = %q, want AB-12", got)
	}
	if got := Pick(nil); got != "" {
		t.Errorf("Pick(nil) = %q", got)
	}
}

func TestBestCandidate(t *testing.T) {
	t.Parallel()

	if got := BestCandidate("SIMULATED OCR TEXT\nP/N: 23145678-AB\nFRONT LEFT DRIVER SIDE"); got != "23145678-AB" {
		t.Errorf("BestCandidate = %q", got)
	}
	if got := BestCandidate("no part numbers here"); got != "" {
		t.Errorf("BestCandidate = %q, want empty", got)
	}
}
