package ocr

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Separator joins per-image texts in the combined OCR output.
const Separator = "\n---\n"

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reBoxNoise   = regexp.MustCompile(`(?m)^\s*[_\-=|]{3,}\s*$`)
)

// Normalize folds compatibility characters (full-width digits, ligatures) and collapses noisy
// whitespace. Line breaks are kept; runs of blank lines collapse to one.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = norm.NFKC.String(s)
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reTabs.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")
	s = reBoxNoise.ReplaceAllString(s, "")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// DetectedLines returns the trimmed non-empty lines of combined text, without separators.
func DetectedLines(combined string) []string {
	out := []string{}
	for _, ln := range strings.Split(combined, "\n") {
		ln = strings.TrimSpace(ln)
		if ln == "" || ln == "---" {
			continue
		}
		out = append(out, ln)
	}
	return out
}
