// Package partnumber pulls part-number-like tokens out of noisy OCR text and picks the
// most plausible one.
package partnumber

import (
	"regexp"
	"slices"
	"strings"

	"github.com/joseph-ayodele/partlister/internal/entity"
)

// stoplist holds label words that show up on part stickers but are never part numbers.
var stoplist = map[string]struct{}{
	"GENUINE": {}, "PART": {}, "ASSEMBLY": {}, "ASSY": {}, "OEM": {}, "QUALITY": {},
	"FRONT": {}, "REAR": {}, "LEFT": {}, "RIGHT": {}, "DRIVER": {}, "PASSENGER": {},
	"SIDE": {}, "UPPER": {}, "LOWER": {}, "FIT": {}, "FOR": {}, "LHD": {}, "RHD": {},
}

// Patterns are case-insensitive. RE2 has no lookaround, so the "not preceded/followed by an
// alphanumeric" boundaries of the primary and secondary shapes are enforced in scanBounded.
var (
	// groups of >=2 alphanumerics joined by - _ or /
	rePrimary = regexp.MustCompile(`(?i)[A-Z0-9]{2,}(?:[-_/][A-Z0-9]{2,})+`)
	// one alphanumeric run of >=5 starting with a letter
	reSecondary = regexp.MustCompile(`(?i)[A-Z][A-Z0-9]{4,}`)
	// explicit "P/N: XXXX" label; first occurrence only
	reLabel = regexp.MustCompile(`(?i)P/N[:\s-]+([A-Z0-9\-_/]+)`)

	reStrip   = regexp.MustCompile(`[^A-Z0-9\-_/]`)
	reAllowed = regexp.MustCompile(`^[A-Z0-9\-_/]+$`)
)

const (
	minLen = 4
	maxLen = 24
)

// Normalize uppercases s and strips everything outside [A-Z0-9-_/].
func Normalize(s string) string {
	return reStrip.ReplaceAllString(strings.ToUpper(strings.TrimSpace(s)), "")
}

// LooksValid reports whether s (after trimming and uppercasing) is shaped like a part number.
func LooksValid(s string) bool {
	upper := strings.ToUpper(strings.TrimSpace(s))
	if len(upper) < minLen || len(upper) > maxLen {
		return false
	}
	if !hasLetter(upper) || !hasDigit(upper) {
		return false
	}
	if !reAllowed.MatchString(upper) {
		return false
	}
	_, stop := stoplist[upper]
	return !stop
}

// Score ranks a normalized candidate; higher is more plausible.
func Score(normalized string) int {
	score := 0
	if strings.ContainsAny(normalized, "-_/") {
		score += 4
	}
	if hasLetter(normalized) && hasDigit(normalized) {
		score += 4
	}
	if n := len(normalized); n >= 6 && n <= 18 {
		score += 2
	}
	if isAllDigits(normalized) {
		score -= 3
	}
	if _, stop := stoplist[normalized]; stop {
		score -= 5
	}
	score += min(max(len(normalized)-6, 0), 6)
	return score
}

// orderedSet keeps first-seen order, which is the tie-breaker for scoring.
type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{})}
}

func (s *orderedSet) add(v string) {
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}

// Candidates collects valid, normalized candidates from an OCR result in priority order:
// the backend's own guess, every detected line, then the raw text.
func Candidates(ocr entity.OCRResult) []string {
	set := newOrderedSet()
	if ocr.PartNumber != "" {
		if cleaned := Normalize(ocr.PartNumber); LooksValid(cleaned) {
			set.add(cleaned)
		}
	}
	for _, line := range ocr.DetectedTexts {
		extractFromText(line, set)
	}
	if ocr.RawText != "" {
		extractFromText(ocr.RawText, set)
	}
	return set.items
}

// TextCandidates collects candidates from free text only.
func TextCandidates(text string) []string {
	set := newOrderedSet()
	extractFromText(text, set)
	return set.items
}

func extractFromText(text string, set *orderedSet) {
	for _, m := range scanBounded(rePrimary, text) {
		if LooksValid(m) {
			set.add(Normalize(m))
		}
	}
	for _, m := range scanBounded(reSecondary, text) {
		if LooksValid(m) {
			set.add(Normalize(m))
		}
	}
	if sub := reLabel.FindStringSubmatch(text); sub != nil && LooksValid(sub[1]) {
		set.add(Normalize(sub[1]))
	}
}

// scanBounded returns every match of re in text whose neighbours are not ASCII
// alphanumerics. A rejected match restarts the search one byte later.
func scanBounded(re *regexp.Regexp, text string) []string {
	var out []string
	pos := 0
	for pos < len(text) {
		loc := re.FindStringIndex(text[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		if (start > 0 && isAlnum(text[start-1])) || (end < len(text) && isAlnum(text[end])) {
			pos = start + 1
			continue
		}
		out = append(out, text[start:end])
		pos = end
	}
	return out
}

// Rank scores candidates; the result keeps input order for equal scores.
func Rank(candidates []string) []entity.PartNumberCandidate {
	ranked := make([]entity.PartNumberCandidate, 0, len(candidates))
	for _, c := range candidates {
		n := Normalize(c)
		if n == "" {
			continue
		}
		ranked = append(ranked, entity.PartNumberCandidate{RawValue: c, NormalizedValue: n, Score: Score(n)})
	}
	slices.SortStableFunc(ranked, func(a, b entity.PartNumberCandidate) int {
		return b.Score - a.Score
	})
	return ranked
}

// Pick returns the best-scoring candidate, or "" when there is none.
func Pick(candidates []string) string {
	ranked := Rank(candidates)
	if len(ranked) == 0 {
		return ""
	}
	return ranked[0].NormalizedValue
}

// BestCandidate is the lightweight extractor used while assembling OCR results.
func BestCandidate(text string) string {
	return Pick(TextCandidates(text))
}

func isAlnum(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

func hasLetter(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return r >= 'A' && r <= 'Z' }) >= 0
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' }) >= 0
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
