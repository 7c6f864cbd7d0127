package ocr

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// HeuristicConfidence estimates OCR quality from the trimmed text length, counted in
// characters, when no backend confidence is available.
func HeuristicConfidence(text string) int {
	n := utf8.RuneCountInString(strings.TrimSpace(text))
	switch {
	case n == 0:
		return 0
	case n < 10:
		return 35
	case n < 30:
		return 60
	case n < 80:
		return 80
	default:
		return 90
	}
}

// parseTSVConfidence returns the mean word confidence (0..100) from tesseract TSV output. The
// conf column is the last; -1 marks non-word rows. ok is false when no word rows were found.
func parseTSVConfidence(tsv string) (mean int, ok bool) {
	var sum, n float64
	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 || ln == "" {
			continue
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		conf := strings.TrimSpace(cols[10])
		if conf == "" || strings.HasPrefix(conf, "-1") {
			continue
		}
		if v, err := strconv.ParseFloat(conf, 64); err == nil {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return int(sum/n + 0.5), true
}

func meanConfidence(vals []float64) (int, bool) {
	if len(vals) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return int(sum/float64(len(vals)) + 0.5), true
}
