// Package export renders generated listings as an XLSX workbook or a Markdown report.
package export

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/partlister/internal/entity"
)

// Row is one processed part folder. Err is set when the folder could not be processed at all;
// Result is then zero.
type Row struct {
	Folder string
	Result entity.GenerateResult
	Err    string
}

// Failed reports whether the folder produced no result.
func (r Row) Failed() bool { return r.Err != "" }

func formatPrices(prices []float64) string {
	parts := make([]string, len(prices))
	for i, p := range prices {
		parts[i] = fmt.Sprintf("$%.2f", p)
	}
	return strings.Join(parts, " / ")
}

func formatCompatibility(entries []entity.CompatibilityEntry) string {
	parts := make([]string, 0, len(entries))
	for _, c := range entries {
		s := strings.TrimSpace(strings.Join([]string{c.Year, c.Make, c.Model}, " "))
		if !c.Verified {
			s += " (unverified)"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, "; ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
