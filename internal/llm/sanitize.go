package llm

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var reFence = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

// ExtractJSONContent strips markdown code fences and any prose around the outermost JSON object.
func ExtractJSONContent(content string) []byte {
	s := strings.TrimSpace(content)
	if m := reFence.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}
	if i, j := strings.IndexByte(s, '{'), strings.LastIndexByte(s, '}'); i >= 0 && j > i {
		s = s[i : j+1]
	}
	return []byte(s)
}

// SanitizeListingJSON trims strings and coerces price strings like "$59.99" to numbers, so
// near-miss model output can still pass the listing schema. Unknown keys are left alone; the
// schema rejects them.
func SanitizeListingJSON(doc []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	var changed []string
	for _, k := range []string{"title", "description"} {
		if v, ok := m[k].(string); ok {
			if t := strings.TrimSpace(v); t != v {
				m[k] = t
				changed = append(changed, k)
			}
		}
	}

	if arr, ok := m["suggestedPrices"].([]any); ok {
		out := make([]any, 0, len(arr))
		for _, v := range arr {
			switch t := v.(type) {
			case float64:
				out = append(out, t)
			case string:
				s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t), "$"))
				s = strings.ReplaceAll(s, ",", "")
				if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
					out = append(out, f)
					changed = append(changed, "suggestedPrices")
				}
			}
		}
		m["suggestedPrices"] = out
	}

	b, err := json.Marshal(m)
	if err != nil {
		return nil, changed, fmt.Errorf("sanitize: encode: %w", err)
	}
	return b, changed, nil
}
