package llm

import (
	"encoding/base64"
	"net/http"
	"strings"
)

// DataURL encodes image bytes as a data: URL, sniffing the MIME type from content.
func DataURL(data []byte) (url, mimeType string) {
	mimeType = http.DetectContentType(data)
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = "image/png"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), mimeType
}

// ConnectorNames returns the non-blank connector names, trimmed.
func ConnectorNames(connectors []string) []string {
	out := make([]string, 0, len(connectors))
	for _, c := range connectors {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// MCPTools turns connector names into Responses API mcp tool declarations. Only the
// Responses endpoint accepts them; chat/completions rejects any non-function tool.
func MCPTools(connectors []string) []map[string]any {
	names := ConnectorNames(connectors)
	tools := make([]map[string]any, 0, len(names))
	for _, c := range names {
		tools = append(tools, map[string]any{
			"type":             "mcp",
			"server_label":     serverLabel(c),
			"connector_id":     c,
			"require_approval": "never",
		})
	}
	return tools
}

func serverLabel(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return '_'
	}, name)
}
