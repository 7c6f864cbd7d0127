package logging

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// MaskValue replaces sensitive attribute values.
const MaskValue = "***REDACTED***"

// maxDataURL is the longest data: URL logged verbatim; longer ones are summarized.
const maxDataURL = 128

var sensitiveKeys = map[string]bool{
	"authorization": true,
	"x-api-key":     true,
	"api_key":       true,
	"apikey":        true,
	"api-key":       true,
	"access_token":  true,
	"password":      true,
	"secret":        true,
	"token":         true,
}

var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^bearer\s+.+`),
	regexp.MustCompile(`^sk-[A-Za-z0-9_-]{16,}$`),
}

// SecureHandler wraps an slog.Handler and redacts credential-looking attributes
// before they are written.
type SecureHandler struct {
	handler slog.Handler
}

// NewSecureHandler wraps h. A nil h uses slog.Default().Handler().
func NewSecureHandler(h slog.Handler) *SecureHandler {
	if h == nil {
		h = slog.Default().Handler()
	}
	return &SecureHandler{handler: h}
}

func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	sanitized := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		sanitized.AddAttrs(sanitizeAttr(a))
		return true
	})
	return h.handler.Handle(ctx, sanitized)
}

func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = sanitizeAttr(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(out)}
}

func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name)}
}

func sanitizeAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		out := make([]slog.Attr, len(group))
		for i, g := range group {
			out[i] = sanitizeAttr(g)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}

	key := strings.ToLower(a.Key)
	if sensitiveKeys[key] || strings.Contains(key, "secret") || strings.Contains(key, "password") {
		return slog.String(a.Key, MaskValue)
	}

	if a.Value.Kind() == slog.KindString {
		s := a.Value.String()
		for _, p := range sensitivePatterns {
			if p.MatchString(s) {
				return slog.String(a.Key, MaskValue)
			}
		}
		// image payloads are noise in logs
		if strings.HasPrefix(s, "data:") && len(s) > maxDataURL {
			return slog.String(a.Key, fmt.Sprintf("%s...(%d bytes)", s[:32], len(s)))
		}
	}
	return a
}
