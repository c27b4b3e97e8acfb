package logger

import (
	"log/slog"
	"strings"
)

const redacted = "[REDACTED]"

var sensitiveKeyParts = []string{"password", "token", "secret", "authorization", "cookie"}

func isSensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, part := range sensitiveKeyParts {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return false
}

// Redact masks attributes whose key names credential material. It has the
// slog.HandlerOptions.ReplaceAttr signature so the JSON handler can share it.
func Redact(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		return a
	}
	if isSensitive(a.Key) {
		return slog.String(a.Key, redacted)
	}
	return a
}
