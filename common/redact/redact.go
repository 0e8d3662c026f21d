// Package redact strips sensitive values, such as the Matrix access token,
// from strings and flat maps before they are logged.
package redact

import (
	"strings"
)

// Placeholder replaces every redacted value.
const Placeholder = "[REDACTED]"

// minSecretLen guards against redacting common short substrings.
const minSecretLen = 4

var sensitiveWords = []string{"password", "passwd", "token", "secret", "key", "credential", "auth"}

// String replaces every occurrence of each sensitive value in s with
// Placeholder. Values shorter than four bytes are skipped.
func String(s string, sensitiveValues ...string) string {
	for _, v := range sensitiveValues {
		if len(v) < minSecretLen {
			continue
		}
		s = strings.ReplaceAll(s, v, Placeholder)
	}
	return s
}

// Map returns a shallow copy of m in which non-empty string values under
// secret-looking keys are replaced by Placeholder.
func Map(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if str, ok := v.(string); ok && str != "" && IsSensitiveKey(k) {
			out[k] = Placeholder
			continue
		}
		out[k] = v
	}
	return out
}

// IsSensitiveKey reports whether a key name suggests it holds a secret.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, word := range sensitiveWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
