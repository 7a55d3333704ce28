package apiclient

import (
	"strings"
)

// Namespaces whose state-changing requests get their body sanitized when
// hardening is enabled.
var sensitiveNamespaces = []string{
	"/auth",
	"/users",
	"/companies",
	"/leads",
	"/properties",
}

func isSensitivePath(path string) bool {
	for _, ns := range sensitiveNamespaces {
		if strings.HasPrefix(path, ns) {
			return true
		}
	}
	return false
}

// sanitizeValue recursively walks a decoded JSON value and cleans every
// string field: control characters are dropped and angle brackets are
// stripped so markup can never round-trip through the backend into a
// rendered page. Non-string leaves pass through untouched.
func sanitizeValue(v any) any {
	switch val := v.(type) {
	case string:
		return sanitizeString(val)
	case map[string]any:
		for k, item := range val {
			val[k] = sanitizeValue(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = sanitizeValue(item)
		}
		return val
	default:
		return v
	}
}

func sanitizeString(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '<' || r == '>':
			// dropped
		case r < 0x20 && r != '\n' && r != '\t':
			// dropped
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Response payload keys that must never reach callers, even if the backend
// leaks them.
func isPasswordKey(key string) bool {
	k := strings.ToLower(key)
	return strings.Contains(k, "password") || k == "passwd" || k == "pwd"
}

// stripSensitiveFields removes password-like keys from a decoded response
// object, recursively.
func stripSensitiveFields(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			if isPasswordKey(k) {
				delete(val, k)
				continue
			}
			val[k] = stripSensitiveFields(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = stripSensitiveFields(item)
		}
		return val
	default:
		return v
	}
}
