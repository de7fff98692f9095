package logger

import (
	"net/http"
	"strings"
)

// sensitiveKeys flags JSON fields that must never reach a log line in
// full: credentials for the ingest API and the listing store, plus
// connection URLs that embed passwords.
var sensitiveKeys = []string{
	"password",
	"secret",
	"token",
	"api_key",
	"ingest_key",
	"listing_key",
	"authorization",
	"dsn",
	"amqp_url",
}

// MaskAuthorization masks a bearer credential, preserving the scheme so
// operators can tell an ingest key from a listing-store key at a glance.
func MaskAuthorization(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	parts := strings.Fields(value)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return "Bearer " + keepLast4(parts[1])
	}
	return keepLast4(value)
}

// MaskAPIKey masks a key, keeping the last 4 characters for correlation
// with the key registry.
func MaskAPIKey(value string) string {
	return keepLast4(strings.TrimSpace(value))
}

// MaskHeaders returns a copy of headers safe to log. Authorization is
// masked scheme-aware; any header whose name smells like a credential
// (key, secret, token) is masked wholesale.
func MaskHeaders(headers http.Header) map[string]string {
	if len(headers) == 0 {
		return map[string]string{}
	}
	masked := make(map[string]string, len(headers))
	for key, values := range headers {
		joined := strings.Join(values, ",")
		name := strings.ToLower(strings.TrimSpace(key))
		switch {
		case name == "authorization":
			masked[key] = MaskAuthorization(joined)
		case strings.Contains(name, "key"),
			strings.Contains(name, "secret"),
			strings.Contains(name, "token"),
			name == "cookie":
			masked[key] = MaskAPIKey(joined)
		default:
			masked[key] = joined
		}
	}
	return masked
}

// MaskJSON returns a deep copy of the map with sensitive fields masked.
// Nested objects and arrays are walked recursively.
func MaskJSON(input map[string]any) map[string]any {
	if input == nil {
		return nil
	}
	out := make(map[string]any, len(input))
	for key, value := range input {
		if isSensitiveKey(key) {
			out[key] = redact(value)
			continue
		}
		out[key] = maskJSONValue(value)
	}
	return out
}

func maskJSONValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return MaskJSON(typed)
	case []any:
		items := make([]any, 0, len(typed))
		for _, entry := range typed {
			items = append(items, maskJSONValue(entry))
		}
		return items
	default:
		return value
	}
}

func redact(value any) any {
	switch typed := value.(type) {
	case string:
		return keepLast4(typed)
	case []byte:
		return keepLast4(string(typed))
	default:
		return "****"
	}
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, needle := range sensitiveKeys {
		if strings.Contains(key, needle) {
			return true
		}
	}
	return false
}

func keepLast4(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return "****" + value
	}
	return "****" + value[len(value)-4:]
}
