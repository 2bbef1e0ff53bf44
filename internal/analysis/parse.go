// Package analysis normalizes the heterogeneous context-analysis payloads
// produced by the backend AI endpoint into one fixed report shape that the
// UI can render without defensive checks.
package analysis

import (
	"encoding/json"
	"strings"
)

// StripCodeFence removes one leading/trailing fenced-code-block marker, with
// or without a language tag, from a raw model response. Content that is not
// fenced passes through unchanged.
func StripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}
	body := trimmed[3:]
	// Drop an optional language tag on the opening fence line ("json", "js"...).
	if idx := strings.IndexByte(body, '\n'); idx >= 0 {
		firstLine := strings.TrimSpace(body[:idx])
		if firstLine == "" || isFenceTag(firstLine) {
			body = body[idx+1:]
		}
	}
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body)
}

func isFenceTag(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// ParseJSONOrText decodes a context-analysis value into a generic object.
// Already-decoded objects are returned as-is, so the function is idempotent.
// Strings (and raw JSON bytes) are unfenced and parsed; anything that does
// not yield a JSON object returns nil rather than an error, and callers
// render a "no data" state.
func ParseJSONOrText(v interface{}) map[string]interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]interface{}:
		return t
	case json.RawMessage:
		return parseBytes([]byte(t))
	case []byte:
		return parseBytes(t)
	case string:
		return parseBytes([]byte(t))
	default:
		return nil
	}
}

func parseBytes(data []byte) map[string]interface{} {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		return nil
	}
	s = StripCodeFence(s)

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(s), &obj); err == nil {
		return obj
	}
	// The payload may itself be a JSON-encoded string of an object.
	var inner string
	if err := json.Unmarshal([]byte(s), &inner); err == nil {
		inner = StripCodeFence(inner)
		if err := json.Unmarshal([]byte(inner), &obj); err == nil {
			return obj
		}
	}
	return nil
}

// Decode parses v and applies the double-decoding rule: when the parsed
// object's own "summary" field is a JSON-encoded object, its fields are
// merged over the outer object, inner fields winning on collision.
func Decode(v interface{}) map[string]interface{} {
	outer := ParseJSONOrText(v)
	if outer == nil {
		return nil
	}
	inner, ok := outer["summary"].(string)
	if !ok {
		return outer
	}
	nested := ParseJSONOrText(inner)
	if nested == nil {
		return outer
	}
	merged := make(map[string]interface{}, len(outer)+len(nested))
	for k, val := range outer {
		merged[k] = val
	}
	for k, val := range nested {
		merged[k] = val
	}
	return merged
}
