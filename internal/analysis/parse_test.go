package analysis

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestParseJSONOrTextIdempotent(t *testing.T) {
	inputs := []interface{}{
		`{"sentiment": "calm", "key_points": ["a", "b"]}`,
		"```json\n{\"sentiment\": \"calm\", \"key_points\": [\"a\", \"b\"]}\n```",
		json.RawMessage(`{"sentiment": "calm", "key_points": ["a", "b"]}`),
	}
	want := map[string]interface{}{
		"sentiment":  "calm",
		"key_points": []interface{}{"a", "b"},
	}
	for _, in := range inputs {
		once := ParseJSONOrText(in)
		if !reflect.DeepEqual(once, want) {
			t.Fatalf("ParseJSONOrText(%v) = %v, want %v", in, once, want)
		}
		twice := ParseJSONOrText(once)
		if !reflect.DeepEqual(twice, once) {
			t.Fatalf("second parse changed result: %v != %v", twice, once)
		}
	}
}

func TestParseJSONOrTextNonJSON(t *testing.T) {
	for _, in := range []interface{}{nil, "", "plain prose summary", "null", 42} {
		if got := ParseJSONOrText(in); got != nil {
			t.Fatalf("ParseJSONOrText(%v) = %v, want nil", in, got)
		}
	}
}

func TestParseJSONOrTextEncodedString(t *testing.T) {
	// The backend sometimes JSON-encodes the whole object as a string.
	got := ParseJSONOrText(`"{\"sentiment\": \"tense\"}"`)
	if got == nil || got["sentiment"] != "tense" {
		t.Fatalf("got %v, want sentiment=tense", got)
	}
}

func TestStripCodeFence(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\": 1}\n```": `{"a": 1}`,
		"```\n{\"a\": 1}\n```":     `{"a": 1}`,
		`{"a": 1}`:                 `{"a": 1}`,
		"```json\n{\"a\": 1}":      `{"a": 1}`,
	}
	for in, want := range cases {
		if got := StripCodeFence(in); got != want {
			t.Errorf("StripCodeFence(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDecodeMergesNestedSummary(t *testing.T) {
	raw := `{"summary": "{\"overview\": {\"topic\": \"X\"}}", "sentiment": "neutral"}`
	got := Decode(raw)
	if got == nil {
		t.Fatal("Decode returned nil")
	}
	ov, ok := got["overview"].(map[string]interface{})
	if !ok || ov["topic"] != "X" {
		t.Fatalf("overview.topic = %v, want X", got["overview"])
	}
	if got["sentiment"] != "neutral" {
		t.Fatalf("outer field lost: sentiment = %v", got["sentiment"])
	}
}

func TestDecodeInnerFieldsWin(t *testing.T) {
	raw := `{"sentiment": "outer", "summary": "{\"sentiment\": \"inner\"}"}`
	got := Decode(raw)
	if got["sentiment"] != "inner" {
		t.Fatalf("sentiment = %v, want inner", got["sentiment"])
	}
}

func TestDecodePlainTextSummaryKept(t *testing.T) {
	raw := `{"summary": "just words", "sentiment": "calm"}`
	got := Decode(raw)
	if got["summary"] != "just words" || got["sentiment"] != "calm" {
		t.Fatalf("got %v", got)
	}
}
