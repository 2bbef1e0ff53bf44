package analysis

import (
	"encoding/json"
	"strconv"
	"strings"
)

// NotAvailable is the display fallback for absent scalar fields so that
// nil/empty values never leak into the UI.
const NotAvailable = "not available"

// Overview is the fixed header block of a report.
type Overview struct {
	Title    string
	Time     string
	Location string
	Status   string
	Topic    string
}

// Entity is a flattened person / location / time / contact record.
type Entity struct {
	ID                string
	Label             string
	Name              string
	Type              string
	Role              string
	Context           string
	Sensitive         bool
	SensitivityReason string
}

// Relationship links two entities.
type Relationship struct {
	ID      string
	Source  string
	Target  string
	Label   string
	Type    string
	Context string
}

// Event is one timeline entry.
type Event struct {
	Time        string
	Description string
}

// Report is the fixed internal shape every context-analysis payload is
// mapped into before rendering. Every slice is non-nil after Normalize.
type Report struct {
	Summary             string
	Overview            Overview
	Entities            []Entity
	Relationships       []Relationship
	Events              []Event
	KeyPoints           []string
	Actions             []string
	Offers              []string
	Decisions           []string
	Sentiment           string
	Risks               []string
	Notes               string
	Insights            []string
	SlangDetected       string
	HiddenRelationships []string
	SensitiveInfo       []string
}

// Normalize maps a decoded context-analysis object into a Report. A nil
// input yields a nil report; callers treat that as "no data".
func Normalize(raw map[string]interface{}) *Report {
	if raw == nil {
		return nil
	}
	r := &Report{
		Summary:             asText(raw["summary"]),
		Overview:            normalizeOverview(raw),
		Entities:            normalizeEntities(raw["entities"]),
		Relationships:       normalizeRelationships(raw["relationships"]),
		Events:              normalizeEvents(raw),
		KeyPoints:           stringList(raw["key_points"]),
		Actions:             contentList(raw["actions"]),
		Offers:              contentList(raw["offers"]),
		Decisions:           contentList(raw["decisions"]),
		Sentiment:           asText(raw["sentiment"]),
		Risks:               stringList(raw["risk"]),
		Notes:               asText(raw["notes"]),
		Insights:            stringList(raw["insight"]),
		SlangDetected:       asText(raw["slang_detected"]),
		HiddenRelationships: stringList(raw["hidden_relationships"]),
		SensitiveInfo:       stringList(raw["sensitive_info"]),
	}
	// Some model runs nest actions/decisions under a details object.
	if details, ok := raw["details"].(map[string]interface{}); ok {
		if len(r.Actions) == 0 {
			r.Actions = contentList(details["actions"])
		}
		if len(r.Decisions) == 0 {
			r.Decisions = contentList(details["decisions"])
		}
		if len(r.Offers) == 0 {
			r.Offers = contentList(details["requirements"])
		}
	}
	return r
}

func normalizeOverview(raw map[string]interface{}) Overview {
	ov := Overview{
		Title:    NotAvailable,
		Time:     NotAvailable,
		Location: NotAvailable,
		Status:   NotAvailable,
		Topic:    NotAvailable,
	}
	obj, _ := raw["overview"].(map[string]interface{})
	if obj != nil {
		setIfPresent(&ov.Title, obj["title"])
		setIfPresent(&ov.Time, obj["time"])
		setIfPresent(&ov.Location, obj["location"])
		setIfPresent(&ov.Status, obj["status"])
		setIfPresent(&ov.Topic, obj["topic"])
	}
	// Older payloads carry the topic under a "context" object instead.
	if ov.Topic == NotAvailable {
		if cx, ok := raw["context"].(map[string]interface{}); ok {
			setIfPresent(&ov.Topic, cx["topic"])
		}
	}
	return ov
}

// normalizeEntities accepts the two shapes the backend emits: a flat entity
// array, or an object keyed by people / locations / time / contact.
func normalizeEntities(v interface{}) []Entity {
	out := []Entity{}
	switch t := v.(type) {
	case []interface{}:
		for _, item := range t {
			if e := entityFromObject(item, ""); e != nil {
				out = append(out, *e)
			}
		}
	case map[string]interface{}:
		for _, item := range asList(t["people"]) {
			if e := entityFromObject(item, "person"); e != nil {
				out = append(out, *e)
			}
		}
		for _, item := range asList(t["locations"]) {
			if e := entityFromObject(item, "location"); e != nil {
				out = append(out, *e)
			}
		}
		for _, item := range asList(t["time"]) {
			if e := entityFromObject(item, "time"); e != nil {
				out = append(out, *e)
			}
		}
		if contact, ok := t["contact"].(map[string]interface{}); ok {
			for _, kind := range []string{"phone", "email", "id"} {
				for _, item := range asList(contact[kind]) {
					if e := entityFromObject(item, kind); e != nil {
						out = append(out, *e)
					}
				}
			}
		}
	}
	return out
}

func entityFromObject(v interface{}, kind string) *Entity {
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) == "" {
			return nil
		}
		return &Entity{Label: t, Name: t, Type: kind}
	case map[string]interface{}:
		e := &Entity{
			ID:                asText(t["id"]),
			Label:             asText(t["label"]),
			Name:              asText(t["name"]),
			Type:              asText(t["type"]),
			Role:              asText(t["role"]),
			Context:           asText(t["context"]),
			Sensitive:         asBool(t["is_sensitive"]),
			SensitivityReason: asText(t["sensitivity_reason"]),
		}
		// Time and contact records carry their display text in "value".
		if e.Name == "" {
			e.Name = asText(t["value"])
		}
		if e.Type == "" {
			e.Type = kind
		}
		if e.Label == "" && e.Name == "" && e.Type == "" {
			return nil
		}
		return e
	default:
		return nil
	}
}

func normalizeRelationships(v interface{}) []Relationship {
	out := []Relationship{}
	for _, item := range asList(v) {
		obj, ok := item.(map[string]interface{})
		if !ok {
			if s := asText(item); s != "" {
				out = append(out, Relationship{Label: s})
			}
			continue
		}
		out = append(out, Relationship{
			ID:      asText(obj["id"]),
			Source:  asText(obj["source"]),
			Target:  asText(obj["target"]),
			Label:   asText(obj["label"]),
			Type:    asText(obj["type"]),
			Context: asText(obj["context"]),
		})
	}
	return out
}

// normalizeEvents reads "events" and falls back to "timeline"; entry
// descriptions fall back across description / action / event.
func normalizeEvents(raw map[string]interface{}) []Event {
	src := raw["events"]
	if len(asList(src)) == 0 {
		src = raw["timeline"]
	}
	out := []Event{}
	for _, item := range asList(src) {
		obj, ok := item.(map[string]interface{})
		if !ok {
			if s := asText(item); s != "" {
				out = append(out, Event{Description: s})
			}
			continue
		}
		ev := Event{Time: asText(obj["time"])}
		for _, key := range []string{"description", "action", "event"} {
			if s := asText(obj[key]); s != "" {
				ev.Description = s
				break
			}
		}
		out = append(out, ev)
	}
	return out
}

// asList coerces absent / single object / array into a slice.
func asList(v interface{}) []interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case []interface{}:
		return t
	default:
		return []interface{}{t}
	}
}

// asText renders a scalar for display; objects are compacted to JSON so
// unexpected shapes stay visible instead of vanishing.
func asText(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// asBool tolerates model output that marks flags as the strings
// "true"/"false" instead of JSON booleans.
func asBool(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(strings.TrimSpace(t), "true")
	default:
		return false
	}
}

func setIfPresent(dst *string, v interface{}) {
	if s := asText(v); s != "" {
		*dst = s
	}
}

// stringList coerces a field into display strings.
func stringList(v interface{}) []string {
	out := []string{}
	for _, item := range asList(v) {
		if s := asText(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// contentList is stringList with a preference for each item's "content"
// field when the item is an object.
func contentList(v interface{}) []string {
	out := []string{}
	for _, item := range asList(v) {
		if obj, ok := item.(map[string]interface{}); ok {
			if s := asText(obj["content"]); s != "" {
				out = append(out, s)
				continue
			}
		}
		if s := asText(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Display returns s, or the NotAvailable fallback when s is empty.
func Display(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotAvailable
	}
	return s
}
