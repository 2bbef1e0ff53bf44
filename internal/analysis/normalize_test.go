package analysis

import "testing"

func TestNormalizeNil(t *testing.T) {
	if Normalize(nil) != nil {
		t.Fatal("nil input should yield nil report")
	}
}

func TestNormalizeEntityArray(t *testing.T) {
	raw := Decode(`{
		"entities": [
			{"id": "e1", "label": "Nguyen", "type": "person", "role": "caller"},
			{"name": "Dock 4", "type": "location"}
		],
		"relationships": [{"source": "e1", "target": "e2", "label": "called"}]
	}`)
	r := Normalize(raw)
	if len(r.Entities) != 2 {
		t.Fatalf("got %d entities", len(r.Entities))
	}
	if r.Entities[0].Label != "Nguyen" || r.Entities[0].Role != "caller" {
		t.Fatalf("entity[0] = %+v", r.Entities[0])
	}
	if len(r.Relationships) != 1 || r.Relationships[0].Label != "called" {
		t.Fatalf("relationships = %+v", r.Relationships)
	}
}

func TestNormalizeGroupedEntities(t *testing.T) {
	raw := Decode(`{
		"entities": {
			"people": [{"name": "Tran", "is_sensitive": "true", "sensitivity_reason": "minor"}],
			"locations": ["Hai Phong"],
			"time": [{"value": "21:00"}],
			"contact": {"phone": ["0901234567"]}
		}
	}`)
	r := Normalize(raw)
	if len(r.Entities) != 4 {
		t.Fatalf("got %d entities: %+v", len(r.Entities), r.Entities)
	}
	byType := map[string]Entity{}
	for _, e := range r.Entities {
		byType[e.Type] = e
	}
	if !byType["person"].Sensitive {
		t.Error("string \"true\" flag not coerced")
	}
	if byType["location"].Name != "Hai Phong" {
		t.Errorf("location = %+v", byType["location"])
	}
	if byType["time"].Name != "21:00" {
		t.Errorf("time value not read: %+v", byType["time"])
	}
	if byType["phone"].Name != "0901234567" {
		t.Errorf("contact phone missing: %+v", byType["phone"])
	}
}

func TestNormalizeOverviewDefaults(t *testing.T) {
	r := Normalize(Decode(`{"overview": {"topic": "ransom call"}}`))
	if r.Overview.Topic != "ransom call" {
		t.Fatalf("topic = %q", r.Overview.Topic)
	}
	for name, got := range map[string]string{
		"title":    r.Overview.Title,
		"time":     r.Overview.Time,
		"location": r.Overview.Location,
		"status":   r.Overview.Status,
	} {
		if got != NotAvailable {
			t.Errorf("%s = %q, want %q", name, got, NotAvailable)
		}
	}
}

func TestNormalizeNumericScalars(t *testing.T) {
	// Backends occasionally emit numbers where strings are expected; they
	// must render without a float artifact like "3.140000".
	r := Normalize(Decode(`{"sentiment": 3.14, "notes": 42, "entities": [{"name": "Tran", "id": 7}]}`))
	if r.Sentiment != "3.14" {
		t.Fatalf("sentiment = %q", r.Sentiment)
	}
	if r.Notes != "42" {
		t.Fatalf("notes = %q", r.Notes)
	}
	if len(r.Entities) != 1 || r.Entities[0].ID != "7" {
		t.Fatalf("entities = %+v", r.Entities)
	}
}

func TestNormalizeTimelineFallback(t *testing.T) {
	r := Normalize(Decode(`{"timeline": [{"time": "09:00", "action": "pickup arranged"}]}`))
	if len(r.Events) != 1 || r.Events[0].Description != "pickup arranged" {
		t.Fatalf("events = %+v", r.Events)
	}
}

func TestNormalizeDetailsFallback(t *testing.T) {
	r := Normalize(Decode(`{
		"details": {
			"actions": [{"content": "trace the number"}],
			"decisions": ["hold surveillance"],
			"requirements": ["warrant"]
		}
	}`))
	if len(r.Actions) != 1 || r.Actions[0] != "trace the number" {
		t.Fatalf("actions = %+v", r.Actions)
	}
	if len(r.Decisions) != 1 || len(r.Offers) != 1 {
		t.Fatalf("decisions = %+v offers = %+v", r.Decisions, r.Offers)
	}
}

func TestCollectSensitiveUnion(t *testing.T) {
	r := &Report{
		SensitiveInfo: []string{"account 889900", "account 889900"},
		Entities: []Entity{
			{Name: "Tran", Sensitive: true, SensitivityReason: "minor"},
			{Name: "Nguyen"},
		},
	}
	got := CollectSensitive(r)
	want := []string{"account 889900", "Tran (minor)"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if !HasSensitive(r) {
		t.Error("HasSensitive should be true")
	}
}

func TestBuildGraphDropsDanglingEdges(t *testing.T) {
	r := &Report{
		Entities: []Entity{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}},
		Relationships: []Relationship{
			{Source: "a", Target: "b", Label: "met"},
			{Source: "a", Target: "ghost", Label: "called"},
		},
	}
	g := BuildGraph(r)
	if len(g.Nodes) != 2 {
		t.Fatalf("nodes = %+v", g.Nodes)
	}
	if g.Nodes[0].X != 100 || g.Nodes[1].X != 220 {
		t.Fatalf("layout x = %d, %d", g.Nodes[0].X, g.Nodes[1].X)
	}
	if len(g.Edges) != 1 || g.Edges[0].Label != "met" {
		t.Fatalf("edges = %+v", g.Edges)
	}
}
