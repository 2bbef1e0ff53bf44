package ui

import (
	"errors"
	"testing"
	"time"
)

func TestFormatAge(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	cases := map[string]string{
		"":                     "-",
		"2026-08-31T11:59:30Z": "30s",
		"2026-08-31T11:30:00Z": "30m",
		"2026-08-31T06:00:00Z": "6h",
		"2026-08-28T12:00:00Z": "3d",
		"not-a-timestamp":      "not-a-timestamp",
	}
	for in, want := range cases {
		if got := formatAge(in, now); got != want {
			t.Errorf("formatAge(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestThemeByName(t *testing.T) {
	for _, name := range []string{"dark", "light", "high-contrast", "colorblind"} {
		_, resolved := themeByName(name)
		if resolved != name {
			t.Errorf("themeByName(%q) resolved to %q", name, resolved)
		}
	}
	if _, resolved := themeByName("bogus"); resolved != "dark" {
		t.Errorf("unknown theme should fall back to dark, got %q", resolved)
	}
}

func TestNextThemeNameCycles(t *testing.T) {
	seen := map[string]bool{}
	name := "dark"
	for i := 0; i < len(themeOrder); i++ {
		seen[name] = true
		name = nextThemeName(name)
	}
	if name != "dark" {
		t.Errorf("cycle did not wrap: ended on %q", name)
	}
	if len(seen) != len(themeOrder) {
		t.Errorf("cycle skipped themes: %v", seen)
	}
}

func TestAnalysisGuardSingleFlight(t *testing.T) {
	var g analysisGuard
	if !g.start("t1") {
		t.Fatal("first start should claim the slot")
	}
	if g.start("t1") {
		t.Error("second start must not run while the first is in flight")
	}
	if !g.start("t2") {
		t.Error("other tasks are independent")
	}
	g.done("t1")
	if !g.start("t1") {
		t.Error("slot should be free again after done")
	}
}

func TestAnalysisGuardParksFailures(t *testing.T) {
	var g analysisGuard
	if !g.start("t1") {
		t.Fatal("start failed")
	}
	boom := errors.New("backend down")
	g.fail("t1", boom)

	// A parked failure must block re-triggering on every redraw until the
	// operator explicitly retries.
	if g.start("t1") {
		t.Error("parked task must not restart")
	}
	if err := g.failure("t1"); !errors.Is(err, boom) {
		t.Errorf("failure() = %v, want %v", err, boom)
	}

	g.done("t1")
	if g.failure("t1") != nil {
		t.Error("done should clear the parked failure")
	}
	if !g.start("t1") {
		t.Error("retry should run after the failure is cleared")
	}
}

func TestStatusTag(t *testing.T) {
	theme := themeDark()
	if theme.statusTag("completed") != theme.TagStatusCompleted {
		t.Error("completed tag mismatch")
	}
	if theme.statusTag("failed") != theme.TagStatusFailed {
		t.Error("failed tag mismatch")
	}
	if theme.statusTag("weird") != theme.TagMuted {
		t.Error("unknown status should use muted tag")
	}
}
