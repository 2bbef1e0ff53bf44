package cmd

import (
	"strings"
	"testing"
)

func TestRenderTable(t *testing.T) {
	out := renderTable(
		[]string{"ID", "Title"},
		[][]string{{"1", "Warehouse break-in"}, {"2"}},
		[]columnAlignment{alignRight, alignLeft},
	)
	if !strings.Contains(out, "Warehouse break-in") {
		t.Errorf("row content missing from output:\n%s", out)
	}
	if !strings.Contains(out, "ID") || !strings.Contains(out, "Title") {
		t.Errorf("headers missing from output:\n%s", out)
	}
	// Short rows pad out to the header width instead of erroring.
	if lines := strings.Split(out, "\n"); len(lines) < 4 {
		t.Errorf("expected bordered table, got:\n%s", out)
	}
}

func TestRenderTableEmptyHeaders(t *testing.T) {
	if out := renderTable(nil, nil, nil); out != "" {
		t.Errorf("expected empty output, got %q", out)
	}
}

func TestResolvePathRelativeToBase(t *testing.T) {
	if got := resolvePathRelativeToBase("/base", "/abs/path"); got != "/abs/path" {
		t.Errorf("absolute path should pass through, got %q", got)
	}
	if got := resolvePathRelativeToBase("/base", "./data/db.sqlite"); got != "/base/data/db.sqlite" {
		t.Errorf("relative path not resolved, got %q", got)
	}
	if got := resolvePathRelativeToBase("/base", "data/db.sqlite"); got != "/base/data/db.sqlite" {
		t.Errorf("bare relative path not resolved, got %q", got)
	}
}
