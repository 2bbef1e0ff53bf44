package analysis

import (
	"strings"
	"testing"
)

func TestSplitBlocksLossless(t *testing.T) {
	samples := []string{
		"",
		"one",
		"Nguyen met Tran at 9pm, near the docks.",
		"  leading and trailing  ",
		"punct!!!only???",
		"tabs\tand\nnewlines mixed  with   spaces",
		"unicode: Hà Nội, phở — ok",
	}
	for _, s := range samples {
		var joined strings.Builder
		for _, b := range SplitBlocks(s) {
			if b.Text == "" {
				t.Errorf("empty block for %q", s)
			}
			joined.WriteString(b.Text)
		}
		if joined.String() != s {
			t.Errorf("blocks do not rebuild input: %q != %q", joined.String(), s)
		}
	}
}

func TestSplitBlocksAlternates(t *testing.T) {
	blocks := SplitBlocks("a b")
	if len(blocks) != 3 {
		t.Fatalf("got %d blocks, want 3", len(blocks))
	}
	if !blocks[0].Keyword || blocks[1].Keyword || !blocks[2].Keyword {
		t.Fatalf("unexpected keyword flags: %+v", blocks)
	}
}

func TestHighlightMarksMatches(t *testing.T) {
	got := Highlight("Nguyen called Tran twice", []string{"Tran"}, "yellow")
	if !strings.Contains(got, "[yellow]Tran[-]") {
		t.Fatalf("match not tagged: %q", got)
	}
	if strings.Contains(got, "[yellow]Nguyen") {
		t.Fatalf("non-match tagged: %q", got)
	}
}

func TestHighlightCaseInsensitive(t *testing.T) {
	got := Highlight("NGUYEN spoke", []string{"nguyen"}, "red")
	if !strings.Contains(got, "[red]NGUYEN[-]") {
		t.Fatalf("case-insensitive match missed: %q", got)
	}
}

func TestHighlightNoTermsEscapesOnly(t *testing.T) {
	got := Highlight("literal [tags] stay", nil, "red")
	if strings.Contains(got, "[red]") {
		t.Fatalf("unexpected tag in %q", got)
	}
}

func TestKeywordTermsSplitsNames(t *testing.T) {
	r := &Report{Entities: []Entity{{Name: "Nguyen Van A"}}}
	terms := KeywordTerms(r)
	idx := keywordIndex(terms)
	for _, want := range []string{"nguyen van a", "nguyen", "van", "a"} {
		if _, ok := idx[want]; !ok {
			t.Errorf("term %q missing from %v", want, terms)
		}
	}
}
